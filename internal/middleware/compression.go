// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// DefaultCompressionThreshold is the smallest body worth compressing.
const DefaultCompressionThreshold = 1024

// gzipWriterPool pools gzip writers to reduce allocations
var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// gzipResponseWriter decides on the first WriteHeader whether the body is
// compressed. Bodies with a declared Content-Length below the threshold,
// empty statuses and already encoded bodies pass through unchanged.
type gzipResponseWriter struct {
	http.ResponseWriter
	threshold   int
	gz          *gzip.Writer
	wroteHeader bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	if w.shouldCompress(status) {
		gz := gzipWriterPool.Get().(*gzip.Writer)
		gz.Reset(w.ResponseWriter)
		w.gz = gz

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Del("Content-Length") // Length will be different after compression
	}
	w.Header().Add("Vary", "Accept-Encoding")
	w.ResponseWriter.WriteHeader(status)
}

func (w *gzipResponseWriter) shouldCompress(status int) bool {
	if status < http.StatusOK || status == http.StatusNoContent || status == http.StatusNotModified {
		return false
	}
	h := w.Header()
	if h.Get("Content-Encoding") != "" {
		return false
	}
	if cl := h.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err == nil && n < w.threshold {
			return false
		}
	}
	return true
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.gz != nil {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *gzipResponseWriter) close() {
	if w.gz == nil {
		return
	}
	_ = w.gz.Close() // best effort, the response is already on the wire
	gzipWriterPool.Put(w.gz)
	w.gz = nil
}

// Compression gzips responses for clients that accept it. Responses that
// declare a Content-Length below threshold are sent as is; threshold <= 0
// uses DefaultCompressionThreshold.
func Compression(threshold int) func(http.HandlerFunc) http.HandlerFunc {
	if threshold <= 0 {
		threshold = DefaultCompressionThreshold
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next(w, r)
				return
			}

			gzw := &gzipResponseWriter{ResponseWriter: w, threshold: threshold}
			defer gzw.close()
			next(gzw, r)
		}
	}
}
