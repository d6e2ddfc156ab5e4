// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	contentTypeMultipart  = "multipart/form-data"
	contentTypeURLEncoded = "application/x-www-form-urlencoded"
)

// DecodeBody reads the request body into operation arguments. Multipart
// form data and urlencoded bodies are accepted; the content type match is
// a case-insensitive prefix match.
func DecodeBody(r *http.Request) (Args, error) {
	contentType := r.Header.Get("Content-Type")
	lower := strings.ToLower(contentType)

	switch {
	case strings.HasPrefix(lower, contentTypeMultipart):
		boundary, err := multipartBoundary(contentType)
		if err != nil {
			return nil, err
		}
		body, err := readBody(r)
		if err != nil {
			return nil, err
		}
		return ParseMultipart(boundary, body)

	case strings.HasPrefix(lower, contentTypeURLEncoded):
		body, err := readBody(r)
		if err != nil {
			return nil, err
		}
		return ParseQuery(string(body)), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return body, nil
}

func multipartBoundary(contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingBoundary, err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", ErrMissingBoundary
	}
	return boundary, nil
}

// ParseMultipart decodes a multipart/form-data body into arguments keyed by
// form field name. Parts without a name are skipped.
func ParseMultipart(boundary string, body []byte) (Args, error) {
	args := make(Args)
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return args, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}

		name := part.FormName()
		value, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		if name != "" {
			args[name] = string(value)
		}
	}
}
