// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package api

import (
	"net/url"
	"strconv"
	"strings"
)

// Args are the decoded key/value arguments of one operation.
type Args map[string]string

// Get returns the value for key and whether it was present.
func (a Args) Get(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

// Int parses key as a base-10 integer, returning def when the key is
// absent.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	return strconv.Atoi(strings.TrimSpace(v))
}

// Int64 is Int for 64-bit values.
func (a Args) Int64(key string, def int64) (int64, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
}

// ParsedURL is the path and decoded query of a request target.
type ParsedURL struct {
	Path  string
	Query Args
}

// ParseURL splits a request target such as "/query?op=x&count=5" into its
// path and decoded query. A fragment is ignored.
func ParseURL(target string) ParsedURL {
	target, _, _ = strings.Cut(target, "#")
	path, query, _ := strings.Cut(target, "?")
	if p, err := url.PathUnescape(path); err == nil {
		path = p
	}
	return ParsedURL{Path: path, Query: ParseQuery(query)}
}

// ParseQuery decodes an application/x-www-form-urlencoded string.
//
// Pairs are separated by '&' and split at the first '='. Keys and values
// are percent-decoded with '+' meaning a space. A key without '=' maps to
// the empty string, and when a key repeats the last value wins.
func ParseQuery(s string) Args {
	args := make(Args)
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		args[unescape(key)] = unescape(value)
	}
	return args
}

// unescape decodes one query component. Malformed escapes are kept
// literally.
func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return strings.ReplaceAll(s, "+", " ")
}
