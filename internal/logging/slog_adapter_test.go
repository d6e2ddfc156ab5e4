// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSlogHandler_WritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.Warn("service restarted",
		"service", "executor",
		"attempt", 3,
		"backoff", 2*time.Second,
		"healthy", false,
	)

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"message":"service restarted"`,
		`"service":"executor"`,
		`"attempt":3`,
		`"healthy":false`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewSlogHandlerWithLogger(NewTestLogger(&buf))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("tree", "root")}).WithGroup("event"))

	logger.Info("supervisor event", "type", "terminate", slog.Group("svc", "name", "http"))

	out := buf.String()
	for _, want := range []string{`"event.tree":"root"`, `"event.type":"terminate"`, `"event.svc.name":"http"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug - 4, "trace"},
		{slog.LevelDebug, "debug"},
		{slog.LevelInfo, "info"},
		{slog.LevelWarn, "warn"},
		{slog.LevelError, "error"},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.level).String(); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %s, want %s", tt.level, got, tt.want)
		}
	}
}
