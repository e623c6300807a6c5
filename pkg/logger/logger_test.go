package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_WritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Output: &buf, Service: "rental-api"})

	l.Debug().Str("k", "v").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if line["service"] != "rental-api" || line["k"] != "v" || line["message"] != "hello" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Output: &buf})

	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	var fallbackBuf, scopedBuf bytes.Buffer
	fallback := New(Options{Output: &fallbackBuf})
	scoped := New(Options{Output: &scopedBuf}).With().Str("request_id", "r-1").Logger()

	got := FromContext(context.Background(), fallback)
	got.Info().Msg("a")
	if fallbackBuf.Len() == 0 {
		t.Fatalf("expected fallback logger to be used")
	}

	ctx := WithContext(context.Background(), scoped)
	got = FromContext(ctx, fallback)
	got.Info().Msg("b")
	if !bytes.Contains(scopedBuf.Bytes(), []byte(`"request_id":"r-1"`)) {
		t.Fatalf("expected scoped logger, got %q", scopedBuf.String())
	}
}
