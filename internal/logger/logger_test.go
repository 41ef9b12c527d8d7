package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewWithWriterWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)
	log.Info().Str("period", "2024").Msg("report built")

	out := buf.String()
	for _, want := range []string{`"level":"info"`, `"period":"2024"`, `"message":"report built"`, `"time":`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf).With().Str("request_id", "req-1").Logger()

	ctx := WithContext(context.Background(), log)
	ctxLog := FromContext(ctx)
	ctxLog.Warn().Msg("slow query")
	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Fatalf("expected context logger to be used, got %s", buf.String())
	}

	// no logger in context must not panic
	noLog := FromContext(context.Background())
	noLog.Info().Msg("dropped")
}
