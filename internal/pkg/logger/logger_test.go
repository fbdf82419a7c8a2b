package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, ok := ParseLevel(in)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q)=%v,%v", in, got, ok)
		}
	}
	if lvl, ok := ParseLevel("verbose"); ok || lvl != zapcore.InfoLevel {
		t.Fatalf("unknown level must fall back to info")
	}
}

func TestNamedAdapterWritesThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	InitWithZap(zap.New(core))

	Named("aggregator").Warn("asset dropped", "symbol", "TOK")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d", len(entries))
	}
	e := entries[0]
	if e.Message != "asset dropped" || e.Level != zapcore.WarnLevel {
		t.Fatalf("entry=%+v", e)
	}
	fields := e.ContextMap()
	if fields["component"] != "aggregator" || fields["symbol"] != "TOK" {
		t.Fatalf("fields=%v", fields)
	}
}
