package log

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	return logs
}

func TestErrorPrependsErr(t *testing.T) {
	logs := observe(t)

	Error("reload failed", errors.New("boom"), "path", "calendar.yaml")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["err"] != "boom" {
		t.Errorf("err field = %v, want boom", ctx["err"])
	}
	if ctx["path"] != "calendar.yaml" {
		t.Errorf("path field = %v, want calendar.yaml", ctx["path"])
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("level = %v, want error", entries[0].Level)
	}
}

func TestOddKeyValuesAreDropped(t *testing.T) {
	logs := observe(t)

	Info("request", "status", 200, 42, "ignored", "dangling")

	ctx := logs.All()[0].ContextMap()
	if len(ctx) != 1 {
		t.Errorf("expected only the status field, got %v", ctx)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	defer minLevel.SetLevel(zapcore.InfoLevel)

	SetLevel(LevelWarn)
	if got := minLevel.Level(); got != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", got)
	}

	// Unknown levels leave the current level unchanged.
	SetLevel("LOUD")
	if got := minLevel.Level(); got != zapcore.WarnLevel {
		t.Errorf("level = %v after invalid SetLevel, want warn", got)
	}
}
