package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"pickfast/internal/core/config"
)

func TestFromConfigWritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	l, cleanup := FromConfig(config.Log{
		Level: "info",
		JSON:  true,
		File:  config.LogFile{Enable: true, Filename: file, MaxSizeMB: 1},
	})
	l.Info("group dissolved")
	l.Debug("below level")
	cleanup()

	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, "group dissolved") {
		t.Errorf("expected info entry in file, got %q", out)
	}
	if strings.Contains(out, "below level") {
		t.Errorf("debug entry should be filtered, got %q", out)
	}
}

func TestToWriterTrimsNewlines(t *testing.T) {
	file := filepath.Join(t.TempDir(), "w.log")
	l, cleanup := Build(Options{Level: "debug", JSON: true, Rotate: FileRotate{Enable: true, Filename: file}})
	w := ToWriter(l, zapcore.WarnLevel)
	n, err := w.Write([]byte("slow query\n"))
	if err != nil || n != len("slow query\n") {
		t.Fatalf("Write = %d, %v", n, err)
	}
	cleanup()

	b, _ := os.ReadFile(file)
	if !strings.Contains(string(b), `"msg":"slow query"`) {
		t.Errorf("expected trimmed message, got %q", string(b))
	}
	if !strings.Contains(string(b), `"level":"warn"`) {
		t.Errorf("expected warn level, got %q", string(b))
	}
}
