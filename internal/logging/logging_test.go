package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"WARNING", slog.LevelWarn, false},
		{"warn", slog.LevelWarn, false},
		{"ERROR", slog.LevelError, false},
		{"CRITICAL", LevelCritical, false},
		{"LOUD", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetupWritesConsoleAndFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "app.log")
	closer, err := SetupWriter(&console, "INFO", logFile)
	if err != nil {
		t.Fatalf("SetupWriter: %v", err)
	}

	slog.Debug("hidden")
	Component("scraper").Info("scraped", slog.String("site", "boss"))
	slog.Log(t.Context(), LevelCritical, "fatal thing")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out := console.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record should be filtered at INFO")
	}
	if !strings.Contains(out, "component=scraper") || !strings.Contains(out, "site=boss") {
		t.Errorf("console missing attrs: %s", out)
	}
	if !strings.Contains(out, "level=CRITICAL") {
		t.Errorf("critical level not renamed: %s", out)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"scraper"`) {
		t.Errorf("file log missing JSON record: %s", data)
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	if _, err := SetupWriter(&bytes.Buffer{}, "LOUD", ""); err == nil {
		t.Fatal("expected error for bad level")
	}
}
