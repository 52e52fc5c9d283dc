package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{"debug level", "debug", logrus.DebugLevel},
		{"info level", "info", logrus.InfoLevel},
		{"warn level", "warn", logrus.WarnLevel},
		{"error level", "error", logrus.ErrorLevel},
		{"unknown level defaults to info", "verbose", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = logrus.New()
			if err := Init(tt.level, "", false); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			if Logger.GetLevel() != tt.want {
				t.Errorf("expected level %v, got %v", tt.want, Logger.GetLevel())
			}
		})
	}
}

func TestInit_WithLogFile(t *testing.T) {
	Logger = logrus.New()
	logFile := filepath.Join(t.TempDir(), "subdir", "faceclock.log")

	if err := Init("info", logFile, false); err != nil {
		t.Fatalf("Init with log file failed: %v", err)
	}

	// Nested directories are created as needed.
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Logger = logrus.New()
	if err := Init("info", "", true); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Logger.SetOutput(&buf)

	Infof("hello %s", "kiosk")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello kiosk"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Logger = logrus.New()
	Logger.SetOutput(&buf)
	Logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	Component("gallery").Info("loaded")

	out := buf.String()
	if !strings.Contains(out, "component=gallery") {
		t.Error("component field not in output")
	}
	if !strings.Contains(out, "loaded") {
		t.Error("message not in output")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	Logger = logrus.New()
	Logger.SetOutput(&buf)
	Logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	WithFields(Fields{
		"email": "a@x.com",
		"kind":  "in",
	}).Info("attendance recorded")

	out := buf.String()
	if !strings.Contains(out, "email=a@x.com") || !strings.Contains(out, "kind=in") {
		t.Errorf("fields missing from output: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Logger = logrus.New()
	Logger.SetOutput(&buf)
	Logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	SetLevel("error")

	Debugf("hidden")
	Infof("hidden")
	Warnf("hidden")
	if buf.Len() > 0 {
		t.Error("sub-error messages should be filtered at error level")
	}

	Errorf("visible")
	if buf.Len() == 0 {
		t.Error("Error should be logged at error level")
	}
}
