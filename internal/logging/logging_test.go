package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConfigure_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := configure(logrus.New(), &buf, "debug", "json")
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	l.WithField("table", "notes").Debug("reset")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %q", buf.String())
	}
	if entry["table"] != "notes" || entry["msg"] != "reset" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestConfigure_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := configure(logrus.New(), &buf, "warn", "text")
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
}

func TestConfigure_Invalid(t *testing.T) {
	if _, err := configure(logrus.New(), &bytes.Buffer{}, "chatty", "text"); err == nil {
		t.Fatalf("expected error for bad level")
	}
	if _, err := configure(logrus.New(), &bytes.Buffer{}, "info", "xml"); err == nil {
		t.Fatalf("expected error for bad format")
	}
}
