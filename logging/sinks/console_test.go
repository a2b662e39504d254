package sinks_test

import (
	"bytes"
	"strings"
	"testing"

	"doomlink/client/logging"
	"doomlink/client/logging/sinks"
)

func TestConsoleSinkPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	sink := sinks.NewConsoleSink(&buf, logging.ConsoleConfig{})

	if err := sink.Write(logging.Event{Type: "check", Severity: logging.SeverityWarn, Slot: "Player1"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	line := buf.String()
	if !strings.Contains(line, "[check] severity=warn slot=Player1") {
		t.Fatalf("line = %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("color escapes present without UseColor: %q", line)
	}
}

func TestConsoleSinkColorsSeverity(t *testing.T) {
	var buf bytes.Buffer
	sink := sinks.NewConsoleSink(&buf, logging.ConsoleConfig{UseColor: true})

	if err := sink.Write(logging.Event{Type: "check", Severity: logging.SeverityError}); err != nil {
		t.Fatalf("write: %v", err)
	}

	line := buf.String()
	if !strings.Contains(line, "severity=\x1b[31merror\x1b[0m") {
		t.Fatalf("line = %q", line)
	}
}
