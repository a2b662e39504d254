package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"doomlink/client/logging"
)

type ConsoleSink struct {
	logger   *log.Logger
	useColor bool
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	prefix := ""
	flags := log.LstdFlags
	return &ConsoleSink{
		logger:   log.New(w, prefix, flags),
		useColor: cfg.UseColor,
	}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	payload := formatPayload(event.Payload)
	slot := ""
	if event.Slot != "" {
		slot = fmt.Sprintf(" slot=%s", event.Slot)
	}
	severity := formatSeverity(event.Severity)
	if s.useColor {
		severity = colorSeverity(event.Severity, severity)
	}
	s.logger.Printf("[%s] severity=%s%s%s", event.Type, severity, slot, payload)
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func formatSeverity(sev logging.Severity) string {
	switch sev {
	case logging.SeverityDebug:
		return "debug"
	case logging.SeverityInfo:
		return "info"
	case logging.SeverityWarn:
		return "warn"
	case logging.SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// colorSeverity wraps the severity token in an ANSI color. Only the token is
// wrapped so the rest of the line stays grep-friendly.
func colorSeverity(sev logging.Severity, text string) string {
	var code string
	switch sev {
	case logging.SeverityDebug:
		code = "36" // cyan
	case logging.SeverityInfo:
		code = "32" // green
	case logging.SeverityWarn:
		code = "33" // yellow
	case logging.SeverityError:
		code = "31" // red
	default:
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return fmt.Sprintf(" payload=%s", data)
}
