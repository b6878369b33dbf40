package ui

import (
	"strings"
	"testing"
)

func TestFormatMessage_NoColorsPassesThrough(t *testing.T) {
	console := &Console{useColors: false}

	message := "plain message"
	for _, style := range []ConsoleStyle{StyleNormal, StyleError, StyleWarning, StyleSuccess, StyleInfo} {
		if got := console.formatMessage(style, message); got != message {
			t.Errorf("Style %d: expected pass-through, got '%s'", style, got)
		}
	}
}

func TestFormatMessage_ColorsWrapMessage(t *testing.T) {
	console := &Console{useColors: true}

	got := console.formatMessage(StyleError, "boom")
	if !strings.Contains(got, "boom") {
		t.Errorf("Expected message in output, got '%s'", got)
	}
	if !strings.HasSuffix(got, colorReset) {
		t.Errorf("Expected color reset suffix, got '%s'", got)
	}

	// Normal style carries no escape codes even with colors on.
	if got := console.formatMessage(StyleNormal, "plain"); got != "plain" {
		t.Errorf("Expected unstyled output, got '%s'", got)
	}
}

func TestFormatErrorMessage(t *testing.T) {
	console := &Console{}

	tests := []struct {
		name       string
		context    string
		cause      string
		suggestion string
		want       string
	}{
		{"all parts", "It broke", "disk full", "free some space", "It broke\nCause: disk full\nSuggestion: free some space"},
		{"context only", "It broke", "", "", "It broke"},
		{"cause only", "", "disk full", "", "Cause: disk full"},
		{"empty", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := console.FormatErrorMessage(tt.context, tt.cause, tt.suggestion); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}
