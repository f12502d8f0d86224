package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestErr(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("with error", Err(errors.New("boom")))
	if !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("expected error attribute, got %q", buf.String())
	}

	buf.Reset()
	logger.Info("without error", Err(nil))
	if strings.Contains(buf.String(), "error=") {
		t.Errorf("nil error must be omitted, got %q", buf.String())
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithService(WithAccount(logger, "acc-1"), "gmail").Info("fetched",
		Operation("batch_get"),
		Thread("t-42"),
		Status(StatusSuccess),
	)

	out := buf.String()
	for _, want := range []string{"account=acc-1", "service=gmail", "operation=batch_get", "thread_id=t-42", "status=success"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestAnonymizeEmail(t *testing.T) {
	if got := AnonymizeEmail(""); got != "" {
		t.Errorf("AnonymizeEmail(\"\") = %q", got)
	}

	a := AnonymizeEmail("jane@example.com")
	b := AnonymizeEmail("jane@example.com")
	c := AnonymizeEmail("john@example.com")

	if a != b {
		t.Error("anonymization must be deterministic")
	}
	if a == c {
		t.Error("different emails must hash differently")
	}
	if !strings.HasPrefix(a, "user:") {
		t.Errorf("unexpected format %q", a)
	}
	if strings.Contains(a, "jane") {
		t.Errorf("anonymized value leaks the address: %q", a)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane@example.com", "example.com"},
		{"nodomain", ""},
		{"", ""},
		{"two@at@signs", ""},
	}

	for _, tt := range tests {
		if got := ExtractDomain(tt.email); got != tt.want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
