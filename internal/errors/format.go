package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	e := asError(err)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", e.Message))
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("  Cause: %v\n", e.Cause))
	}
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", e.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", e.Code))

	return sb.String()
}

// Payload is the JSON representation of an error returned by the HTTP API.
type Payload struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// ToPayload converts any error into its JSON payload.
func ToPayload(err error) Payload {
	e := asError(err)
	p := Payload{
		Code:       e.Code,
		Message:    e.Message,
		Category:   string(e.Category),
		Severity:   string(e.Severity),
		Details:    e.Details,
		Suggestion: e.Suggestion,
		Retryable:  e.Retryable,
	}
	if e.Cause != nil {
		p.Cause = e.Cause.Error()
	}
	return p
}

// LogAttrs formats an error as slog attributes for structured logging.
func LogAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}

	var e *Error
	if !stderrors.As(err, &e) {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{
		slog.String("error_code", e.Code),
		slog.String("error", e.Message),
		slog.String("severity", string(e.Severity)),
	}
	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}
	for k, v := range e.Details {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}
	return attrs
}

// LogArgs is LogAttrs in the form accepted by slog.Logger's level methods.
func LogArgs(err error) []any {
	attrs := LogAttrs(err)
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return args
}

func asError(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Wrap(ErrCodeInternal, err)
}
