package forwarder

import (
	"errors"
	"strings"
)

var (
	// ErrParse means the inbound message was not valid base64 or JSON.
	ErrParse = errors.New("parse error")
	// ErrFieldAccess means the payload parsed but lacks a field the relay needs.
	ErrFieldAccess = errors.New("field access error")
	// ErrTransport means the webhook request could not complete.
	ErrTransport = errors.New("transport error")
)

// FieldError lists the JSON paths that were missing or had the wrong type.
// It matches ErrFieldAccess with errors.Is.
type FieldError struct {
	Fields []string
	Err    error
}

func (e *FieldError) Error() string {
	msg := "missing or invalid fields: " + strings.Join(e.Fields, ", ")
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FieldError) Is(target error) bool {
	return target == ErrFieldAccess
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Classify returns a short label for err, used for metrics and logs.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrParse):
		return "parse_error"
	case errors.Is(err, ErrFieldAccess):
		return "field_error"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	default:
		return "error"
	}
}
