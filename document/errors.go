package document

import (
	"fmt"
	"strings"
)

// ConversionError describes why a Datum could not be converted into a typed
// value. Path segments are collected innermost first while the error unwinds
// through nested fields and only joined when the error is rendered.
type ConversionError struct {
	Message string
	path    []string
}

// Errorf creates a ConversionError with no path
func Errorf(format string, args ...interface{}) *ConversionError {
	return &ConversionError{Message: fmt.Sprintf(format, args...)}
}

// In qualifies the error with the field it occurred in and returns e
func (e *ConversionError) In(field string) *ConversionError {
	e.path = append(e.path, field)
	return e
}

// Path returns the field path from outermost to innermost
func (e *ConversionError) Path() []string {
	out := make([]string, len(e.path))
	for i, seg := range e.path {
		out[len(e.path)-1-i] = seg
	}
	return out
}

func (e *ConversionError) Error() string {
	if len(e.path) == 0 {
		return e.Message
	}
	var b strings.Builder
	for i := len(e.path) - 1; i >= 0; i-- {
		b.WriteString("In `")
		b.WriteString(e.path[i])
		b.WriteString("`: ")
	}
	b.WriteString(e.Message)
	return b.String()
}
