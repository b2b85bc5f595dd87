package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/maxpert/serverconfig/document"
)

func TestIllegalInsertError(t *testing.T) {
	expected := "It's illegal to insert new rows into the `system.server_config` table."
	if got := ErrIllegalInsert.Error(); got != expected {
		t.Errorf("ErrIllegalInsert.Error() = %q, want %q", got, expected)
	}
}

func TestSchemaViolationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *document.ConversionError
		expected string
	}{
		{
			name:     "top level",
			err:      document.Errorf("Unexpected key(s) `zone`."),
			expected: "The row you're trying to put into `system.server_config` has the wrong format. Unexpected key(s) `zone`.",
		},
		{
			name:     "nested field",
			err:      document.Errorf("Expected a UUID; got 5.").In("id"),
			expected: "The row you're trying to put into `system.server_config` has the wrong format. In `id`: Expected a UUID; got 5.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &SchemaViolationError{Err: tt.err}
			if got := err.Error(); got != tt.expected {
				t.Errorf("SchemaViolationError.Error() = %q, want %q", got, tt.expected)
			}

			var convErr *document.ConversionError
			if !errors.As(err, &convErr) {
				t.Error("errors.As should find the ConversionError")
			}
		})
	}
}

func TestExternalOperationError(t *testing.T) {
	cause := errors.New("Cannot rename server `a` to `b` because server `b` already exists.")
	err := &ExternalOperationError{Op: "rename", Err: cause}

	if got := err.Error(); got != cause.Error() {
		t.Errorf("ExternalOperationError.Error() = %q, want %q", got, cause.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should match the name client error")
	}
}

func TestCancelledError(t *testing.T) {
	err := &CancelledError{Err: context.Canceled}

	expected := "write to `system.server_config` was cancelled: context canceled"
	if got := err.Error(); got != expected {
		t.Errorf("CancelledError.Error() = %q, want %q", got, expected)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("errors.Is should match context.Canceled")
	}

	deadline := &CancelledError{Err: context.DeadlineExceeded}
	if !errors.Is(deadline, context.DeadlineExceeded) {
		t.Error("errors.Is should match context.DeadlineExceeded")
	}
}
