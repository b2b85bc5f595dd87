package coordinator

import (
	"errors"
	"fmt"

	"github.com/maxpert/serverconfig/document"
)

// TableName is the name the table is exposed under
const TableName = "system.server_config"

// ErrIllegalInsert is returned for any attempt to create a row
var ErrIllegalInsert = errors.New("It's illegal to insert new rows into the `" + TableName + "` table.")

// SchemaViolationError reports a row document that failed validation
type SchemaViolationError struct {
	Err *document.ConversionError
}

func (e *SchemaViolationError) Error() string {
	return "The row you're trying to put into `" + TableName + "` has the wrong format. " + e.Err.Error()
}

func (e *SchemaViolationError) Unwrap() error {
	return e.Err
}

// ExternalOperationError reports a failed rename or retag. The message is
// the name client's, unchanged.
type ExternalOperationError struct {
	Op  string // "rename" or "retag"
	Err error
}

func (e *ExternalOperationError) Error() string {
	return e.Err.Error()
}

func (e *ExternalOperationError) Unwrap() error {
	return e.Err
}

// CancelledError reports a write abandoned while queued for the write token.
// Nothing was changed.
type CancelledError struct {
	Err error // ctx.Err() at the time of cancellation
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("write to `%s` was cancelled: %v", TableName, e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}
