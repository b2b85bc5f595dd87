package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/maxpert/serverconfig/coordinator"
	"github.com/maxpert/serverconfig/document"
	"github.com/maxpert/serverconfig/encoding"
	"github.com/maxpert/serverconfig/id"
	"github.com/maxpert/serverconfig/telemetry"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds a row document in a request body
const maxBodyBytes = 1 << 20

// AdminHandlers serves the server_config table over HTTP
type AdminHandlers struct {
	backend *coordinator.ServerConfigBackend
	counts  telemetry.CountsProvider
	keys    id.Generator // primary keys for inserts
	timeout time.Duration
}

// NewAdminHandlers creates a new AdminHandlers instance. Writes are bounded
// by timeout; zero leaves them bounded only by the request context.
func NewAdminHandlers(backend *coordinator.ServerConfigBackend, counts telemetry.CountsProvider, timeout time.Duration) *AdminHandlers {
	return &AdminHandlers{
		backend: backend,
		counts:  counts,
		keys:    id.RandomGenerator{},
		timeout: timeout,
	}
}

func (h *AdminHandlers) writeContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

// readDocument decodes a request body as JSON or, with
// Content-Type: application/msgpack, as msgpack
func readDocument(r *http.Request) (document.Datum, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return document.Datum{}, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return document.Datum{}, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	if len(body) == 0 {
		return document.Datum{}, fmt.Errorf("request body is required")
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/msgpack", "application/x-msgpack":
		return encoding.UnmarshalDocument(body)
	default:
		var d document.Datum
		if err := json.Unmarshal(body, &d); err != nil {
			return document.Datum{}, fmt.Errorf("invalid JSON body: %w", err)
		}
		return d, nil
	}
}

// statusForError maps write errors to HTTP status codes
func statusForError(err error) int {
	var schemaErr *coordinator.SchemaViolationError
	var extErr *coordinator.ExternalOperationError
	var cancelErr *coordinator.CancelledError

	switch {
	case errors.Is(err, coordinator.ErrIllegalInsert):
		return http.StatusForbidden
	case errors.As(err, &schemaErr):
		return http.StatusBadRequest
	case errors.As(err, &extErr):
		return http.StatusConflict
	case errors.As(err, &cancelErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := map[string]interface{}{
		"error": message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}
