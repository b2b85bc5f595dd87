package admin

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/maxpert/serverconfig/coordinator"
	"github.com/maxpert/serverconfig/document"
	"github.com/maxpert/serverconfig/servers"
	"github.com/rs/zerolog/log"
)

// handleListServers handles GET /admin/server_config[?tag=<glob>]
func (h *AdminHandlers) handleListServers(w http.ResponseWriter, r *http.Request) {
	var tagGlob glob.Glob
	if pattern := r.URL.Query().Get("tag"); pattern != "" {
		g, err := glob.Compile(pattern)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid tag pattern %q: %v", pattern, err))
			return
		}
		tagGlob = g
	}

	rows, err := h.backend.ReadAllRows(r.Context())
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := make([]document.Datum, 0, len(rows))
	for _, row := range rows {
		if tagGlob != nil && !rowHasTag(row.Doc, tagGlob) {
			continue
		}
		result = append(result, row.Doc)
	}

	writeJSONResponse(w, result)
}

func rowHasTag(row document.Datum, g glob.Glob) bool {
	tags, _ := row.Field(servers.FieldTags)
	items, _ := tags.AsArray()
	for _, item := range items {
		if s, ok := item.AsString(); ok && g.Match(s) {
			return true
		}
	}
	return false
}

// handleGetServer handles GET /admin/server_config/{id}
func (h *AdminHandlers) handleGetServer(w http.ResponseWriter, r *http.Request) {
	pk := chi.URLParam(r, "id")
	doc, ok, err := h.backend.ReadRow(r.Context(), document.String(pk))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("server `%s` not found", pk))
		return
	}
	writeJSONResponse(w, doc)
}

// handlePutServer handles PUT /admin/server_config/{id}; the body replaces
// the row
func (h *AdminHandlers) handlePutServer(w http.ResponseWriter, r *http.Request) {
	pk := chi.URLParam(r, "id")
	doc, err := readDocument(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// The backend treats a changed key as a bug, so reject it here
	if msg, changed := primaryKeyChanged(pk, doc); changed {
		writeErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	h.write(w, r, pk, &doc)
}

// handleDeleteServer handles DELETE /admin/server_config/{id}
func (h *AdminHandlers) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, chi.URLParam(r, "id"), nil)
}

// handleInsertServer handles POST /admin/server_config. Rows cannot be
// created, so this always fails once the body parses.
func (h *AdminHandlers) handleInsertServer(w http.ResponseWriter, r *http.Request) {
	doc, err := readDocument(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.writeContext(r)
	defer cancel()

	err = h.backend.WriteRow(ctx, document.String(h.keys.NextID().String()), true, &doc)
	writeErrorResponse(w, statusForError(err), err.Error())
}

func (h *AdminHandlers) write(w http.ResponseWriter, r *http.Request, pk string, newValue *document.Datum) {
	ctx, cancel := h.writeContext(r)
	defer cancel()

	if err := h.backend.WriteRow(ctx, document.String(pk), false, newValue); err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("id", pk).Msg("server_config write failed")
		}
		writeErrorResponse(w, status, err.Error())
		return
	}

	writeJSONResponse(w, map[string]interface{}{"id": pk})
}

// primaryKeyChanged reports whether doc names a different id than pk
func primaryKeyChanged(pk string, doc document.Datum) (string, bool) {
	field, ok := doc.Field(servers.FieldID)
	if !ok {
		return "", false
	}
	newID, convErr := document.ConvertUUID(field)
	if convErr != nil {
		return "", false
	}
	oldID, err := uuid.Parse(pk)
	if err != nil || oldID == newID {
		return "", false
	}
	return fmt.Sprintf("Primary key `%s` cannot be changed (`%s` -> `%s`) in `%s`.",
		servers.FieldID, oldID, newID, coordinator.TableName), true
}
