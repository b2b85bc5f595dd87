package admin

import "net/http"

// handleStats handles GET /admin/server_config/stats
func (h *AdminHandlers) handleStats(w http.ResponseWriter, r *http.Request) {
	live, deleted := h.counts.ServerCounts()

	response := map[string]interface{}{
		"live_servers":      live,
		"deleted_servers":   deleted,
		"write_queue_depth": h.backend.QueueDepth(),
	}

	writeJSONResponse(w, response)
}
