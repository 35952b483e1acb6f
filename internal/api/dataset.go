package api

import (
	"net/http"
)

func handleDatasetStats(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dataset == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DATASET_NOT_CONFIGURED", "trip store is not configured", false, nil)
		return
	}

	stats, err := deps.Dataset.Stats(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "DATASET_ERROR", "failed to compute dataset statistics", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
