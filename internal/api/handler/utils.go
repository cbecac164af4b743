package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pr-insights/internal/engine"
)

type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, logger *zap.Logger, errMessage string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Status:  statusCode,
		Message: errMessage,
	}

	err := json.NewEncoder(w).Encode(resp)
	if err != nil {
		logger.Error("writeError: failed to encoding response", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, resp any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(resp)
	if err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// parseFilter reads the optional repository and time window query
// parameters shared by the analytics endpoints.
func parseFilter(r *http.Request) (engine.Filter, error) {
	filter := engine.Filter{
		Repository: r.URL.Query().Get("repository"),
	}

	if raw := r.URL.Query().Get("start_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return engine.Filter{}, fmt.Errorf("invalid start_time: %w", err)
		}
		filter.Start = t.UTC()
	}

	if raw := r.URL.Query().Get("end_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return engine.Filter{}, fmt.Errorf("invalid end_time: %w", err)
		}
		filter.End = t.UTC()
	}

	return filter, nil
}
