package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pr-insights/internal/api"
	"pr-insights/internal/ingest"
	"pr-insights/internal/repository"
)

type ingestRequest struct {
	Events []ingest.RawEvent `json:"events"`
}

func IngestEvents(store repository.EventStore, requestTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		var req ingestRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			logger.Warn("IngestEvents: failed to decode body", zap.Error(err))
			writeError(w, logger, "failed to decode body", http.StatusBadRequest)
			return
		}

		events, dropped, err := ingest.NormalizeBatch(req.Events, logger)
		if err != nil {
			if errors.Is(err, ingest.ErrNilStream) {
				logger.Warn("IngestEvents: events field is required")
				writeError(w, logger, "events field is required", http.StatusBadRequest)
				return
			}

			logger.Error("IngestEvents: failed to normalize events", zap.Error(err))
			writeError(w, logger, "failed to normalize events", http.StatusInternalServerError)
			return
		}

		accepted := 0
		if len(events) > 0 {
			accepted, err = store.SaveEvents(ctx, events)
			if err != nil {
				logger.Error("IngestEvents: failed to save events", zap.Error(err))
				writeError(w, logger, "failed to save events", http.StatusInternalServerError)
				return
			}
		}

		resp := api.IngestResponse{
			Accepted: accepted,
			Dropped:  dropped,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		err = json.NewEncoder(w).Encode(resp)
		if err != nil {
			logger.Error("IngestEvents: failed to encode response", zap.Error(err))
		}

		logger.Info("IngestEvents: successfully ingested events",
			zap.Int("accepted", accepted), zap.Int("dropped", dropped))
	}
}
