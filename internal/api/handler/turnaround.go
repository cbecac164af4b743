package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pr-insights/internal/api"
	"pr-insights/internal/engine"
)

func Turnaround(eng *engine.Engine, requestTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		filter, err := parseFilter(r)
		if err != nil {
			logger.Warn("Turnaround: invalid filter", zap.Error(err))
			writeError(w, logger, err.Error(), http.StatusBadRequest)
			return
		}

		snapshot, err := eng.Analyze(ctx, filter)
		if err != nil {
			if errors.Is(err, engine.ErrIncomplete) {
				logger.Warn("Turnaround: aggregation incomplete", zap.Error(err))
				api.WriteApiError(w, logger, api.ErrIncomplete, api.CodeIncomplete, http.StatusGatewayTimeout)
				return
			}

			logger.Error("Turnaround: failed to analyze", zap.Error(err))
			writeError(w, logger, "failed to analyze turnaround", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, api.NewTurnaroundResponse(snapshot))

		logger.Info("Turnaround: successfully analyzed",
			zap.Int("total_prs", snapshot.TurnaroundSummary.TotalPRsAnalyzed))
	}
}
