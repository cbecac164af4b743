package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"pr-insights/internal/analytics"
	"pr-insights/internal/api"
	"pr-insights/internal/domain"
	"pr-insights/internal/engine"
)

func Threads(eng *engine.Engine, requestTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		filter, err := parseFilter(r)
		if err != nil {
			logger.Warn("Threads: invalid filter", zap.Error(err))
			writeError(w, logger, err.Error(), http.StatusBadRequest)
			return
		}

		prNumber := 0
		if raw := r.URL.Query().Get("pr_number"); raw != "" {
			prNumber, err = strconv.Atoi(raw)
			if err != nil || prNumber <= 0 {
				logger.Warn("Threads: invalid pr_number")
				writeError(w, logger, "pr_number must be a positive integer", http.StatusBadRequest)
				return
			}
		}

		snapshot, err := eng.Analyze(ctx, filter)
		if err != nil {
			switch {
			case errors.Is(err, engine.ErrIncomplete):
				logger.Warn("Threads: aggregation incomplete", zap.Error(err))
				api.WriteApiError(w, logger, api.ErrIncomplete, api.CodeIncomplete, http.StatusGatewayTimeout)
				return

			case errors.Is(err, analytics.ErrTooManyPRs):
				logger.Warn("Threads: batch too large", zap.Error(err))
				writeError(w, logger, "too many PRs in window, narrow the filter", http.StatusUnprocessableEntity)
				return
			}

			logger.Error("Threads: failed to analyze", zap.Error(err))
			writeError(w, logger, "failed to analyze threads", http.StatusInternalServerError)
			return
		}

		resp := api.NewThreadsResponse(snapshot)
		if prNumber > 0 {
			resp = narrowToPR(snapshot, prNumber)
		}

		writeJSON(w, logger, resp)

		logger.Info("Threads: successfully analyzed",
			zap.Int("threads", resp.Summary.TotalThreadsAnalyzed))
	}
}

// narrowToPR rebuilds the response for a single PR. The summary is
// recomputed by the same analytics rollup, never re-derived here.
func narrowToPR(snapshot *engine.Snapshot, prNumber int) api.ThreadsResponse {
	threads := make([]domain.Thread, 0, len(snapshot.Threads))
	for _, t := range snapshot.Threads {
		if t.PRNumber == prNumber {
			threads = append(threads, t)
		}
	}

	aggregates := make([]analytics.PRThreadAggregate, 0, 1)
	for _, a := range snapshot.ThreadAggregates {
		if a.PRNumber == prNumber {
			aggregates = append(aggregates, a)
		}
	}

	return api.NewThreadsResponseParts(analytics.SummarizeThreads(threads), threads, aggregates)
}
