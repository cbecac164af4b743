package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"pr-insights/internal/api"
	"pr-insights/internal/engine"
	"pr-insights/internal/repository"
)

func PRStory(eng *engine.Engine, requestTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		repo := r.URL.Query().Get("repository")
		if repo == "" {
			logger.Warn("PRStory: repository is required")
			writeError(w, logger, "repository is required", http.StatusBadRequest)
			return
		}

		prNumber, err := strconv.Atoi(r.URL.Query().Get("pr_number"))
		if err != nil || prNumber <= 0 {
			logger.Warn("PRStory: invalid pr_number")
			writeError(w, logger, "pr_number must be a positive integer", http.StatusBadRequest)
			return
		}

		story, err := eng.PRStoryFor(ctx, repo, prNumber)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNoEvents):
				logger.Warn("PRStory: no events", zap.String("repository", repo), zap.Int("pr_number", prNumber))
				msg := fmt.Sprintf("%s#%d: %s", repo, prNumber, api.ErrNoEvents)
				api.WriteApiError(w, logger, msg, api.CodeNoEvents, http.StatusNotFound)
				return

			case errors.Is(err, engine.ErrPRNotObserved):
				logger.Warn("PRStory: not yet observed", zap.String("repository", repo), zap.Int("pr_number", prNumber))
				api.WriteApiError(w, logger, api.ErrNotObserved, api.CodeNotObserved, http.StatusNotFound)
				return
			}

			logger.Error("PRStory: failed to assemble story", zap.Error(err))
			writeError(w, logger, "failed to assemble pr story", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, api.NewPRStoryResponse(story))

		logger.Info("PRStory: successfully assembled",
			zap.String("repository", repo), zap.Int("pr_number", prNumber))
	}
}
