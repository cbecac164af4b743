package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

const (
	CodeNotObserved = "PR_NOT_OBSERVED"
	CodeNoEvents    = "NO_EVENTS"
	CodeIncomplete  = "AGGREGATION_INCOMPLETE"
	CodeBadRequest  = "BAD_REQUEST"
)

const (
	ErrNotObserved = "pull request not yet observed"
	ErrNoEvents    = "no events found"
	ErrIncomplete  = "aggregation did not complete in time"
)

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func WriteApiError(w http.ResponseWriter, logger *zap.Logger, message string, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	e := apiError{}
	e.Error.Code = code
	e.Error.Message = message

	err := json.NewEncoder(w).Encode(e)
	if err != nil {
		logger.Error("WriteError: failed to encoding response", zap.Error(err))
	}
}
