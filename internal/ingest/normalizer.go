package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pr-insights/internal/domain"
)

var ErrNilStream = errors.New("event stream is nil")

// RawEvent is the webhook-shaped record before normalization. Attributes
// vary per event type and are decoded against the declared type.
type RawEvent struct {
	Repository string          `json:"repository"`
	PRNumber   int             `json:"pr_number"`
	EventType  string          `json:"event_type"`
	Actor      string          `json:"actor"`
	Timestamp  time.Time       `json:"timestamp"`
	Attributes json.RawMessage `json:"attributes"`
}

// Normalize maps one raw record into a canonical Event. A missing
// required field fails that single event only.
func Normalize(raw RawEvent) (domain.Event, error) {
	if raw.Repository == "" {
		return domain.Event{}, fmt.Errorf("repository is required")
	}
	if raw.PRNumber <= 0 {
		return domain.Event{}, fmt.Errorf("pr_number must be positive, got %d", raw.PRNumber)
	}
	if raw.Actor == "" {
		return domain.Event{}, fmt.Errorf("actor is required")
	}
	if raw.Timestamp.IsZero() {
		return domain.Event{}, fmt.Errorf("timestamp is required")
	}

	attrs, err := domain.UnmarshalAttrs(domain.EventType(raw.EventType), raw.Attributes)
	if err != nil {
		return domain.Event{}, err
	}

	if err = validateAttrs(domain.EventType(raw.EventType), attrs); err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		Repository: raw.Repository,
		PRNumber:   raw.PRNumber,
		Type:       domain.EventType(raw.EventType),
		Actor:      raw.Actor,
		OccurredAt: raw.Timestamp.UTC(),
		Attrs:      attrs,
	}, nil
}

// NormalizeBatch normalizes a stream of raw events, dropping and logging
// malformed ones. Only a nil stream is a hard failure; the caller
// contract guarantees a stream is always supplied.
func NormalizeBatch(raws []RawEvent, logger *zap.Logger) ([]domain.Event, int, error) {
	if raws == nil {
		return nil, 0, ErrNilStream
	}

	events := make([]domain.Event, 0, len(raws))
	dropped := 0

	for i, raw := range raws {
		event, err := Normalize(raw)
		if err != nil {
			dropped++
			logger.Warn("dropping malformed event",
				zap.Int("index", i),
				zap.String("event_type", raw.EventType),
				zap.String("repository", raw.Repository),
				zap.Error(err),
			)
			continue
		}

		events = append(events, event)
	}

	return events, dropped, nil
}

func validateAttrs(eventType domain.EventType, attrs domain.EventAttrs) error {
	switch eventType {
	case domain.EventReviewApproved, domain.EventReviewChanges:
		a := attrs.(domain.ReviewAttrs)
		if a.State == "" {
			return fmt.Errorf("%s requires review state", eventType)
		}

	case domain.EventLabelAdded, domain.EventLabelRemoved:
		a := attrs.(domain.LabelAttrs)
		if a.Name == "" {
			return fmt.Errorf("%s requires label name", eventType)
		}

	case domain.EventCommit:
		a := attrs.(domain.CommitAttrs)
		if a.SHA == "" {
			return fmt.Errorf("commit requires sha")
		}

	case domain.EventCheckRun:
		a := attrs.(domain.CheckRunAttrs)
		if a.CommitSHA == "" {
			return fmt.Errorf("check_run requires commit_sha")
		}
		if a.Conclusion == "" {
			return fmt.Errorf("check_run requires conclusion")
		}

	case domain.EventThreadResolved:
		a := attrs.(domain.ThreadAttrs)
		if a.ThreadID == "" {
			return fmt.Errorf("thread_resolved requires thread_id")
		}

	case domain.EventReviewComment:
		a := attrs.(domain.CommentAttrs)
		if a.ThreadID == "" {
			return fmt.Errorf("review_comment requires thread_id")
		}
	}

	return nil
}
