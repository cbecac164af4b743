package repository

import (
	"context"
	"errors"
	"time"

	"pr-insights/internal/domain"
)

var ErrNoEvents = errors.New("no events found")

// ListFilter narrows an event listing. Zero values mean unbounded.
type ListFilter struct {
	Repository string
	PRNumber   int
	Start      time.Time
	End        time.Time
}

// EventStore is the persisted, append-only event log. The aggregation
// engine only ever reads from it; writes happen at ingestion.
type EventStore interface {
	SaveEvents(ctx context.Context, events []domain.Event) (int, error)
	ListEvents(ctx context.Context, filter ListFilter) ([]domain.Event, error)
	ListRepositories(ctx context.Context) ([]string, error)
	Close()
}
