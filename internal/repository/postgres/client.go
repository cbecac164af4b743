package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pr-insights/internal/domain"
	"pr-insights/internal/repository"
)

func New(ctx context.Context, config *Config, logger *zap.Logger) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	dsn := buildDSN(config)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Client{
		pool:    pool,
		logger:  logger,
		timeout: config.Timeout,
	}, nil
}

func (c *Client) SaveEvents(ctx context.Context, events []domain.Event) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		c.logger.Error("failed to start transaction", zap.Error(err))
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	saved := 0
	for _, event := range events {
		attrs, err := domain.MarshalAttrs(event.Attrs)
		if err != nil {
			c.logger.Error("failed to marshal event attributes",
				zap.String("event_type", string(event.Type)), zap.Error(err))
			return 0, err
		}

		_, err = tx.Exec(ctx, queryInsertEvent,
			event.Repository,
			event.PRNumber,
			string(event.Type),
			event.Actor,
			event.OccurredAt,
			attrs,
		)
		if err != nil {
			c.logger.Error("failed to save event",
				zap.String("repository", event.Repository),
				zap.Int("pr_number", event.PRNumber),
				zap.Error(err))
			return 0, fmt.Errorf("failed to save event: %w", err)
		}

		saved++
	}

	err = tx.Commit(ctx)
	if err != nil {
		c.logger.Error("failed to commit transaction", zap.Error(err))
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.logger.Info("successfully stored events", zap.Int("count", saved))
	return saved, nil
}

func (c *Client) ListEvents(ctx context.Context, filter repository.ListFilter) ([]domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query, args := buildListQuery(filter)

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		c.logger.Error("failed to list events", zap.Error(err))
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			c.logger.Error("failed to scan event", zap.Error(err))
			return nil, err
		}

		events = append(events, event)
	}
	err = rows.Err()
	if err != nil {
		c.logger.Error("rows error", zap.Error(err))
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return events, nil
}

func (c *Client) ListRepositories(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.pool.Query(ctx, queryListRepositories)
	if err != nil {
		c.logger.Error("failed to list repositories", zap.Error(err))
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	repositories := make([]string, 0)
	for rows.Next() {
		var name string

		err = rows.Scan(&name)
		if err != nil {
			c.logger.Error("failed to scan repository", zap.Error(err))
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}

		repositories = append(repositories, name)
	}
	err = rows.Err()
	if err != nil {
		c.logger.Error("rows error", zap.Error(err))
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return repositories, nil
}

func (c *Client) Close() {
	c.pool.Close()
}

func scanEvent(rows pgx.Rows) (domain.Event, error) {
	var event domain.Event
	var eventType string
	var attrsRaw []byte

	err := rows.Scan(
		&event.Seq,
		&event.Repository,
		&event.PRNumber,
		&eventType,
		&event.Actor,
		&event.OccurredAt,
		&attrsRaw,
	)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}

	event.Type = domain.EventType(eventType)
	event.OccurredAt = event.OccurredAt.UTC()

	event.Attrs, err = domain.UnmarshalAttrs(event.Type, attrsRaw)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to decode event attributes: %w", err)
	}

	return event, nil
}

// buildListQuery appends filter conditions to the base select. Ordering
// by (occurred_at, id) gives the stable ingestion-sequence tie-break the
// aggregation engine depends on.
func buildListQuery(filter repository.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Repository != "" {
		conditions = append(conditions, "repository = "+arg(filter.Repository))
	}
	if filter.PRNumber > 0 {
		conditions = append(conditions, "pr_number = "+arg(filter.PRNumber))
	}
	if !filter.Start.IsZero() {
		conditions = append(conditions, "occurred_at >= "+arg(filter.Start))
	}
	if !filter.End.IsZero() {
		conditions = append(conditions, "occurred_at <= "+arg(filter.End))
	}

	query := queryListEvents
	if len(conditions) > 0 {
		query += " where " + strings.Join(conditions, " and ")
	}
	query += " order by occurred_at, id"

	return query, args
}

func buildDSN(config *Config) string {
	dsn := fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s pool_max_conns=%d pool_min_conns=%d",
		config.User,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
		config.MaxConns,
		config.MinConns,
	)

	return dsn
}
