package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pr-insights/internal/analytics"
	"pr-insights/internal/domain"
	"pr-insights/internal/repository"
	"pr-insights/internal/timeline"
)

var (
	ErrIncomplete    = errors.New("aggregation incomplete")
	ErrPRNotObserved = errors.New("pull request not yet observed")
)

type Config struct {
	Workers     int           `env:"ENGINE_WORKERS" env-default:"0"`
	CacheTTL    time.Duration `env:"ENGINE_CACHE_TTL" env-default:"30s"`
	ThreadPRCap int           `env:"ENGINE_THREAD_PR_CAP" env-default:"1000"`
}

// Filter selects the event window one analysis run covers. It doubles
// as the memo key, so it must stay comparable.
type Filter struct {
	Repository string
	Start      time.Time
	End        time.Time
}

// Snapshot holds every aggregate derived from one immutable event
// window. The API layer picks the parts each endpoint serves.
type Snapshot struct {
	Turnarounds       []domain.TurnaroundRecord
	TurnaroundSummary analytics.TurnaroundSummary
	ByRepository      []analytics.TurnaroundRollup
	ByReviewer        []analytics.TurnaroundRollup
	Workloads         []domain.ContributorWorkload
	WorkloadSummary   analytics.WorkloadSummary
	Alerts            []domain.BottleneckAlert
	ApproverStats     []analytics.ApproverStat
	Threads           []domain.Thread
	ThreadAggregates  []analytics.PRThreadAggregate
	ThreadSummary     analytics.ThreadSummary
}

// PRStory is the assembled view of a single PR.
type PRStory struct {
	Timeline   *domain.Timeline
	Summary    timeline.Summary
	Turnaround domain.TurnaroundRecord
}

// Engine runs the read-only aggregation over the event store. It holds
// no mutable state besides the memo cache; every run derives fresh from
// the store snapshot.
type Engine struct {
	store      repository.EventStore
	logger     *zap.Logger
	thresholds analytics.Thresholds
	workers    int
	prCap      int
	cache      *memoCache
}

func New(store repository.EventStore, thresholds analytics.Thresholds, cfg *Config, logger *zap.Logger) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Engine{
		store:      store,
		logger:     logger,
		thresholds: thresholds,
		workers:    workers,
		prCap:      cfg.ThreadPRCap,
		cache:      newMemoCache(cfg.CacheTTL),
	}
}

// Analyze computes the full snapshot for the filter window. On timeout
// or cancellation it returns ErrIncomplete: a partial snapshot is never
// handed out as complete.
func (e *Engine) Analyze(ctx context.Context, filter Filter) (*Snapshot, error) {
	if snapshot, ok := e.cache.get(filter); ok {
		return snapshot, nil
	}

	repositories, err := e.resolveRepositories(ctx, filter)
	if err != nil {
		return nil, e.wrapIncomplete(err)
	}

	var mu sync.Mutex
	perRepo := make(map[string]*repoResult, len(repositories))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, repo := range repositories {
		g.Go(func() error {
			result, err := e.analyzeRepository(groupCtx, repo, filter)
			if err != nil {
				return err
			}

			mu.Lock()
			perRepo[repo] = result
			mu.Unlock()
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, e.wrapIncomplete(err)
	}

	snapshot := e.merge(repositories, perRepo)
	e.cache.put(filter, snapshot)

	return snapshot, nil
}

// PRStoryFor assembles one PR's timeline together with its summary
// counts and turnaround record.
func (e *Engine) PRStoryFor(ctx context.Context, repo string, prNumber int) (*PRStory, error) {
	events, err := e.store.ListEvents(ctx, repository.ListFilter{Repository: repo, PRNumber: prNumber})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %s#%d", repository.ErrNoEvents, repo, prNumber)
	}

	timelines := timeline.Assemble(events)
	t, ok := timelines[timeline.Key{Repository: repo, PRNumber: prNumber}]
	if !ok || !t.HasOpening() {
		return nil, fmt.Errorf("%w: %s#%d", ErrPRNotObserved, repo, prNumber)
	}

	record, _ := analytics.ComputeTurnaround(t)

	return &PRStory{
		Timeline:   t,
		Summary:    timeline.Summarize(t),
		Turnaround: record,
	}, nil
}

type repoResult struct {
	events           []domain.Event
	turnarounds      []domain.TurnaroundRecord
	threads          []domain.Thread
	threadAggregates []analytics.PRThreadAggregate
}

func (e *Engine) analyzeRepository(ctx context.Context, repo string, filter Filter) (*repoResult, error) {
	events, err := e.store.ListEvents(ctx, repository.ListFilter{
		Repository: repo,
		Start:      filter.Start,
		End:        filter.End,
	})
	if err != nil {
		return nil, err
	}

	timelines := timeline.Assemble(events)

	keys := make([]timeline.Key, 0, len(timelines))
	for k := range timelines {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].PRNumber < keys[j].PRNumber })

	result := &repoResult{events: events}

	for _, k := range keys {
		// Cancellation is cooperative, checked between PR keys.
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		t := timelines[k]
		if record, ok := analytics.ComputeTurnaround(t); ok {
			result.turnarounds = append(result.turnarounds, record)
		}
	}

	threads, aggregates, err := analytics.CollectThreadsBatch(events, e.prCap)
	if err != nil {
		return nil, err
	}
	result.threads = threads
	result.threadAggregates = aggregates

	return result, nil
}

// merge folds the per-repository results into one snapshot. Workload and
// bottleneck analysis run over the merged stream because contributors
// and approvers span repositories.
func (e *Engine) merge(repositories []string, perRepo map[string]*repoResult) *Snapshot {
	snapshot := &Snapshot{}
	var allEvents []domain.Event

	for _, repo := range repositories {
		result, ok := perRepo[repo]
		if !ok {
			continue
		}

		allEvents = append(allEvents, result.events...)
		snapshot.Turnarounds = append(snapshot.Turnarounds, result.turnarounds...)
		snapshot.Threads = append(snapshot.Threads, result.threads...)
		snapshot.ThreadAggregates = append(snapshot.ThreadAggregates, result.threadAggregates...)
	}

	snapshot.TurnaroundSummary = analytics.SummarizeTurnaround(snapshot.Turnarounds)
	snapshot.ByRepository = analytics.RollupByRepository(snapshot.Turnarounds)
	snapshot.ByReviewer = analytics.RollupByReviewer(snapshot.Turnarounds)

	snapshot.Workloads = analytics.ComputeWorkloads(allEvents)
	snapshot.WorkloadSummary = analytics.SummarizeWorkloads(snapshot.Workloads)
	snapshot.Alerts, snapshot.ApproverStats = analytics.DetectBottlenecks(allEvents, e.thresholds)

	snapshot.ThreadSummary = analytics.SummarizeThreads(snapshot.Threads)

	return snapshot
}

// wrapIncomplete turns a cancellation into the explicit incomplete
// failure: partial aggregates never masquerade as success.
func (e *Engine) wrapIncomplete(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		e.logger.Warn("aggregation cancelled", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	return err
}

func (e *Engine) resolveRepositories(ctx context.Context, filter Filter) ([]string, error) {
	if filter.Repository != "" {
		return []string{filter.Repository}, nil
	}

	repositories, err := e.store.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	sort.Strings(repositories)
	return repositories, nil
}
