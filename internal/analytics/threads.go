package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pr-insights/internal/domain"
	"pr-insights/internal/timeline"
)

var ErrTooManyPRs = errors.New("thread batch exceeds PR cap")

const mergeableCheckFragment = "mergeable"

// CollectThreads groups one PR's comment events into threads and derives
// resolution and first-response latencies. Input order does not matter;
// events are re-sorted with the stable ingestion tie-break.
func CollectThreads(events []domain.Event) []domain.Thread {
	ordered := make([]domain.Event, len(events))
	copy(ordered, events)
	timeline.SortEvents(ordered)

	var repository string
	var prNumber int
	var mergeableAt *time.Time

	comments := make(map[string][]domain.Event)
	resolvedAt := make(map[string]time.Time)
	order := make([]string, 0)

	for _, e := range ordered {
		repository = e.Repository
		prNumber = e.PRNumber

		switch e.Type {
		case domain.EventReviewComment, domain.EventComment:
			attrs, ok := e.Attrs.(domain.CommentAttrs)
			if !ok || attrs.ThreadID == "" {
				continue
			}
			if _, seen := comments[attrs.ThreadID]; !seen {
				order = append(order, attrs.ThreadID)
			}
			comments[attrs.ThreadID] = append(comments[attrs.ThreadID], e)

		case domain.EventThreadResolved:
			attrs, ok := e.Attrs.(domain.ThreadAttrs)
			if !ok {
				continue
			}
			if _, seen := resolvedAt[attrs.ThreadID]; !seen {
				resolvedAt[attrs.ThreadID] = e.OccurredAt
			}

		case domain.EventCheckRun:
			attrs, ok := e.Attrs.(domain.CheckRunAttrs)
			if !ok {
				continue
			}
			if mergeableAt == nil &&
				strings.Contains(strings.ToLower(attrs.Name), mergeableCheckFragment) &&
				attrs.Conclusion == domain.ConclusionSuccess {
				at := e.OccurredAt
				mergeableAt = &at
			}
		}
	}

	threads := make([]domain.Thread, 0, len(order))
	for _, id := range order {
		threads = append(threads, buildThread(id, repository, prNumber, comments[id], resolvedAt, mergeableAt))
	}

	return threads
}

func buildThread(id, repository string, prNumber int, comments []domain.Event, resolvedAt map[string]time.Time, mergeableAt *time.Time) domain.Thread {
	thread := domain.Thread{
		ID:           id,
		Repository:   repository,
		PRNumber:     prNumber,
		CommentCount: len(comments),
	}

	firstAt := comments[0].OccurredAt

	if len(comments) > 1 {
		d := comments[1].OccurredAt.Sub(firstAt)
		thread.TimeToFirstResponse = &d
	}

	if at, ok := resolvedAt[id]; ok {
		thread.Resolved = true
		if d := at.Sub(firstAt); d >= 0 {
			thread.ResolutionTime = &d
		}

		if mergeableAt != nil {
			h := at.Sub(*mergeableAt).Hours()
			thread.TimeFromCanBeMergedHours = &h
		}
	}

	if thread.TimeFromCanBeMergedHours == nil {
		thread.TimeFromCanBeMergedHours = legacyCanBeMerged(comments)
	}

	return thread
}

// legacyCanBeMerged picks up the precomputed overrun some producers
// attach to comments, encoded as a number or a string. A value that
// cannot be coerced excludes that record, nothing more.
func legacyCanBeMerged(comments []domain.Event) *float64 {
	values := make([]any, 0, len(comments))
	for _, c := range comments {
		attrs, ok := c.Attrs.(domain.CommentAttrs)
		if !ok || attrs.CanBeMergedHours == nil {
			continue
		}
		values = append(values, attrs.CanBeMergedHours)
	}

	return MinHours(values)
}

// PRThreadAggregate is the per-PR thread summary. The can-be-merged
// field is the minimum across the PR's threads: the worst overrun
// relative to mergeability, which may legitimately be negative.
type PRThreadAggregate struct {
	Repository               string
	PRNumber                 int
	TotalThreads             int
	ResolvedThreads          int
	AvgResolutionHours       *float64
	TimeFromCanBeMergedHours *float64
}

func AggregatePRThreads(repository string, prNumber int, threads []domain.Thread) PRThreadAggregate {
	agg := PRThreadAggregate{
		Repository:   repository,
		PRNumber:     prNumber,
		TotalThreads: len(threads),
	}

	resolutions := make([]float64, 0, len(threads))
	overruns := make([]any, 0, len(threads))

	for _, t := range threads {
		if t.Resolved {
			agg.ResolvedThreads++
		}
		if t.ResolutionTime != nil {
			resolutions = append(resolutions, t.ResolutionTime.Hours())
		}
		if t.TimeFromCanBeMergedHours != nil {
			overruns = append(overruns, *t.TimeFromCanBeMergedHours)
		}
	}

	agg.AvgResolutionHours = meanFloat(resolutions)
	agg.TimeFromCanBeMergedHours = MinHours(overruns)

	return agg
}

// CollectThreadsBatch runs thread collection over a multi-PR stream. The
// caller-supplied cap bounds how many PRs one batch may hold.
func CollectThreadsBatch(events []domain.Event, maxPRs int) ([]domain.Thread, []PRThreadAggregate, error) {
	partitions := make(map[timeline.Key][]domain.Event)
	for _, e := range events {
		k := timeline.Key{Repository: e.Repository, PRNumber: e.PRNumber}
		partitions[k] = append(partitions[k], e)
	}

	if maxPRs > 0 && len(partitions) > maxPRs {
		return nil, nil, fmt.Errorf("%w: %d PRs, cap %d", ErrTooManyPRs, len(partitions), maxPRs)
	}

	keys := make([]timeline.Key, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Repository == keys[j].Repository {
			return keys[i].PRNumber < keys[j].PRNumber
		}
		return keys[i].Repository < keys[j].Repository
	})

	var threads []domain.Thread
	aggregates := make([]PRThreadAggregate, 0, len(keys))

	for _, k := range keys {
		prThreads := CollectThreads(partitions[k])
		threads = append(threads, prThreads...)
		aggregates = append(aggregates, AggregatePRThreads(k.Repository, k.PRNumber, prThreads))
	}

	return threads, aggregates, nil
}

// ThreadSummary is the cross-PR rollup for the threads endpoint.
type ThreadSummary struct {
	AvgResolutionTimeHours      *float64
	MedianResolutionTimeHours   *float64
	AvgTimeToFirstResponseHours *float64
	AvgCommentsPerThread        *float64
	TotalThreadsAnalyzed        int
	ResolutionRate              *float64
}

func SummarizeThreads(threads []domain.Thread) ThreadSummary {
	summary := ThreadSummary{TotalThreadsAnalyzed: len(threads)}
	if len(threads) == 0 {
		return summary
	}

	resolutions := make([]float64, 0, len(threads))
	responses := make([]float64, 0, len(threads))
	comments := make([]float64, 0, len(threads))
	resolved := 0

	for _, t := range threads {
		if t.Resolved {
			resolved++
		}
		if t.ResolutionTime != nil {
			resolutions = append(resolutions, t.ResolutionTime.Hours())
		}
		if t.TimeToFirstResponse != nil {
			responses = append(responses, t.TimeToFirstResponse.Hours())
		}
		comments = append(comments, float64(t.CommentCount))
	}

	summary.AvgResolutionTimeHours = meanFloat(resolutions)
	summary.MedianResolutionTimeHours = medianFloat(resolutions)
	summary.AvgTimeToFirstResponseHours = meanFloat(responses)
	summary.AvgCommentsPerThread = meanFloat(comments)

	rate := float64(resolved) / float64(len(threads))
	summary.ResolutionRate = &rate

	return summary
}
