package analytics

import (
	"sort"
	"strings"
	"time"

	"pr-insights/internal/domain"
)

const (
	approvedLabelPrefix   = "approved-"
	verifiedLabelFragment = "verified"
)

// ComputeTurnaround walks one assembled timeline and derives the latency
// record for its PR. Returns false when the timeline has no observed
// pr_opened event; such a PR is not yet measurable.
func ComputeTurnaround(t *domain.Timeline) (domain.TurnaroundRecord, bool) {
	var t0 time.Time
	var author string
	opened := false

	for _, n := range t.Nodes {
		if n.Event != nil && n.Event.Type == domain.EventPROpened {
			t0 = n.Event.OccurredAt
			author = n.Event.Actor
			opened = true
			break
		}
	}
	if !opened {
		return domain.TurnaroundRecord{}, false
	}

	rec := domain.TurnaroundRecord{
		Repository: t.Repository,
		PRNumber:   t.PRNumber,
		Author:     author,
	}

	for _, n := range t.Nodes {
		if n.Event == nil {
			continue
		}
		e := n.Event
		if e.OccurredAt.Before(t0) {
			continue
		}

		if rec.TimeToFirstReview == nil && e.IsReview() && e.Actor != author {
			rec.TimeToFirstReview = since(t0, e.OccurredAt)
			rec.FirstReviewer = e.Actor
		}

		if rec.TimeToFirstChangesRequested == nil && e.Type == domain.EventReviewChanges {
			if attrs, ok := e.Attrs.(domain.ReviewAttrs); ok && attrs.State == domain.ReviewStateChangesRequested {
				rec.TimeToFirstChangesRequested = since(t0, e.OccurredAt)
			}
		}

		if e.Type == domain.EventLabelAdded {
			attrs, ok := e.Attrs.(domain.LabelAttrs)
			if !ok {
				continue
			}
			name := strings.ToLower(attrs.Name)

			if rec.TimeToApproval == nil && strings.HasPrefix(name, approvedLabelPrefix) && e.Actor != author {
				rec.TimeToApproval = since(t0, e.OccurredAt)
			}
			if rec.TimeToFirstVerified == nil && strings.Contains(name, verifiedLabelFragment) {
				rec.TimeToFirstVerified = since(t0, e.OccurredAt)
			}
		}

		if rec.LifecycleDuration == nil && e.IsTerminal() {
			rec.LifecycleDuration = since(t0, e.OccurredAt)
		}
	}

	return rec, true
}

func since(t0, t time.Time) *time.Duration {
	d := t.Sub(t0)
	return &d
}

// TurnaroundSummary is the mean of each metric over the non-nil values
// across all analyzed PRs.
type TurnaroundSummary struct {
	AvgTimeToFirstReviewHours           *float64
	AvgTimeToFirstChangesRequestedHours *float64
	AvgTimeToApprovalHours              *float64
	AvgTimeToFirstVerifiedHours         *float64
	AvgPRLifecycleHours                 *float64
	TotalPRsAnalyzed                    int
}

// TurnaroundRollup is one by_repository or by_reviewer aggregation row.
type TurnaroundRollup struct {
	Name                      string
	AvgTimeToFirstReviewHours *float64
	AvgTimeToApprovalHours    *float64
	AvgPRLifecycleHours       *float64
	TotalPRs                  int
}

func SummarizeTurnaround(records []domain.TurnaroundRecord) TurnaroundSummary {
	firstReview := make([]*time.Duration, 0, len(records))
	changes := make([]*time.Duration, 0, len(records))
	approval := make([]*time.Duration, 0, len(records))
	verified := make([]*time.Duration, 0, len(records))
	lifecycle := make([]*time.Duration, 0, len(records))

	for _, r := range records {
		firstReview = append(firstReview, r.TimeToFirstReview)
		changes = append(changes, r.TimeToFirstChangesRequested)
		approval = append(approval, r.TimeToApproval)
		verified = append(verified, r.TimeToFirstVerified)
		lifecycle = append(lifecycle, r.LifecycleDuration)
	}

	return TurnaroundSummary{
		AvgTimeToFirstReviewHours:           meanHours(firstReview),
		AvgTimeToFirstChangesRequestedHours: meanHours(changes),
		AvgTimeToApprovalHours:              meanHours(approval),
		AvgTimeToFirstVerifiedHours:         meanHours(verified),
		AvgPRLifecycleHours:                 meanHours(lifecycle),
		TotalPRsAnalyzed:                    len(records),
	}
}

// RollupByRepository groups records by repository, averaging over the
// non-nil values only. Output is sorted by name for determinism.
func RollupByRepository(records []domain.TurnaroundRecord) []TurnaroundRollup {
	return rollup(records, func(r domain.TurnaroundRecord) string { return r.Repository })
}

// RollupByReviewer attributes each PR to the actor of its first
// qualifying review; PRs without one are excluded.
func RollupByReviewer(records []domain.TurnaroundRecord) []TurnaroundRollup {
	reviewed := make([]domain.TurnaroundRecord, 0, len(records))
	for _, r := range records {
		if r.FirstReviewer != "" {
			reviewed = append(reviewed, r)
		}
	}

	return rollup(reviewed, func(r domain.TurnaroundRecord) string { return r.FirstReviewer })
}

func rollup(records []domain.TurnaroundRecord, keyOf func(domain.TurnaroundRecord) string) []TurnaroundRollup {
	groups := make(map[string][]domain.TurnaroundRecord)
	for _, r := range records {
		k := keyOf(r)
		groups[k] = append(groups[k], r)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	rollups := make([]TurnaroundRollup, 0, len(names))
	for _, name := range names {
		group := groups[name]

		firstReview := make([]*time.Duration, 0, len(group))
		approval := make([]*time.Duration, 0, len(group))
		lifecycle := make([]*time.Duration, 0, len(group))
		for _, r := range group {
			firstReview = append(firstReview, r.TimeToFirstReview)
			approval = append(approval, r.TimeToApproval)
			lifecycle = append(lifecycle, r.LifecycleDuration)
		}

		rollups = append(rollups, TurnaroundRollup{
			Name:                      name,
			AvgTimeToFirstReviewHours: meanHours(firstReview),
			AvgTimeToApprovalHours:    meanHours(approval),
			AvgPRLifecycleHours:       meanHours(lifecycle),
			TotalPRs:                  len(group),
		})
	}

	return rollups
}
