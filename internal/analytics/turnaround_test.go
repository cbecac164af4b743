package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pr-insights/internal/domain"
	"pr-insights/internal/timeline"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func prEvent(seq int64, minutes int, eventType domain.EventType, actor string, attrs domain.EventAttrs) domain.Event {
	return domain.Event{
		Repository: "org/service",
		PRNumber:   1,
		Type:       eventType,
		Actor:      actor,
		OccurredAt: base.Add(time.Duration(minutes) * time.Minute),
		Seq:        seq,
		Attrs:      attrs,
	}
}

func assembleOne(t *testing.T, events []domain.Event) *domain.Timeline {
	t.Helper()
	timelines := timeline.Assemble(events)
	tl := timelines[timeline.Key{Repository: "org/service", PRNumber: 1}]
	require.NotNil(t, tl)
	return tl
}

func TestComputeTurnaroundFirstReview(t *testing.T) {
	tl := assembleOne(t, []domain.Event{
		prEvent(1, 0, domain.EventPROpened, "alice", nil),
		prEvent(2, 30, domain.EventReviewComment, "bob", domain.CommentAttrs{ThreadID: "t-1"}),
		prEvent(3, 60, domain.EventReviewApproved, "bob", domain.ReviewAttrs{State: "approved"}),
	})

	rec, ok := ComputeTurnaround(tl)
	require.True(t, ok)
	require.Equal(t, "alice", rec.Author)
	require.Equal(t, "bob", rec.FirstReviewer)
	require.NotNil(t, rec.TimeToFirstReview)
	require.Equal(t, 30*time.Minute, *rec.TimeToFirstReview)
}

func TestComputeTurnaroundExcludesSelfReview(t *testing.T) {
	tl := assembleOne(t, []domain.Event{
		prEvent(1, 0, domain.EventPROpened, "alice", nil),
		prEvent(2, 10, domain.EventReviewComment, "alice", domain.CommentAttrs{ThreadID: "t-1"}),
		prEvent(3, 45, domain.EventReviewApproved, "bob", domain.ReviewAttrs{State: "approved"}),
	})

	rec, ok := ComputeTurnaround(tl)
	require.True(t, ok)
	require.NotNil(t, rec.TimeToFirstReview)
	require.Equal(t, 45*time.Minute, *rec.TimeToFirstReview, "self-review must not count")
	require.Equal(t, "bob", rec.FirstReviewer)
}

func TestComputeTurnaroundChangesRequested(t *testing.T) {
	tl := assembleOne(t, []domain.Event{
		prEvent(1, 0, domain.EventPROpened, "alice", nil),
		prEvent(2, 20, domain.EventReviewChanges, "bob", domain.ReviewAttrs{State: domain.ReviewStateChangesRequested}),
	})

	rec, _ := ComputeTurnaround(tl)
	require.NotNil(t, rec.TimeToFirstChangesRequested)
	require.Equal(t, 20*time.Minute, *rec.TimeToFirstChangesRequested)
}

func TestComputeTurnaroundLabels(t *testing.T) {
	tl := assembleOne(t, []domain.Event{
		prEvent(1, 0, domain.EventPROpened, "alice", nil),
		prEvent(2, 15, domain.EventLabelAdded, "bot", domain.LabelAttrs{Name: "needs-rebase"}),
		prEvent(3, 90, domain.EventLabelAdded, "bob", domain.LabelAttrs{Name: "Approved-Backend"}),
		prEvent(4, 120, domain.EventLabelAdded, "bot", domain.LabelAttrs{Name: "verified-ci"}),
	})

	rec, _ := ComputeTurnaround(tl)
	require.NotNil(t, rec.TimeToApproval)
	require.Equal(t, 90*time.Minute, *rec.TimeToApproval)
	require.NotNil(t, rec.TimeToFirstVerified)
	require.Equal(t, 120*time.Minute, *rec.TimeToFirstVerified)
}

func TestComputeTurnaroundLifecycle(t *testing.T) {
	open := assembleOne(t, []domain.Event{
		prEvent(1, 0, domain.EventPROpened, "alice", nil),
		prEvent(2, 30, domain.EventCommit, "alice", domain.CommitAttrs{SHA: "abc"}),
	})

	rec, _ := ComputeTurnaround(open)
	require.Nil(t, rec.LifecycleDuration, "PR without terminal event has no lifecycle duration")

	merged := assembleOne(t, []domain.Event{
		prEvent(1, 0, domain.EventPROpened, "alice", nil),
		prEvent(2, 240, domain.EventPRMerged, "alice", nil),
	})

	rec, _ = ComputeTurnaround(merged)
	require.NotNil(t, rec.LifecycleDuration)
	require.Equal(t, 4*time.Hour, *rec.LifecycleDuration)
}

func TestComputeTurnaroundWithoutOpening(t *testing.T) {
	tl := assembleOne(t, []domain.Event{
		prEvent(1, 0, domain.EventComment, "bob", domain.CommentAttrs{ThreadID: "t-1"}),
	})

	_, ok := ComputeTurnaround(tl)
	require.False(t, ok)
}

func TestComputeTurnaroundIgnoresEventsBeforeOpening(t *testing.T) {
	// A reopened PR can carry activity older than the observed opening;
	// latencies are measured from the opening and are never negative.
	tl := assembleOne(t, []domain.Event{
		prEvent(1, 0, domain.EventReviewComment, "bob", domain.CommentAttrs{ThreadID: "t-0"}),
		prEvent(2, 10, domain.EventPROpened, "alice", nil),
		prEvent(3, 40, domain.EventReviewComment, "bob", domain.CommentAttrs{ThreadID: "t-1"}),
	})

	rec, ok := ComputeTurnaround(tl)
	require.True(t, ok)
	require.NotNil(t, rec.TimeToFirstReview)
	require.Equal(t, 30*time.Minute, *rec.TimeToFirstReview)
}

func TestSummarizeTurnaroundAveragesNonNilOnly(t *testing.T) {
	h2 := 2 * time.Hour
	h4 := 4 * time.Hour

	records := []domain.TurnaroundRecord{
		{Repository: "org/a", TimeToFirstReview: &h2, LifecycleDuration: &h4},
		{Repository: "org/a", TimeToFirstReview: &h4},
		{Repository: "org/b"},
	}

	summary := SummarizeTurnaround(records)
	require.Equal(t, 3, summary.TotalPRsAnalyzed)
	require.NotNil(t, summary.AvgTimeToFirstReviewHours)
	require.InDelta(t, 3.0, *summary.AvgTimeToFirstReviewHours, 1e-9)
	require.NotNil(t, summary.AvgPRLifecycleHours)
	require.InDelta(t, 4.0, *summary.AvgPRLifecycleHours, 1e-9)
	require.Nil(t, summary.AvgTimeToApprovalHours, "no qualifying PRs reports null, not zero")
}

func TestSummarizeTurnaroundEmpty(t *testing.T) {
	summary := SummarizeTurnaround(nil)
	require.Zero(t, summary.TotalPRsAnalyzed)
	require.Nil(t, summary.AvgTimeToFirstReviewHours)
	require.Nil(t, summary.AvgPRLifecycleHours)
}

func TestRollupByRepositorySorted(t *testing.T) {
	h1 := time.Hour
	records := []domain.TurnaroundRecord{
		{Repository: "org/b", TimeToFirstReview: &h1},
		{Repository: "org/a", TimeToFirstReview: &h1},
		{Repository: "org/b"},
	}

	rollups := RollupByRepository(records)
	require.Len(t, rollups, 2)
	require.Equal(t, "org/a", rollups[0].Name)
	require.Equal(t, "org/b", rollups[1].Name)
	require.Equal(t, 2, rollups[1].TotalPRs)
	require.NotNil(t, rollups[1].AvgTimeToFirstReviewHours)
	require.InDelta(t, 1.0, *rollups[1].AvgTimeToFirstReviewHours, 1e-9)
}

func TestRollupByReviewerSkipsUnreviewed(t *testing.T) {
	h1 := time.Hour
	records := []domain.TurnaroundRecord{
		{Repository: "org/a", FirstReviewer: "bob", TimeToFirstReview: &h1},
		{Repository: "org/a"},
	}

	rollups := RollupByReviewer(records)
	require.Len(t, rollups, 1)
	require.Equal(t, "bob", rollups[0].Name)
	require.Equal(t, 1, rollups[0].TotalPRs)
}
