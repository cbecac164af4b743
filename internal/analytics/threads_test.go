package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pr-insights/internal/domain"
)

func comment(seq int64, minutes int, actor, threadID string) domain.Event {
	return prEvent(seq, minutes, domain.EventReviewComment, actor, domain.CommentAttrs{ThreadID: threadID})
}

func resolved(seq int64, minutes int, threadID string) domain.Event {
	return prEvent(seq, minutes, domain.EventThreadResolved, "bob", domain.ThreadAttrs{ThreadID: threadID})
}

func TestCollectThreadsResolution(t *testing.T) {
	threads := CollectThreads([]domain.Event{
		comment(1, 0, "bob", "t-1"),
		comment(2, 15, "alice", "t-1"),
		resolved(3, 60, "t-1"),
		comment(4, 5, "bob", "t-2"),
	})

	require.Len(t, threads, 2)

	first := threads[0]
	require.Equal(t, "t-1", first.ID)
	require.True(t, first.Resolved)
	require.NotNil(t, first.ResolutionTime)
	require.Equal(t, time.Hour, *first.ResolutionTime)
	require.GreaterOrEqual(t, first.ResolutionTime.Hours(), 0.0)
	require.NotNil(t, first.TimeToFirstResponse)
	require.Equal(t, 15*time.Minute, *first.TimeToFirstResponse)
	require.Equal(t, 2, first.CommentCount)

	second := threads[1]
	require.Equal(t, "t-2", second.ID)
	require.False(t, second.Resolved)
	require.Nil(t, second.ResolutionTime, "unresolved thread has null resolution time")
	require.Nil(t, second.TimeToFirstResponse)
	require.Equal(t, 1, second.CommentCount)
}

func TestCollectThreadsCanBeMergedFromCheck(t *testing.T) {
	events := []domain.Event{
		prEvent(1, 0, domain.EventCheckRun, "bot", domain.CheckRunAttrs{
			Name: "mergeable", CommitSHA: "abc", Conclusion: domain.ConclusionSuccess,
		}),
		comment(2, 10, "bob", "t-1"),
		resolved(3, 70, "t-1"),
	}

	threads := CollectThreads(events)
	require.Len(t, threads, 1)
	require.NotNil(t, threads[0].TimeFromCanBeMergedHours)
	require.InDelta(t, 70.0/60.0, *threads[0].TimeFromCanBeMergedHours, 1e-9)
}

func TestCollectThreadsCanBeMergedNegative(t *testing.T) {
	// Resolution before the mergeable check passes yields a negative
	// value; the sign passes through unmodified.
	events := []domain.Event{
		comment(1, 0, "bob", "t-1"),
		resolved(2, 30, "t-1"),
		prEvent(3, 90, domain.EventCheckRun, "bot", domain.CheckRunAttrs{
			Name: "ci/mergeable", CommitSHA: "abc", Conclusion: domain.ConclusionSuccess,
		}),
	}

	threads := CollectThreads(events)
	require.Len(t, threads, 1)
	require.NotNil(t, threads[0].TimeFromCanBeMergedHours)
	require.InDelta(t, -1.0, *threads[0].TimeFromCanBeMergedHours, 1e-9)
}

func TestAggregatePRThreadsWorstCase(t *testing.T) {
	values := []float64{-21.3, -21.7, -21.9, -21.9, -21.7}

	threads := make([]domain.Thread, 0, len(values))
	for i, v := range values {
		hours := v
		d := time.Duration(i+1) * time.Hour
		threads = append(threads, domain.Thread{
			ID:                       "t",
			Repository:               "org/service",
			PRNumber:                 1,
			Resolved:                 true,
			ResolutionTime:           &d,
			TimeFromCanBeMergedHours: &hours,
		})
	}

	agg := AggregatePRThreads("org/service", 1, threads)
	require.Equal(t, 5, agg.TotalThreads)
	require.Equal(t, 5, agg.ResolvedThreads)
	require.NotNil(t, agg.TimeFromCanBeMergedHours)
	require.InDelta(t, -21.9, *agg.TimeFromCanBeMergedHours, 1e-9)
}

func TestCoerceHours(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{name: "float", value: -21.9, want: -21.9, ok: true},
		{name: "int", value: 3, want: 3, ok: true},
		{name: "numeric string", value: "-21.9", want: -21.9, ok: true},
		{name: "garbage string", value: "soon", ok: false},
		{name: "nil", value: nil, ok: false},
		{name: "bool", value: true, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceHours(tt.value)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestMinHoursSkipsUncoercible(t *testing.T) {
	min := MinHours([]any{"-21.7", -21.9, "not-a-number", 3})
	require.NotNil(t, min)
	require.InDelta(t, -21.9, *min, 1e-9)

	require.Nil(t, MinHours([]any{"nope"}))
	require.Nil(t, MinHours(nil))
}

func TestLegacyCanBeMergedAttribute(t *testing.T) {
	events := []domain.Event{
		prEvent(1, 0, domain.EventReviewComment, "bob", domain.CommentAttrs{ThreadID: "t-1", CanBeMergedHours: "-21.9"}),
		prEvent(2, 5, domain.EventReviewComment, "carol", domain.CommentAttrs{ThreadID: "t-1", CanBeMergedHours: "broken"}),
	}

	threads := CollectThreads(events)
	require.Len(t, threads, 1)
	require.NotNil(t, threads[0].TimeFromCanBeMergedHours)
	require.InDelta(t, -21.9, *threads[0].TimeFromCanBeMergedHours, 1e-9)
}

func TestCollectThreadsBatchCap(t *testing.T) {
	events := []domain.Event{
		comment(1, 0, "bob", "t-1"),
	}
	other := comment(2, 0, "bob", "t-2")
	other.PRNumber = 2
	events = append(events, other)

	_, _, err := CollectThreadsBatch(events, 1)
	require.ErrorIs(t, err, ErrTooManyPRs)

	threads, aggregates, err := CollectThreadsBatch(events, 10)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	require.Len(t, aggregates, 2)
	require.Equal(t, 1, aggregates[0].PRNumber)
	require.Equal(t, 2, aggregates[1].PRNumber)
}

func TestSummarizeThreads(t *testing.T) {
	h1 := time.Hour
	h3 := 3 * time.Hour
	m30 := 30 * time.Minute

	threads := []domain.Thread{
		{Resolved: true, ResolutionTime: &h1, TimeToFirstResponse: &m30, CommentCount: 2},
		{Resolved: true, ResolutionTime: &h3, CommentCount: 4},
		{Resolved: false, CommentCount: 1},
	}

	summary := SummarizeThreads(threads)
	require.Equal(t, 3, summary.TotalThreadsAnalyzed)
	require.NotNil(t, summary.AvgResolutionTimeHours)
	require.InDelta(t, 2.0, *summary.AvgResolutionTimeHours, 1e-9)
	require.NotNil(t, summary.MedianResolutionTimeHours)
	require.InDelta(t, 2.0, *summary.MedianResolutionTimeHours, 1e-9)
	require.NotNil(t, summary.AvgTimeToFirstResponseHours)
	require.InDelta(t, 0.5, *summary.AvgTimeToFirstResponseHours, 1e-9)
	require.NotNil(t, summary.AvgCommentsPerThread)
	require.InDelta(t, 7.0/3.0, *summary.AvgCommentsPerThread, 1e-9)
	require.NotNil(t, summary.ResolutionRate)
	require.InDelta(t, 2.0/3.0, *summary.ResolutionRate, 1e-9)
}

func TestSummarizeThreadsEmpty(t *testing.T) {
	summary := SummarizeThreads(nil)
	require.Zero(t, summary.TotalThreadsAnalyzed)
	require.Nil(t, summary.AvgResolutionTimeHours)
	require.Nil(t, summary.MedianResolutionTimeHours)
	require.Nil(t, summary.ResolutionRate)
}
