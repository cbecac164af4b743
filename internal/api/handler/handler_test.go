package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pr-insights/internal/analytics"
	"pr-insights/internal/api"
	"pr-insights/internal/domain"
	"pr-insights/internal/engine"
	"pr-insights/internal/repository"
)

type stubStore struct {
	events []domain.Event
	saved  []domain.Event
}

func (s *stubStore) SaveEvents(_ context.Context, events []domain.Event) (int, error) {
	s.saved = append(s.saved, events...)
	return len(events), nil
}

func (s *stubStore) ListEvents(_ context.Context, filter repository.ListFilter) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range s.events {
		if filter.Repository != "" && e.Repository != filter.Repository {
			continue
		}
		if filter.PRNumber > 0 && e.PRNumber != filter.PRNumber {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *stubStore) ListRepositories(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var repos []string
	for _, e := range s.events {
		if !seen[e.Repository] {
			seen[e.Repository] = true
			repos = append(repos, e.Repository)
		}
	}
	return repos, nil
}

func (s *stubStore) Close() {}

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func fixtureEvents() []domain.Event {
	return []domain.Event{
		{Repository: "org/alpha", PRNumber: 1, Type: domain.EventPROpened, Actor: "alice", OccurredAt: t0, Seq: 1},
		{Repository: "org/alpha", PRNumber: 1, Type: domain.EventReviewApproved, Actor: "bob", OccurredAt: t0.Add(2 * time.Hour), Seq: 2, Attrs: domain.ReviewAttrs{State: "approved"}},
		{Repository: "org/alpha", PRNumber: 1, Type: domain.EventPRMerged, Actor: "alice", OccurredAt: t0.Add(3 * time.Hour), Seq: 3},
	}
}

func testEngine(store repository.EventStore) *engine.Engine {
	th := analytics.Thresholds{PendingCount: 10, AvgHours: 24, CriticalFactor: 1.5}
	return engine.New(store, th, &engine.Config{Workers: 1}, zap.NewNop())
}

func TestTurnaroundHandler(t *testing.T) {
	eng := testEngine(&stubStore{events: fixtureEvents()})
	h := Turnaround(eng, time.Second, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/analytics/turnaround?repository=org/alpha", nil)
	w := httptest.NewRecorder()
	h(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.TurnaroundResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Summary.TotalPRsAnalyzed)
	require.NotNil(t, resp.Summary.AvgTimeToFirstReviewHours)
	require.InDelta(t, 2.0, *resp.Summary.AvgTimeToFirstReviewHours, 1e-9)
	require.NotNil(t, resp.Summary.AvgPRLifecycleHours)
	require.InDelta(t, 3.0, *resp.Summary.AvgPRLifecycleHours, 1e-9)
}

func TestTurnaroundHandlerBadTimeFilter(t *testing.T) {
	eng := testEngine(&stubStore{})
	h := Turnaround(eng, time.Second, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/analytics/turnaround?start_time=yesterday", nil)
	w := httptest.NewRecorder()
	h(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPRStoryHandlerNotObserved(t *testing.T) {
	store := &stubStore{events: []domain.Event{
		{Repository: "org/alpha", PRNumber: 2, Type: domain.EventComment, Actor: "bob", OccurredAt: t0, Seq: 1, Attrs: domain.CommentAttrs{ThreadID: "t-1"}},
	}}
	h := PRStory(testEngine(store), time.Second, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/analytics/pr-story?repository=org/alpha&pr_number=2", nil)
	w := httptest.NewRecorder()
	h(w, r)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), api.CodeNotObserved)
}

func TestPRStoryHandlerValidation(t *testing.T) {
	h := PRStory(testEngine(&stubStore{}), time.Second, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/analytics/pr-story?pr_number=1", nil)
	w := httptest.NewRecorder()
	h(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/analytics/pr-story?repository=org/alpha&pr_number=zero", nil)
	w = httptest.NewRecorder()
	h(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPRStoryHandler(t *testing.T) {
	h := PRStory(testEngine(&stubStore{events: fixtureEvents()}), time.Second, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/analytics/pr-story?repository=org/alpha&pr_number=1", nil)
	w := httptest.NewRecorder()
	h(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.PRStoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "alice", resp.PR.Author)
	require.Len(t, resp.Events, 3)
	require.NotNil(t, resp.Turnaround.LifecycleDurationHours)
	require.InDelta(t, 3.0, *resp.Turnaround.LifecycleDurationHours, 1e-9)
}

func TestIngestEventsHandler(t *testing.T) {
	store := &stubStore{}
	h := IngestEvents(store, time.Second, zap.NewNop())

	body := `{"events":[
		{"repository":"org/alpha","pr_number":1,"event_type":"pr_opened","actor":"alice","timestamp":"2025-06-01T10:00:00Z"},
		{"repository":"org/alpha","pr_number":1,"event_type":"label_added","actor":"bob","timestamp":"2025-06-01T11:00:00Z","attributes":{}}
	]}`

	r := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	w := httptest.NewRecorder()
	h(w, r)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp api.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Accepted)
	require.Equal(t, 1, resp.Dropped, "label without name is dropped, not fatal")
	require.Len(t, store.saved, 1)
}

func TestIngestEventsHandlerMissingEvents(t *testing.T) {
	h := IngestEvents(&stubStore{}, time.Second, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestThreadsHandlerNarrowsToPR(t *testing.T) {
	events := fixtureEvents()
	events = append(events,
		domain.Event{Repository: "org/alpha", PRNumber: 1, Type: domain.EventReviewComment, Actor: "bob", OccurredAt: t0.Add(10 * time.Minute), Seq: 4, Attrs: domain.CommentAttrs{ThreadID: "t-1"}},
		domain.Event{Repository: "org/alpha", PRNumber: 1, Type: domain.EventThreadResolved, Actor: "alice", OccurredAt: t0.Add(30 * time.Minute), Seq: 5, Attrs: domain.ThreadAttrs{ThreadID: "t-1"}},
		domain.Event{Repository: "org/alpha", PRNumber: 2, Type: domain.EventReviewComment, Actor: "bob", OccurredAt: t0, Seq: 6, Attrs: domain.CommentAttrs{ThreadID: "t-9"}},
	)

	h := Threads(testEngine(&stubStore{events: events}), time.Second, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/analytics/threads?repository=org/alpha&pr_number=1", nil)
	w := httptest.NewRecorder()
	h(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ThreadsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Summary.TotalThreadsAnalyzed)
	require.Len(t, resp.Threads, 1)
	require.Equal(t, "t-1", resp.Threads[0].ID)
	require.Len(t, resp.ByPR, 1)
	require.Equal(t, 1, resp.ByPR[0].PRNumber)
}

func TestWorkloadHandler(t *testing.T) {
	h := Workload(testEngine(&stubStore{events: fixtureEvents()}), time.Second, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/analytics/workload", nil)
	w := httptest.NewRecorder()
	h(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.WorkloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Summary.TotalContributors)
	require.Equal(t, "alice", resp.Summary.TopContributor)
	require.NotNil(t, resp.Summary.WorkloadGini)
}

func TestBottlenecksHandlerNoAlerts(t *testing.T) {
	h := Bottlenecks(testEngine(&stubStore{events: fixtureEvents()}), time.Second, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/analytics/bottlenecks", nil)
	w := httptest.NewRecorder()
	h(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.BottlenecksResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Empty(t, resp.Alerts)
	require.Len(t, resp.ByApprover, 1)
	require.Equal(t, "bob", resp.ByApprover[0].Approver)
}
