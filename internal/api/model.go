package api

import (
	"time"

	"pr-insights/internal/analytics"
	"pr-insights/internal/domain"
	"pr-insights/internal/engine"
)

type TurnaroundSummary struct {
	AvgTimeToFirstReviewHours           *float64 `json:"avg_time_to_first_review_hours"`
	AvgTimeToFirstChangesRequestedHours *float64 `json:"avg_time_to_first_changes_requested_hours"`
	AvgTimeToApprovalHours              *float64 `json:"avg_time_to_approval_hours"`
	AvgTimeToFirstVerifiedHours         *float64 `json:"avg_time_to_first_verified_hours"`
	AvgPRLifecycleHours                 *float64 `json:"avg_pr_lifecycle_hours"`
	TotalPRsAnalyzed                    int      `json:"total_prs_analyzed"`
}

type TurnaroundRollup struct {
	Name                      string   `json:"name"`
	AvgTimeToFirstReviewHours *float64 `json:"avg_time_to_first_review_hours"`
	AvgTimeToApprovalHours    *float64 `json:"avg_time_to_approval_hours"`
	AvgPRLifecycleHours       *float64 `json:"avg_pr_lifecycle_hours"`
	TotalPRs                  int      `json:"total_prs"`
}

type TurnaroundResponse struct {
	Summary      TurnaroundSummary  `json:"summary"`
	ByRepository []TurnaroundRollup `json:"by_repository"`
	ByReviewer   []TurnaroundRollup `json:"by_reviewer"`
}

type PRInfo struct {
	Repository string `json:"repository"`
	PRNumber   int    `json:"pr_number"`
	Author     string `json:"author"`
}

type Turnaround struct {
	TimeToFirstReviewHours           *float64 `json:"time_to_first_review_hours"`
	TimeToFirstChangesRequestedHours *float64 `json:"time_to_first_changes_requested_hours"`
	TimeToApprovalHours              *float64 `json:"time_to_approval_hours"`
	TimeToFirstVerifiedHours         *float64 `json:"time_to_first_verified_hours"`
	LifecycleDurationHours           *float64 `json:"lifecycle_duration_hours"`
}

type ChildEvent struct {
	EventType  string    `json:"event_type"`
	Actor      string    `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
	Conclusion string    `json:"conclusion,omitempty"`
}

type TimelineNode struct {
	EventType       string       `json:"event_type"`
	Actor           string       `json:"actor,omitempty"`
	Timestamp       time.Time    `json:"timestamp"`
	Grouped         bool         `json:"grouped,omitempty"`
	CommitSHA       string       `json:"commit_sha,omitempty"`
	SuccessCount    int          `json:"success_count,omitempty"`
	FailureCount    int          `json:"failure_count,omitempty"`
	PendingCount    int          `json:"pending_count,omitempty"`
	WorstConclusion string       `json:"worst_conclusion,omitempty"`
	Children        []ChildEvent `json:"children,omitempty"`
}

type PRStorySummary struct {
	TotalCommits   int `json:"total_commits"`
	TotalReviews   int `json:"total_reviews"`
	TotalCheckRuns int `json:"total_check_runs"`
	TotalComments  int `json:"total_comments"`
}

type PRStoryResponse struct {
	PR         PRInfo         `json:"pr"`
	Events     []TimelineNode `json:"events"`
	Summary    PRStorySummary `json:"summary"`
	Turnaround Turnaround     `json:"turnaround"`
}

type ContributorWorkload struct {
	User        string `json:"user"`
	PRsCreated  int    `json:"prs_created"`
	PRsReviewed int    `json:"prs_reviewed"`
	PRsApproved int    `json:"prs_approved"`
	PRsLGTM     int    `json:"prs_lgtm"`
}

type WorkloadSummary struct {
	TotalContributors    int      `json:"total_contributors"`
	AvgPRsPerContributor *float64 `json:"avg_prs_per_contributor"`
	TopContributor       string   `json:"top_contributor"`
	WorkloadGini         *float64 `json:"workload_gini"`
}

type WorkloadResponse struct {
	Summary       WorkloadSummary       `json:"summary"`
	ByContributor []ContributorWorkload `json:"by_contributor"`
}

type BottleneckAlert struct {
	Approver         string  `json:"approver"`
	TeamPendingCount int     `json:"team_pending_count"`
	AvgApprovalHours float64 `json:"avg_approval_hours"`
	Severity         string  `json:"severity"`
}

type ApproverStat struct {
	Approver         string   `json:"approver"`
	PendingCount     int      `json:"pending_count"`
	TotalApproved    int      `json:"total_approved"`
	AvgApprovalHours *float64 `json:"avg_approval_hours"`
}

type BottlenecksResponse struct {
	Alerts     []BottleneckAlert `json:"alerts"`
	ByApprover []ApproverStat    `json:"by_approver"`
}

type Thread struct {
	ID                       string   `json:"id"`
	Repository               string   `json:"repository"`
	PRNumber                 int      `json:"pr_number"`
	Resolved                 bool     `json:"resolved"`
	ResolutionTimeHours      *float64 `json:"resolution_time_hours"`
	TimeToFirstResponseHours *float64 `json:"time_to_first_response_hours"`
	CommentCount             int      `json:"comment_count"`
	TimeFromCanBeMergedHours *float64 `json:"time_from_can_be_merged_hours"`
}

type ThreadSummary struct {
	AvgResolutionTimeHours      *float64 `json:"avg_resolution_time_hours"`
	MedianResolutionTimeHours   *float64 `json:"median_resolution_time_hours"`
	AvgTimeToFirstResponseHours *float64 `json:"avg_time_to_first_response_hours"`
	AvgCommentsPerThread        *float64 `json:"avg_comments_per_thread"`
	TotalThreadsAnalyzed        int      `json:"total_threads_analyzed"`
	ResolutionRate              *float64 `json:"resolution_rate"`
}

type PRThreadAggregate struct {
	Repository               string   `json:"repository"`
	PRNumber                 int      `json:"pr_number"`
	TotalThreads             int      `json:"total_threads"`
	ResolvedThreads          int      `json:"resolved_threads"`
	AvgResolutionHours       *float64 `json:"avg_resolution_hours"`
	TimeFromCanBeMergedHours *float64 `json:"time_from_can_be_merged_hours"`
}

type ThreadsResponse struct {
	Summary ThreadSummary       `json:"summary"`
	Threads []Thread            `json:"threads"`
	ByPR    []PRThreadAggregate `json:"by_pr"`
}

type IngestResponse struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

func hoursOf(d *time.Duration) *float64 {
	if d == nil {
		return nil
	}
	h := d.Hours()
	return &h
}

func NewTurnaroundResponse(s *engine.Snapshot) TurnaroundResponse {
	return TurnaroundResponse{
		Summary: TurnaroundSummary{
			AvgTimeToFirstReviewHours:           s.TurnaroundSummary.AvgTimeToFirstReviewHours,
			AvgTimeToFirstChangesRequestedHours: s.TurnaroundSummary.AvgTimeToFirstChangesRequestedHours,
			AvgTimeToApprovalHours:              s.TurnaroundSummary.AvgTimeToApprovalHours,
			AvgTimeToFirstVerifiedHours:         s.TurnaroundSummary.AvgTimeToFirstVerifiedHours,
			AvgPRLifecycleHours:                 s.TurnaroundSummary.AvgPRLifecycleHours,
			TotalPRsAnalyzed:                    s.TurnaroundSummary.TotalPRsAnalyzed,
		},
		ByRepository: newRollups(s.ByRepository),
		ByReviewer:   newRollups(s.ByReviewer),
	}
}

func newRollups(rollups []analytics.TurnaroundRollup) []TurnaroundRollup {
	out := make([]TurnaroundRollup, 0, len(rollups))
	for _, r := range rollups {
		out = append(out, TurnaroundRollup{
			Name:                      r.Name,
			AvgTimeToFirstReviewHours: r.AvgTimeToFirstReviewHours,
			AvgTimeToApprovalHours:    r.AvgTimeToApprovalHours,
			AvgPRLifecycleHours:       r.AvgPRLifecycleHours,
			TotalPRs:                  r.TotalPRs,
		})
	}
	return out
}

func NewPRStoryResponse(story *engine.PRStory) PRStoryResponse {
	nodes := make([]TimelineNode, 0, len(story.Timeline.Nodes))
	for _, n := range story.Timeline.Nodes {
		nodes = append(nodes, newTimelineNode(n))
	}

	return PRStoryResponse{
		PR: PRInfo{
			Repository: story.Timeline.Repository,
			PRNumber:   story.Timeline.PRNumber,
			Author:     story.Turnaround.Author,
		},
		Events: nodes,
		Summary: PRStorySummary{
			TotalCommits:   story.Summary.TotalCommits,
			TotalReviews:   story.Summary.TotalReviews,
			TotalCheckRuns: story.Summary.TotalCheckRuns,
			TotalComments:  story.Summary.TotalComments,
		},
		Turnaround: Turnaround{
			TimeToFirstReviewHours:           hoursOf(story.Turnaround.TimeToFirstReview),
			TimeToFirstChangesRequestedHours: hoursOf(story.Turnaround.TimeToFirstChangesRequested),
			TimeToApprovalHours:              hoursOf(story.Turnaround.TimeToApproval),
			TimeToFirstVerifiedHours:         hoursOf(story.Turnaround.TimeToFirstVerified),
			LifecycleDurationHours:           hoursOf(story.Turnaround.LifecycleDuration),
		},
	}
}

func newTimelineNode(n domain.TimelineNode) TimelineNode {
	if n.Group != nil {
		children := make([]ChildEvent, 0, len(n.Group.Children))
		for _, c := range n.Group.Children {
			child := ChildEvent{
				EventType: string(c.Type),
				Actor:     c.Actor,
				Timestamp: c.OccurredAt,
			}
			if attrs, ok := c.Attrs.(domain.CheckRunAttrs); ok {
				child.Conclusion = attrs.Conclusion
			}
			children = append(children, child)
		}

		return TimelineNode{
			EventType:       string(n.Group.Type),
			Timestamp:       n.Group.FirstAt,
			Grouped:         true,
			CommitSHA:       n.Group.CommitSHA,
			SuccessCount:    n.Group.Success,
			FailureCount:    n.Group.Failure,
			PendingCount:    n.Group.Pending,
			WorstConclusion: n.Group.WorstConclusion(),
			Children:        children,
		}
	}

	return TimelineNode{
		EventType: string(n.Event.Type),
		Actor:     n.Event.Actor,
		Timestamp: n.Event.OccurredAt,
	}
}

func NewWorkloadResponse(s *engine.Snapshot) WorkloadResponse {
	byContributor := make([]ContributorWorkload, 0, len(s.Workloads))
	for _, w := range s.Workloads {
		byContributor = append(byContributor, ContributorWorkload{
			User:        w.User,
			PRsCreated:  w.PRsCreated,
			PRsReviewed: w.PRsReviewed,
			PRsApproved: w.PRsApproved,
			PRsLGTM:     w.PRsLGTM,
		})
	}

	return WorkloadResponse{
		Summary: WorkloadSummary{
			TotalContributors:    s.WorkloadSummary.TotalContributors,
			AvgPRsPerContributor: s.WorkloadSummary.AvgPRsPerContributor,
			TopContributor:       s.WorkloadSummary.TopContributor,
			WorkloadGini:         s.WorkloadSummary.WorkloadGini,
		},
		ByContributor: byContributor,
	}
}

func NewBottlenecksResponse(s *engine.Snapshot) BottlenecksResponse {
	alerts := make([]BottleneckAlert, 0, len(s.Alerts))
	for _, a := range s.Alerts {
		alerts = append(alerts, BottleneckAlert{
			Approver:         a.Approver,
			TeamPendingCount: a.TeamPendingCount,
			AvgApprovalHours: a.AvgApprovalHours,
			Severity:         a.Severity,
		})
	}

	byApprover := make([]ApproverStat, 0, len(s.ApproverStats))
	for _, st := range s.ApproverStats {
		byApprover = append(byApprover, ApproverStat{
			Approver:         st.Approver,
			PendingCount:     st.PendingCount,
			TotalApproved:    st.TotalApproved,
			AvgApprovalHours: st.AvgApprovalHours,
		})
	}

	return BottlenecksResponse{
		Alerts:     alerts,
		ByApprover: byApprover,
	}
}

func NewThreadsResponse(s *engine.Snapshot) ThreadsResponse {
	return NewThreadsResponseParts(s.ThreadSummary, s.Threads, s.ThreadAggregates)
}

func NewThreadsResponseParts(summary analytics.ThreadSummary, domainThreads []domain.Thread, aggregates []analytics.PRThreadAggregate) ThreadsResponse {
	threads := make([]Thread, 0, len(domainThreads))
	for _, t := range domainThreads {
		threads = append(threads, Thread{
			ID:                       t.ID,
			Repository:               t.Repository,
			PRNumber:                 t.PRNumber,
			Resolved:                 t.Resolved,
			ResolutionTimeHours:      hoursOf(t.ResolutionTime),
			TimeToFirstResponseHours: hoursOf(t.TimeToFirstResponse),
			CommentCount:             t.CommentCount,
			TimeFromCanBeMergedHours: t.TimeFromCanBeMergedHours,
		})
	}

	byPR := make([]PRThreadAggregate, 0, len(aggregates))
	for _, a := range aggregates {
		byPR = append(byPR, PRThreadAggregate{
			Repository:               a.Repository,
			PRNumber:                 a.PRNumber,
			TotalThreads:             a.TotalThreads,
			ResolvedThreads:          a.ResolvedThreads,
			AvgResolutionHours:       a.AvgResolutionHours,
			TimeFromCanBeMergedHours: a.TimeFromCanBeMergedHours,
		})
	}

	return ThreadsResponse{
		Summary: ThreadSummary{
			AvgResolutionTimeHours:      summary.AvgResolutionTimeHours,
			MedianResolutionTimeHours:   summary.MedianResolutionTimeHours,
			AvgTimeToFirstResponseHours: summary.AvgTimeToFirstResponseHours,
			AvgCommentsPerThread:        summary.AvgCommentsPerThread,
			TotalThreadsAnalyzed:        summary.TotalThreadsAnalyzed,
			ResolutionRate:              summary.ResolutionRate,
		},
		Threads: threads,
		ByPR:    byPR,
	}
}
