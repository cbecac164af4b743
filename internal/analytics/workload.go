package analytics

import (
	"sort"
	"strings"
	"time"

	"pr-insights/internal/domain"
	"pr-insights/internal/timeline"
)

// Thresholds configure bottleneck detection. They are injected, never
// literals inside the analyzer; critical severity applies the factor on
// top of both base thresholds.
type Thresholds struct {
	PendingCount   int     `env:"ANALYZER_PENDING_THRESHOLD" env-default:"10"`
	AvgHours       float64 `env:"ANALYZER_AVG_HOURS_THRESHOLD" env-default:"24"`
	CriticalFactor float64 `env:"ANALYZER_CRITICAL_FACTOR" env-default:"1.5"`
}

const lgtmFragment = "lgtm"

// ComputeWorkloads counts, per user, the distinct PRs they created,
// reviewed, approved, and commented "LGTM" on. Self-reviews do not count
// as reviewing. Output is sorted by user.
func ComputeWorkloads(events []domain.Event) []domain.ContributorWorkload {
	authors := make(map[timeline.Key]string)
	for _, e := range events {
		if e.Type == domain.EventPROpened {
			k := timeline.Key{Repository: e.Repository, PRNumber: e.PRNumber}
			if _, seen := authors[k]; !seen {
				authors[k] = e.Actor
			}
		}
	}

	type role struct {
		created  map[timeline.Key]bool
		reviewed map[timeline.Key]bool
		approved map[timeline.Key]bool
		lgtm     map[timeline.Key]bool
	}

	roles := make(map[string]*role)
	roleOf := func(user string) *role {
		r, ok := roles[user]
		if !ok {
			r = &role{
				created:  make(map[timeline.Key]bool),
				reviewed: make(map[timeline.Key]bool),
				approved: make(map[timeline.Key]bool),
				lgtm:     make(map[timeline.Key]bool),
			}
			roles[user] = r
		}
		return r
	}

	for _, e := range events {
		k := timeline.Key{Repository: e.Repository, PRNumber: e.PRNumber}

		switch {
		case e.Type == domain.EventPROpened:
			roleOf(e.Actor).created[k] = true

		case e.IsReview():
			if e.Actor == authors[k] {
				continue
			}
			r := roleOf(e.Actor)
			r.reviewed[k] = true
			if e.Type == domain.EventReviewApproved {
				r.approved[k] = true
			}

		case e.Type == domain.EventComment:
			attrs, ok := e.Attrs.(domain.CommentAttrs)
			if ok && strings.Contains(strings.ToLower(attrs.Body), lgtmFragment) {
				roleOf(e.Actor).lgtm[k] = true
			}
		}
	}

	users := make([]string, 0, len(roles))
	for user := range roles {
		users = append(users, user)
	}
	sort.Strings(users)

	workloads := make([]domain.ContributorWorkload, 0, len(users))
	for _, user := range users {
		r := roles[user]
		workloads = append(workloads, domain.ContributorWorkload{
			User:        user,
			PRsCreated:  len(r.created),
			PRsReviewed: len(r.reviewed),
			PRsApproved: len(r.approved),
			PRsLGTM:     len(r.lgtm),
		})
	}

	return workloads
}

// Gini computes the relative mean difference over per-contributor
// counts. Nil for zero contributors; 0 when every count is identical,
// including all-zero.
func Gini(counts []int) *float64 {
	n := len(counts)
	if n == 0 {
		return nil
	}

	var total float64
	for _, c := range counts {
		total += float64(c)
	}
	if total == 0 {
		zero := 0.0
		return &zero
	}

	var diffSum float64
	for _, a := range counts {
		for _, b := range counts {
			d := float64(a - b)
			if d < 0 {
				d = -d
			}
			diffSum += d
		}
	}

	mean := total / float64(n)
	g := diffSum / (2 * float64(n) * float64(n) * mean)
	return &g
}

// ApproverStat is one by_approver row for the bottlenecks endpoint.
type ApproverStat struct {
	Approver         string
	PendingCount     int
	TotalApproved    int
	AvgApprovalHours *float64
}

// DetectBottlenecks computes each approver's open backlog and mean
// approval latency and emits alerts against the injected thresholds.
// Results are sorted by approver.
func DetectBottlenecks(events []domain.Event, th Thresholds) ([]domain.BottleneckAlert, []ApproverStat) {
	ordered := make([]domain.Event, len(events))
	copy(ordered, events)
	timeline.SortEvents(ordered)

	openedAt := make(map[timeline.Key]time.Time)
	terminal := make(map[timeline.Key]bool)
	requested := make(map[string]map[timeline.Key]bool)
	approvedBy := make(map[string]map[timeline.Key]bool)
	approvalHours := make(map[string][]float64)

	for _, e := range ordered {
		k := timeline.Key{Repository: e.Repository, PRNumber: e.PRNumber}

		switch e.Type {
		case domain.EventPROpened:
			if _, seen := openedAt[k]; !seen {
				openedAt[k] = e.OccurredAt
			}

		case domain.EventPRClosed, domain.EventPRMerged:
			terminal[k] = true

		case domain.EventReviewRequest:
			attrs, ok := e.Attrs.(domain.ReviewRequestAttrs)
			if !ok || attrs.Reviewer == "" {
				continue
			}
			if requested[attrs.Reviewer] == nil {
				requested[attrs.Reviewer] = make(map[timeline.Key]bool)
			}
			requested[attrs.Reviewer][k] = true

		case domain.EventReviewApproved:
			if approvedBy[e.Actor] == nil {
				approvedBy[e.Actor] = make(map[timeline.Key]bool)
			}
			if approvedBy[e.Actor][k] {
				continue
			}
			approvedBy[e.Actor][k] = true

			if t0, ok := openedAt[k]; ok && !e.OccurredAt.Before(t0) {
				approvalHours[e.Actor] = append(approvalHours[e.Actor], e.OccurredAt.Sub(t0).Hours())
			}
		}
	}

	approvers := make(map[string]bool)
	for a := range requested {
		approvers[a] = true
	}
	for a := range approvedBy {
		approvers[a] = true
	}

	names := make([]string, 0, len(approvers))
	for a := range approvers {
		names = append(names, a)
	}
	sort.Strings(names)

	var alerts []domain.BottleneckAlert
	stats := make([]ApproverStat, 0, len(names))

	for _, name := range names {
		pending := 0
		for k := range requested[name] {
			if !terminal[k] && !approvedBy[name][k] {
				pending++
			}
		}

		avg := meanFloat(approvalHours[name])
		stats = append(stats, ApproverStat{
			Approver:         name,
			PendingCount:     pending,
			TotalApproved:    len(approvedBy[name]),
			AvgApprovalHours: avg,
		})

		if avg == nil {
			continue
		}
		if pending <= th.PendingCount || *avg <= th.AvgHours {
			continue
		}

		severity := domain.SeverityWarning
		if th.CriticalFactor > 0 &&
			float64(pending) > float64(th.PendingCount)*th.CriticalFactor &&
			*avg > th.AvgHours*th.CriticalFactor {
			severity = domain.SeverityCritical
		}

		alerts = append(alerts, domain.BottleneckAlert{
			Approver:         name,
			TeamPendingCount: pending,
			AvgApprovalHours: *avg,
			Severity:         severity,
		})
	}

	return alerts, stats
}

// WorkloadSummary is the cross-contributor rollup for the workload
// endpoint. Gini is nil when no contributors were observed.
type WorkloadSummary struct {
	TotalContributors    int
	AvgPRsPerContributor *float64
	TopContributor       string
	WorkloadGini         *float64
}

func SummarizeWorkloads(workloads []domain.ContributorWorkload) WorkloadSummary {
	summary := WorkloadSummary{TotalContributors: len(workloads)}
	if len(workloads) == 0 {
		return summary
	}

	counts := make([]int, 0, len(workloads))
	created := make([]float64, 0, len(workloads))
	top := workloads[0]

	for _, w := range workloads {
		counts = append(counts, w.PRsCreated)
		created = append(created, float64(w.PRsCreated))
		if w.PRsCreated > top.PRsCreated {
			top = w
		}
	}

	summary.AvgPRsPerContributor = meanFloat(created)
	summary.TopContributor = top.User
	summary.WorkloadGini = Gini(counts)

	return summary
}
