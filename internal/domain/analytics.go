package domain

import "time"

// TurnaroundRecord holds the latency metrics for one PR. Every duration
// is nil until its defining event has been observed.
type TurnaroundRecord struct {
	Repository                  string
	PRNumber                    int
	Author                      string
	FirstReviewer               string
	TimeToFirstReview           *time.Duration
	TimeToFirstChangesRequested *time.Duration
	TimeToApproval              *time.Duration
	TimeToFirstVerified         *time.Duration
	LifecycleDuration           *time.Duration
}

// Thread is one review discussion grouped by thread id.
type Thread struct {
	ID                       string
	Repository               string
	PRNumber                 int
	Resolved                 bool
	ResolutionTime           *time.Duration
	TimeToFirstResponse      *time.Duration
	CommentCount             int
	TimeFromCanBeMergedHours *float64
}

// ContributorWorkload counts role occurrences per user. A zero count is
// a valid observed value, not missing data.
type ContributorWorkload struct {
	User        string
	PRsCreated  int
	PRsReviewed int
	PRsApproved int
	PRsLGTM     int
}

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// BottleneckAlert is emitted for an approver whose backlog and approval
// latency both exceed the configured thresholds.
type BottleneckAlert struct {
	Approver         string
	TeamPendingCount int
	AvgApprovalHours float64
	Severity         string
}
