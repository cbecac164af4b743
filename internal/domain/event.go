package domain

import "time"

type EventType string

const (
	EventPROpened       EventType = "pr_opened"
	EventPRClosed       EventType = "pr_closed"
	EventPRMerged       EventType = "pr_merged"
	EventPRReopened     EventType = "pr_reopened"
	EventCommit         EventType = "commit"
	EventReviewApproved EventType = "review_approved"
	EventReviewChanges  EventType = "review_changes"
	EventReviewComment  EventType = "review_comment"
	EventComment        EventType = "comment"
	EventReviewRequest  EventType = "review_requested"
	EventReadyForReview EventType = "ready_for_review"
	EventLabelAdded     EventType = "label_added"
	EventLabelRemoved   EventType = "label_removed"
	EventCheckRun       EventType = "check_run"
	EventThreadResolved EventType = "thread_resolved"
)

const (
	ConclusionSuccess = "success"
	ConclusionFailure = "failure"
	ConclusionPending = "pending"
)

const (
	ReviewStateChangesRequested = "changes_requested"
	ReviewStateApproved         = "approved"
	ReviewStateCommented        = "commented"
)

// Event is one immutable, normalized record of a repository lifecycle
// occurrence. Seq is the ingestion sequence and is the only tie-break
// for events sharing a timestamp.
type Event struct {
	Repository string
	PRNumber   int
	Type       EventType
	Actor      string
	OccurredAt time.Time
	Seq        int64
	Attrs      EventAttrs
}

// EventAttrs is the typed per-event-type payload. Exactly one concrete
// variant exists per attribute-carrying event type; lifecycle events
// without attributes carry nil.
type EventAttrs interface {
	isEventAttrs()
}

type ReviewAttrs struct {
	State string `json:"state"`
}

type CommentAttrs struct {
	ThreadID string `json:"thread_id,omitempty"`
	Body     string `json:"body,omitempty"`
	// CanBeMergedHours is an optional legacy field some producers attach
	// to comments; it arrives as either a JSON number or a string.
	CanBeMergedHours any `json:"can_be_merged_hours,omitempty"`
}

type LabelAttrs struct {
	Name string `json:"name"`
}

type CommitAttrs struct {
	SHA string `json:"sha"`
}

type CheckRunAttrs struct {
	Name       string `json:"name"`
	CommitSHA  string `json:"commit_sha"`
	Conclusion string `json:"conclusion"`
}

type ThreadAttrs struct {
	ThreadID string `json:"thread_id"`
}

type ReviewRequestAttrs struct {
	Reviewer string `json:"reviewer"`
}

func (ReviewAttrs) isEventAttrs()        {}
func (CommentAttrs) isEventAttrs()       {}
func (LabelAttrs) isEventAttrs()         {}
func (CommitAttrs) isEventAttrs()        {}
func (CheckRunAttrs) isEventAttrs()      {}
func (ThreadAttrs) isEventAttrs()        {}
func (ReviewRequestAttrs) isEventAttrs() {}

// IsTerminal reports whether the event closes the PR lifecycle.
func (e *Event) IsTerminal() bool {
	return e.Type == EventPRClosed || e.Type == EventPRMerged
}

// IsReview reports whether the event counts as review activity.
func (e *Event) IsReview() bool {
	switch e.Type {
	case EventReviewApproved, EventReviewChanges, EventReviewComment:
		return true
	}
	return false
}
