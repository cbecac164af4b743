package domain

import "time"

// Timeline is the ordered reconstruction of one PR's events. It is
// derived per request and never persisted.
type Timeline struct {
	Repository string
	PRNumber   int
	Nodes      []TimelineNode
}

// TimelineNode is either a single event or a grouped burst of same-kind
// events. Exactly one of Event and Group is set.
type TimelineNode struct {
	Event *Event
	Group *GroupedNode
}

func (n *TimelineNode) OccurredAt() time.Time {
	if n.Group != nil {
		return n.Group.FirstAt
	}
	return n.Event.OccurredAt
}

// GroupedNode collapses consecutive groupable events (check runs on one
// commit) into a single node, preserving the children for inspection.
type GroupedNode struct {
	Type      EventType
	CommitSHA string
	FirstAt   time.Time
	LastAt    time.Time
	Children  []Event
	Success   int
	Failure   int
	Pending   int
}

// WorstConclusion reports the severest conclusion among the children,
// ordered failure > pending > success.
func (g *GroupedNode) WorstConclusion() string {
	switch {
	case g.Failure > 0:
		return ConclusionFailure
	case g.Pending > 0:
		return ConclusionPending
	default:
		return ConclusionSuccess
	}
}

// HasOpening reports whether the timeline starts from an observed
// pr_opened event. A PR without one is treated as not yet observed.
func (t *Timeline) HasOpening() bool {
	for _, n := range t.Nodes {
		if n.Event != nil && n.Event.Type == EventPROpened {
			return true
		}
	}
	return false
}
