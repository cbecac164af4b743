package timeline

import (
	"sort"

	"pr-insights/internal/domain"
)

// Key identifies one PR timeline.
type Key struct {
	Repository string
	PRNumber   int
}

// groupable lists the event types that collapse into GroupedNodes when
// they occur consecutively on the same commit.
var groupable = map[domain.EventType]bool{
	domain.EventCheckRun: true,
}

// Assemble partitions events by PR, orders each partition by timestamp
// with the ingestion sequence as a stable tie-break, and collapses
// bursts of groupable events into grouped nodes.
func Assemble(events []domain.Event) map[Key]*domain.Timeline {
	partitions := make(map[Key][]domain.Event)
	for _, e := range events {
		k := Key{Repository: e.Repository, PRNumber: e.PRNumber}
		partitions[k] = append(partitions[k], e)
	}

	timelines := make(map[Key]*domain.Timeline, len(partitions))
	for k, part := range partitions {
		sortEvents(part)
		timelines[k] = &domain.Timeline{
			Repository: k.Repository,
			PRNumber:   k.PRNumber,
			Nodes:      buildNodes(part),
		}
	}

	return timelines
}

// SortEvents orders events in place by timestamp, breaking ties by
// ingestion sequence only.
func SortEvents(events []domain.Event) {
	sortEvents(events)
}

func sortEvents(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].Seq < events[j].Seq
		}
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
}

func buildNodes(ordered []domain.Event) []domain.TimelineNode {
	nodes := make([]domain.TimelineNode, 0, len(ordered))

	var group *domain.GroupedNode
	flush := func() {
		if group == nil {
			return
		}
		nodes = append(nodes, domain.TimelineNode{Group: group})
		group = nil
	}

	for i := range ordered {
		e := ordered[i]

		if !groupable[e.Type] {
			flush()
			nodes = append(nodes, domain.TimelineNode{Event: &ordered[i]})
			continue
		}

		sha := commitOf(e)
		if group != nil && (group.Type != e.Type || group.CommitSHA != sha) {
			flush()
		}

		if group == nil {
			group = &domain.GroupedNode{
				Type:      e.Type,
				CommitSHA: sha,
				FirstAt:   e.OccurredAt,
			}
		}

		group.LastAt = e.OccurredAt
		group.Children = append(group.Children, e)
		countConclusion(group, e)
	}
	flush()

	return nodes
}

func commitOf(e domain.Event) string {
	if attrs, ok := e.Attrs.(domain.CheckRunAttrs); ok {
		return attrs.CommitSHA
	}
	return ""
}

func countConclusion(group *domain.GroupedNode, e domain.Event) {
	attrs, ok := e.Attrs.(domain.CheckRunAttrs)
	if !ok {
		return
	}

	switch attrs.Conclusion {
	case domain.ConclusionSuccess:
		group.Success++
	case domain.ConclusionFailure:
		group.Failure++
	default:
		group.Pending++
	}
}

// Summary holds the per-PR display counts derived from a timeline.
type Summary struct {
	TotalCommits   int
	TotalReviews   int
	TotalCheckRuns int
	TotalComments  int
}

func Summarize(t *domain.Timeline) Summary {
	var s Summary

	for _, n := range t.Nodes {
		if n.Group != nil {
			if n.Group.Type == domain.EventCheckRun {
				s.TotalCheckRuns += len(n.Group.Children)
			}
			continue
		}

		switch n.Event.Type {
		case domain.EventCommit:
			s.TotalCommits++
		case domain.EventReviewApproved, domain.EventReviewChanges, domain.EventReviewComment:
			s.TotalReviews++
		case domain.EventCheckRun:
			s.TotalCheckRuns++
		case domain.EventComment:
			s.TotalComments++
		}
	}

	return s
}
