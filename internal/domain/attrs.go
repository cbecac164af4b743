package domain

import (
	"encoding/json"
	"fmt"
)

// MarshalAttrs serializes an attribute variant for storage. Nil attrs
// become an empty JSON object.
func MarshalAttrs(attrs EventAttrs) ([]byte, error) {
	if attrs == nil {
		return []byte("{}"), nil
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}

	return data, nil
}

// UnmarshalAttrs decodes a raw attribute payload into the variant for the
// given event type. Event types without attributes return nil regardless
// of payload.
func UnmarshalAttrs(eventType EventType, data []byte) (EventAttrs, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}

	switch eventType {
	case EventReviewApproved, EventReviewChanges:
		var attrs ReviewAttrs
		if err := json.Unmarshal(data, &attrs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review attributes: %w", err)
		}
		return attrs, nil

	case EventReviewComment, EventComment:
		var attrs CommentAttrs
		if err := json.Unmarshal(data, &attrs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal comment attributes: %w", err)
		}
		return attrs, nil

	case EventLabelAdded, EventLabelRemoved:
		var attrs LabelAttrs
		if err := json.Unmarshal(data, &attrs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal label attributes: %w", err)
		}
		return attrs, nil

	case EventCommit:
		var attrs CommitAttrs
		if err := json.Unmarshal(data, &attrs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal commit attributes: %w", err)
		}
		return attrs, nil

	case EventCheckRun:
		var attrs CheckRunAttrs
		if err := json.Unmarshal(data, &attrs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal check run attributes: %w", err)
		}
		return attrs, nil

	case EventThreadResolved:
		var attrs ThreadAttrs
		if err := json.Unmarshal(data, &attrs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal thread attributes: %w", err)
		}
		return attrs, nil

	case EventReviewRequest:
		var attrs ReviewRequestAttrs
		if err := json.Unmarshal(data, &attrs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review request attributes: %w", err)
		}
		return attrs, nil

	case EventPROpened, EventPRClosed, EventPRMerged, EventPRReopened, EventReadyForReview:
		return nil, nil
	}

	return nil, fmt.Errorf("unknown event type: %s", eventType)
}
