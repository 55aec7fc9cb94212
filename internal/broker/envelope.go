package broker

import (
	"encoding/json"
	"fmt"

	"socialcore/internal/model"
)

// Action enumerates the outbound envelope actions of §4.3.
type Action string

const (
	ActionNew               Action = "new"
	ActionUpdate            Action = "update"
	ActionDelete            Action = "delete"
	ActionReactionUpdate    Action = "reaction_update"
	ActionNotificationNew   Action = "notification_new"
	ActionNotificationRead  Action = "notification_read"
	ActionNotificationAllRead Action = "notification_all_read"
)

// Envelope is the message shape published on a topic and relayed
// verbatim to every subscribed session.
type Envelope struct {
	Action     Action          `json:"action"`
	EntityKind model.EntityKind `json:"entity_kind,omitempty"`
	Body       json.RawMessage `json:"body"`
}

// NewEnvelope marshals body into an Envelope, matching the teacher's
// FeedEvent.ToMap JSON-in-a-field convention for the wire body.
func NewEnvelope(action Action, kind model.EntityKind, body any) (Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal envelope body: %w", err)
	}
	return Envelope{Action: action, EntityKind: kind, Body: raw}, nil
}

func (e Envelope) toValues() (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return map[string]any{"data": string(data)}, nil
}

func parseEnvelope(values map[string]any) (Envelope, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Envelope{}, fmt.Errorf("missing or invalid 'data' field")
	}
	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}
