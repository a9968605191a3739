package amqp

import (
	"encoding/json"
	"time"

	"saku/internal/core"
)

// JournalEventMessage is the wire form of a core.JournalEvent. It carries
// ids only; the consumer loads the rows it needs from storage.
type JournalEventMessage struct {
	Type          string    `json:"type"`
	Owner         string    `json:"owner"`
	EntryIDs      []int64   `json:"entry_ids,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	PocketID      int64     `json:"pocket_id,omitempty"`
	GoalID        int64     `json:"goal_id,omitempty"`
	AmountMinor   int64     `json:"amount_minor,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewJournalEventMessage(ev core.JournalEvent) *JournalEventMessage {
	return &JournalEventMessage{
		Type:          string(ev.Type),
		Owner:         ev.Owner,
		EntryIDs:      append([]int64(nil), ev.EntryIDs...),
		CorrelationID: ev.CorrelationID,
		PocketID:      ev.PocketID,
		GoalID:        ev.GoalID,
		AmountMinor:   ev.Amount.Minor,
		OccurredAt:    ev.OccurredAt.UTC(),
		Timestamp:     time.Now().UTC(),
	}
}

// Event converts the message back into a journal event.
func (m *JournalEventMessage) Event() core.JournalEvent {
	return core.JournalEvent{
		Type:          core.EventType(m.Type),
		Owner:         m.Owner,
		EntryIDs:      append([]int64(nil), m.EntryIDs...),
		CorrelationID: m.CorrelationID,
		PocketID:      m.PocketID,
		GoalID:        m.GoalID,
		Amount:        core.Money{Minor: m.AmountMinor},
		OccurredAt:    m.OccurredAt,
	}
}

func (m *JournalEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func JournalEventMessageFromJSON(data []byte) (*JournalEventMessage, error) {
	var msg JournalEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
