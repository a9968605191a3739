package core

import "time"

const (
	EventEntryAppended     EventType = "entry.appended"
	EventEntryRemoved      EventType = "entry.removed"
	EventTransferCompleted EventType = "transfer.completed"
	EventGoalFunded        EventType = "goal.funded"
	EventPocketDeleted     EventType = "pocket.deleted"
)

type EventType string

// JournalEvent announces a committed change to the journal. It is emitted
// after commit and carries ids only; consumers read the rows they need.
type JournalEvent struct {
	Type          EventType
	Owner         string
	EntryIDs      []int64
	CorrelationID string
	PocketID      int64
	GoalID        int64
	Amount        Money
	OccurredAt    time.Time
}

// AddsEntries reports whether the event introduced new journal rows.
func (t EventType) AddsEntries() bool {
	switch t {
	case EventEntryAppended, EventTransferCompleted, EventGoalFunded:
		return true
	}
	return false
}

// RemovesEntries reports whether the event deleted journal rows.
func (t EventType) RemovesEntries() bool {
	return t == EventEntryRemoved || t == EventPocketDeleted
}
