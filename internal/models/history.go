package models

import (
	"encoding/json"
	"time"
)

// History actions.
const (
	ActionCreated      = "created"
	ActionStageChanged = "stage_changed"
	ActionValueChanged = "value_changed"
	ActionAssigned     = "assigned"
	ActionNoteAdded    = "note_added"
	ActionPutOnHold    = "put_on_hold"
	ActionResumed      = "resumed"
)

type HistoryEntry struct {
	Action    string            `json:"action"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor"`
	Details   map[string]string `json:"details,omitempty"`
}

// HistoryLog is an append-only sequence of history entries.
// Append never touches the receiver's backing array, so two opportunities
// derived from the same record can never observe each other's appends.
type HistoryLog struct {
	entries []HistoryEntry
}

func NewHistoryLog(entries ...HistoryEntry) HistoryLog {
	return HistoryLog{entries: cloneEntries(entries)}
}

// Append returns a new log ending with e.
func (l HistoryLog) Append(e HistoryEntry) HistoryLog {
	out := make([]HistoryEntry, len(l.entries), len(l.entries)+1)
	copy(out, l.entries)
	e.Details = cloneDetails(e.Details)
	return HistoryLog{entries: append(out, e)}
}

// Entries returns a copy of the log in insertion order.
func (l HistoryLog) Entries() []HistoryEntry {
	return cloneEntries(l.entries)
}

func (l HistoryLog) Len() int {
	return len(l.entries)
}

// Latest returns the most recent entry whose action is one of actions.
func (l HistoryLog) Latest(actions ...string) (HistoryEntry, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		for _, a := range actions {
			if l.entries[i].Action == a {
				e := l.entries[i]
				e.Details = cloneDetails(e.Details)
				return e, true
			}
		}
	}
	return HistoryEntry{}, false
}

// Count returns how many entries carry the given action.
func (l HistoryLog) Count(action string) int {
	n := 0
	for _, e := range l.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (l HistoryLog) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

func (l *HistoryLog) UnmarshalJSON(data []byte) error {
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.entries = entries
	return nil
}

func cloneEntries(in []HistoryEntry) []HistoryEntry {
	if in == nil {
		return nil
	}
	out := make([]HistoryEntry, len(in))
	for i, e := range in {
		e.Details = cloneDetails(e.Details)
		out[i] = e
	}
	return out
}

func cloneDetails(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
