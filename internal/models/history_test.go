package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryLog_AppendIsNonDestructive(t *testing.T) {
	now := time.Now()
	base := NewHistoryLog(HistoryEntry{Action: ActionCreated, Timestamp: now})

	a := base.Append(HistoryEntry{Action: ActionStageChanged, Timestamp: now.Add(time.Hour)})
	b := base.Append(HistoryEntry{Action: ActionNoteAdded, Timestamp: now.Add(2 * time.Hour)})

	assert.Equal(t, 1, base.Len())
	require.Equal(t, 2, a.Len())
	require.Equal(t, 2, b.Len())
	assert.Equal(t, ActionStageChanged, a.Entries()[1].Action)
	assert.Equal(t, ActionNoteAdded, b.Entries()[1].Action)
}

func TestHistoryLog_EntriesAreCopies(t *testing.T) {
	details := map[string]string{"fromStage": "lead"}
	l := NewHistoryLog().Append(HistoryEntry{Action: ActionStageChanged, Details: details})
	details["fromStage"] = "changed"

	got := l.Entries()
	assert.Equal(t, "lead", got[0].Details["fromStage"])
	got[0].Details["fromStage"] = "mutated"
	got[0].Action = "mutated"
	assert.Equal(t, "lead", l.Entries()[0].Details["fromStage"])
	assert.Equal(t, ActionStageChanged, l.Entries()[0].Action)
}

func TestHistoryLog_LatestAndCount(t *testing.T) {
	now := time.Now()
	l := NewHistoryLog(
		HistoryEntry{Action: ActionCreated, Timestamp: now},
		HistoryEntry{Action: ActionStageChanged, Timestamp: now.Add(time.Hour)},
		HistoryEntry{Action: ActionNoteAdded, Timestamp: now.Add(2 * time.Hour)},
		HistoryEntry{Action: ActionStageChanged, Timestamp: now.Add(3 * time.Hour)},
	)
	e, ok := l.Latest(ActionStageChanged, ActionCreated)
	require.True(t, ok)
	assert.True(t, e.Timestamp.Equal(now.Add(3*time.Hour)))
	assert.Equal(t, 2, l.Count(ActionStageChanged))

	_, ok = l.Latest(ActionResumed)
	assert.False(t, ok)
}

func TestHistoryLog_JSON(t *testing.T) {
	var empty HistoryLog
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	l := NewHistoryLog(HistoryEntry{Action: ActionCreated, Actor: "u-1"})
	data, err = json.Marshal(l)
	require.NoError(t, err)

	var back HistoryLog
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, 1, back.Len())
	assert.Equal(t, "u-1", back.Entries()[0].Actor)
}
