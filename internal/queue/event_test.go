package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	a := NewEvent(EventEntryRecorded)
	b := NewEvent(EventEntryRecorded)

	assert.Equal(t, EventEntryRecorded, a.Event)
	assert.NotEqual(t, a.EventID, b.EventID)

	ts, err := time.Parse(time.RFC3339, a.OccurredAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, 5*time.Second)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestHandleMessageAppendsLogLine(t *testing.T) {
	chdir(t, t.TempDir())

	ev := NewEvent(EventEntryRecorded)
	ev.FamilyName = "Rivera"
	ev.AccessCode = "ABCD"
	ev.CountEntering = 2
	ev.EnteredCount = 2
	ev.PartySize = 5
	ev.RecordedBy = 7
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, handleMessage(body))

	data, err := os.ReadFile(filepath.Join("logs", "checkin.log"))
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, "Entry recorded")
	assert.Contains(t, line, `family="Rivera"`)
	assert.Contains(t, line, "code=ABCD")
	assert.Contains(t, line, "inside=2/5")
}

func TestHandleMessageRejectsBadJSON(t *testing.T) {
	chdir(t, t.TempDir())
	assert.Error(t, handleMessage([]byte("{not json")))
}
