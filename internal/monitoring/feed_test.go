package monitoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedNewestFirst(t *testing.T) {
	t.Parallel()
	f := NewFeed()

	f.Add(LevelInfo, "first", "", nil)
	f.Add(LevelSuccess, "second", "Dr Dupont", map[string]any{"score": 85})

	entries := f.Recent(0)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Message)
	assert.Equal(t, "Dr Dupont", entries[0].LeadName)
	assert.Equal(t, "first", entries[1].Message)
	assert.NotEmpty(t, entries[0].ID)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestFeedCapacityEviction(t *testing.T) {
	t.Parallel()
	f := NewFeed()

	for i := 0; i < feedCapacity+20; i++ {
		f.Add(LevelInfo, fmt.Sprintf("entry %d", i), "", nil)
	}

	assert.Equal(t, feedCapacity, f.Len())
	entries := f.Recent(0)
	assert.Equal(t, fmt.Sprintf("entry %d", feedCapacity+19), entries[0].Message)
	assert.Equal(t, "entry 20", entries[len(entries)-1].Message)
}

func TestFeedRecentLimit(t *testing.T) {
	t.Parallel()
	f := NewFeed()
	for i := 0; i < 10; i++ {
		f.Add(LevelInfo, fmt.Sprintf("entry %d", i), "", nil)
	}

	assert.Len(t, f.Recent(3), 3)
	assert.Len(t, f.Recent(50), 10)
	assert.Len(t, f.Recent(0), 10)
}

func TestFeedTimestamps(t *testing.T) {
	t.Parallel()
	f := NewFeed()
	fixed := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	f.Add(LevelWarning, "slow oracle", "", nil)
	entries := f.Recent(1)
	require.Len(t, entries, 1)
	assert.Equal(t, fixed, entries[0].Timestamp)
}
