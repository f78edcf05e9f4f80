package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(channelID string, height int, manual *Position) *Entry {
	return &Entry{
		Conversation: Conversation{ChannelID: channelID},
		Height:       height,
		ManualPos:    manual,
	}
}

func TestComputeLayoutStacksByPromotionOrder(t *testing.T) {
	p := LayoutParams{OffsetX: 20, OffsetY: 30, Gap: 8}
	entries := []*Entry{
		entry("a", 140, nil),
		entry("b", 200, nil),
		entry("c", 140, nil),
	}

	got := computeLayout(entries, p)
	require.Len(t, got, 3)

	assert.Equal(t, Placement{ChannelID: "a", Pos: Position{X: 20, Y: 30}}, got[0])
	assert.Equal(t, Placement{ChannelID: "b", Pos: Position{X: 20, Y: 30 + 140 + 8}}, got[1])
	assert.Equal(t, Placement{ChannelID: "c", Pos: Position{X: 20, Y: 30 + 140 + 8 + 200 + 8}}, got[2])
}

func TestComputeLayoutSkipsPinnedHeights(t *testing.T) {
	p := LayoutParams{OffsetX: 0, OffsetY: 0, Gap: 10}
	pinned := Position{X: 500, Y: 500}
	entries := []*Entry{
		entry("a", 100, nil),
		entry("b", 300, &pinned),
		entry("c", 100, nil),
	}

	got := computeLayout(entries, p)
	require.Len(t, got, 3)

	assert.Equal(t, Position{X: 0, Y: 0}, got[0].Pos)
	// Pinned entry keeps its coordinates and contributes no height.
	assert.True(t, got[1].Pinned)
	assert.Equal(t, pinned, got[1].Pos)
	assert.Equal(t, Position{X: 0, Y: 110}, got[2].Pos)
}

func TestComputeLayoutEmpty(t *testing.T) {
	assert.Empty(t, computeLayout(nil, LayoutParams{}))
}

func TestComputeLayoutMonotonicOffsets(t *testing.T) {
	p := LayoutParams{OffsetX: 20, OffsetY: 20, Gap: 8}
	var entries []*Entry
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		entries = append(entries, entry(id, 140, nil))
	}

	got := computeLayout(entries, p)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Pos.Y, got[i-1].Pos.Y)
	}
}
