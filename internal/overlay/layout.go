package overlay

// LayoutParams are the fixed inputs of a layout pass.
type LayoutParams struct {
	OffsetX int // Margin from the anchor corner, horizontal
	OffsetY int // Margin from the anchor corner, vertical
	Gap     int // Spacing between stacked windows
}

// Placement pairs an entry with its computed position. Entries carrying a
// manual override are reported with Pinned=true and their stored
// coordinates.
type Placement struct {
	ChannelID string
	Pos       Position
	Pinned    bool
}

// computeLayout walks entries in stack order (most-recently-updated first)
// and assigns stacked positions. Manually positioned entries keep their own
// coordinates and are excluded from the accumulated-height column, so the
// automatic stack closes up as if they were not present.
func computeLayout(entries []*Entry, p LayoutParams) []Placement {
	placements := make([]Placement, 0, len(entries))
	accumulated := 0

	for _, e := range entries {
		if e.ManualPos != nil {
			placements = append(placements, Placement{
				ChannelID: e.Conversation.ChannelID,
				Pos:       *e.ManualPos,
				Pinned:    true,
			})
			continue
		}

		placements = append(placements, Placement{
			ChannelID: e.Conversation.ChannelID,
			Pos: Position{
				X: p.OffsetX,
				Y: p.OffsetY + accumulated,
			},
		})
		accumulated += e.Height + p.Gap
	}

	return placements
}
