package engine

import "tendril/internal/thread"

// Merge combines threads from a secondary source (incoming) into the
// view built so far (current).
//
// Phase one merges by id: unknown ids are appended; a known id is
// overwritten only when the incoming copy is terminal and the current
// one is still open — a one-way ratchet toward resolved, never back.
// Phase two collapses items that received different ids in different
// sources but share normalized text.
func Merge(incoming, current []thread.Thread) []thread.Thread {
	byID := make(map[string]int, len(current))
	merged := make([]thread.Thread, len(current))
	copy(merged, current)
	for i, t := range merged {
		byID[t.ID] = i
	}

	for _, in := range incoming {
		i, exists := byID[in.ID]
		if !exists {
			byID[in.ID] = len(merged)
			merged = append(merged, in)
			continue
		}
		if in.Status.Terminal() && merged[i].Status == thread.StatusOpen {
			merged[i] = in
		}
	}

	return DedupeByText(merged)
}

// DedupeByText collapses threads with identical normalized text into one
// canonical record per semantic item. The first-seen id survives; the
// record content comes from whichever copy is further along its
// lifecycle, or failing that carries more metadata.
func DedupeByText(threads []thread.Thread) []thread.Thread {
	byText := make(map[string]int, len(threads))
	out := make([]thread.Thread, 0, len(threads))

	for _, t := range threads {
		key := thread.NormalizeText(t.Text)
		if key == "" {
			out = append(out, t)
			continue
		}
		i, seen := byText[key]
		if !seen {
			byText[key] = len(out)
			out = append(out, t)
			continue
		}
		keptID := out[i].ID
		out[i] = preferCopy(out[i], t)
		out[i].ID = keptID
	}
	return out
}

// preferCopy picks the better of two copies of the same semantic item:
// resolved beats open, then metadata completeness decides.
func preferCopy(a, b thread.Thread) thread.Thread {
	switch {
	case a.Status.Terminal() && !b.Status.Terminal():
		return a
	case b.Status.Terminal() && !a.Status.Terminal():
		return b
	}
	if b.Completeness() > a.Completeness() {
		return b
	}
	return a
}
