package crawler

import (
	"context"
	"fmt"

	"wris-inventory/internal/facet"
)

// resetDescendants clears every level strictly below level, innermost first,
// whether or not the level is known to hold a selection. It runs before an
// ambiguous label is selected again for a later occurrence, so nothing chosen
// under the earlier occurrence can leak into the next one.
func (e *Engine) resetDescendants(ctx context.Context, st *state, level facet.Level) error {
	for _, below := range level.Below() {
		err := e.clear(ctx, st, below)
		if err != nil {
			return err
		}
	}
	return nil
}

// clearDirty clears the levels at or below level that had something selected
// since they were last cleared, innermost first.
func (e *Engine) clearDirty(ctx context.Context, st *state, level facet.Level) error {
	for below := facet.LEVEL_STATION; below >= level; below-- {
		if !st.dirty[below] {
			continue
		}
		err := e.clear(ctx, st, below)
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) clear(ctx context.Context, st *state, level facet.Level) error {
	err := e.surface.ClearAll(ctx, level)
	if err != nil {
		return fmt.Errorf("clear %s: %w", level, err)
	}
	st.dirty[level] = false
	return e.settle(ctx)
}
