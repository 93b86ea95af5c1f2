package crawler

import (
	"context"
	"fmt"

	"wris-inventory/internal/facet"
)

// query lists the options of level under the current path. Levels at or below
// level that still hold a selection are cleared first, so the list reflects
// nothing but the current path.
func (e *Engine) query(ctx context.Context, st *state, level facet.Level) ([]facet.Option, error) {
	err := e.clearDirty(ctx, st, level)
	if err != nil {
		return nil, err
	}
	raw, err := e.surface.ListOptions(ctx, level, st.path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", level, err)
	}
	return facet.Tag(raw), nil
}

// choose makes o the only selection at level. The option is located again in
// the list that is visible right now, positions read before any mutation are
// never reused.
func (e *Engine) choose(ctx context.Context, st *state, level facet.Level, o facet.Option) error {
	if st.dirty[level] {
		err := e.clear(ctx, st, level)
		if err != nil {
			return err
		}
	}

	raw, err := e.surface.ListOptions(ctx, level, st.path)
	if err != nil {
		return fmt.Errorf("list %s: %w", level, err)
	}
	idx, err := facet.Locate(raw, o.Label, o.Occurrence)
	if err != nil {
		return err
	}

	err = e.surface.Select(ctx, level, idx)
	if err != nil {
		return fmt.Errorf("select %s %s: %w", level, o, err)
	}
	st.dirty[level] = true
	return e.settle(ctx)
}

func (e *Engine) settle(ctx context.Context) error {
	return e.clock.Sleep(ctx, e.opts.SettleDelay)
}
