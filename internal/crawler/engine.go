package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wris-inventory/internal/components/assert"
	"wris-inventory/internal/components/chrono"
	"wris-inventory/internal/components/telemetry"
	"wris-inventory/internal/facet"
	"wris-inventory/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_engine_run      = "engine.run"
	report_engine_branch   = "engine.branch"
	report_engine_reset    = "engine.reset"
	report_engine_stations = "engine.stations"
	report_engine_flush    = "engine.flush"
	report_engine_records  = "engine.records"
)

var tracer = otel.Tracer("wris.crawler")

// Accumulator collects the records of a run.
type Accumulator interface {
	// Add appends the record, it returns false if a record with the same
	// identity was already added.
	Add(rec facet.StationRecord) bool
	// Flush persists every record added since the last successful flush.
	Flush(ctx context.Context) error
	Len() int
	// Pending is the amount of added records some sink has not accepted yet.
	Pending() int
}

type Options struct {
	// State is the name of the state to crawl, matched loosely against the
	// states the portal offers.
	State string
	// Modes restricts the modes crawled at each leaf, empty means every mode.
	Modes []string
	// SettleDelay is waited after every mutation of the surface.
	SettleDelay time.Duration
	// MetadataTimeout bounds the wait for the metadata panel of one station.
	MetadataTimeout time.Duration
	// MergeTehsils visits a tehsil label only once across all occurrences of
	// a district label instead of once per occurrence.
	MergeTehsils bool
	// FlushEachDistrict flushes the accumulator after every district branch.
	FlushEachDistrict bool
	// StateMatchThreshold is the minimum Jaro-Winkler similarity for a fuzzy
	// state name match.
	StateMatchThreshold float64
	Progress            ProgressFunc
}

// Engine walks the facet levels of a surface depth first and appends a record
// for every station at every leaf.
type Engine struct {
	surface facet.Surface
	acc     Accumulator
	clock   chrono.API
	tel     telemetry.API
	opts    Options
}

func NewEngine(
	surface facet.Surface,
	acc Accumulator,
	clock chrono.API,
	tel telemetry.API,
	opts Options,
) *Engine {
	assert.NotNil(surface)
	assert.NotNil(acc)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.State)

	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = 5 * time.Second
	}
	if opts.StateMatchThreshold <= 0 {
		opts.StateMatchThreshold = 0.9
	}

	return &Engine{
		surface: surface,
		acc:     acc,
		clock:   clock,
		tel:     telemetry.NewScopedAPI("crawler", tel),
		opts:    opts,
	}
}

// Run crawls the configured state. It only returns an error for failures that
// end the whole run: the root surface missing, the state not being offered or
// ctx being done. The accumulator is flushed before Run returns in every case,
// a failed final flush is returned when the run itself succeeded and is kept
// in Summary.FlushErr either way.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("state", e.opts.State),
	))
	defer span.End()

	st := newState()
	err := e.selectRoot(ctx, st)
	if err == nil {
		err = e.walk(ctx, st, facet.LEVEL_DISTRICT)
	}

	st.summary.Records = e.acc.Len()
	e.tel.ReportCount(report_engine_records, int64(st.summary.Records))

	flushErr := e.acc.Flush(context.WithoutCancel(ctx))
	if flushErr != nil {
		e.tel.ReportBroken(report_engine_flush, flushErr)
	}
	st.summary.Unsaved = e.acc.Pending()
	st.summary.FlushErr = flushErr

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run aborted")
		e.tel.ReportBroken(report_engine_run, err)
		return st.summary, err
	}
	return st.summary, flushErr
}

func (e *Engine) selectRoot(ctx context.Context, st *state) error {
	options, err := e.query(ctx, st, facet.LEVEL_STATE)
	if err != nil {
		return facet.NewBranchError(facet.LEVEL_STATE, st.path, err)
	}
	if len(options) == 0 {
		return facet.NewBranchError(
			facet.LEVEL_STATE, st.path,
			fmt.Errorf("%w: no states offered", facet.ErrRootMissing),
		)
	}

	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = o.Label
	}
	idx := textutil.BestMatch(e.opts.State, labels, e.opts.StateMatchThreshold)
	if idx < 0 {
		return facet.NewBranchError(
			facet.LEVEL_STATE, st.path,
			fmt.Errorf("%w: state %q is not offered", facet.ErrRootMissing, e.opts.State),
		)
	}

	state := options[idx]
	err = e.choose(ctx, st, facet.LEVEL_STATE, state)
	if err != nil {
		return facet.NewBranchError(facet.LEVEL_STATE, st.path, err)
	}
	st.push(state)
	slog.InfoContext(ctx, "state selected", "state", state.Label)
	return nil
}

// walk visits every option of level under the current path. It only returns
// errors that end the run.
func (e *Engine) walk(ctx context.Context, st *state, level facet.Level) error {
	if level == facet.LEVEL_MODE {
		return e.walkModes(ctx, st)
	}

	options, err := e.query(ctx, st, level)
	if err != nil {
		return e.abandon(ctx, st, level, err)
	}
	if len(options) == 0 {
		e.emit(Event{Kind: EVENT_EMPTY, Level: level, Path: st.path})
		return nil
	}
	if level == facet.LEVEL_DISTRICT {
		options = facet.GroupByLabel(options)
	}

	counter := st.counter(level)
	counter.Enter(st.path)

	for _, o := range options {
		err := ctx.Err()
		if err != nil {
			return err
		}

		selected := facet.Option{
			Label:      o.Label,
			Occurrence: counter.Next(o.Label),
			Value:      o.Value,
		}
		if e.alreadyMerged(st, level, selected) {
			continue
		}

		abandoned := st.summary.Abandoned
		err = e.branch(ctx, st, level, selected)
		if err != nil {
			return err
		}
		if st.summary.Abandoned == abandoned {
			e.markMerged(st, level, selected)
		}

		if level == facet.LEVEL_DISTRICT {
			st.summary.Districts++
			if e.opts.FlushEachDistrict {
				err := e.acc.Flush(ctx)
				if err != nil {
					e.tel.ReportBroken(report_engine_flush, err, st.path.String())
				}
			}
		}
	}
	return nil
}

// branch selects o at level and descends into it.
func (e *Engine) branch(ctx context.Context, st *state, level facet.Level, o facet.Option) error {
	ctx, span := tracer.Start(ctx, "branch", trace.WithAttributes(
		attribute.String("level", level.String()),
		attribute.String("label", o.Label),
		attribute.Int("occurrence", o.Occurrence),
	))
	defer span.End()
	defer st.truncate(level)

	st.summary.Branches++

	if o.Occurrence > 0 {
		err := e.resetDescendants(ctx, st, level)
		if err != nil {
			span.SetStatus(codes.Error, "reset failed")
			return e.abandon(ctx, st, level, fmt.Errorf("reset before %s: %w", o, err))
		}
		st.summary.Resets++
		e.tel.ReportDebug(report_engine_reset, level.String(), o.String())
		e.emit(Event{Kind: EVENT_RESET, Level: level, Path: st.path.With(o)})
	}

	err := e.choose(ctx, st, level, o)
	if err != nil {
		span.SetStatus(codes.Error, "select failed")
		return e.abandon(ctx, st, level, err)
	}

	st.push(o)
	e.emit(Event{Kind: EVENT_BRANCH, Level: level, Path: st.path})
	if level == facet.LEVEL_DISTRICT {
		slog.InfoContext(ctx, "district", "district", o.String(), "records", e.acc.Len())
	}

	return e.walk(ctx, st, level.Next())
}

// walkModes visits every mode under the current agency and extracts the
// stations of each.
func (e *Engine) walkModes(ctx context.Context, st *state) error {
	level := facet.LEVEL_MODE
	options, err := e.query(ctx, st, level)
	if err != nil {
		return e.abandon(ctx, st, level, err)
	}
	options = e.filterModes(options)
	if len(options) == 0 {
		e.emit(Event{Kind: EVENT_EMPTY, Level: level, Path: st.path})
		return nil
	}

	counter := st.counter(level)
	counter.Enter(st.path)

	for _, o := range options {
		err := ctx.Err()
		if err != nil {
			return err
		}

		mode := facet.Option{Label: o.Label, Occurrence: counter.Next(o.Label)}
		err = e.leaf(ctx, st, mode)
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) leaf(ctx context.Context, st *state, mode facet.Option) error {
	level := facet.LEVEL_MODE
	defer st.truncate(level)

	st.summary.Branches++
	err := e.choose(ctx, st, level, mode)
	if err != nil {
		return e.abandon(ctx, st, level, err)
	}
	st.push(mode)

	added, err := e.extractStations(ctx, st)
	if err != nil {
		return e.abandon(ctx, st, facet.LEVEL_STATION, err)
	}
	st.summary.Leaves++
	e.emit(Event{Kind: EVENT_LEAF, Level: facet.LEVEL_STATION, Path: st.path, Stations: added})
	return nil
}

func (e *Engine) filterModes(options []facet.Option) []facet.Option {
	if len(e.opts.Modes) == 0 {
		return options
	}
	var out []facet.Option
	for _, o := range options {
		for _, m := range e.opts.Modes {
			if strings.EqualFold(textutil.NormalizeName(m), textutil.NormalizeName(o.Label)) {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

// alreadyMerged reports whether a tehsil was already crawled under another
// occurrence of the current district label, only when merging is enabled.
func (e *Engine) alreadyMerged(st *state, level facet.Level, o facet.Option) bool {
	if !e.opts.MergeTehsils || level != facet.LEVEL_TEHSIL {
		return false
	}
	district := st.path.Label(facet.LEVEL_DISTRICT)
	if _, seen := st.visitedTehsils[district][o.Label]; seen {
		e.tel.ReportDebug("merged tehsil skipped", district, o.Label)
		return true
	}
	return false
}

// markMerged records a tehsil whose branch completed without anything being
// abandoned, a later occurrence of the district skips it. Partially crawled
// tehsils are tried again under the next occurrence.
func (e *Engine) markMerged(st *state, level facet.Level, o facet.Option) {
	if !e.opts.MergeTehsils || level != facet.LEVEL_TEHSIL {
		return
	}
	district := st.path.Label(facet.LEVEL_DISTRICT)
	visited, ok := st.visitedTehsils[district]
	if !ok {
		visited = map[string]struct{}{}
		st.visitedTehsils[district] = visited
	}
	visited[o.Label] = struct{}{}
}

// abandon decides what a failed branch means for the run. It returns nil when
// the siblings of the branch should continue and the error otherwise.
func (e *Engine) abandon(ctx context.Context, st *state, level facet.Level, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	branchErr := facet.NewBranchError(level, st.path, err)
	switch branchErr.Kind {
	case facet.KIND_ROOT_MISSING, facet.KIND_CANCELED:
		return branchErr
	case facet.KIND_EMPTY_OPTION_LIST:
		e.emit(Event{Kind: EVENT_EMPTY, Level: level, Path: st.path})
		return nil
	}

	st.summary.Abandoned++
	if branchErr.Kind == facet.KIND_OCCURRENCE_NOT_FOUND {
		e.tel.ReportWarning(report_engine_branch, branchErr, st.path.String())
	} else {
		e.tel.ReportBroken(report_engine_branch, branchErr, st.path.String())
	}
	e.emit(Event{Kind: EVENT_ABANDONED, Level: level, Path: st.path, Err: branchErr})
	return nil
}

func (e *Engine) emit(ev Event) {
	if e.opts.Progress != nil {
		e.opts.Progress(ev)
	}
}
