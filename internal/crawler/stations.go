package crawler

import (
	"context"
	"errors"
	"fmt"

	"wris-inventory/internal/facet"
)

// extractStations appends a record for every station offered under the
// current path and returns how many were appended. Stations are inspected one
// at a time since the metadata panel only ever shows the selected station.
func (e *Engine) extractStations(ctx context.Context, st *state) (int, error) {
	stations, err := e.query(ctx, st, facet.LEVEL_STATION)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, station := range stations {
		err := ctx.Err()
		if err != nil {
			return added, err
		}

		rec, err := e.inspectStation(ctx, st, station)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return added, ctxErr
			}
			e.tel.ReportWarning(
				report_engine_stations,
				facet.NewBranchError(facet.LEVEL_STATION, st.path, err),
			)
			continue
		}

		if !e.acc.Add(rec) {
			st.summary.Duplicates++
			e.tel.ReportWarning(report_engine_stations, "duplicate station", st.path.String(), *rec.StationCode)
			continue
		}
		added++
	}
	return added, nil
}

// inspectStation selects station alone, reads the metadata panel and
// deselects it again. A metadata read that fails or times out only degrades
// the record, an error is returned when the station could not be selected.
func (e *Engine) inspectStation(ctx context.Context, st *state, station facet.Option) (facet.StationRecord, error) {
	level := facet.LEVEL_STATION
	err := e.choose(ctx, st, level, station)
	if err != nil {
		return facet.StationRecord{}, err
	}

	metaCtx, cancel := context.WithTimeout(ctx, e.opts.MetadataTimeout)
	meta, metaErr := e.surface.ReadMetadata(metaCtx)
	cancel()

	err = e.clear(ctx, st, level)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return facet.StationRecord{}, ctxErr
		}
		// the next station clears again since the level stays dirty
		e.tel.ReportWarning(report_engine_stations, fmt.Errorf("deselect %s: %w", station, err))
	}

	rec := st.record()
	rec.StationName = station.Label
	rec.StationCode = facet.StringOrNil(station.Value)

	if metaErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return facet.StationRecord{}, ctxErr
		}
		if errors.Is(metaErr, context.DeadlineExceeded) {
			metaErr = fmt.Errorf("%w: %s", facet.ErrMetadataTimeout, e.opts.MetadataTimeout)
		}
		st.summary.Degraded++
		e.tel.ReportWarning(
			report_engine_stations,
			facet.NewBranchError(level, st.path.With(station), metaErr),
		)
		return rec, nil
	}

	if rec.StationCode == nil {
		rec.StationCode = facet.StringOrNil(meta.StationCode)
	}
	rec.StationID = facet.StringOrNil(meta.StationID)
	rec.MetaName = facet.StringOrNil(meta.MetaName)
	return rec, nil
}
