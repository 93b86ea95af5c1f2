package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wris-inventory/internal/components/assert"
	"wris-inventory/internal/components/chrono"
	"wris-inventory/internal/db"
	"wris-inventory/internal/facet"
)

var ErrNoRun = errors.New("no such run")

type Store struct {
	db     *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	clock  chrono.API
}

func NewStore(database *sql.DB, clock chrono.API) Store {
	assert.NotNil(database)
	assert.NotNil(clock)
	return Store{
		db:     database,
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		clock:  clock,
	}
}

// Migrate creates the tables if they do not exist yet.
func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	return err
}

type Run struct {
	ID          int64
	State       string
	Dataset     string
	Surface     string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      db.RunStatus
	RecordCount int64
}

func runFromRow(row db.Run, loc *time.Location) Run {
	r := Run{
		ID:          row.ID,
		State:       row.State,
		Dataset:     row.Dataset,
		Surface:     row.Surface,
		StartedAt:   time.Unix(row.StartedAt, 0).In(loc),
		Status:      db.RunStatus(row.Status),
		RecordCount: row.RecordCount,
	}
	if row.FinishedAt.Valid {
		r.FinishedAt = time.Unix(row.FinishedAt.Int64, 0).In(loc)
	}
	return r
}

type BeginRunRequest struct {
	State   string
	Dataset string
	Surface string
}

func (s Store) BeginRun(ctx context.Context, req BeginRunRequest) (Run, error) {
	id, err := s.qry.CreateRun(ctx, db.CreateRunParams{
		State:     req.State,
		Dataset:   req.Dataset,
		Surface:   req.Surface,
		StartedAt: s.clock.Now().Unix(),
	})
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return s.Run(ctx, id)
}

// FinishRun marks the run as done, the record count is read back from the
// stations table so it reflects what was actually persisted.
func (s Store) FinishRun(ctx context.Context, id int64, status db.RunStatus) (Run, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return Run{}, err
	}
	defer discard()

	count, err := tx.CountStations(ctx, id)
	if err != nil {
		return Run{}, err
	}
	err = tx.FinishRun(ctx, db.FinishRunParams{
		ID:          id,
		Status:      string(status),
		RecordCount: count,
		FinishedAt: sql.NullInt64{
			Int64: s.clock.Now().Unix(),
			Valid: true,
		},
	})
	if err != nil {
		return Run{}, err
	}
	err = commit()
	if err != nil {
		return Run{}, err
	}
	return s.Run(ctx, id)
}

func (s Store) Run(ctx context.Context, id int64) (Run, error) {
	row, err := s.qry.GetRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %d", ErrNoRun, id)
	}
	if err != nil {
		return Run{}, err
	}
	return runFromRow(row, s.clock.Location()), nil
}

// LatestRun returns the most recent complete run of a state.
func (s Store) LatestRun(ctx context.Context, state string) (Run, error) {
	row, err := s.qry.LatestRun(ctx, state)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: no complete run of %s", ErrNoRun, state)
	}
	if err != nil {
		return Run{}, err
	}
	return runFromRow(row, s.clock.Location()), nil
}

func (s Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.qry.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]Run, len(rows))
	for i, r := range rows {
		out[i] = runFromRow(r, s.clock.Location())
	}
	return out, nil
}

func stringOrNil(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func recordFromRow(row db.Station) facet.StationRecord {
	return facet.StationRecord{
		District:    row.District,
		Tehsil:      row.Tehsil,
		Block:       row.Block,
		Agency:      row.Agency,
		Mode:        row.Mode,
		StationCode: stringOrNil(row.StationCode),
		StationName: row.StationName,
		StationID:   stringOrNil(row.StationID),
		MetaName:    stringOrNil(row.MetaName),
	}
}

// Stations returns the records of a run in the order they were persisted.
func (s Store) Stations(ctx context.Context, runID int64) ([]facet.StationRecord, error) {
	rows, err := s.qry.ListStations(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]facet.StationRecord, len(rows))
	for i, r := range rows {
		out[i] = recordFromRow(r)
	}
	return out, nil
}

type StationHit struct {
	RunID  int64
	Record facet.StationRecord
}

// FindStation returns every record of the station code across all runs,
// newest run first.
func (s Store) FindStation(ctx context.Context, code string) ([]StationHit, error) {
	rows, err := s.qry.FindStationsByCode(ctx, sql.NullString{String: code, Valid: true})
	if err != nil {
		return nil, err
	}
	out := make([]StationHit, len(rows))
	for i, r := range rows {
		out[i] = StationHit{RunID: r.RunID, Record: recordFromRow(r)}
	}
	return out, nil
}

// Insert writes records into a run in one transaction. Records whose identity
// already exists in the run are ignored, so inserting a batch twice is harmless.
func (s Store) Insert(ctx context.Context, runID int64, records []facet.StationRecord) error {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	for _, rec := range records {
		err := tx.InsertStation(ctx, db.InsertStationParams{
			RunID:       runID,
			District:    rec.District,
			Tehsil:      rec.Tehsil,
			Block:       rec.Block,
			Agency:      rec.Agency,
			Mode:        rec.Mode,
			StationCode: nullString(rec.StationCode),
			StationName: rec.StationName,
			StationID:   nullString(rec.StationID),
			MetaName:    nullString(rec.MetaName),
		})
		if err != nil {
			return fmt.Errorf("insert station %s: %w", rec.StationName, err)
		}
	}
	return commit()
}

// Sink persists the batches of a collector into one run.
type Sink struct {
	store Store
	runID int64
}

func (s Store) Sink(runID int64) Sink {
	return Sink{store: s, runID: runID}
}

func (s Sink) Persist(ctx context.Context, batch []facet.StationRecord) error {
	if len(batch) == 0 {
		return nil
	}
	return s.store.Insert(ctx, s.runID, batch)
}
