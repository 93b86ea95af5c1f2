package db

import (
	"context"
	"database/sql"
)

const createRun = `-- name: CreateRun :one
insert into runs(state, dataset, surface, started_at)
values (?, ?, ?, ?)
returning id
`

type CreateRunParams struct {
	State     string
	Dataset   string
	Surface   string
	StartedAt int64
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createRun,
		arg.State,
		arg.Dataset,
		arg.Surface,
		arg.StartedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const finishRun = `-- name: FinishRun :exec
update runs set finished_at = ?, status = ?, record_count = ?
where id = ?
`

type FinishRunParams struct {
	FinishedAt  sql.NullInt64
	Status      string
	RecordCount int64
	ID          int64
}

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) error {
	_, err := q.db.ExecContext(ctx, finishRun,
		arg.FinishedAt,
		arg.Status,
		arg.RecordCount,
		arg.ID,
	)
	return err
}

const runColumns = `id, state, dataset, surface, started_at, finished_at, status, record_count`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var i Run
	err := row.Scan(
		&i.ID,
		&i.State,
		&i.Dataset,
		&i.Surface,
		&i.StartedAt,
		&i.FinishedAt,
		&i.Status,
		&i.RecordCount,
	)
	return i, err
}

const getRun = `-- name: GetRun :one
select ` + runColumns + ` from runs where id = ?
`

func (q *Queries) GetRun(ctx context.Context, id int64) (Run, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	return scanRun(row)
}

const latestRun = `-- name: LatestRun :one
select ` + runColumns + ` from runs where state = ? and status = 'complete'
order by started_at desc limit 1
`

func (q *Queries) LatestRun(ctx context.Context, state string) (Run, error) {
	row := q.db.QueryRowContext(ctx, latestRun, state)
	return scanRun(row)
}

const listRuns = `-- name: ListRuns :many
select ` + runColumns + ` from runs order by started_at desc, id desc limit ?
`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Run
	for rows.Next() {
		i, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertStation = `-- name: InsertStation :exec
insert into stations(
    run_id, district, tehsil, block, agency, mode,
    station_code, station_name, station_id, meta_name
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict do nothing
`

type InsertStationParams struct {
	RunID       int64
	District    string
	Tehsil      string
	Block       string
	Agency      string
	Mode        string
	StationCode sql.NullString
	StationName string
	StationID   sql.NullString
	MetaName    sql.NullString
}

func (q *Queries) InsertStation(ctx context.Context, arg InsertStationParams) error {
	_, err := q.db.ExecContext(ctx, insertStation,
		arg.RunID,
		arg.District,
		arg.Tehsil,
		arg.Block,
		arg.Agency,
		arg.Mode,
		arg.StationCode,
		arg.StationName,
		arg.StationID,
		arg.MetaName,
	)
	return err
}

const stationColumns = `run_id, district, tehsil, block, agency, mode, station_code, station_name, station_id, meta_name`

func scanStations(rows *sql.Rows) ([]Station, error) {
	defer rows.Close()
	var items []Station
	for rows.Next() {
		var i Station
		if err := rows.Scan(
			&i.RunID,
			&i.District,
			&i.Tehsil,
			&i.Block,
			&i.Agency,
			&i.Mode,
			&i.StationCode,
			&i.StationName,
			&i.StationID,
			&i.MetaName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listStations = `-- name: ListStations :many
select ` + stationColumns + ` from stations where run_id = ?
order by rowid
`

func (q *Queries) ListStations(ctx context.Context, runID int64) ([]Station, error) {
	rows, err := q.db.QueryContext(ctx, listStations, runID)
	if err != nil {
		return nil, err
	}
	return scanStations(rows)
}

const countStations = `-- name: CountStations :one
select count(*) from stations where run_id = ?
`

func (q *Queries) CountStations(ctx context.Context, runID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countStations, runID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const findStationsByCode = `-- name: FindStationsByCode :many
select ` + stationColumns + ` from stations where station_code = ?
order by run_id desc, rowid
`

func (q *Queries) FindStationsByCode(ctx context.Context, stationCode sql.NullString) ([]Station, error) {
	rows, err := q.db.QueryContext(ctx, findStationsByCode, stationCode)
	if err != nil {
		return nil, err
	}
	return scanStations(rows)
}
