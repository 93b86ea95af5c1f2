package db

import (
	"database/sql"
)

type Run struct {
	ID          int64
	State       string
	Dataset     string
	Surface     string
	StartedAt   int64
	FinishedAt  sql.NullInt64
	Status      string
	RecordCount int64
}

type Station struct {
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
