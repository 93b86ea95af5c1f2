package configlibsql

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct configures where the station store lives, either a local sqlite
// file or a remote libsql database.
type Struct struct {
	File      string `json:"file"`
	URL       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Struct) Enabled() bool {
	return config.File != "" || config.URL != ""
}

func (config Struct) OpenDB() (*sql.DB, error) {
	if config.URL != "" {
		return config.openRemote()
	}
	if config.File == "" {
		return nil, fmt.Errorf("neither a database file nor url was specified")
	}
	if config.File == ":memory:" {
		db, err := sql.Open("sqlite", config.File)
		if err != nil {
			return nil, err
		}
		// every connection to :memory: is a different database
		db.SetMaxOpenConns(1)
		return db, nil
	}

	dbpath, err := filepath.Abs(config.File)
	if err != nil {
		return nil, err
	}
	err = os.MkdirAll(filepath.Dir(dbpath), 0755)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway, a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	_, err = db.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (config Struct) openRemote() (*sql.DB, error) {
	dsn, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if config.AuthToken != "" {
		query := dsn.Query()
		query.Set("authToken", config.AuthToken)
		dsn.RawQuery = query.Encode()
	}
	return sql.Open("libsql", dsn.String())
}
