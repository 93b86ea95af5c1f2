package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// OpenMemoryDB opens an in-memory sqlite database with schema applied, it is
// closed when the test ends. The pool is limited to one connection since every
// connection to `:memory:` gets its own database.
func OpenMemoryDB(t testing.TB, schema string) *sql.DB {
	t.Helper()

	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqlite.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlite.Close() })

	if schema != "" {
		_, err = sqlite.Exec(schema)
		if err != nil {
			t.Fatal(err)
		}
	}
	return sqlite
}
