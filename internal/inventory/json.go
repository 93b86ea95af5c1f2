package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"wris-inventory/internal/facet"
)

// JSONSink keeps a single UTF-8 JSON array of every record it accepted at
// path. The file is replaced atomically, so it is a valid array after every
// Persist, even one that failed.
type JSONSink struct {
	path    string
	records []facet.StationRecord
}

func NewJSONSink(path string) *JSONSink {
	return &JSONSink{path: path}
}

func (s *JSONSink) Path() string {
	return s.path
}

func (s *JSONSink) Persist(ctx context.Context, batch []facet.StationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next := make([]facet.StationRecord, 0, len(s.records)+len(batch))
	next = append(next, s.records...)
	next = append(next, batch...)

	buff, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return err
	}
	err = writeAtomic(s.path, buff)
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	s.records = next
	return nil
}

func writeAtomic(path string, buff []byte) error {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(buff)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadJSON reads an array written by JSONSink.
func ReadJSON(path string) ([]facet.StationRecord, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []facet.StationRecord
	err = json.Unmarshal(buff, &records)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
