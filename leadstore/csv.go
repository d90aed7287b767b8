package leadstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CSVTable keeps the table in a single CSV file, the storage format the
// bot has always used for leads. Every mutation rewrites the file
// through a temp-and-rename so a crash never leaves a half-written
// table behind.
type CSVTable struct {
	path string
}

func NewCSVTable(path string) (*CSVTable, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("leadstore: empty csv path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &CSVTable{path: abs}, nil
}

func (t *CSVTable) ReadAll() ([][]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("leadstore: open %s: %w", t.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("leadstore: read %s: %w", t.path, err)
	}
	return rows, nil
}

func (t *CSVTable) Append(row []string) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("leadstore: open %s for append: %w", t.path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		_ = f.Close()
		return fmt.Errorf("leadstore: append to %s: %w", t.path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("leadstore: flush %s: %w", t.path, err)
	}
	return f.Close()
}

func (t *CSVTable) DeleteRow(index int) error {
	rows, err := t.ReadAll()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("leadstore: row index %d out of range [0,%d)", index, len(rows))
	}
	rows = append(rows[:index], rows[index+1:]...)
	return t.ReplaceAll(rows)
}

func (t *CSVTable) ReplaceAll(rows [][]string) error {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(t.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("leadstore: create temp for %s: %w", t.path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	defer cleanup()

	w := csv.NewWriter(tmp)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("leadstore: write temp for %s: %w", t.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("leadstore: flush temp for %s: %w", t.path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("leadstore: sync temp for %s: %w", t.path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("leadstore: chmod temp for %s: %w", t.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("leadstore: close temp for %s: %w", t.path, err)
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		return fmt.Errorf("leadstore: rename temp for %s: %w", t.path, err)
	}

	// Best effort directory sync for durability; ignore failures.
	if dirFD, err := os.Open(dir); err == nil {
		_ = dirFD.Sync()
		_ = dirFD.Close()
	}
	return nil
}
