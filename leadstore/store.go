package leadstore

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Store is the only writer of the lead table. Every operation holds the
// store mutex for its full read-modify-write so two callers can never
// race on physical row indexes.
type Store struct {
	mu     sync.Mutex
	table  RowTable
	logger *slog.Logger
}

func New(table RowTable, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{table: table, logger: logger}
}

// EnsureSchema verifies the first physical row equals the canonical
// header. Any mismatch, legacy header variants included, resets the
// table to a lone canonical header row. Idempotent.
func (s *Store) EnsureSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.table.ReadAll()
	if err != nil {
		return err
	}
	if len(rows) > 0 && equalRow(rows[0], Header) {
		return nil
	}
	if len(rows) > 0 {
		s.logger.Warn("leadstore_schema_reset", "got_header", rows[0], "dropped_rows", len(rows)-1)
	}
	return s.table.ReplaceAll([][]string{Header})
}

func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Append(rec.row())
}

// ListAll returns records in append order, header excluded. Rows with
// an unexpected cell count are skipped; record indexes returned to
// callers of DeleteRows refer to this filtered order.
func (s *Store) ListAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, _, err := s.snapshotLocked()
	return recs, err
}

// snapshotLocked reads the table once and returns the well-formed
// records together with each record's physical row index.
func (s *Store) snapshotLocked() ([]Record, []int, error) {
	rows, err := s.table.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	var recs []Record
	var physical []int
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rec, err := recordFromRow(row)
		if err != nil {
			s.logger.Warn("leadstore_malformed_row", "row_index", i, "error", err.Error())
			continue
		}
		recs = append(recs, rec)
		physical = append(physical, i)
	}
	return recs, physical, nil
}

// DeleteRows removes the records at the given indexes (zero-based over
// the order ListAll returns). Deletions run bottom-up so earlier ones
// never shift the physical position of later ones.
func (s *Store) DeleteRows(recordIndexes []int) error {
	if len(recordIndexes) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, physical, err := s.snapshotLocked()
	if err != nil {
		return err
	}
	targets := make([]int, 0, len(recordIndexes))
	for _, i := range recordIndexes {
		if i < 0 || i >= len(physical) {
			return fmt.Errorf("leadstore: record index %d out of range [0,%d)", i, len(physical))
		}
		targets = append(targets, physical[i])
	}
	return s.deletePhysicalLocked(targets)
}

// deletePhysicalLocked deletes the given physical rows in descending
// order, deduplicated.
func (s *Store) deletePhysicalLocked(physical []int) error {
	idx := append([]int(nil), physical...)
	sort.Sort(sort.Reverse(sort.IntSlice(idx)))

	prev := -1
	for _, i := range idx {
		if i == prev {
			continue
		}
		prev = i
		if err := s.table.DeleteRow(i); err != nil {
			return err
		}
	}
	return nil
}

// PruneOlderThan drops every record whose timestamp parses and is
// strictly older than now minus retention, rebuilding the table in one
// pass. Records with unparseable timestamps survive, as do malformed
// rows: pruning only ever removes rows it fully understands. Returns
// how many records were removed.
func (s *Store) PruneOlderThan(retention time.Duration, now time.Time) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.table.ReadAll()
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	cutoff := now.Add(-retention)
	survivors := make([][]string, 0, len(rows))
	survivors = append(survivors, rows[0])
	removed := 0
	for _, row := range rows[1:] {
		rec, err := recordFromRow(row)
		if err == nil && !rec.Timestamp.IsZero() && rec.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		survivors = append(survivors, row)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.table.ReplaceAll(survivors); err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteByHash removes every record whose chat id hash matches exactly
// and returns the count. This is the owner-initiated erase path.
func (s *Store) DeleteByHash(hash string) (int, error) {
	if hash == "" {
		return 0, fmt.Errorf("leadstore: empty hash")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, physical, err := s.snapshotLocked()
	if err != nil {
		return 0, err
	}
	var targets []int
	for i, rec := range recs {
		if rec.ChatIDHash == hash {
			targets = append(targets, physical[i])
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}
	if err := s.deletePhysicalLocked(targets); err != nil {
		return 0, err
	}
	return len(targets), nil
}

// Clear resets the table to the bare canonical header. Admin wipe.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.ReplaceAll([][]string{Header})
}

func equalRow(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
