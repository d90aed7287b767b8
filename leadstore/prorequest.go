package leadstore

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ProHeader is the canonical column list of the PRO waiting list, the
// second table next to the leads.
var ProHeader = []string{"timestamp", "chat_id_hash", "email"}

// ProRequest is one waiting-list signup. The email is the contact
// address the user volunteered; the chat id is stored hashed like
// everywhere else.
type ProRequest struct {
	Timestamp  time.Time
	ChatIDHash string
	Email      string
}

func (r ProRequest) row() []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.ChatIDHash,
		r.Email,
	}
}

func proRequestFromRow(row []string) (ProRequest, error) {
	if len(row) != len(ProHeader) {
		return ProRequest{}, fmt.Errorf("leadstore: pro row has %d cells, want %d", len(row), len(ProHeader))
	}
	req := ProRequest{
		ChatIDHash: row[1],
		Email:      row[2],
	}
	if ts, err := time.Parse(time.RFC3339, row[0]); err == nil {
		req.Timestamp = ts.UTC()
	}
	return req, nil
}

// ProStore owns the PRO waiting-list table. Same single-writer
// discipline as Store: the mutex covers every read-modify-write.
type ProStore struct {
	mu     sync.Mutex
	table  RowTable
	logger *slog.Logger
}

func NewProStore(table RowTable, logger *slog.Logger) *ProStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProStore{table: table, logger: logger}
}

// EnsureSchema resets the table to a lone canonical header when the
// first row does not match. Idempotent.
func (s *ProStore) EnsureSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.table.ReadAll()
	if err != nil {
		return err
	}
	if len(rows) > 0 && equalRow(rows[0], ProHeader) {
		return nil
	}
	if len(rows) > 0 {
		s.logger.Warn("prostore_schema_reset", "got_header", rows[0], "dropped_rows", len(rows)-1)
	}
	return s.table.ReplaceAll([][]string{ProHeader})
}

func (s *ProStore) Append(req ProRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Append(req.row())
}

// ListAll returns signups in append order, header excluded. Malformed
// rows are skipped.
func (s *ProStore) ListAll() ([]ProRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.table.ReadAll()
	if err != nil {
		return nil, err
	}
	var reqs []ProRequest
	for i, row := range rows {
		if i == 0 {
			continue
		}
		req, err := proRequestFromRow(row)
		if err != nil {
			s.logger.Warn("prostore_malformed_row", "row_index", i, "error", err.Error())
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// DeleteByHash removes every signup whose chat id hash matches exactly,
// rebuilding the table in one pass, and returns the count. Malformed
// rows survive untouched.
func (s *ProStore) DeleteByHash(hash string) (int, error) {
	if hash == "" {
		return 0, fmt.Errorf("leadstore: empty hash")
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
	survivors := make([][]string, 0, len(rows))
	survivors = append(survivors, rows[0])
	removed := 0
	for _, row := range rows[1:] {
		req, err := proRequestFromRow(row)
		if err == nil && req.ChatIDHash == hash {
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
