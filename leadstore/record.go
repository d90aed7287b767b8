// Package leadstore persists completed conversations as rows in a
// spreadsheet-like table and owns the retention and erase policies
// over those rows.
package leadstore

import (
	"fmt"
	"time"
)

// Header is the canonical column list. The first physical row of the
// backing table must equal it exactly; EnsureSchema rewrites the table
// when it does not.
var Header = []string{"timestamp", "chat_id_hash", "budget", "skills", "time_per_week", "ideas_text"}

// Record is one completed conversation. ChatIDHash is a one-way
// pseudonym; the raw chat id is never written.
type Record struct {
	Timestamp   time.Time
	ChatIDHash  string
	Budget      string
	Skills      string
	TimePerWeek string
	IdeasText   string
}

func (r Record) row() []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.ChatIDHash,
		r.Budget,
		r.Skills,
		r.TimePerWeek,
		r.IdeasText,
	}
}

func recordFromRow(row []string) (Record, error) {
	if len(row) != len(Header) {
		return Record{}, fmt.Errorf("leadstore: row has %d cells, want %d", len(row), len(Header))
	}
	rec := Record{
		ChatIDHash:  row[1],
		Budget:      row[2],
		Skills:      row[3],
		TimePerWeek: row[4],
		IdeasText:   row[5],
	}
	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		// Legacy rows may carry unparseable timestamps; the zero value
		// marks them so pruning leaves them alone.
		return rec, nil
	}
	rec.Timestamp = ts.UTC()
	return rec, nil
}
