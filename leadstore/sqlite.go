package leadstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteTable backs the table with a single SQLite file. Each physical
// row, header included, is one record in insertion order; cells are
// stored as a JSON array so the table stays shape-agnostic and the
// header self-healing logic works the same as on CSV.
type SQLiteTable struct {
	db    *sql.DB
	table string
}

var sqliteTableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NewSQLiteTable opens (or creates) one named row table in the given
// database file. Several tables, leads and the PRO waiting list among
// them, can share the file. An empty table name means "lead_rows".
func NewSQLiteTable(dataSourceName, table string) (*SQLiteTable, error) {
	if table == "" {
		table = "lead_rows"
	}
	if !sqliteTableName.MatchString(table) {
		return nil, fmt.Errorf("leadstore: invalid table name %q", table)
	}
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("leadstore: open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("leadstore: ping database: %w", err)
	}

	t := &SQLiteTable{db: db, table: table}
	if err = t.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("leadstore: initialize schema: %w", err)
	}
	return t, nil
}

func (t *SQLiteTable) Close() error {
	return t.db.Close()
}

func (t *SQLiteTable) initSchema() error {
	schema := fmt.Sprintf(`
    CREATE TABLE IF NOT EXISTS %s (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        cells TEXT NOT NULL -- JSON array of strings
    );
    `, t.table)
	_, err := t.db.Exec(schema)
	return err
}

func (t *SQLiteTable) ReadAll() ([][]string, error) {
	rows, err := t.db.Query(fmt.Sprintf("SELECT cells FROM %s ORDER BY id", t.table))
	if err != nil {
		return nil, fmt.Errorf("leadstore: query rows: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("leadstore: scan row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("leadstore: decode row cells: %w", err)
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

func (t *SQLiteTable) Append(row []string) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("leadstore: encode row cells: %w", err)
	}
	if _, err := t.db.Exec(fmt.Sprintf("INSERT INTO %s (cells) VALUES (?)", t.table), string(raw)); err != nil {
		return fmt.Errorf("leadstore: insert row: %w", err)
	}
	return nil
}

func (t *SQLiteTable) DeleteRow(index int) error {
	if index < 0 {
		return fmt.Errorf("leadstore: row index %d out of range", index)
	}
	var id int64
	err := t.db.QueryRow(fmt.Sprintf("SELECT id FROM %s ORDER BY id LIMIT 1 OFFSET ?", t.table), index).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("leadstore: row index %d out of range", index)
		}
		return fmt.Errorf("leadstore: locate row %d: %w", index, err)
	}
	if _, err := t.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.table), id); err != nil {
		return fmt.Errorf("leadstore: delete row %d: %w", index, err)
	}
	return nil
}

func (t *SQLiteTable) ReplaceAll(rows [][]string) error {
	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("leadstore: begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", t.table)); err != nil {
		return fmt.Errorf("leadstore: clear rows: %w", err)
	}
	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("leadstore: encode row cells: %w", err)
		}
		if _, err := tx.Exec(fmt.Sprintf("INSERT INTO %s (cells) VALUES (?)", t.table), string(raw)); err != nil {
			return fmt.Errorf("leadstore: insert row: %w", err)
		}
	}
	return tx.Commit()
}
