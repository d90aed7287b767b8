package leadstore

// RowTable is the narrow surface the adapter needs from the external
// tabular backend: an ordered table of string rows. Physical indexes
// are zero-based over the current table contents, header included.
//
// Implementations do not need to be goroutine safe; the Store above
// them serializes every mutation.
type RowTable interface {
	// ReadAll returns every physical row in storage order.
	ReadAll() ([][]string, error)
	// Append adds one row at the end.
	Append(row []string) error
	// DeleteRow removes the physical row at index. Rows after it shift
	// up by one, which is why callers must delete bottom-up.
	DeleteRow(index int) error
	// ReplaceAll clears the table and writes rows as its new contents.
	ReplaceAll(rows [][]string) error
}
