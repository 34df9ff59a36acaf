package db

// timestampLayout is the text format used for DATETIME columns so that
// SQLite's date/time functions can operate on them.
const timestampLayout = "2006-01-02 15:04:05"

// SQL query fragments used across multiple functions
const (
	// sqlSinceClause filters request_log rows by a datetime window
	sqlSinceClause = "timestamp >= datetime('now', ?)"
)
