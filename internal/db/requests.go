package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/stockscanner-tui/internal/logger"
	"github.com/j-veylop/stockscanner-tui/internal/models"
)

// InsertRequest logs a completed or failed API request.
func (db *DB) InsertRequest(rec *models.RequestRecord) error {
	query := `
		INSERT INTO request_log (
			timestamp, request_id, method, url, status_code, duration_ms, slow, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	timestamp := rec.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(context.Background(), query,
		timestamp.UTC().Format(timestampLayout),
		nullString(rec.RequestID),
		rec.Method,
		rec.URL,
		rec.StatusCode,
		rec.DurationMs,
		rec.Slow,
		nullString(rec.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		rec.ID = id
	}

	return nil
}

// GetRecentRequests returns the most recent logged requests, newest first.
func (db *DB) GetRecentRequests(limit int) ([]models.RequestRecord, error) {
	query := `
		SELECT id, timestamp, request_id, method, url, status_code, duration_ms, slow, error
		FROM request_log
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent requests: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var records []models.RequestRecord
	for rows.Next() {
		var rec models.RequestRecord
		var ts string
		var reqID, errStr sql.NullString

		err := rows.Scan(
			&rec.ID,
			&ts,
			&reqID,
			&rec.Method,
			&rec.URL,
			&rec.StatusCode,
			&rec.DurationMs,
			&rec.Slow,
			&errStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}

		rec.Timestamp = parseTimestamp(ts)
		rec.RequestID = reqID.String
		rec.Error = errStr.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetHourlyLatency returns request statistics grouped by hour for the last n hours.
func (db *DB) GetHourlyLatency(hours int) ([]models.HourlyLatency, error) {
	query := `
		SELECT
			strftime('%Y-%m-%d %H:00:00', timestamp) as hour,
			COUNT(*) as total_requests,
			COALESCE(AVG(duration_ms), 0) as avg_duration,
			COALESCE(MAX(duration_ms), 0) as max_duration,
			COALESCE(SUM(slow), 0) as slow_count,
			COALESCE(SUM(CASE WHEN status_code >= 400 OR error IS NOT NULL THEN 1 ELSE 0 END), 0) as error_count
		FROM request_log
		WHERE ` + sqlSinceClause + `
		GROUP BY hour
		ORDER BY hour ASC
	`

	rows, err := db.QueryContext(context.Background(), query, fmt.Sprintf("-%d hours", hours))
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly latency: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var stats []models.HourlyLatency
	for rows.Next() {
		var s models.HourlyLatency
		var hourStr string

		err := rows.Scan(
			&hourStr,
			&s.TotalRequests,
			&s.AvgDurationMs,
			&s.MaxDurationMs,
			&s.SlowCount,
			&s.ErrorCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hourly latency: %w", err)
		}

		s.Hour, _ = time.Parse(timestampLayout, hourStr)
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetLatencySummary returns aggregated request statistics for the last n hours.
func (db *DB) GetLatencySummary(hours int) (*models.LatencySummary, error) {
	query := `
		SELECT
			COUNT(*) as total_requests,
			COALESCE(AVG(duration_ms), 0) as avg_duration,
			COALESCE(MAX(duration_ms), 0) as max_duration,
			COALESCE(SUM(slow), 0) as slow_count,
			COALESCE(SUM(CASE WHEN status_code >= 400 OR error IS NOT NULL THEN 1 ELSE 0 END), 0) as error_count
		FROM request_log
		WHERE ` + sqlSinceClause

	var s models.LatencySummary
	err := db.QueryRowContext(context.Background(), query, fmt.Sprintf("-%d hours", hours)).Scan(
		&s.TotalRequests,
		&s.AvgDurationMs,
		&s.MaxDurationMs,
		&s.SlowCount,
		&s.ErrorCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latency summary: %w", err)
	}

	return &s, nil
}

// PruneRequests deletes request log rows older than the given age.
func (db *DB) PruneRequests(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(timestampLayout)
	result, err := db.ExecContext(context.Background(),
		"DELETE FROM request_log WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune request log: %w", err)
	}
	return result.RowsAffected()
}

// parseTimestamp accepts both the stored text layout and the RFC 3339 form
// the driver produces when it decodes DATETIME columns itself.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
