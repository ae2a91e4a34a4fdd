package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yeti47/framegrab/server/core/ccc/db"
)

// Repository persists the extraction journal
type Repository interface {
	// Add stores a record, assigning ID and CreatedAt when they are empty
	Add(ctx context.Context, record *Record) error

	// GetByID retrieves a record, returning nil when it does not exist
	GetByID(ctx context.Context, id string) (*Record, error)

	// Query returns matching records newest first together with the total
	// number of matches before pagination
	Query(ctx context.Context, query RecordQuery) ([]*Record, int, error)

	// CountByStatus returns the number of records per status
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-based Repository
func NewSQLiteRepository(database *sql.DB) (*SQLiteRepository, error) {
	repo := &SQLiteRepository{db: database}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return repo, nil
}

func (r *SQLiteRepository) createTables() error {
	createExtractionsTable := `
	CREATE TABLE IF NOT EXISTS extractions (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		url TEXT NOT NULL,
		protocol TEXT NOT NULL,
		status TEXT NOT NULL,
		error_kind TEXT NOT NULL,
		message TEXT NOT NULL,
		filename TEXT NOT NULL,
		size INTEGER NOT NULL,
		elapsed INTEGER NOT NULL,
		fallback_used INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_extractions_created_at ON extractions(created_at);`

	_, err := r.db.Exec(createExtractionsTable)
	return err
}

func (r *SQLiteRepository) Add(ctx context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO extractions (id, operation, url, protocol, status, error_kind, message, filename, size, elapsed, fallback_used, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.Operation, record.URL, record.Protocol, record.Status,
		record.ErrorKind, record.Message, record.Filename, record.Size,
		int64(record.Elapsed), db.BoolToInt(record.FallbackUsed), db.TimeToString(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add extraction record: %w", err)
	}
	return nil
}

const selectColumns = `id, operation, url, protocol, status, error_kind, message, filename, size, elapsed, fallback_used, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	record := &Record{}
	var elapsedNanos int64
	var fallbackInt int
	var createdAtStr string

	err := row.Scan(
		&record.ID, &record.Operation, &record.URL, &record.Protocol, &record.Status,
		&record.ErrorKind, &record.Message, &record.Filename, &record.Size,
		&elapsedNanos, &fallbackInt, &createdAtStr,
	)
	if err != nil {
		return nil, err
	}

	record.CreatedAt, err = db.StringToTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	record.Elapsed = time.Duration(elapsedNanos)
	record.FallbackUsed = db.IntToBool(fallbackInt)
	return record, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM extractions WHERE id = ?`, id)

	record, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get extraction record by ID: %w", err)
	}
	return record, nil
}

// buildWhereClause returns the filter clause and its arguments for a query
func buildWhereClause(query RecordQuery) (string, []any) {
	var conditions []string
	var args []any

	if query.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, query.Operation)
	}
	if query.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, query.Status)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *SQLiteRepository) Query(ctx context.Context, query RecordQuery) ([]*Record, int, error) {
	where, args := buildWhereClause(query)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extractions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count extraction records: %w", err)
	}

	sqlQuery := `SELECT ` + selectColumns + ` FROM extractions` + where + ` ORDER BY created_at DESC, id`
	if query.Limit != nil {
		sqlQuery += " LIMIT ?"
		args = append(args, *query.Limit)
		if query.Offset != nil {
			sqlQuery += " OFFSET ?"
			args = append(args, *query.Offset)
		}
	} else if query.Offset != nil {
		sqlQuery += " LIMIT -1 OFFSET ?"
		args = append(args, *query.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query extraction records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan extraction record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate extraction records: %w", err)
	}

	return records, total, nil
}

func (r *SQLiteRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM extractions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count extraction records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
