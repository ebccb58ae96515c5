package program

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository persists program executions.
type Repository interface {
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, program string, limit int) ([]Execution, error)
}

const executionColumns = `id, program, trigger_type, status, started_at, completed_at,
			steps_total, steps_completed, steps_failed, steps_pending,
			error, failures, duration_ms`

// timeFormat is fixed-width so started_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// SQLiteRepository implements Repository on the program_executions table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateExecution inserts a new execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	failuresJSON, err := marshalFailures(exec.Failures)
	if err != nil {
		return err
	}

	query := `INSERT INTO program_executions (` + executionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		exec.ID,
		exec.Program,
		exec.Trigger,
		string(exec.Status),
		exec.StartedAt.UTC().Format(timeFormat),
		nullableTime(exec.CompletedAt),
		exec.StepsTotal,
		exec.StepsCompleted,
		exec.StepsFailed,
		exec.StepsPending,
		nullableString(exec.Error),
		failuresJSON,
		exec.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// UpdateExecution updates the outcome columns of an existing record.
func (r *SQLiteRepository) UpdateExecution(ctx context.Context, exec *Execution) error {
	failuresJSON, err := marshalFailures(exec.Failures)
	if err != nil {
		return err
	}

	query := `
		UPDATE program_executions SET
			status = ?, completed_at = ?,
			steps_total = ?, steps_completed = ?, steps_failed = ?, steps_pending = ?,
			error = ?, failures = ?, duration_ms = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(exec.Status),
		nullableTime(exec.CompletedAt),
		exec.StepsTotal,
		exec.StepsCompleted,
		exec.StepsFailed,
		exec.StepsPending,
		nullableString(exec.Error),
		failuresJSON,
		exec.DurationMS,
		exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM program_executions WHERE id = ?`

	exec, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions returns the most recent executions of a program, newest first.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, program string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + executionColumns + `
		FROM program_executions
		WHERE program = ?
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, program, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	executions := []Execution{}
	for rows.Next() {
		exec, scanErr := scanExecution(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution: %w", scanErr)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(scanner rowScanner) (*Execution, error) {
	var e Execution
	var status, startedAt string
	var completedAt, errMsg, failuresJSON sql.NullString
	var durationMS sql.NullInt64

	err := scanner.Scan(
		&e.ID,
		&e.Program,
		&e.Trigger,
		&status,
		&startedAt,
		&completedAt,
		&e.StepsTotal,
		&e.StepsCompleted,
		&e.StepsFailed,
		&e.StepsPending,
		&errMsg,
		&failuresJSON,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	e.Status = ExecutionStatus(status)
	if t, parseErr := time.Parse(timeFormat, startedAt); parseErr == nil {
		e.StartedAt = t
	}
	if completedAt.Valid {
		if t, parseErr := time.Parse(timeFormat, completedAt.String); parseErr == nil {
			e.CompletedAt = &t
		}
	}
	e.Error = errMsg.String
	if durationMS.Valid {
		d := int(durationMS.Int64)
		e.DurationMS = &d
	}
	if failuresJSON.Valid && failuresJSON.String != "" && failuresJSON.String != "null" {
		if jsonErr := json.Unmarshal([]byte(failuresJSON.String), &e.Failures); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling failures: %w", jsonErr)
		}
	}

	return &e, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

func marshalFailures(failures []LeafFailure) (sql.NullString, error) {
	if len(failures) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling failures: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
