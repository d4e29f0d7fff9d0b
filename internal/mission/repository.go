package mission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	// timeLayout is fixed width so stored timestamps sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Filter selects runs for List. Zero fields match everything.
type Filter struct {
	Mission string
	Kind    Kind
	Status  Status
	Limit   int // default 50, max 500
}

// Repository persists run history.
type Repository interface {
	Create(ctx context.Context, run *Run) error
	Update(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, filter Filter) ([]Run, error)
	// CompletedDurations returns the durations of completed runs of a
	// mission, oldest first.
	CompletedDurations(ctx context.Context, mission string) ([]time.Duration, error)
	// Prune keeps the newest keep runs of a mission and deletes the rest.
	Prune(ctx context.Context, mission string, keep int) (int64, error)
}

// SQLiteRepository stores runs in the mission_runs table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a run. ID and StartedAt are generated when empty.
func (r *SQLiteRepository) Create(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = GenerateRunID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mission_runs (id, robot_id, mission, kind, status, started_at, completed_at, duration_ms, lead_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RobotID, run.Mission, string(run.Kind), string(run.Status),
		formatTime(run.StartedAt), nullableTime(run.CompletedAt),
		nullableMillis(run), nullableLead(run), nullableString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("inserting mission run: %w", err)
	}
	return nil
}

// Update writes the mutable fields of a run.
func (r *SQLiteRepository) Update(ctx context.Context, run *Run) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE mission_runs
		 SET status = ?, completed_at = ?, duration_ms = ?, lead_ms = ?, error = ?
		 WHERE id = ?`,
		string(run.Status), nullableTime(run.CompletedAt),
		nullableMillis(run), nullableLead(run), nullableString(run.Error),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating mission run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get returns one run.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, robot_id, mission, kind, status, started_at, completed_at, duration_ms, lead_ms, error
		 FROM mission_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Run, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	filter.Limit = min(filter.Limit, maxListLimit)

	var conditions []string
	var args []any
	if filter.Mission != "" {
		conditions = append(conditions, "mission = ?")
		args = append(args, filter.Mission)
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions
		`SELECT id, robot_id, mission, kind, status, started_at, completed_at, duration_ms, lead_ms, error
		 FROM mission_runs %s ORDER BY started_at DESC, rowid DESC LIMIT ?`, where)
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mission runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mission runs: %w", err)
	}
	return runs, nil
}

// CompletedDurations implements Repository.
func (r *SQLiteRepository) CompletedDurations(ctx context.Context, mission string) ([]time.Duration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT duration_ms FROM mission_runs
		 WHERE mission = ? AND status = ? AND duration_ms IS NOT NULL
		 ORDER BY started_at, rowid`,
		mission, string(StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("querying run durations: %w", err)
	}
	defer rows.Close()

	var out []time.Duration
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, fmt.Errorf("scanning run duration: %w", err)
		}
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	return out, rows.Err()
}

// Prune implements Repository. keep <= 0 deletes nothing.
func (r *SQLiteRepository) Prune(ctx context.Context, mission string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM mission_runs
		 WHERE mission = ? AND id NOT IN (
		     SELECT id FROM mission_runs WHERE mission = ?
		     ORDER BY started_at DESC, rowid DESC LIMIT ?
		 )`,
		mission, mission, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning mission runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run                 Run
		kind, status, start string
		completed, errText  sql.NullString
		durationMS, leadMS  sql.NullInt64
	)
	if err := s.Scan(&run.ID, &run.RobotID, &run.Mission, &kind, &status,
		&start, &completed, &durationMS, &leadMS, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning mission run: %w", err)
	}

	run.Kind = Kind(kind)
	run.Status = Status(status)
	run.Error = errText.String

	t, err := time.Parse(timeLayout, start)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", start, err)
	}
	run.StartedAt = t

	if completed.Valid {
		ct, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at %q: %w", completed.String, err)
		}
		run.CompletedAt = &ct
	}
	if durationMS.Valid {
		run.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if leadMS.Valid {
		run.Lead = time.Duration(leadMS.Int64) * time.Millisecond
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Durations are only meaningful once the run has finished.
func nullableMillis(run *Run) any {
	if !run.Status.IsTerminal() {
		return nil
	}
	return run.Duration.Milliseconds()
}

func nullableLead(run *Run) any {
	if !run.Status.IsTerminal() {
		return nil
	}
	return run.Lead.Milliseconds()
}
