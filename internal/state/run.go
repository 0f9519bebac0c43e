package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the status of a generation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is the recorded metadata of one `write` invocation.
type Run struct {
	ID           string     `json:"id"`
	Task         string     `json:"task"`
	TargetWords  int        `json:"target_words"`
	Language     string     `json:"language"`
	Model        string     `json:"model"`
	Status       RunStatus  `json:"status"`
	Nodes        int        `json:"nodes"`
	Leaves       int        `json:"leaves"`
	FailedLeaves int        `json:"failed_leaves"`
	OutputWords  int        `json:"output_words"`
	InputTokens  int64      `json:"input_tokens"`
	OutputTokens int64      `json:"output_tokens"`
	OutputPath   string     `json:"output_path"`
	Error        string     `json:"error"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

const runColumns = `id, task, target_words, language, model, status, nodes, leaves, failed_leaves,
	output_words, input_tokens, output_tokens, output_path, error, started_at, finished_at`

// CreateRun inserts r. An empty ID is replaced by a new UUID, a zero
// StartedAt by the current time and an empty Status by RunRunning.
func (db *DB) CreateRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = RunRunning
	}

	_, err := db.Exec(`INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Task, r.TargetWords, r.Language, r.Model, string(r.Status),
		r.Nodes, r.Leaves, r.FailedLeaves, r.OutputWords, r.InputTokens, r.OutputTokens,
		nullString(r.OutputPath), nullString(r.Error), formatTime(r.StartedAt), finishedAt(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// UpdateRun overwrites every mutable column of the run with r.ID.
func (db *DB) UpdateRun(r *Run) error {
	result, err := db.Exec(`
		UPDATE runs SET status = ?, model = ?, nodes = ?, leaves = ?, failed_leaves = ?, output_words = ?,
			input_tokens = ?, output_tokens = ?, output_path = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, string(r.Status), r.Model, r.Nodes, r.Leaves, r.FailedLeaves, r.OutputWords,
		r.InputTokens, r.OutputTokens, nullString(r.OutputPath), nullString(r.Error), finishedAt(r.FinishedAt),
		r.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update run: no run with id %q", r.ID)
	}
	return nil
}

// GetRun retrieves a run by ID. It returns nil, nil when no run matches.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs
		ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// PurgeOldRuns deletes runs started more than olderThan ago.
// Returns the number of runs deleted.
func (db *DB) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	result, err := db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var status, startedAt string
	var outputPath, errText, finished sql.NullString
	err := s.Scan(&r.ID, &r.Task, &r.TargetWords, &r.Language, &r.Model, &status,
		&r.Nodes, &r.Leaves, &r.FailedLeaves, &r.OutputWords, &r.InputTokens, &r.OutputTokens,
		&outputPath, &errText, &startedAt, &finished)
	if err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	r.OutputPath = outputPath.String
	r.Error = errText.String
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finished)
	return &r, nil
}

func finishedAt(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
