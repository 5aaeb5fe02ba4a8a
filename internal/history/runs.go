package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run is one finished training run.
type Run struct {
	ID           string
	Model        string
	Mode         string
	Outcome      string
	StartedAt    time.Time
	FinishedAt   time.Time
	Epochs       int
	Classes      int
	BestScore    float64
	LearningRate float64
	Committed    bool
	Error        string
}

// Duration is the wall-clock length of the run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

const runColumns = `id, model, mode, outcome, started_at, finished_at, epochs, classes,
    best_score, learning_rate, checkpoint_committed, error`

// Record appends a finished run. A missing ID is assigned and written back.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("record run: nil run")
	}
	if strings.TrimSpace(run.Model) == "" {
		return errors.New("record run: model is required")
	}
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}

	err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Model,
		run.Mode,
		run.Outcome,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Epochs,
		run.Classes,
		nullableScore(run.BestScore),
		run.LearningRate,
		run.Committed,
		nullableString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns runs newest first. An empty model lists every model; limit <= 0
// returns all rows.
func (s *Store) List(ctx context.Context, model string, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` ORDER BY finished_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns a single run by ID, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt string
		bestScore  sql.NullFloat64
		runErr     sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Model,
		&run.Mode,
		&run.Outcome,
		&startedAt,
		&finishedAt,
		&run.Epochs,
		&run.Classes,
		&bestScore,
		&run.LearningRate,
		&run.Committed,
		&runErr,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	run.BestScore = math.NaN()
	if bestScore.Valid {
		run.BestScore = bestScore.Float64
	}
	if runErr.Valid {
		run.Error = runErr.String
	}
	return run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Infinite baselines (no committed checkpoint in patience mode) are stored as NULL.
func nullableScore(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
