// Package storage provides a SQLite-backed observability sink.
//
// Information Hiding:
// - SQLite connection management hidden behind the trace.Sink interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/avencia/modelgate/llm"
	"github.com/avencia/modelgate/trace"
)

// RunStore implements trace.Sink over a SQLite database file. One row per
// run; the outcome columns stay NULL until the run completes.
type RunStore struct {
	db *sql.DB
}

// OpenRunStore opens or creates a run database at the given path.
// Creates parent directories if they don't exist.
func OpenRunStore(path string) (*RunStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &RunStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewRunStoreInMemory creates an in-memory run database (useful for testing).
func NewRunStoreInMemory() (*RunStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &RunStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

func (s *RunStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			operation TEXT NOT NULL,
			input TEXT NOT NULL,
			metadata TEXT,
			started_at INTEGER NOT NULL,
			completed_at INTEGER,
			output TEXT,
			error TEXT,
			latency_ms INTEGER,
			prompt_tokens INTEGER,
			completion_tokens INTEGER,
			total_tokens INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started
		ON runs(started_at DESC);

		CREATE INDEX IF NOT EXISTS idx_runs_operation
		ON runs(operation, started_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateRun records a started run and returns its identifier.
func (s *RunStore) CreateRun(ctx context.Context, run trace.Run) (string, error) {
	id := uuid.NewString()

	var metadata interface{}
	if len(run.Metadata) > 0 {
		raw, err := json.Marshal(run.Metadata)
		if err != nil {
			return "", fmt.Errorf("failed to encode run metadata: %w", err)
		}
		metadata = string(raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name, operation, input, metadata, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		run.Name,
		run.Operation,
		run.Input,
		metadata,
		run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	return id, nil
}

// UpdateRun records the outcome for a previously created run.
func (s *RunStore) UpdateRun(ctx context.Context, runID string, outcome trace.Outcome) error {
	var errMsg interface{}
	if outcome.Error != "" {
		errMsg = outcome.Error
	}

	var promptTokens, completionTokens, totalTokens interface{}
	if outcome.Usage != nil {
		promptTokens = outcome.Usage.PromptTokens
		completionTokens = outcome.Usage.CompletionTokens
		totalTokens = outcome.Usage.TotalTokens
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET completed_at = ?, output = ?, error = ?, latency_ms = ?,
		    prompt_tokens = ?, completion_tokens = ?, total_tokens = ?
		WHERE id = ?`,
		outcome.CompletedAt.UnixMilli(),
		outcome.Output,
		errMsg,
		outcome.Latency.Milliseconds(),
		promptTokens,
		completionTokens,
		totalTokens,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check run update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("unknown run: %s", runID)
	}
	return nil
}

// RunRecord is a stored run row, start and outcome combined.
type RunRecord struct {
	ID          string
	Name        string
	Operation   string
	Input       string
	Metadata    map[string]string
	StartedAt   time.Time
	CompletedAt *time.Time
	Output      string
	Error       string
	LatencyMS   int64
	Usage       *llm.TokenUsage
}

// GetRun loads a single run. Returns nil, nil if not found.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, operation, input, metadata, started_at,
		       completed_at, output, error, latency_ms,
		       prompt_tokens, completion_tokens, total_tokens
		FROM runs WHERE id = ?`,
		runID)

	record, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return record, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, operation, input, metadata, started_at,
		       completed_at, output, error, latency_ms,
		       prompt_tokens, completion_tokens, total_tokens
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	records := []RunRecord{} // Start with empty slice, not nil
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return records, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var record RunRecord
	var metadata, output, errMsg sql.NullString
	var startedAt int64
	var completedAt, latencyMS sql.NullInt64
	var promptTokens, completionTokens, totalTokens sql.NullInt64

	err := row.Scan(
		&record.ID,
		&record.Name,
		&record.Operation,
		&record.Input,
		&metadata,
		&startedAt,
		&completedAt,
		&output,
		&errMsg,
		&latencyMS,
		&promptTokens,
		&completionTokens,
		&totalTokens,
	)
	if err != nil {
		return nil, err
	}

	record.StartedAt = time.UnixMilli(startedAt)
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64)
		record.CompletedAt = &t
	}
	if metadata.Valid && metadata.String != "" {
		parsed := map[string]string{}
		if err := json.Unmarshal([]byte(metadata.String), &parsed); err != nil {
			return nil, fmt.Errorf("invalid run metadata in database: %w", err)
		}
		record.Metadata = parsed
	}
	if output.Valid {
		record.Output = output.String
	}
	if errMsg.Valid {
		record.Error = errMsg.String
	}
	if latencyMS.Valid {
		record.LatencyMS = latencyMS.Int64
	}
	if totalTokens.Valid || promptTokens.Valid || completionTokens.Valid {
		record.Usage = &llm.TokenUsage{
			PromptTokens:     uint32(promptTokens.Int64),
			CompletionTokens: uint32(completionTokens.Int64),
			TotalTokens:      uint32(totalTokens.Int64),
		}
	}

	return &record, nil
}

// Verify RunStore implements the sink interface
var _ trace.Sink = (*RunStore)(nil)
