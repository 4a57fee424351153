package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/relembraq/relembraq/engine/core"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is one pipeline execution over a document.
type Run struct {
	ID         core.ID
	Document   string
	Status     string
	ChunkTotal int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// CheckpointRepo stores the summaries of completed chunks.
type CheckpointRepo struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

func NewCheckpointRepo(db *sql.DB) *CheckpointRepo {
	return &CheckpointRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// StartRun records a new run for document and returns its id.
func (r *CheckpointRepo) StartRun(ctx context.Context, document string, chunkTotal int) (core.ID, error) {
	id, err := core.NewID()
	if err != nil {
		return "", err
	}
	query, args, err := r.sb.Insert("runs").
		Columns("id", "document", "status", "chunk_total", "started_at").
		Values(id.String(), document, RunStatusRunning, chunkTotal, time.Now().UTC()).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("sqlite: build insert run: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("sqlite: insert run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run completed or failed.
func (r *CheckpointRepo) FinishRun(ctx context.Context, id core.ID, status string) error {
	query, args, err := r.sb.Update("runs").
		Set("status", status).
		Set("finished_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build update run: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: update run: %w", err)
	}
	if n, raErr := res.RowsAffected(); raErr != nil {
		return fmt.Errorf("sqlite: rows affected (update run): %w", raErr)
	} else if n == 0 {
		return fmt.Errorf("sqlite: run %s not found", id)
	}
	return nil
}

// GetRun loads a run by id.
func (r *CheckpointRepo) GetRun(ctx context.Context, id core.ID) (*Run, error) {
	query, args, err := r.sb.Select("id", "document", "status", "chunk_total", "started_at", "finished_at").
		From("runs").
		Where(squirrel.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build select run: %w", err)
	}
	var (
		run      Run
		rawID    string
		finished sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&rawID, &run.Document, &run.Status, &run.ChunkTotal, &run.StartedAt, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlite: %w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("sqlite: get run: %w", err)
	}
	run.ID = core.ID(rawID)
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// SaveChunk upserts the summaries of one chunk.
func (r *CheckpointRepo) SaveChunk(
	ctx context.Context,
	runID core.ID,
	document string,
	index int,
	hash string,
	summaries []string,
) error {
	if summaries == nil {
		summaries = []string{}
	}
	payload, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("sqlite: encode summaries: %w", err)
	}
	query, args, err := r.sb.Insert("chunk_summaries").
		Columns("document", "chunk_index", "chunk_hash", "run_id", "records").
		Values(document, index, hash, runID.String(), string(payload)).
		Suffix(`ON CONFLICT (document, chunk_index) DO UPDATE SET
			chunk_hash = excluded.chunk_hash,
			run_id = excluded.run_id,
			records = excluded.records,
			created_at = CURRENT_TIMESTAMP`).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build upsert chunk: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: upsert chunk %d: %w", index, err)
	}
	return nil
}

// LoadChunk returns the stored summaries of a chunk when both its position
// and content hash match.
func (r *CheckpointRepo) LoadChunk(
	ctx context.Context,
	document string,
	index int,
	hash string,
) ([]string, bool, error) {
	query, args, err := r.sb.Select("records").
		From("chunk_summaries").
		Where(squirrel.Eq{"document": document, "chunk_index": index, "chunk_hash": hash}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: build select chunk: %w", err)
	}
	var payload string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlite: load chunk %d: %w", index, err)
	}
	var summaries []string
	if err := json.Unmarshal([]byte(payload), &summaries); err != nil {
		return nil, false, fmt.Errorf("sqlite: decode chunk %d: %w", index, err)
	}
	return summaries, true, nil
}

// CountChunks returns how many chunks of document are stored.
func (r *CheckpointRepo) CountChunks(ctx context.Context, document string) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From("chunk_summaries").
		Where(squirrel.Eq{"document": document}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("sqlite: build count chunks: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count chunks: %w", err)
	}
	return n, nil
}
