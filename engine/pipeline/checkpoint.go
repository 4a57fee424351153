package pipeline

import (
	"context"

	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/engine/infra/sqlite"
	"github.com/relembraq/relembraq/engine/summary"
)

// storeCheckpointer persists chunk records of one document in the sqlite
// checkpoint store.
type storeCheckpointer struct {
	repo     *sqlite.CheckpointRepo
	runID    core.ID
	document string
}

func newStoreCheckpointer(repo *sqlite.CheckpointRepo, runID core.ID, document string) *storeCheckpointer {
	return &storeCheckpointer{repo: repo, runID: runID, document: document}
}

func (c *storeCheckpointer) Load(ctx context.Context, index int, chunkHash string) ([]summary.Record, bool, error) {
	stored, ok, err := c.repo.LoadChunk(ctx, c.document, index, chunkHash)
	if err != nil || !ok {
		return nil, false, err
	}
	records := make([]summary.Record, len(stored))
	for i, s := range stored {
		records[i] = summary.Record{Resumo: s}
	}
	return records, true, nil
}

func (c *storeCheckpointer) Save(ctx context.Context, index int, chunkHash string, records []summary.Record) error {
	return c.repo.SaveChunk(ctx, c.runID, c.document, index, chunkHash, summary.Sentences(records))
}
