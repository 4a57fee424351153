package summary

import (
	"context"

	"github.com/relembraq/relembraq/pkg/logger"
)

// Progress describes one chunk of a run. Index is 1-based.
type Progress struct {
	Index   int
	Total   int
	ChunkID string
	Records []Record
	Resumed bool
}

// Observer receives progress notifications. Implementations must not block.
type Observer interface {
	OnChunkStart(ctx context.Context, p Progress)
	OnChunkDone(ctx context.Context, p Progress)
}

// Observers fans notifications out in order.
type Observers []Observer

func (o Observers) OnChunkStart(ctx context.Context, p Progress) {
	for _, obs := range o {
		obs.OnChunkStart(ctx, p)
	}
}

func (o Observers) OnChunkDone(ctx context.Context, p Progress) {
	for _, obs := range o {
		obs.OnChunkDone(ctx, p)
	}
}

// LogObserver reports progress through the context logger.
type LogObserver struct{}

func (LogObserver) OnChunkStart(ctx context.Context, p Progress) {
	logger.FromContext(ctx).Info("Processando chunk", "chunk", p.Index, "total", p.Total, "chunk_id", p.ChunkID)
}

func (LogObserver) OnChunkDone(ctx context.Context, p Progress) {
	logger.FromContext(ctx).Debug(
		"Chunk summarized",
		"chunk", p.Index,
		"records", len(p.Records),
		"resumed", p.Resumed,
	)
}

// Checkpointer persists the records of completed chunks so an interrupted run
// can resume without repeating completion calls. Entries are keyed by chunk
// position and content hash within one document.
type Checkpointer interface {
	Load(ctx context.Context, index int, chunkHash string) ([]Record, bool, error)
	Save(ctx context.Context, index int, chunkHash string, records []Record) error
}
