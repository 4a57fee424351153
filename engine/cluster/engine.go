package cluster

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/engine/knowledge/embedder"
	"github.com/relembraq/relembraq/pkg/logger"
)

const (
	DefaultSeed          uint64 = 42
	DefaultMaxIterations        = 300
	DefaultRestarts             = 10
	DefaultConcurrency          = 4

	StageEmbed = "embed"
)

// Assignment maps every cluster id in 0..k-1 to its sentences in input order.
type Assignment map[int][]string

type Options struct {
	Seed          uint64
	MaxIterations int
	Restarts      int
	Concurrency   int
}

func DefaultOptions() Options {
	return Options{
		Seed:          DefaultSeed,
		MaxIterations: DefaultMaxIterations,
		Restarts:      DefaultRestarts,
		Concurrency:   DefaultConcurrency,
	}
}

// Result is index-aligned with the input sentences.
type Result struct {
	Assignment Assignment
	Labels     []int
	Embeddings [][]float32
}

// Engine embeds sentences and groups them with seeded k-means.
type Engine struct {
	embedder embedder.Embedder
	opts     Options
}

func NewEngine(e embedder.Embedder, opts Options) *Engine {
	defaults := DefaultOptions()
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaults.MaxIterations
	}
	if opts.Restarts <= 0 {
		opts.Restarts = defaults.Restarts
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	return &Engine{embedder: e, opts: opts}
}

// ValidateK checks the cluster count against the sentences without any
// service call.
func ValidateK(sentences []string, k int) error {
	distinct := countDistinct(sentences)
	if k < 1 || k > distinct {
		return core.InvalidConfiguration(
			"n_clusters",
			"n_clusters=%d must be between 1 and the number of distinct summaries (%d)",
			k, distinct,
		)
	}
	return nil
}

// Cluster embeds every sentence and partitions them into k clusters.
func (e *Engine) Cluster(ctx context.Context, sentences []string, k int) (*Result, error) {
	if err := ValidateK(sentences, k); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	vectors, err := e.embedAll(ctx, sentences)
	if err != nil {
		return nil, err
	}
	points := make([][]float64, len(vectors))
	for i, v := range vectors {
		points[i] = toFloat64(v)
	}
	fit := kmeans(points, k, e.opts.MaxIterations, e.opts.Restarts, e.opts.Seed)
	log.Debug("Clustering finished", "k", k, "sentences", len(sentences), "inertia", fit.inertia)
	return &Result{
		Assignment: buildAssignment(sentences, fit.labels, k),
		Labels:     fit.labels,
		Embeddings: vectors,
	}, nil
}

// embedAll embeds sentences concurrently. Each result lands in the slot of
// its sentence; the first failure cancels the rest.
func (e *Engine) embedAll(ctx context.Context, sentences []string) ([][]float32, error) {
	slots := make([][]float32, len(sentences))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, sentence := range sentences {
		g.Go(func() error {
			vector, err := e.embedder.EmbedQuery(gctx, sentence)
			if err != nil {
				return core.ServiceFailure(err, StageEmbed, "sentence", i+1)
			}
			slots[i] = vector
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	dim := len(slots[0])
	for i, v := range slots {
		if len(v) == 0 || len(v) != dim {
			return nil, core.ServiceFailure(
				fmt.Errorf("embedding dimension %d differs from %d", len(v), dim),
				StageEmbed, "sentence", i+1,
			)
		}
	}
	return slots, nil
}

func buildAssignment(sentences []string, labels []int, k int) Assignment {
	out := make(Assignment, k)
	for c := range k {
		out[c] = []string{}
	}
	for i, s := range sentences {
		out[labels[i]] = append(out[labels[i]], s)
	}
	return out
}

func countDistinct(sentences []string) int {
	seen := make(map[string]struct{}, len(sentences))
	for _, s := range sentences {
		seen[s] = struct{}{}
	}
	return len(seen)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
