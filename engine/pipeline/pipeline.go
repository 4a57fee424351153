package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/relembraq/relembraq/engine/cluster"
	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/engine/infra/sqlite"
	"github.com/relembraq/relembraq/engine/knowledge/chunk"
	"github.com/relembraq/relembraq/engine/knowledge/ingest"
	llmadapter "github.com/relembraq/relembraq/engine/llm/adapter"
	"github.com/relembraq/relembraq/engine/llm/orchestrator"
	"github.com/relembraq/relembraq/engine/projection"
	"github.com/relembraq/relembraq/engine/summary"
	"github.com/relembraq/relembraq/pkg/config"
	"github.com/relembraq/relembraq/pkg/logger"
)

// Input names the material of one run. Paths and Sources are read as PDFs;
// Text, when set, is used as already extracted text and the others are ignored.
type Input struct {
	Paths   []string
	Sources []ingest.Source
	Text    string
	// CWD anchors relative Paths.
	CWD string
}

// Output is everything a run produced, index-aligned where it matters:
// Unique[i], Cluster.Labels[i], Cluster.Embeddings[i] and Points[i] all
// describe the same summary.
type Output struct {
	RunID     core.ID
	Document  string
	Chunks    int
	Records   []summary.Record
	Unique    []summary.Record
	Cluster   *cluster.Result
	Points    []projection.Point
	Artifacts []string
}

// Pipeline runs chunk, summarize, dedupe, cluster and project for one input.
type Pipeline struct {
	cfg       *config.Config
	deps      *Deps
	observers summary.Observers
	tracer    trace.Tracer
}

type Option func(*Pipeline)

// WithObserver adds a progress observer next to the logging one.
func WithObserver(o summary.Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, o) }
}

// New validates cfg and deps. Invalid values fail here, before any service call.
func New(cfg *config.Config, deps *Deps, opts ...Option) (*Pipeline, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:       cfg,
		deps:      deps,
		observers: summary.Observers{summary.LogObserver{}},
		tracer:    defaultTracer(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Run executes one pipeline run. The JSON artifact is written as soon as the
// summaries are deduplicated, so it survives a later clustering failure.
func (p *Pipeline) Run(ctx context.Context, in *Input) (out *Output, err error) {
	if in == nil {
		return nil, core.InvalidConfiguration("input", "input is required")
	}
	start := time.Now()
	ctx, endRun := p.startStage(ctx, "run")
	defer func() {
		endRun(err)
		recordRun(ctx, time.Since(start), err)
	}()
	text, err := p.loadText(ctx, in)
	if err != nil {
		return nil, err
	}
	chunks, err := chunk.Build(text, p.cfg.Summary.ChunkSize)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, core.InvalidConfiguration("input", "documents contain no extractable text")
	}
	document := fingerprint(text)
	runID, err := p.startRun(ctx, document, len(chunks))
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With("run_id", runID.String())
	ctx = logger.ContextWithLogger(ctx, log)
	defer func() { p.finishRun(ctx, runID, err) }()
	log.Info("Starting run", "document", document, "chunks", len(chunks))

	out = &Output{RunID: runID, Document: document, Chunks: len(chunks)}
	summarized, err := p.summarize(ctx, out, chunks)
	if err != nil {
		return nil, err
	}
	out.Records = summarized.Records
	out.Unique = summary.Dedupe(summarized.Records)
	log.Info("Summaries deduplicated", "records", len(out.Records), "unique", len(out.Unique))
	jsonPath := p.outputPath(p.cfg.Output.JSONFile)
	if err := writeJSON(jsonPath, out.Unique); err != nil {
		return nil, err
	}
	out.Artifacts = append(out.Artifacts, jsonPath)

	out.Cluster, err = p.cluster(ctx, summary.Sentences(out.Unique))
	if err != nil {
		return nil, err
	}
	out.Points, err = p.project(ctx, out.Cluster.Embeddings)
	if err != nil {
		return nil, err
	}
	written, err := p.writeArtifacts(out)
	if err != nil {
		return nil, err
	}
	out.Artifacts = append(out.Artifacts, written...)
	log.Info("Run completed", "clusters", len(out.Cluster.Assignment), "artifacts", len(out.Artifacts))
	return out, nil
}

func (p *Pipeline) cluster(ctx context.Context, sentences []string) (res *cluster.Result, err error) {
	ctx, end := p.startStage(ctx, "cluster",
		attribute.Int("sentences", len(sentences)),
		attribute.Int("k", p.cfg.Cluster.NClusters),
	)
	defer func() { end(err) }()
	engine := cluster.NewEngine(p.deps.Embedder, cluster.Options{
		Seed:          p.cfg.Cluster.Seed,
		MaxIterations: p.cfg.Cluster.MaxIterations,
		Restarts:      p.cfg.Cluster.Restarts,
		Concurrency:   p.cfg.Embedder.Concurrency,
	})
	return engine.Cluster(ctx, sentences, p.cfg.Cluster.NClusters)
}

// project reduces embeddings to 3D. Too few points is not fatal: the scatter
// plot is skipped and nil points are returned.
func (p *Pipeline) project(ctx context.Context, embeddings [][]float32) (points []projection.Point, err error) {
	ctx, end := p.startStage(ctx, "project", attribute.Int("points", len(embeddings)))
	defer func() { end(err) }()
	points, err = projection.Project(embeddings)
	if err != nil {
		if !core.IsInvalidConfiguration(err) {
			return nil, err
		}
		logger.FromContext(ctx).Warn("Skipping 3D projection", "error", err)
		return nil, nil
	}
	return points, nil
}

func (p *Pipeline) loadText(ctx context.Context, in *Input) (text string, err error) {
	if in.Text != "" {
		return in.Text, nil
	}
	ctx, end := p.startStage(ctx, "ingest",
		attribute.Int("paths", len(in.Paths)),
		attribute.Int("sources", len(in.Sources)),
	)
	defer func() { end(err) }()
	opts := &ingest.Options{CWD: in.CWD}
	var docs []ingest.Document
	if len(in.Paths) > 0 {
		loaded, err := ingest.Load(ctx, in.Paths, opts)
		if err != nil {
			return "", err
		}
		docs = append(docs, loaded...)
	}
	if len(in.Sources) > 0 {
		extracted, err := ingest.Extract(ctx, in.Sources)
		if err != nil {
			return "", err
		}
		docs = append(docs, extracted...)
	}
	if len(docs) == 0 {
		return "", core.InvalidConfiguration("input", "no PDF documents given")
	}
	return ingest.Join(docs), nil
}

func (p *Pipeline) summarize(
	ctx context.Context,
	out *Output,
	chunks []chunk.Chunk,
) (res *summary.Result, err error) {
	ctx, end := p.startStage(ctx, "summarize", attribute.Int("chunks", len(chunks)))
	defer func() { end(err) }()
	opts := []summary.LoopOption{summary.WithObserver(p.observers)}
	if p.deps.Checkpoints != nil {
		opts = append(opts, summary.WithCheckpointer(
			newStoreCheckpointer(p.deps.Checkpoints, out.RunID, out.Document),
		))
	}
	loop := summary.NewLoop(p.deps.LLM, summary.Options{
		Call: llmadapter.CallOptions{
			Temperature: p.cfg.LLM.Temperature,
			MaxTokens:   int32(p.cfg.LLM.MaxTokens),
			UseJSONMode: p.cfg.LLM.JSONMode,
		},
		Invoker: orchestrator.Settings{
			Timeout: p.cfg.LLM.Timeout,
			Retry:   retryPolicy(p.cfg),
		},
		MemoryMode:  p.cfg.Summary.MemoryMode,
		MaxMessages: p.cfg.Summary.MemoryWindow,
		MaxTokens:   p.cfg.Summary.MemoryMaxTokens,
		Counter:     p.deps.Counter,
		Prompt:      p.deps.Prompt,
	}, opts...)
	return loop.Run(ctx, chunks)
}

func (p *Pipeline) startRun(ctx context.Context, document string, chunks int) (core.ID, error) {
	if p.deps.Checkpoints == nil {
		return core.NewID()
	}
	id, err := p.deps.Checkpoints.StartRun(ctx, document, chunks)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

func (p *Pipeline) finishRun(ctx context.Context, id core.ID, runErr error) {
	if p.deps.Checkpoints == nil {
		return
	}
	status := sqlite.RunStatusCompleted
	if runErr != nil {
		status = sqlite.RunStatusFailed
	}
	if err := p.deps.Checkpoints.FinishRun(context.WithoutCancel(ctx), id, status); err != nil {
		logger.FromContext(ctx).Warn("Failed to record run status", "status", status, "error", err)
	}
}

// fingerprint identifies a document by its text so checkpoints of the same
// material match across runs.
func fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}
