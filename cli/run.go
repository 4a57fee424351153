package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relembraq/relembraq/engine/infra/monitoring"
	"github.com/relembraq/relembraq/engine/pipeline"
	"github.com/relembraq/relembraq/engine/render"
	"github.com/relembraq/relembraq/pkg/config"
	"github.com/relembraq/relembraq/pkg/logger"
)

// RunCmd summarizes PDFs, clusters the summaries and writes the mind maps.
func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <pdf|dir|glob>...",
		Short: "Summarize PDFs and group the summaries into topics",
		Long: `Extract the text of the given PDFs, summarize it chunk by chunk, cluster the
summaries into topics and write the JSON summary list, the mind maps and the
3D scatter plot into the output directory. Directories contribute the PDFs
directly inside them; patterns such as "aulas/**/*.pdf" are expanded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSummarize,
	}

	d := config.Default()
	flags := cmd.Flags()
	flags.Int("chunk-size", d.Summary.ChunkSize, "Words per chunk (50-500)")
	flags.IntP("clusters", "k", d.Cluster.NClusters, "Number of topics (2-10)")
	flags.String("memory-mode", d.Summary.MemoryMode, "Conversation sent per chunk (window, latest)")
	flags.Int("memory-window", d.Summary.MemoryWindow, "Previous prompts kept in the window")
	flags.String("prompt-file", "", "Template replacing the built-in summarization instruction")
	flags.String("provider", d.LLM.Provider, "Completion provider")
	flags.String("model", d.LLM.Model, "Completion model")
	flags.String("embedding-model", d.Embedder.Model, "Embedding model")
	flags.StringP("output-dir", "o", d.Output.Dir, "Directory for the generated files")
	flags.Bool("checkpoint", d.Checkpoint.Enabled, "Resume completed chunks from the checkpoint store")
	flags.String("checkpoint-path", d.Checkpoint.Path, "Checkpoint database path")
	flags.Uint64("seed", d.Cluster.Seed, "Clustering seed")
	flags.Uint64("max-retries", d.Retry.MaxRetries, "Retries per service call")
	flags.Duration("llm-timeout", d.LLM.Timeout, "Timeout of one completion call")
	flags.Int("embedder-workers", d.Embedder.Concurrency, "Parallel embedding requests")
	flags.Bool("metrics", d.Metrics.Enabled, "Write run metrics in Prometheus text format")

	return cmd
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.FromContext(ctx)

	cfg, _, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	monitor := monitoring.NewMonitoringServiceWithFallback(ctx, &monitoring.Config{
		Enabled: cfg.Metrics.Enabled,
		File:    cfg.Metrics.File,
	})
	monitor.SetAsGlobal()
	defer func() {
		if serr := monitor.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			log.Warn("Failed to stop metrics", "error", serr)
		}
	}()
	deps, err := pipeline.NewDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := deps.Close(); cerr != nil {
			log.Warn("Failed to close clients", "error", cerr)
		}
	}()
	p, err := pipeline.New(cfg, deps, pipeline.WithObserver(newProgressPrinter(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	start := time.Now()
	out, err := p.Run(ctx, &pipeline.Input{Paths: args, CWD: cwd})
	metricsPath, merr := monitor.WriteTextfile(cfg.Output.Dir)
	if merr != nil {
		log.Warn("Failed to write metrics", "error", merr)
	}
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("Run interrupted; completed chunks are kept for the next run")
		}
		return err
	}

	w := cmd.OutOrStdout()
	if cfg.Output.Terminal {
		fmt.Fprint(w, render.Topics(out.Cluster.Assignment))
	}
	artifacts := out.Artifacts
	if metricsPath != "" {
		artifacts = append(artifacts, metricsPath)
	}
	fmt.Fprintln(w, formatArtifacts(artifacts, time.Since(start)))
	return nil
}
