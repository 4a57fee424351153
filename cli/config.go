package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/relembraq/relembraq/pkg/config"
)

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the effective configuration",
	}

	cmd.AddCommand(
		configShowCmd(),
		configValidateCmd(),
	)

	return cmd
}

// configShowCmd shows the effective configuration with secrets redacted
func configShowCmd() *cobra.Command {
	var (
		format      string
		showSources bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values and their sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, service, err := loadConfig(cmd.Context(), cmd)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			var sources map[string]config.SourceType
			if showSources {
				sources = make(map[string]config.SourceType)
				for key := range flattenConfig(cfg) {
					sources[key] = service.GetSource(key)
				}
			}
			return formatConfigOutput(cmd.OutOrStdout(), cfg, sources, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (json, yaml, table)")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Show configuration sources")
	return cmd
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, _, err := loadConfig(cmd.Context(), cmd); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Configuration is valid"))
			return nil
		},
	}
}

// formatConfigOutput formats and outputs configuration based on requested format
func formatConfigOutput(
	w io.Writer,
	cfg *config.Config,
	sources map[string]config.SourceType,
	format string,
) error {
	flat := flattenConfig(cfg)
	switch format {
	case "json":
		output := map[string]any{"config": flat}
		if len(sources) > 0 {
			output["sources"] = sources
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	case "yaml":
		output := map[string]any{"config": flat}
		if len(sources) > 0 {
			output["sources"] = sources
		}
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(output)
	case "table":
		return outputTable(w, flat, sources)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func outputTable(w io.Writer, flat map[string]string, sources map[string]config.SourceType) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if sources != nil {
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
		fmt.Fprintln(tw, "---\t-----\t------")
	} else {
		fmt.Fprintln(tw, "KEY\tVALUE")
		fmt.Fprintln(tw, "---\t-----")
	}
	for _, key := range keys {
		if sources != nil {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", key, flat[key], sources[key])
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", key, flat[key])
	}
	return tw.Flush()
}

// flattenConfig renders every setting as a dotted key; secrets stay redacted.
func flattenConfig(cfg *config.Config) map[string]string {
	result := make(map[string]string)
	flattenLLMConfig(cfg, result)
	flattenEmbedderConfig(cfg, result)
	flattenRetryConfig(cfg, result)
	flattenSummaryConfig(cfg, result)
	flattenClusterConfig(cfg, result)
	flattenOutputConfig(cfg, result)
	flattenCheckpointConfig(cfg, result)
	flattenMetricsConfig(cfg, result)
	return result
}

func flattenLLMConfig(cfg *config.Config, result map[string]string) {
	result["llm.provider"] = cfg.LLM.Provider
	result["llm.model"] = cfg.LLM.Model
	result["llm.api_key"] = cfg.LLM.APIKey.String()
	result["llm.base_url"] = cfg.LLM.BaseURL
	result["llm.organization"] = cfg.LLM.Organization
	result["llm.temperature"] = strconv.FormatFloat(cfg.LLM.Temperature, 'g', -1, 64)
	result["llm.max_tokens"] = strconv.Itoa(cfg.LLM.MaxTokens)
	result["llm.timeout"] = cfg.LLM.Timeout.String()
	result["llm.json_mode"] = strconv.FormatBool(cfg.LLM.JSONMode)
	result["llm.concurrency"] = strconv.Itoa(cfg.LLM.Concurrency)
	result["llm.rate_limit"] = strconv.FormatFloat(cfg.LLM.RateLimit, 'g', -1, 64)
	result["llm.burst"] = strconv.Itoa(cfg.LLM.Burst)
}

func flattenEmbedderConfig(cfg *config.Config, result map[string]string) {
	result["embedder.provider"] = cfg.Embedder.Provider
	result["embedder.model"] = cfg.Embedder.Model
	result["embedder.api_key"] = cfg.Embedder.APIKey.String()
	result["embedder.base_url"] = cfg.Embedder.BaseURL
	result["embedder.batch_size"] = strconv.Itoa(cfg.Embedder.BatchSize)
	result["embedder.cache_size"] = strconv.Itoa(cfg.Embedder.CacheSize)
	result["embedder.timeout"] = cfg.Embedder.Timeout.String()
	result["embedder.concurrency"] = strconv.Itoa(cfg.Embedder.Concurrency)
	result["embedder.rate_limit"] = strconv.FormatFloat(cfg.Embedder.RateLimit, 'g', -1, 64)
	result["embedder.burst"] = strconv.Itoa(cfg.Embedder.Burst)
}

func flattenRetryConfig(cfg *config.Config, result map[string]string) {
	result["retry.max_retries"] = strconv.FormatUint(cfg.Retry.MaxRetries, 10)
	result["retry.base_backoff"] = cfg.Retry.BaseBackoff.String()
	result["retry.max_backoff"] = cfg.Retry.MaxBackoff.String()
}

func flattenSummaryConfig(cfg *config.Config, result map[string]string) {
	result["summary.chunk_size"] = strconv.Itoa(cfg.Summary.ChunkSize)
	result["summary.memory_mode"] = cfg.Summary.MemoryMode
	result["summary.memory_window"] = strconv.Itoa(cfg.Summary.MemoryWindow)
	result["summary.memory_max_tokens"] = strconv.Itoa(cfg.Summary.MemoryMaxTokens)
	result["summary.token_encoding"] = cfg.Summary.TokenEncoding
	result["summary.prompt_file"] = cfg.Summary.PromptFile
}

func flattenClusterConfig(cfg *config.Config, result map[string]string) {
	result["cluster.n_clusters"] = strconv.Itoa(cfg.Cluster.NClusters)
	result["cluster.seed"] = strconv.FormatUint(cfg.Cluster.Seed, 10)
	result["cluster.max_iterations"] = strconv.Itoa(cfg.Cluster.MaxIterations)
	result["cluster.restarts"] = strconv.Itoa(cfg.Cluster.Restarts)
}

func flattenOutputConfig(cfg *config.Config, result map[string]string) {
	result["output.dir"] = cfg.Output.Dir
	result["output.json_file"] = cfg.Output.JSONFile
	result["output.text_file"] = cfg.Output.TextFile
	result["output.markdown_file"] = cfg.Output.MarkdownFile
	result["output.mindmap_pdf"] = cfg.Output.MindMapPDF
	result["output.scatter_pdf"] = cfg.Output.ScatterPDF
	result["output.terminal"] = strconv.FormatBool(cfg.Output.Terminal)
}

func flattenCheckpointConfig(cfg *config.Config, result map[string]string) {
	result["checkpoint.enabled"] = strconv.FormatBool(cfg.Checkpoint.Enabled)
	result["checkpoint.path"] = cfg.Checkpoint.Path
}

func flattenMetricsConfig(cfg *config.Config, result map[string]string) {
	result["metrics.enabled"] = strconv.FormatBool(cfg.Metrics.Enabled)
	result["metrics.file"] = cfg.Metrics.File
}
