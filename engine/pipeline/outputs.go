package pipeline

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/relembraq/relembraq/engine/render"
	"github.com/relembraq/relembraq/engine/summary"
)

func (p *Pipeline) outputPath(name string) string {
	return filepath.Join(p.cfg.Output.Dir, name)
}

func writeJSON(path string, records []summary.Record) error {
	if err := render.WriteSummaries(path, records); err != nil {
		return fmt.Errorf("write summaries: %w", err)
	}
	return nil
}

// writeArtifacts renders every configured presentation file. An empty file
// name disables that artifact; the scatter plot is skipped without points.
func (p *Pipeline) writeArtifacts(out *Output) ([]string, error) {
	assignment := out.Cluster.Assignment
	type artifact struct {
		name  string
		write func(w io.Writer) error
	}
	artifacts := []artifact{
		{p.cfg.Output.TextFile, func(w io.Writer) error {
			_, err := io.WriteString(w, render.TextMindMap(assignment))
			return err
		}},
		{p.cfg.Output.MarkdownFile, func(w io.Writer) error {
			_, err := io.WriteString(w, render.MarkdownMindMap(assignment))
			return err
		}},
		{p.cfg.Output.MindMapPDF, func(w io.Writer) error {
			return render.MindMapPDF(w, assignment)
		}},
	}
	if len(out.Points) > 0 {
		artifacts = append(artifacts, artifact{p.cfg.Output.ScatterPDF, func(w io.Writer) error {
			return render.ScatterPDF(w, out.Points, out.Cluster.Labels)
		}})
	}
	written := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if a.name == "" {
			continue
		}
		path := p.outputPath(a.name)
		if err := render.WriteWith(path, a.write); err != nil {
			return written, fmt.Errorf("write %s: %w", a.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}
