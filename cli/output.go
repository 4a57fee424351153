package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/engine/summary"
)

var (
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
)

// FormatError renders err for the terminal, listing the details of coded errors.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var coded *core.Error
	if !errors.As(err, &coded) {
		return errorStyle.Render("Error: " + err.Error())
	}
	message := coded.Message
	if message == "" {
		message = err.Error()
	}
	result := errorStyle.Render(fmt.Sprintf("%s: %s", coded.Code, message))
	if len(coded.Details) > 0 {
		parts := make([]string, 0, len(coded.Details))
		for _, k := range slices.Sorted(maps.Keys(coded.Details)) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, coded.Details[k]))
		}
		result += "\n" + detailStyle.Render("Details: "+strings.Join(parts, ", "))
	}
	return result
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressPrinter prints one line per chunk, styled only on a terminal.
type progressPrinter struct {
	w      io.Writer
	styled bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, styled: isTerminal(w)}
}

func (p *progressPrinter) OnChunkStart(context.Context, summary.Progress) {}

func (p *progressPrinter) OnChunkDone(_ context.Context, prog summary.Progress) {
	line := fmt.Sprintf("Processando chunk %d/%d", prog.Index, prog.Total)
	if prog.Resumed {
		line += " (checkpoint)"
	}
	if p.styled {
		line = progressStyle.Render(line)
	}
	fmt.Fprintln(p.w, line)
}

func formatArtifacts(paths []string, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(successStyle.Render(fmt.Sprintf("Done in %s", elapsed.Round(time.Millisecond))))
	b.WriteString("\n")
	for _, p := range paths {
		b.WriteString(detailStyle.Render("  " + p))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
