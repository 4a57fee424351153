package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/relembraq/relembraq/engine/cluster"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	bulletStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	countStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#888888"))
)

// Topics renders the clusters for the terminal, one titled block per topic.
func Topics(a cluster.Assignment) string {
	var b strings.Builder
	for _, id := range sortedKeys(a) {
		color := clusterColor(id)
		title := headerStyle.
			Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", color.R, color.G, color.B))).
			Render(topicTitle(id) + ":")
		b.WriteString("\n")
		b.WriteString(title)
		b.WriteString(" ")
		b.WriteString(countStyle.Render(fmt.Sprintf("(%d)", len(a[id]))))
		b.WriteString("\n")
		for _, s := range a[id] {
			b.WriteString(bulletStyle.Render("-"))
			b.WriteString(" ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}
