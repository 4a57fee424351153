package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/relembraq/relembraq/engine/cluster"
)

const (
	labelLimit    = 50
	ellipsis      = "..."
	mindMapTitle  = "Mapa Mental"
	topicPrefix   = "Tópico"
	clusterPrefix = "Cluster"
)

func sortedKeys(a cluster.Assignment) []int {
	keys := make([]int, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func topicTitle(id int) string {
	return fmt.Sprintf("%s %d", topicPrefix, id+1)
}

// TextMindMap lists each cluster as a topic followed by its sentences.
func TextMindMap(a cluster.Assignment) string {
	var b strings.Builder
	for _, id := range sortedKeys(a) {
		b.WriteString(topicTitle(id))
		b.WriteString(":\n")
		for _, s := range a[id] {
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// MarkdownMindMap renders a heading tree that markmap can display.
func MarkdownMindMap(a cluster.Assignment) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(mindMapTitle)
	b.WriteString("\n")
	for _, id := range sortedKeys(a) {
		b.WriteString("\n## ")
		b.WriteString(topicTitle(id))
		b.WriteString("\n\n")
		for _, s := range a[id] {
			b.WriteString("- ")
			b.WriteString(strings.ReplaceAll(s, "\n", " "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Truncate shortens s to limit runes and appends "..." when it was longer.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
