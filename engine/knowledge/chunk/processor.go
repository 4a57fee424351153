package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/relembraq/relembraq/engine/core"
)

// Split groups the words of text into segments of exactly size words.
// The final segment holds the remainder. Empty or whitespace-only text
// yields an empty slice.
func Split(text string, size int) ([]string, error) {
	if size <= 0 {
		return nil, core.InvalidConfiguration("chunk_size", "chunk: size must be greater than zero, got %d", size)
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}, nil
	}
	segments := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		segments = append(segments, strings.Join(words[start:end], " "))
	}
	return segments, nil
}

// Build splits text and decorates every segment with its index, hash and id.
func Build(text string, size int) ([]Chunk, error) {
	segments, err := Split(text, size)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, 0, len(segments))
	for idx, segment := range segments {
		hash := hashText(segment)
		chunks = append(chunks, Chunk{
			Index: idx,
			ID:    fmt.Sprintf("chunk-%d-%s", idx, hash[:8]),
			Text:  segment,
			Hash:  hash,
			Words: strings.Count(segment, " ") + 1,
		})
	}
	return chunks, nil
}

// Texts returns the chunk texts in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i := range chunks {
		out[i] = chunks[i].Text
	}
	return out
}

func hashText(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}
