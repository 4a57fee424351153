package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const mockDimension = 64

// MockClient embeds texts offline by hashing their words into a fixed number
// of buckets. Equal texts get equal vectors and texts sharing words end up close.
type MockClient struct {
	dimension int
}

func NewMockClient(dimension int) *MockClient {
	if dimension < 3 {
		dimension = mockDimension
	}
	return &MockClient{dimension: dimension}
}

func (c *MockClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = c.embed(text)
	}
	return out, nil
}

func (c *MockClient) embed(text string) []float32 {
	vec := make([]float32, c.dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum64()
		idx := int(sum % uint64(c.dimension))
		sign := float32(1)
		if (sum>>32)&1 == 1 {
			sign = -1
		}
		vec[idx] += sign
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
