package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	t.Run("Should keep first occurrences in order", func(t *testing.T) {
		in := []Record{{Resumo: "a"}, {Resumo: "b"}, {Resumo: "a"}}
		assert.Equal(t, []Record{{Resumo: "a"}, {Resumo: "b"}}, Dedupe(in))
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		in := []Record{{Resumo: "x"}, {Resumo: "y"}, {Resumo: "x"}, {Resumo: "z"}, {Resumo: "y"}}
		once := Dedupe(in)
		assert.Equal(t, once, Dedupe(once))
	})

	t.Run("Should compare case-sensitively", func(t *testing.T) {
		in := []Record{{Resumo: "Célula"}, {Resumo: "célula"}}
		assert.Len(t, Dedupe(in), 2)
	})

	t.Run("Should return an empty non-nil slice for nil input", func(t *testing.T) {
		out := Dedupe(nil)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})
}

func TestSentences(t *testing.T) {
	t.Run("Should extract texts in order", func(t *testing.T) {
		assert.Equal(t, []string{"b", "a"}, Sentences([]Record{{Resumo: "b"}, {Resumo: "a"}}))
	})
}
