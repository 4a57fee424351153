package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relembraq/relembraq/engine/core"
)

func TestParseReply(t *testing.T) {
	t.Run("Should decode a JSON array", func(t *testing.T) {
		reply := ParseReply(`[{"resumo":"A"},{"resumo":"B"}]`)

		assert.Equal(t, ReplyStructured, reply.Kind)
		assert.Equal(t, []Record{{Resumo: "A"}, {Resumo: "B"}}, reply.Records)
		assert.NoError(t, reply.Err)
	})

	t.Run("Should decode a fenced array", func(t *testing.T) {
		reply := ParseReply("```json\n[\n    {\"resumo\": \"Fotossíntese\"}\n]\n```")

		assert.Equal(t, ReplyStructured, reply.Kind)
		assert.Equal(t, []Record{{Resumo: "Fotossíntese"}}, reply.Records)
	})

	t.Run("Should decode a single object", func(t *testing.T) {
		reply := ParseReply(` {"resumo": "só um"} `)

		assert.Equal(t, ReplyStructured, reply.Kind)
		assert.Equal(t, []Record{{Resumo: "só um"}}, reply.Records)
	})

	t.Run("Should accept an empty array", func(t *testing.T) {
		reply := ParseReply("[]")

		assert.Equal(t, ReplyStructured, reply.Kind)
		assert.Empty(t, reply.Records)
	})

	t.Run("Should keep free text verbatim", func(t *testing.T) {
		raw := "Resumo: o tema é fotossíntese."
		reply := ParseReply(raw)

		assert.Equal(t, ReplyUnstructured, reply.Kind)
		assert.Equal(t, []Record{{Resumo: raw}}, reply.Records)
		require.Error(t, reply.Err)
		assert.Equal(t, core.ErrCodeMalformedResponse, core.ErrorCode(reply.Err))
	})

	t.Run("Should treat objects without resumo as free text", func(t *testing.T) {
		raw := `[{"summary":"A"}]`
		reply := ParseReply(raw)

		assert.Equal(t, ReplyUnstructured, reply.Kind)
		assert.Equal(t, []Record{{Resumo: raw}}, reply.Records)
	})

	t.Run("Should treat truncated JSON as free text", func(t *testing.T) {
		raw := `[{"resumo":"A"`
		reply := ParseReply(raw)

		assert.Equal(t, ReplyUnstructured, reply.Kind)
		assert.Equal(t, raw, reply.Records[0].Resumo)
	})

	t.Run("Should treat non-string resumo values as free text", func(t *testing.T) {
		reply := ParseReply(`[{"resumo":42}]`)

		assert.Equal(t, ReplyUnstructured, reply.Kind)
		require.Error(t, reply.Err)
		assert.Contains(t, reply.Err.Error(), "resumo must be a string")
	})

	t.Run("Should treat a bare JSON string as free text", func(t *testing.T) {
		reply := ParseReply(`"apenas texto"`)

		assert.Equal(t, ReplyUnstructured, reply.Kind)
		assert.Equal(t, `"apenas texto"`, reply.Records[0].Resumo)
	})
}
