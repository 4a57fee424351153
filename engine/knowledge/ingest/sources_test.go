package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relembraq/relembraq/engine/core"
)

const fakePDFHeader = "%PDF-1.4\n"

func stubExtractor(t *testing.T) *int {
	t.Helper()
	calls := 0
	original := pdfExtractor
	pdfExtractor = func(_ context.Context, data []byte) (string, error) {
		calls++
		return strings.TrimPrefix(string(data), fakePDFHeader), nil
	}
	t.Cleanup(func() { pdfExtractor = original })
	return &calls
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolve(t *testing.T) {
	t.Run("Should expand directories to the PDFs directly inside", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "aula1.pdf", fakePDFHeader+"a")
		b := writeFile(t, dir, "aula2.PDF", fakePDFHeader+"b")
		writeFile(t, dir, "notas.txt", "x")
		writeFile(t, dir, "sub/aula3.pdf", fakePDFHeader+"c")

		files, err := Resolve(t.Context(), []string{dir}, nil)

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a, b}, files)
	})

	t.Run("Should expand recursive patterns relative to the working directory", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "mod1/a.pdf", fakePDFHeader)
		c := writeFile(t, dir, "mod2/deep/c.pdf", fakePDFHeader)

		files, err := Resolve(t.Context(), []string{"**/*.pdf"}, &Options{CWD: dir})

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a, c}, files)
	})

	t.Run("Should list a file reached twice once", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "a.pdf", fakePDFHeader)

		files, err := Resolve(t.Context(), []string{a, dir, "*.pdf"}, &Options{CWD: dir})

		require.NoError(t, err)
		assert.Equal(t, []string{a}, files)
	})

	t.Run("Should reject a missing path", func(t *testing.T) {
		_, err := Resolve(t.Context(), []string{"nao-existe.pdf"}, &Options{CWD: t.TempDir()})

		require.Error(t, err)
		assert.True(t, core.IsInvalidConfiguration(err))
	})
}

func TestExtract(t *testing.T) {
	t.Run("Should reject non-PDF content", func(t *testing.T) {
		stubExtractor(t)

		_, err := Extract(t.Context(), []Source{{Name: "notas.txt", Data: []byte("apenas texto")}})

		require.Error(t, err)
		assert.True(t, core.IsInvalidConfiguration(err))
		assert.Contains(t, err.Error(), "notas.txt")
	})

	t.Run("Should read identical sources once and keep order", func(t *testing.T) {
		calls := stubExtractor(t)
		sources := []Source{
			{Name: "b.pdf", Data: []byte(fakePDFHeader + "segunda aula")},
			{Name: "a.pdf", Data: []byte(fakePDFHeader + "primeira aula")},
			{Name: "b-copy.pdf", Data: []byte(fakePDFHeader + "segunda aula")},
		}

		docs, err := Extract(t.Context(), sources)

		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "segunda aula", docs[0].Text)
		assert.Equal(t, "primeira aula", docs[1].Text)
		assert.Equal(t, 2, *calls)
		assert.Equal(t, "segunda aula\n\nprimeira aula", Join(docs))
	})

	t.Run("Should skip PDFs without text", func(t *testing.T) {
		stubExtractor(t)

		docs, err := Extract(t.Context(), []Source{{Name: "scan.pdf", Data: []byte(fakePDFHeader + "  \r\n ")}})

		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestLoad(t *testing.T) {
	t.Run("Should load every PDF of a folder", func(t *testing.T) {
		stubExtractor(t)
		dir := t.TempDir()
		writeFile(t, dir, "01.pdf", fakePDFHeader+"célula animal")
		writeFile(t, dir, "02.pdf", fakePDFHeader+"célula vegetal")

		docs, err := Load(t.Context(), []string{dir}, nil)

		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "célula animal", docs[0].Text)
	})

	t.Run("Should fail when nothing matches", func(t *testing.T) {
		_, err := Load(t.Context(), []string{t.TempDir()}, nil)
		assert.True(t, core.IsInvalidConfiguration(err))
	})

	t.Run("Should reject oversized files", func(t *testing.T) {
		stubExtractor(t)
		dir := t.TempDir()
		writeFile(t, dir, "big.pdf", fakePDFHeader+strings.Repeat("x", 64))

		_, err := Load(t.Context(), []string{dir}, &Options{MaxFileSizeBytes: 16})

		assert.True(t, core.IsInvalidConfiguration(err))
	})
}

func TestNormalizeText(t *testing.T) {
	t.Run("Should compose decomposed accents", func(t *testing.T) {
		assert.Equal(t, "fotossíntese", normalizeText("fotossi\u0301ntese"))
	})

	t.Run("Should unify line endings", func(t *testing.T) {
		assert.Equal(t, "a\nb\nc", normalizeText("a\r\nb\rc"))
	})

	t.Run("Should replace invalid UTF-8", func(t *testing.T) {
		assert.Equal(t, "a\uFFFDb", normalizeText("a\xffb"))
	})
}
