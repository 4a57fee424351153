package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/unicode/norm"

	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/pkg/logger"
)

const pdfMIME = "application/pdf"

// Source is one named input document held in memory.
type Source struct {
	Name string
	Data []byte
}

// Document is the extracted text of one PDF.
type Document struct {
	Name string
	Text string
	Hash string
}

var pdfExtractor = extractPDF

// Resolve expands files, directories and doublestar patterns into an ordered
// list of files. A directory contributes the PDFs directly inside it. Files
// reached twice are listed once.
func Resolve(ctx context.Context, inputs []string, opts *Options) ([]string, error) {
	root := ""
	if opts != nil {
		root = opts.CWD
	}
	seen := make(map[string]struct{})
	files := make([]string, 0, len(inputs))
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}
	for _, raw := range inputs {
		input := strings.TrimSpace(raw)
		if input == "" {
			continue
		}
		abs := input
		if !filepath.IsAbs(abs) && root != "" {
			abs = filepath.Join(root, abs)
		}
		abs = filepath.Clean(abs)
		if info, err := os.Stat(abs); err == nil {
			if !info.IsDir() {
				add(abs)
				continue
			}
			matches, err := globPDFs(abs)
			if err != nil {
				return nil, err
			}
			if len(matches) == 0 {
				logger.FromContext(ctx).Warn("Directory has no PDF files", "dir", input)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(abs)) || !hasMeta(input) {
			return nil, core.InvalidConfiguration("input", "input %q does not exist", input)
		}
		matches, err := doublestar.FilepathGlob(abs, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("ingest: glob %q failed: %w", input, err)
		}
		if len(matches) == 0 {
			logger.FromContext(ctx).Warn("Input pattern matched no files", "pattern", input)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return files, nil
}

func globPDFs(dir string) ([]string, error) {
	pattern := filepath.Join(doublestarEscape(dir), "*.{pdf,PDF}")
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("ingest: list %q failed: %w", dir, err)
	}
	return matches, nil
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func doublestarEscape(path string) string {
	r := strings.NewReplacer("*", `\*`, "?", `\?`, "[", `\[`, "{", `\{`)
	return r.Replace(path)
}

// ReadFiles loads every file into memory, rejecting oversized ones.
func ReadFiles(files []string, opts *Options) ([]Source, error) {
	limit := opts.maxFileSize()
	sources := make([]Source, 0, len(files))
	for _, path := range files {
		data, err := readLimited(path, limit)
		if err != nil {
			return nil, err
		}
		sources = append(sources, Source{Name: path, Data: data})
	}
	return sources, nil
}

func readLimited(path string, limit int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %q: %w", path, err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("ingest: read %q: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, core.InvalidConfiguration("input", "file %q exceeds maximum size of %d bytes", path, limit)
	}
	return data, nil
}

// Extract checks that every source is a PDF and returns the text of each
// distinct one in input order. Sources with identical bytes are read once.
func Extract(ctx context.Context, sources []Source) ([]Document, error) {
	log := logger.FromContext(ctx)
	seen := make(map[string]struct{}, len(sources))
	docs := make([]Document, 0, len(sources))
	for i := range sources {
		src := &sources[i]
		detected := mimetype.Detect(src.Data)
		if !detected.Is(pdfMIME) {
			return nil, core.InvalidConfiguration(
				"input",
				"%s is %s, only PDF files are supported", src.Name, detected.String(),
			)
		}
		hash := hashContent(src.Data)
		if _, ok := seen[hash]; ok {
			log.Debug("Skipping duplicate input", "name", src.Name)
			continue
		}
		seen[hash] = struct{}{}
		text, err := pdfExtractor(ctx, src.Data)
		if err != nil {
			return nil, fmt.Errorf("ingest: extract %q: %w", src.Name, err)
		}
		text = strings.TrimSpace(normalizeText(text))
		if text == "" {
			log.Warn("PDF has no extractable text", "name", src.Name)
			continue
		}
		docs = append(docs, Document{Name: src.Name, Text: text, Hash: hash})
	}
	return docs, nil
}

// Load resolves, reads and extracts inputs in one step.
func Load(ctx context.Context, inputs []string, opts *Options) ([]Document, error) {
	files, err := Resolve(ctx, inputs, opts)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, core.InvalidConfiguration("input", "no PDF files found in %v", inputs)
	}
	sources, err := ReadFiles(files, opts)
	if err != nil {
		return nil, err
	}
	return Extract(ctx, sources)
}

// Join concatenates document texts in order, separated by a blank line.
func Join(docs []Document) string {
	parts := make([]string, len(docs))
	for i := range docs {
		parts[i] = docs[i].Text
	}
	return strings.Join(parts, "\n\n")
}

// normalizeText composes accents to NFC and unifies line endings.
func normalizeText(s string) string {
	s = norm.NFC.String(strings.ToValidUTF8(s, "\uFFFD"))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
