package tokens

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Counter counts tokens the way the completion model would.
type Counter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// TiktokenCounter implements Counter using the tiktoken-go library.
type TiktokenCounter struct {
	encodingName string
	once         sync.Once
	initErr      error
	tke          *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for the given model or encoding name.
// The encoding is resolved lazily on first use since tiktoken may need to
// fetch its BPE ranks.
func NewTiktokenCounter(modelOrEncoding string) *TiktokenCounter {
	if strings.TrimSpace(modelOrEncoding) == "" {
		modelOrEncoding = defaultEncoding
	}
	return &TiktokenCounter{encodingName: modelOrEncoding}
}

func (tc *TiktokenCounter) init() {
	tke, err := tiktoken.GetEncoding(tc.encodingName)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(tc.encodingName)
	}
	if err != nil {
		tke, err = tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			tc.initErr = fmt.Errorf("failed to get default encoding '%s': %w", defaultEncoding, err)
			return
		}
		tc.encodingName = defaultEncoding
	}
	tc.tke = tke
}

// CountTokens counts the tokens of text with the configured encoding.
func (tc *TiktokenCounter) CountTokens(_ context.Context, text string) (int, error) {
	tc.once.Do(tc.init)
	if tc.initErr != nil {
		return 0, tc.initErr
	}
	return len(tc.tke.Encode(text, nil, nil)), nil
}

// GetEncoding returns the name of the encoding in use.
func (tc *TiktokenCounter) GetEncoding() string {
	return tc.encodingName
}

// WordCounter approximates tokens by whitespace-separated words. It needs no
// network access and is used when tiktoken cannot load its ranks.
type WordCounter struct{}

func (WordCounter) CountTokens(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// FallbackCounter tries Primary and falls back to Secondary on error.
type FallbackCounter struct {
	Primary   Counter
	Secondary Counter
}

func (f FallbackCounter) CountTokens(ctx context.Context, text string) (int, error) {
	n, err := f.Primary.CountTokens(ctx, text)
	if err == nil {
		return n, nil
	}
	if f.Secondary == nil {
		return 0, err
	}
	return f.Secondary.CountTokens(ctx, text)
}
