// Package tokenizer turns text into token ids for models whose first layer
// is an Embedding, so their benchmark inputs follow a realistic id
// distribution instead of uniform noise.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Encoder converts text to token ids.
type Encoder interface {
	Encode(text string) ([]int32, error)
}

// TikToken wraps the pkoukk/tiktoken-go library.
//
// Supported encodings:
//   - cl100k_base: GPT-4, GPT-3.5-turbo
//   - p50k_base: GPT-3, Codex
//   - r50k_base: GPT-3, davinci
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken loads a tiktoken encoding by name. The first load of an
// encoding may download its BPE ranks.
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: encoding, name: encodingName}, nil
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)
	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}
	return result, nil
}

// Name returns the encoding name.
func (t *TikToken) Name() string {
	return t.name
}
