package tokenizer

import (
	"errors"
	"fmt"
)

// DefaultCorpus is the text benchmark token inputs are drawn from.
var DefaultCorpus = []string{
	"The quick brown fox jumps over the lazy dog.",
	"Benchmarks replay a reference run and time every model on the local backend.",
	"Tensors are released after each call so memory stays flat across hundreds of models.",
	"A warm-up pass lets caches settle before the timed iterations begin.",
	"Training runs one timed fit call whose epochs happen inside the framework.",
}

// TokenSource produces fixed-length id sequences from an encoded corpus.
type TokenSource struct {
	tokens []int32
	pos    int
}

// NewTokenSource encodes corpus with enc.
func NewTokenSource(enc Encoder, corpus []string) (*TokenSource, error) {
	if enc == nil {
		return nil, errors.New("token source: nil encoder")
	}
	var tokens []int32
	for _, text := range corpus {
		ids, err := enc.Encode(text)
		if err != nil {
			return nil, fmt.Errorf("token source: %w", err)
		}
		tokens = append(tokens, ids...)
	}
	if len(tokens) == 0 {
		return nil, errors.New("token source: corpus encodes to no tokens")
	}
	return &TokenSource{tokens: tokens}, nil
}

// Len returns the number of corpus tokens.
func (s *TokenSource) Len() int { return len(s.tokens) }

// Fill returns batch*length ids, cycling through the corpus and folding each
// id into [0, vocab).
func (s *TokenSource) Fill(batch, length, vocab int) ([]int32, error) {
	if batch <= 0 || length <= 0 || vocab <= 0 {
		return nil, fmt.Errorf("token source: invalid request %d x %d over vocab %d", batch, length, vocab)
	}
	out := make([]int32, batch*length)
	for i := range out {
		out[i] = s.tokens[s.pos] % int32(vocab) //nolint:gosec // G115: vocab comes from an int32-sized embedding.
		s.pos = (s.pos + 1) % len(s.tokens)
	}
	return out, nil
}
