// Package tokens counts language-model tokens in text.
//
// Every count is taken with a single encoding, cl100k_base (the encoding of
// gpt-3.5-turbo and gpt-4), and reused for every model a repository is
// compared against. Other model families tokenize differently, so counts for
// them are an approximation. That is intentional: per-model tokenizers would
// change the numbers the tool reports.
package tokens

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

// Encoder names accepted by New.
const (
	Cl100kBase = "cl100k_base"
	Heuristic  = "heuristic"
)

// ErrUnknownTokenizer is returned by New for an unsupported name.
var ErrUnknownTokenizer = errors.New("unknown tokenizer")

// Counter maps text to a non-negative token count. An error means the text
// could not be encoded and has no count.
type Counter interface {
	Count(text string) (int, error)
}

// New returns the counter registered under name.
func New(name string) (Counter, error) {
	switch name {
	case "", Cl100kBase:
		return NewTiktoken()
	case Heuristic:
		return RuneEstimator{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTokenizer, name)
	}
}

// Tiktoken counts tokens with the cl100k_base BPE encoding.
type Tiktoken struct {
	codec tokenizer.Codec
}

// NewTiktoken loads the cl100k_base encoding. The vocabulary is embedded in
// the binary, so this does not touch the network.
func NewTiktoken() (*Tiktoken, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", Cl100kBase, err)
	}
	return &Tiktoken{codec: codec}, nil
}

// Count returns the number of token ids text encodes to.
func (t *Tiktoken) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", Cl100kBase, err)
	}
	return len(ids), nil
}

// RuneEstimator approximates token counts as rune count / 3, which holds up
// reasonably for mixed CJK/Latin text without loading a vocabulary.
type RuneEstimator struct{}

// Count returns the estimate; any non-empty text counts as at least one token.
func (RuneEstimator) Count(text string) (int, error) {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0, nil
	}
	return max(n/3, 1), nil
}
