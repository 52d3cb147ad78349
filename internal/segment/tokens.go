package segment

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultCharsPerToken is a conservative estimate for English prose.
const DefaultCharsPerToken = 4

// Estimator approximates the token cost of a piece of text.
type Estimator interface {
	Count(text string) int
}

// RatioEstimator divides character count by a fixed chars-per-token ratio.
// Cheap, deterministic, and good enough for budget sizing.
type RatioEstimator struct {
	CharsPerToken int
}

func (r RatioEstimator) Count(text string) int {
	cpt := r.CharsPerToken
	if cpt <= 0 {
		cpt = DefaultCharsPerToken
	}
	n := len(text) / cpt
	if n < 1 {
		n = 1
	}
	return n
}

// TiktokenEstimator counts exactly with the cl100k_base encoding. Worth the
// startup cost when the budget is tight and overflow retries are expensive.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenEstimator() (*TiktokenEstimator, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}
	return &TiktokenEstimator{enc: enc}, nil
}

func (t *TiktokenEstimator) Count(text string) int {
	n := len(t.enc.Encode(text, nil, nil))
	if n < 1 {
		n = 1
	}
	return n
}

// BuildEstimator selects the configured estimator, falling back to the ratio
// estimate when the tiktoken encoding cannot be loaded.
func BuildEstimator(kind string, charsPerToken int) Estimator {
	if kind == "tiktoken" {
		if est, err := NewTiktokenEstimator(); err == nil {
			return est
		}
	}
	return RatioEstimator{CharsPerToken: charsPerToken}
}
