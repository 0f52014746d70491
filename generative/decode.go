package generative

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"midiroll/debug"
)

// Scorer is the model: given a prefix it returns one logit per token
type Scorer interface {
	Logits(ctx context.Context, prefix []int) ([]float64, error)
}

// ScorerFunc adapts a function to Scorer
type ScorerFunc func(ctx context.Context, prefix []int) ([]float64, error)

func (f ScorerFunc) Logits(ctx context.Context, prefix []int) ([]float64, error) {
	return f(ctx, prefix)
}

type Mode int

const (
	Categorical Mode = iota
	Greedy
)

func (m Mode) String() string {
	if m == Greedy {
		return "greedy"
	}
	return "categorical"
}

const (
	DefaultTemperature = 1.0
	DefaultTopK        = 5
	DefaultMaxLen      = 1024
)

// Policy controls how the next token is picked
type Policy struct {
	Mode        Mode
	Temperature float64 // <= 0 means greedy
	TopK        int     // <= 0 means the whole vocabulary
	Rand        *rand.Rand
}

// DefaultPolicy samples from the top 5 tokens at temperature 1
func DefaultPolicy() Policy {
	return Policy{Mode: Categorical, Temperature: DefaultTemperature, TopK: DefaultTopK}
}

var ErrEmptyLogits = errors.New("scorer returned no logits")

// Decode extends seed one token at a time until the model emits EndToken
// or the sequence reaches maxLen. The end marker is not included.
func Decode(ctx context.Context, s Scorer, seed []int, p Policy, maxLen int) ([]int, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	rng := p.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	out := append([]int(nil), seed...)
	for len(out) < maxLen {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		logits, err := s.Logits(ctx, out)
		if err != nil {
			return out, fmt.Errorf("scoring step %d: %w", len(out), err)
		}
		if len(logits) == 0 {
			return out, ErrEmptyLogits
		}

		var tok int
		if p.Mode == Greedy || p.Temperature <= 0 {
			tok = argmax(logits)
		} else {
			tok = sample(logits, p.Temperature, p.TopK, rng)
		}
		if tok == EndToken {
			break
		}
		out = append(out, tok)
	}
	debug.Log("generative", "decoded %d tokens (%s)", len(out), p.Mode)
	return out, nil
}

func argmax(logits []float64) int {
	best := 0
	for i, l := range logits {
		if l > logits[best] {
			best = i
		}
	}
	return best
}

// sample draws from softmax(logits/temperature) restricted to the k
// highest logits
func sample(logits []float64, temperature float64, k int, rng *rand.Rand) int {
	idx := make([]int, len(logits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return logits[idx[a]] > logits[idx[b]]
	})
	if k > 0 && k < len(idx) {
		idx = idx[:k]
	}

	top := logits[idx[0]] / temperature
	weights := make([]float64, len(idx))
	var total float64
	for i, t := range idx {
		w := math.Exp(logits[t]/temperature - top)
		weights[i] = w
		total += w
	}
	if total == 0 || math.IsNaN(total) {
		return idx[0]
	}

	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return idx[i]
		}
	}
	return idx[len(idx)-1]
}
