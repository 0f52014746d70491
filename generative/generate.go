package generative

import (
	"context"
	"fmt"

	"midiroll/debug"
	"midiroll/timeline"
)

// Generate samples a token sequence from s starting at seed and converts
// it. A conversion failure returns nil; the caller keeps whatever timeline
// it had.
func Generate(ctx context.Context, s Scorer, c Converter, seed []int, p Policy, maxLen int, tempo float64) (*timeline.Timeline, error) {
	if len(seed) == 0 {
		seed = []int{StartToken}
	}
	tokens, err := Decode(ctx, s, seed, p, maxLen)
	if err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	debug.Log("generative", "first tokens: %v", head(tokens, 20))

	tl, err := c.Convert(tokens, tempo)
	if err != nil {
		debug.Log("generative", "conversion failed: %v", err)
		return nil, err
	}
	debug.Log("generative", "generated %s", tl)
	return tl, nil
}

func head(tokens []int, n int) []string {
	out := make([]string, 0, min(n, len(tokens)))
	for _, t := range tokens[:min(n, len(tokens))] {
		out = append(out, TokenString(t))
	}
	return out
}
