package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"midiroll/config"
	"midiroll/generative"
	"midiroll/library"
	"midiroll/melody"
	"midiroll/timeline"
)

// genFlags are shared by every command that can make a melody
type genFlags struct {
	tempo       int
	key         string
	bars        int
	seed        uint64
	model       bool
	greedy      bool
	temperature float64
	topK        int
	strict      bool
}

func (f *genFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.tempo, "tempo", 0, "tempo in BPM (default from config)")
	cmd.Flags().StringVar(&f.key, "key", "", `key, e.g. "D minor" (default from config)`)
	cmd.Flags().IntVar(&f.bars, "bars", 0, "length in bars (default from config)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().BoolVar(&f.model, "model", false, "sample from the generative model instead of the scale walker")
	cmd.Flags().BoolVar(&f.greedy, "greedy", false, "model: always take the most likely token")
	cmd.Flags().Float64Var(&f.temperature, "temperature", generative.DefaultTemperature, "model: sampling temperature")
	cmd.Flags().IntVar(&f.topK, "top-k", generative.DefaultTopK, "model: sample among the k most likely tokens (0 = all)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "model: reject unbalanced note on/off output")
}

// settings overlays the flags on the configured settings
func (f *genFlags) settings(c *config.Config) (config.Settings, error) {
	s := c.Settings
	if f.tempo != 0 {
		s.Tempo = f.tempo
	}
	if f.key != "" {
		s.Key = f.key
	}
	if f.bars != 0 {
		s.Bars = f.bars
	}
	return s, s.Validate()
}

func (f *genFlags) source() string {
	if f.model {
		return "model"
	}
	return "melody"
}

// build makes a timeline, returning the seed it used
func (f *genFlags) build(ctx context.Context, s config.Settings) (*timeline.Timeline, uint64, error) {
	seed := f.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	if !f.model {
		return melody.Generate(s.Tempo, s.Key, s.NoteCount(), melody.WithSeed(seed)), seed, nil
	}

	p := generative.Policy{
		Mode:        generative.Categorical,
		Temperature: f.temperature,
		TopK:        f.topK,
		Rand:        rand.New(rand.NewPCG(seed, seed>>1)),
	}
	if f.greedy {
		p.Mode = generative.Greedy
	}
	tl, err := generative.Generate(ctx, generative.NewScaleScorer(s.Key, s.NoteCount()),
		generative.EventConverter{Strict: f.strict}, nil, p, generative.DefaultMaxLen, float64(s.Tempo))
	return tl, seed, err
}

var (
	genOpts     genFlags
	genOut      string
	genNoRecord bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a melody and write it as a MIDI file",
	Long: `Generate a melody in the configured key and save it.

Without -o the melody only goes to the history directory
(~/.config/midiroll/history).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := genOpts.settings(cfg)
		if err != nil {
			return err
		}
		if _, err := melody.ParseKey(s.Key); err != nil {
			fmt.Printf("warning: %v, using %s\n", err, melody.DefaultKey)
		}

		tl, seed, err := genOpts.build(cmd.Context(), s)
		if err != nil {
			return err
		}
		fmt.Printf("generated %s (seed %d)\n", tl, seed)

		if genOut != "" {
			if err := tl.WriteFile(genOut); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", genOut)
		}
		if genNoRecord {
			return nil
		}
		dir, err := library.DefaultDir()
		if err != nil {
			return err
		}
		info, err := library.Open(dir).Save(tl, "", library.Meta{
			Source: genOpts.source(), Tempo: s.Tempo, Key: s.Key, Bars: s.Bars, Seed: seed,
		})
		if err != nil {
			return err
		}
		fmt.Printf("history: %s\n", info.Filename)
		return nil
	},
}

func init() {
	genOpts.register(generateCmd)
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "write the melody to this .mid file")
	generateCmd.Flags().BoolVar(&genNoRecord, "no-history", false, "don't record the melody in the history")
	rootCmd.AddCommand(generateCmd)
}
