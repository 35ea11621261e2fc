package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/pvnet/internal/adapters/source"
	"github.com/okian/pvnet/internal/synth"
)

func newGenerateCmd(_ *rootOptions) *cobra.Command {
	cfg := synth.DefaultConfig()
	var out string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a deterministic synthetic event log",
		Long: `Generate synthetic matches of alternating possessions built from passes,
carries, dribbles and shots, and write them in the open-data event shape as
a JSON array (.json) or JSON Lines (.jsonl) file that 'pvnet build' reads.`,
		Example: `  pvnet generate --out events.jsonl --matches 40 --seed 7`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := synth.Generate(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("generate events: %w", err)
			}
			if err := source.WriteFile(out, events); err != nil {
				return fmt.Errorf("write events: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events from %d matches to %s\n", len(events), cfg.Matches, out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&out, "out", "events.json", "output file (.json or .jsonl)")
	f.IntVar(&cfg.Matches, "matches", cfg.Matches, "number of matches")
	f.IntVar(&cfg.PossessionsPerMatch, "possessions", cfg.PossessionsPerMatch, "possessions per match")
	f.IntVar(&cfg.MaxActions, "max-actions", cfg.MaxActions, "maximum on-ball actions per possession")
	f.Float64Var(&cfg.ShotRate, "shot-rate", cfg.ShotRate, "chance a possession ends in a shot")
	f.Float64Var(&cfg.GoalRate, "goal-rate", cfg.GoalRate, "chance a shot is scored")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	f.IntVar(&cfg.CompetitionID, "competition", cfg.CompetitionID, "competition id stamped on events")
	f.IntVar(&cfg.SeasonID, "season", cfg.SeasonID, "season id stamped on events")
	return cmd
}
