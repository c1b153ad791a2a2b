package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"geointel/internal/event/csvio"
	"geointel/internal/event/generator"
)

func newGenerateCommand(a *app) *cobra.Command {
	var (
		scenarioPath string
		outPath      string
		size         int
		seed         uint64
		daysBack     int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic GPS dataset as CSV",
		Example: `  geointel generate --size 5000 --out events.csv
  geointel generate --scenario theatre.yaml --seed 7 > events.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scenario := generator.DefaultScenario()
			if scenarioPath != "" {
				var err error
				if scenario, err = generator.LoadScenario(scenarioPath); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("size") {
				scenario.Size = size
			}
			if cmd.Flags().Changed("seed") {
				scenario.Seed = seed
			}
			if cmd.Flags().Changed("days-back") {
				scenario.DaysBack = daysBack
			}
			events, err := generator.Generate(scenario, time.Now())
			if err != nil {
				return err
			}

			var w io.Writer = a.out
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := csvio.WriteEvents(w, events, nil); err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d events to %s\n", len(events), outPath)
			}
			return nil
		},
	}
	cmd.GroupID = "local"
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")
	cmd.Flags().IntVar(&size, "size", 0, "number of events")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&daysBack, "days-back", 0, "spread events over this many past days")
	return cmd
}
