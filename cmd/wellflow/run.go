package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/MishaelXV/Diplom-project/internal/inverse"
	"github.com/MishaelXV/Diplom-project/internal/pipeline"
	"github.com/MishaelXV/Diplom-project/internal/series"
	"github.com/MishaelXV/Diplom-project/pkg/config"
)

var methodOverride string

// buildInputs loads the named scenarios and converts them, applying the
// --method override.
func buildInputs(names []string) ([]pipeline.Input, error) {
	scenarios, err := loadScenarios(cfg.Scenarios, names)
	if err != nil {
		return nil, err
	}

	var method inverse.Method
	if methodOverride != "" {
		if method, err = inverse.ParseMethod(methodOverride); err != nil {
			return nil, err
		}
	}

	b := newInputBuilder(cfg.Scenarios)
	inputs := make([]pipeline.Input, 0, len(scenarios))
	for _, s := range scenarios {
		in, err := b.build(s)
		if err != nil {
			return nil, err
		}
		if method != "" {
			in.Method = method
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

var synthCmd = &cobra.Command{
	Use:   "synth [scenario...]",
	Short: "Generate the noisy synthetic temperature profile of each scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarios, err := loadScenarios(cfg.Scenarios, args)
		if err != nil {
			return err
		}

		profiles := make([]syntheticProfile, 0, len(scenarios))
		for _, s := range scenarios {
			if !s.HasTruth() {
				return eris.Wrapf(config.ErrInvalidScenario, "scenario %q declares no segments to synthesise", s.Name)
			}
			syn := series.NewSynthesizer(s.Physics, s.Sigma, s.Seed)
			out, err := syn.Synthesize(s.Boundaries, s.Pe, s.N)
			if err != nil {
				return eris.Wrapf(err, "scenario %q", s.Name)
			}
			logger.Debugf("synthesised %d samples for %s", len(out.Depths), s.Name)
			profiles = append(profiles, newSyntheticProfile(s.Name, out))
		}
		return writeResult(profiles, syntheticTable(profiles))
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect [scenario...]",
	Short: "Detect the producing intervals only",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		inputs, err := buildInputs(args)
		if err != nil {
			return err
		}

		est := pipeline.NewEstimator(logger, nil, pipeline.NewCache())
		results := make([]pipeline.BoundaryOutput, 0, len(inputs))
		for _, in := range inputs {
			out, err := est.Detect(ctx, in)
			if err != nil {
				return eris.Wrapf(err, "well %q", in.Name)
			}
			results = append(results, *out)
		}
		return writeResult(results, boundaryTable(results))
	},
}

var invertCmd = &cobra.Command{
	Use:   "invert [scenario...]",
	Short: "Detect intervals and recover their inflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		inputs, err := buildInputs(args)
		if err != nil {
			return err
		}

		cache := pipeline.NewCache()
		est := pipeline.NewEstimator(logger, nil, cache)
		outputs := make([]pipeline.Output, 0, len(inputs))
		for _, in := range inputs {
			out, err := est.Run(ctx, in)
			if err != nil {
				return eris.Wrapf(err, "well %q", in.Name)
			}
			outputs = append(outputs, *out)
		}

		hits, misses := cache.Stats()
		logger.Debugf("cache: %d hits, %d misses", hits, misses)
		return writeResult(outputs, outputTable(outputs))
	},
}

// batchReport is the structured form of a batch result.
type batchReport struct {
	Outputs []pipeline.Output `json:"outputs"`
	Summary pipeline.Summary  `json:"summary"`
}

var summaryOnly bool

var batchCmd = &cobra.Command{
	Use:   "batch [scenario...]",
	Short: "Estimate many wells concurrently and summarise their scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		inputs, err := buildInputs(args)
		if err != nil {
			return err
		}

		est := pipeline.NewEstimator(logger, nil, nil)
		outputs, sum, err := est.Batch(ctx, inputs, cfg.Workers)
		if err != nil {
			return eris.Wrap(err, "batch interrupted")
		}

		if summaryOnly {
			return writeResult(sum, summaryTable(sum))
		}
		return writeResult(batchReport{Outputs: outputs, Summary: sum}, batchTable{outputs, sum})
	},
}

// batchTable prints the per-well rows followed by the summary.
type batchTable struct {
	outputs []pipeline.Output
	summary pipeline.Summary
}

func (t batchTable) Header() []string {
	return outputTable(t.outputs).Header()
}

func (t batchTable) Rows() [][]string {
	rows := outputTable(t.outputs).Rows()
	s := t.summary
	rows = append(rows, []string{
		"summary", "", "", "", "", "",
		score(s.Mean), "", "mean of " + strconv.Itoa(s.Scored) + " scored runs, " + strconv.Itoa(s.Failed) + " failed",
	})
	return rows
}

func init() {
	for _, c := range []*cobra.Command{detectCmd, invertCmd, batchCmd} {
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{invertCmd, batchCmd} {
		c.Flags().StringVarP(&methodOverride, "method", "m", "", "override the scenario method: "+methodNames())
	}
	batchCmd.Flags().BoolVar(&summaryOnly, "summary", false, "print the summary only")
	rootCmd.AddCommand(synthCmd)
}
