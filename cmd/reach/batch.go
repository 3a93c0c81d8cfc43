package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/reach/internal/automation"
	"github.com/san-kum/reach/internal/storage"
)

var (
	trials  int
	perturb float64
	seed    int64
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
}

func newMonteCarloCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "repeat a run from perturbed initial angles",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addConfigFlags(cmd)
	cmd.Flags().IntVar(&trials, "trials", 20, "number of runs")
	cmd.Flags().Float64Var(&perturb, "perturb", 0.5, "initial angle perturbation (rad)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, runErr := automation.RunScenario(ctx, sc, storage.New(dataDir), logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSTATUS\tITERS\tARRIVALS\tRMS\tRUN")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%.4f\t%s\n", r.Name, r.Status, r.Iterations, r.Arrivals, r.Metrics["tracking_rms"], shortID(r.RunID))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if errors.Is(runErr, context.Canceled) {
		fmt.Println("interrupted")
		return nil
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, runErr := automation.RunMonteCarlo(ctx, cfg, automation.MonteCarloConfig{
		Trials:       trials,
		Perturbation: perturb,
		Seed:         seed,
	}, logger)

	completed, incomplete := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d  completed: %d  incomplete: %d\n", len(results), completed, incomplete)
	if verbose {
		for _, r := range results {
			fmt.Printf("  %3d  q0=%+.4f  %-11s %d\n", r.TrialID, r.InitialQ, r.Status, r.Iterations)
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
