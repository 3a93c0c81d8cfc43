package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/reach/internal/config"
	"github.com/san-kum/reach/internal/optim"
)

var (
	grids      []string
	tuneMetric string
	workers    int
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search parameters, ranking runs by a metric (lower is better)",
		Long:  fmt.Sprintf("Runs one experiment per grid point. Without --max-steps each point gets %gs of simulated time per target.", config.DefaultTargetTime),
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	addConfigFlags(cmd)
	cmd.Flags().StringArrayVar(&grids, "grid", nil, "name=v1,v2,... (repeatable)")
	cmd.Flags().StringVar(&tuneMetric, "metric", "arrival_iterations", "metric to minimize")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "concurrent runs")
	return cmd
}

func runTune(cmd *cobra.Command, args []string) error {
	if len(grids) == 0 {
		names := make([]string, 0, len(optim.Params))
		for name := range optim.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("at least one --grid is required (parameters: %s)", strings.Join(names, ", "))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var names []string
	var ranges [][]float64
	for _, g := range grids {
		name, vals, err := optim.ParseGrid(g)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	search, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()
	search.WithWorkers(workers).WithLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("evaluating %d points with %d workers...\n", len(search.Points()), workers)
	best, all, err := search.Search(ctx, cfg, tuneMetric)
	if err != nil && len(all) == 0 {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTATUS\tITERS\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(tuneMetric))
	for _, c := range all {
		cols := make([]string, len(names))
		for i, name := range names {
			cols[i] = fmt.Sprintf("%g", c.Params[name])
		}
		score := "-"
		if !math.IsInf(c.Score, 1) {
			score = fmt.Sprintf("%.4f", c.Score)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", strings.Join(cols, "\t"), c.Status, c.Iterations, score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if errors.Is(err, context.Canceled) {
		fmt.Println("\ninterrupted")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nbest: %v (%s=%.4f)\n", best.Params, tuneMetric, best.Score)
	return nil
}
