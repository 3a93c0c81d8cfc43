package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/reach/internal/config"
	"github.com/san-kum/reach/internal/export"
	"github.com/san-kum/reach/internal/plotting"
	"github.com/san-kum/reach/internal/storage"
)

var errNoData = errors.New("no data to plot")

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSTATUS\tCTRL\tINTEG\tITERS\tREACHED\tRMS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d/%d\t%.4f\n",
			shortID(run.ID),
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Status,
			run.Controller,
			run.Integrator,
			run.Iterations,
			len(run.Arrivals), len(run.Targets),
			run.Metrics["tracking_rms"],
		)
	}

	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func loadRun(id string) (*storage.RunMetadata, storage.Trajectory, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(id)
	if err != nil {
		return nil, nil, err
	}
	traj, err := st.LoadTrajectory(meta.ID)
	if err != nil {
		return nil, nil, err
	}
	return meta, traj, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if len(traj) == 0 {
		return errNoData
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("controller: %s  integrator: %s  status: %s\n", meta.Controller, meta.Integrator, meta.Status)
	fmt.Printf("samples: %d\n\n", len(traj))
	fmt.Println(plotting.Terminal(traj.EE(), traj.Distances(), 80, 10))

	if plotPath != "" {
		circle := plotting.Circle{Center: config.Vec(meta.Offset), Radius: meta.Radius}
		if err := plotting.TrajectoryWithReach(traj.EE(), traj.Targets(), circle, plotPath); err != nil {
			return err
		}
		ext := filepath.Ext(plotPath)
		if err := plotting.Distance(traj.Distances(), meta.Threshold, strings.TrimSuffix(plotPath, ext)+"_distance"+ext); err != nil {
			return err
		}
		fmt.Printf("plot: %s\n", plotPath)
	}
	if htmlPath != "" {
		f, err := os.Create(htmlPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := plotting.HTML(f, "reach run "+shortID(meta.ID), traj.EE(), traj.Targets(), traj.Distances()); err != nil {
			return err
		}
		fmt.Printf("report: %s\n", htmlPath)
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, traj)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, traj)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	svg := export.TrajectoryToSVG(traj.EE(), traj.Targets(), svgWidth, svgHeight, export.DefaultPathStyle)
	if svg == "" {
		return errNoData
	}
	fmt.Println(svg)
	return nil
}
