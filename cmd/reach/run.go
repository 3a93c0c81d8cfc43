package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/reach/internal/config"
	"github.com/san-kum/reach/internal/experiment"
	"github.com/san-kum/reach/internal/export"
	"github.com/san-kum/reach/internal/plotting"
	"github.com/san-kum/reach/internal/reach"
	"github.com/san-kum/reach/internal/storage"
	"github.com/san-kum/reach/internal/viz"
)

// interruptPlot is where an interrupted run's trajectory goes when --plot
// was not given.
const interruptPlot = "reach_trajectory.png"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(22)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func runReach(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	exp, err := experiment.New(cfg, nil, logger)
	if err != nil {
		return err
	}
	exp.WithPreset(presetName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("running...")
	res := exp.Run(ctx)
	stop()

	printSummary(cfg, res)

	if res.State != nil && res.State.Len() > 0 {
		fmt.Println()
		fmt.Println(plotting.Terminal(res.State.EETrack, res.State.Distances, 80, 10))

		png := plotPath
		if png == "" && res.Status() == storage.StatusInterrupted {
			png = interruptPlot
		}
		if png != "" {
			if err := writePlots(png, cfg, res.State); err != nil {
				logger.Errorw("plot failed", "error", err)
			} else {
				fmt.Printf("plot: %s\n", png)
			}
		}
		if htmlPath != "" {
			if err := writeHTML(htmlPath, "reach run", res.State); err != nil {
				logger.Errorw("html report failed", "error", err)
			} else {
				fmt.Printf("report: %s\n", htmlPath)
			}
		}
	}

	if !noSave {
		id, err := exp.Save(storage.New(dataDir), res)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Printf("run id: %s\n", id)
	}

	if res.Status() == storage.StatusFailed {
		return res.Err
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// the view owns the terminal, so the run logs nothing
	exp, err := experiment.New(cfg, nil, zap.NewNop().Sugar())
	if err != nil {
		return err
	}
	exp.WithPreset(presetName)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rc := experiment.ReachConfig(cfg.Reach)
	scene := viz.Scene{
		Base:   rc.Offset,
		Radius: rc.Radius,
		Dwell:  rc.Dwell,
	}
	for _, t := range cfg.TargetVectors() {
		if xyz, err := reach.Normalize(t, rc.Offset, rc.Radius); err == nil {
			scene.Targets = append(scene.Targets, xyz)
		}
	}

	model := viz.NewModel(scene, cancel).WithTheme(cfg.Theme).WithGIF(func() (io.WriteCloser, error) {
		return os.Create(gifPath)
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	exp.AddObserver(viz.Pace(speed))
	exp.AddObserver(viz.Forward(p, every))

	results := make(chan *experiment.Result, 1)
	go func() {
		res := exp.Run(ctx)
		p.Send(viz.DoneMsg{State: res.State, Err: res.Err})
		results <- res
	}()

	final, err := p.Run()
	cancel()
	res := <-results
	if err != nil {
		return err
	}

	if snapshot != "" {
		if m, ok := final.(viz.Model); ok {
			svg := export.CanvasToSVG(m.Canvas(), 4, "#00ffff")
			if err := os.WriteFile(snapshot, []byte(svg), 0644); err != nil {
				return err
			}
			fmt.Printf("snapshot: %s\n", snapshot)
		}
	}

	printSummary(cfg, res)
	if !noSave {
		id, err := exp.Save(storage.New(dataDir), res)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Printf("run id: %s\n", id)
	}
	if res.Status() == storage.StatusFailed {
		return res.Err
	}
	return nil
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func printSummary(cfg *config.Config, res *experiment.Result) {
	fmt.Println()
	switch res.Status() {
	case storage.StatusCompleted:
		fmt.Println(okStyle.Render("all targets reached"))
	case storage.StatusInterrupted:
		fmt.Println(warnStyle.Render("interrupted"))
	default:
		fmt.Println(errStyle.Render("failed: " + res.Err.Error()))
	}

	row := func(label, format string, args ...any) {
		fmt.Println(labelStyle.Render(label) + fmt.Sprintf(format, args...))
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s / %s", cfg.Controller, cfg.Integrator)))
	if res.State != nil {
		row("iterations", "%d", res.State.Count)
		row("simulated time", "%.3fs", res.State.Time)
		row("targets reached", "%d / %d", len(res.State.Arrivals), len(res.State.Targets))
		if len(res.State.Arrivals) > 0 {
			row("arrival iterations", "%v", res.State.Arrivals)
		}
	}
	row("wall time", "%v", res.Duration.Round(time.Millisecond))

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, "%.6f", res.Metrics[name])
	}
}

// writePlots writes the trajectory plot to path and the distance plot next
// to it.
func writePlots(path string, cfg *config.Config, st *reach.LoopState) error {
	circle := plotting.Circle{Center: config.Vec(cfg.Reach.Offset), Radius: cfg.Reach.Radius}
	if err := plotting.TrajectoryWithReach(st.EETrack, st.TargetTrack, circle, path); err != nil {
		return err
	}
	ext := filepath.Ext(path)
	return plotting.Distance(st.Distances, cfg.Reach.Threshold, strings.TrimSuffix(path, ext)+"_distance"+ext)
}

func writeHTML(path, title string, st *reach.LoopState) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := plotting.HTML(f, title, st.EETrack, st.TargetTrack, st.Distances); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
