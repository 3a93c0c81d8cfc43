package main

import (
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/reach/internal/config"
)

var (
	dataDir string
	verbose bool

	configFile     string
	presetName     string
	controllerName string
	integratorName string
	kp             float64
	kv             float64
	ki             float64
	dt             float64
	maxForce       float64
	strictDwell    bool
	maxSteps       int

	plotPath string
	htmlPath string
	noSave   bool

	speed     float64
	every     int
	theme     string
	snapshot  string
	gifPath   string
	svgWidth  int
	svgHeight int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "reach",
		Short:         "drive a simulated one-link arm through a list of targets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".reach", "run store directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless, then plot and store the trajectory",
		Args:  cobra.NoArgs,
		RunE:  runReach,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&plotPath, "plot", "", "write the trajectory plot to this png file")
	runCmd.Flags().StringVar(&htmlPath, "html", "", "write an html report to this file")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with the live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().Float64Var(&speed, "speed", 1, "simulated seconds per wall second (0 = unpaced)")
	liveCmd.Flags().IntVar(&every, "every", 10, "send every n-th iteration to the view")
	liveCmd.Flags().StringVar(&theme, "theme", "", "color theme")
	liveCmd.Flags().StringVar(&snapshot, "snapshot", "", "write the final frame to this svg file")
	liveCmd.Flags().StringVar(&gifPath, "gif", "reach.gif", "file for G recordings")
	liveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotPath, "png", "", "also write a png trajectory plot")
	plotCmd.Flags().StringVar(&htmlPath, "html", "", "also write an html report")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write the trajectory as csv to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write metadata and trajectory as json to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "write the x-z path as svg to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 600, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("  %-8s %s/%s kp=%g targets=%d strict=%v\n",
					name, cfg.Controller, cfg.Integrator, cfg.Gains.Kp, len(cfg.Targets), cfg.Reach.StrictDwell)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective config as yaml",
		Args:  cobra.NoArgs,
		RunE:  printConfig,
	}
	addConfigFlags(configCmd)

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, configCmd,
		newTuneCmd(), newBatchCmd(), newMonteCarloCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&presetName, "preset", "", "start from a named preset")
	f.StringVar(&controllerName, "controller", "osc", "controller (osc, floating, joint)")
	f.StringVar(&integratorName, "integrator", "rk4", "integrator (euler, rk4, rk45, verlet)")
	f.Float64Var(&kp, "kp", config.DefaultKp, "position gain")
	f.Float64Var(&kv, "kv", 0, "velocity gain (0 = critically damped)")
	f.Float64Var(&ki, "ki", 0, "integral gain (joint controller)")
	f.Float64Var(&dt, "dt", config.DefaultDt, "simulator timestep")
	f.Float64Var(&maxForce, "max-force", 0, "joint force limit (0 = none)")
	f.BoolVar(&strictDwell, "strict", false, "reset the arrival counter when leaving the target")
	f.IntVar(&maxSteps, "max-steps", 0, "give up after this many iterations (0 = never)")
}

// loadConfig resolves preset, then config file, then explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if presetName != "" {
		cfg = config.GetPreset(presetName)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", presetName, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("controller") {
		cfg.Controller = controllerName
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integratorName
	}
	if flags.Changed("kp") {
		cfg.Gains.Kp = kp
	}
	if flags.Changed("kv") {
		cfg.Gains.Kv = kv
	}
	if flags.Changed("ki") {
		cfg.Gains.Ki = ki
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("max-force") {
		cfg.MaxForce = maxForce
	}
	if flags.Changed("strict") {
		cfg.Reach.StrictDwell = strictDwell
	}
	if flags.Changed("max-steps") {
		cfg.Reach.MaxSteps = maxSteps
	}
	if flags.Changed("theme") {
		cfg.Theme = theme
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() golog.Logger {
	logger := golog.NewDevelopmentLogger("reach")
	if verbose {
		return logger
	}
	return logger.Desugar().WithOptions(zap.IncreaseLevel(zap.InfoLevel)).Sugar()
}
