package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaizengine/shopfloor/internal/config"
	"github.com/kaizengine/shopfloor/internal/fixture"
	"github.com/kaizengine/shopfloor/internal/gate"
	"github.com/kaizengine/shopfloor/internal/logging"
	"github.com/kaizengine/shopfloor/internal/shopfloor"
	"github.com/kaizengine/shopfloor/internal/sop"
	"github.com/kaizengine/shopfloor/internal/station"
	"github.com/kaizengine/shopfloor/internal/telemetry"
)

var (
	runTask string
	runDir  string
)

var runCmd = &cobra.Command{
	Use:   "run <breakdown-file>",
	Short: "Run a production pipeline from a breakdown file",
	Long: `Run parses the breakdown file into work orders, schedules them by
dependency layer, and dispatches each order to the configured producer
command on an isolated workstation.

The breakdown file lists one work order per line:

  1. Add the widget parser
  2. Wire the parser into the press (depends: 1)
  3. Document the press (depends: 1, 2)

The producer command runs once per work order with SHOPFLOOR_ORDER_INDEX,
SHOPFLOOR_ORDER_DESCRIPTION and SHOPFLOOR_ORDER_ATTEMPT in its
environment. Orders that fail their quality gates are re-enqueued for
rework until production.max_cycles is exhausted.`,
	Args: cobra.ExactArgs(1),
	RunE: runProduce,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runTask, "task", "", "task title for the run (default: breakdown file name)")
	runCmd.Flags().StringVarP(&runDir, "dir", "d", ".", "target directory the parent workstation operates in")
	runCmd.Flags().String("producer", "", "shell command run for each work order")
	runCmd.Flags().String("sop", "", "standard operating procedure to apply")
	runCmd.Flags().Int("max-cycles", 0, "maximum production cycles including rework")
	runCmd.Flags().Int("parallel", 0, "maximum concurrent work orders per layer")

	_ = viper.BindPFlag("production.producer_command", runCmd.Flags().Lookup("producer"))
	_ = viper.BindPFlag("sop.name", runCmd.Flags().Lookup("sop"))
	_ = viper.BindPFlag("production.max_cycles", runCmd.Flags().Lookup("max-cycles"))
	_ = viper.BindPFlag("production.parallel_limit", runCmd.Flags().Lookup("parallel"))
}

func runProduce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Production.ProducerCommand == "" {
		return fmt.Errorf("no producer command configured: set --producer or production.producer_command")
	}

	breakdownFile := args[0]
	breakdown, err := os.ReadFile(breakdownFile)
	if err != nil {
		return fmt.Errorf("failed to read breakdown file: %w", err)
	}

	task := runTask
	if task == "" {
		task = filepath.Base(breakdownFile)
	}

	target, err := filepath.Abs(runDir)
	if err != nil {
		return fmt.Errorf("failed to resolve target directory: %w", err)
	}

	procedure, err := resolveSOP(cfg)
	if err != nil {
		return err
	}

	fix, err := buildFixture(cfg, target)
	if err != nil {
		return err
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLoggerWithRotation(cfg.Paths.ResolveRunDir(target), cfg.Logging.Level, logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		defer func() { _ = logger.Close() }()
	}

	parent := station.New(fix,
		station.WithSOP(procedure),
		station.WithLogger(logger),
	)

	gates := []gate.Gate{
		&gate.VerificationGate{Timeout: cfg.Gate.VerificationTimeout()},
	}
	if cfg.Gate.ApprovalPolicy != "" {
		gates = append(gates, &gate.ApprovalGate{Policy: gate.ApprovalPolicy(cfg.Gate.ApprovalPolicy)})
	}

	metrics := telemetry.New()
	floor := shopfloor.New(parent,
		&shopfloor.CommandProducer{Command: cfg.Production.ProducerCommand},
		cfg.Options(),
		shopfloor.WithGates(gates...),
		shopfloor.WithLogger(logger),
		shopfloor.WithMetrics(metrics),
		shopfloor.WithMergeTimeout(cfg.Assembly.MergeTimeout()),
	)

	report, err := floor.Produce(cmd.Context(), task, string(breakdown))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderReport(report, metrics.Snapshot()))

	if report.State == shopfloor.StateAborted {
		return fmt.Errorf("run aborted: %v", report.Reason)
	}
	return nil
}

// resolveSOP loads any extra procedures from sop.dir and returns the one
// named in the configuration.
func resolveSOP(cfg *config.Config) (*sop.SOP, error) {
	if cfg.SOP.Dir != "" {
		loaded, err := sop.LoadDir(cfg.SOP.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load procedures from %s: %w", cfg.SOP.Dir, err)
		}
		for _, s := range loaded {
			sop.Register(s)
		}
	}

	procedure := sop.Lookup(cfg.SOP.Name)
	if procedure == nil {
		return nil, fmt.Errorf("unknown procedure %q: known procedures are %v", cfg.SOP.Name, sop.Names())
	}
	return procedure, nil
}

// buildFixture constructs the parent fixture for the target directory.
func buildFixture(cfg *config.Config, target string) (fixture.Fixture, error) {
	kind := cfg.Fixture.Kind
	if kind == "auto" {
		// Worktree targets behave as repositories for the parent.
		switch fixture.Detect(target) {
		case fixture.KindLocalDir:
			kind = "localdir"
		default:
			kind = "repo"
		}
	}

	switch kind {
	case "repo":
		return fixture.NewRepo(target), nil
	case "localdir":
		return fixture.NewLocalDir(target), nil
	case "clone":
		return fixture.NewClone(cfg.Fixture.Source, target, ""), nil
	default:
		return nil, fmt.Errorf("unknown fixture kind %q", kind)
	}
}
