package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qcloud-sim/qcloud-sim/sim"
	"github.com/qcloud-sim/qcloud-sim/sim/calibration"
	"github.com/qcloud-sim/qcloud-sim/sim/compile"
	"github.com/qcloud-sim/qcloud-sim/sim/cost"
	"github.com/qcloud-sim/qcloud-sim/sim/device"
	"github.com/qcloud-sim/qcloud-sim/sim/results"
	"github.com/qcloud-sim/qcloud-sim/sim/trace"
	"github.com/qcloud-sim/qcloud-sim/sim/workload"
)

var (
	// Inputs
	devicesPath      string   // Device catalog YAML
	workloadPath     string   // Workload spec YAML
	policyConfigPath string   // Policy bundle YAML, overrides the flags below
	nodeIDs          []string // Catalog devices to use as nodes; empty = all
	logLevel         string   // Log verbosity level

	// Policy and cost model
	policyName      string  // Dispatch policy
	shots           int     // Shots per task
	fanEpsilon      float64 // Fidelity-aware score epsilon
	compileRate     float64 // Compile calls per wall-clock second; 0 = unlimited
	compileBurst    int     // Compile call burst size
	traceLevel      string  // Decision trace level
	counterfactualK int     // Ranked candidates kept per traced decision

	// Calibration cache
	calibrationCache string        // Redis address; empty disables caching
	calibrationTTL   time.Duration // Cache entry lifetime

	// Outputs
	csvPath    string // Per-task CSV
	metricsOut string // Prometheus textfile
	resultsDB  string // Postgres DSN
	runID      string // Run identifier in the results database

	// compare
	comparePolicies []string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "qcloud-sim",
	Short: "Discrete-event simulator for quantum cloud task dispatch",
}

// runConfig is the resolved configuration of one simulated run.
type runConfig struct {
	Policy          string
	Shots           int
	Epsilon         float64
	CompileRate     float64
	CompileBurst    int
	TraceLevel      string
	CounterfactualK int
}

// flagConfig collects the run flags, then applies the policy bundle if one is given.
func flagConfig() (runConfig, error) {
	cfg := runConfig{
		Policy:          policyName,
		Shots:           shots,
		Epsilon:         fanEpsilon,
		CompileRate:     compileRate,
		CompileBurst:    compileBurst,
		TraceLevel:      traceLevel,
		CounterfactualK: counterfactualK,
	}
	if policyConfigPath != "" {
		bundle, err := sim.LoadPolicyBundle(policyConfigPath)
		if err != nil {
			return cfg, err
		}
		if err := bundle.Validate(); err != nil {
			return cfg, fmt.Errorf("policy config %s: %w", policyConfigPath, err)
		}
		cfg.applyBundle(bundle)
	}
	return cfg, cfg.validate()
}

// applyBundle overrides every field the bundle sets.
func (c *runConfig) applyBundle(b *sim.PolicyBundle) {
	if b.Policy != "" {
		c.Policy = b.Policy
	}
	if b.Shots != nil {
		c.Shots = *b.Shots
	}
	if b.FAN.Epsilon != nil {
		c.Epsilon = *b.FAN.Epsilon
	}
	if b.Compile.RatePerSecond != nil {
		c.CompileRate = *b.Compile.RatePerSecond
	}
	if b.Compile.Burst != nil {
		c.CompileBurst = *b.Compile.Burst
	}
	if b.Trace.Level != "" {
		c.TraceLevel = b.Trace.Level
	}
	if b.Trace.CounterfactualK != nil {
		c.CounterfactualK = *b.Trace.CounterfactualK
	}
}

func (c runConfig) validate() error {
	if !sim.IsValidPolicy(c.Policy) {
		return fmt.Errorf("unknown policy %q; valid: %v", c.Policy, sim.ValidPolicyNames())
	}
	if c.Shots <= 0 {
		return fmt.Errorf("shots must be positive, got %d", c.Shots)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	if c.CompileRate < 0 {
		return fmt.Errorf("compile rate must be non-negative, got %g", c.CompileRate)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	if c.CounterfactualK < 0 {
		return fmt.Errorf("counterfactual-k must be non-negative, got %d", c.CounterfactualK)
	}
	return nil
}

// environment is everything that stays fixed across the runs of one invocation.
type environment struct {
	catalog  *device.Catalog
	provider calibration.Provider
	nodeIDs  []string
	tasks    []*sim.Task
}

// runOutcome is the result of one simulated run.
type runOutcome struct {
	Records []sim.ExecutionRecord
	Metrics sim.RunMetrics
	Trace   *trace.SimulationTrace
}

// simulate builds fresh nodes and a fresh policy, submits every task and
// drains the clock.
func simulate(ctx context.Context, env environment, cfg runConfig) (runOutcome, error) {
	nodes, err := sim.NewNodes(ctx, env.provider, env.nodeIDs...)
	if err != nil {
		return runOutcome{}, err
	}

	var compiler compile.Compiler = compile.NewTranspiler(env.catalog)
	if cfg.CompileRate > 0 {
		compiler = compile.NewThrottled(compiler, cfg.CompileRate, cfg.CompileBurst)
	}
	policy := sim.NewPolicy(cfg.Policy, compiler, cfg.Shots, cfg.Epsilon)

	engine := sim.NewSimulator()
	orch := sim.NewOrchestrator(engine, policy, nodes, compiler, cfg.Shots)

	var st *trace.SimulationTrace
	if cfg.TraceLevel != "" && trace.TraceLevel(cfg.TraceLevel) != trace.TraceLevelNone {
		st = trace.NewSimulationTrace(trace.TraceConfig{
			Level:           trace.TraceLevel(cfg.TraceLevel),
			CounterfactualK: cfg.CounterfactualK,
		})
		orch.SetTrace(st)
	}

	if err := orch.Submit(ctx, env.tasks); err != nil {
		return runOutcome{}, err
	}
	engine.Run(ctx)

	records := orch.Results()
	return runOutcome{
		Records: records,
		Metrics: sim.ComputeMetrics(policy.Name(), records),
		Trace:   st,
	}, nil
}

// loadEnvironment reads the catalog and workload and sets up the calibration
// provider. The returned cleanup closes the calibration cache, if any.
func loadEnvironment() (environment, func(), error) {
	noop := func() {}
	if devicesPath == "" || workloadPath == "" {
		return environment{}, noop, fmt.Errorf("--devices and --workload are required")
	}
	catalog, err := device.LoadCatalog(devicesPath)
	if err != nil {
		return environment{}, noop, err
	}
	spec, err := workload.LoadSpec(workloadPath)
	if err != nil {
		return environment{}, noop, err
	}
	tasks, err := spec.Build()
	if err != nil {
		return environment{}, noop, fmt.Errorf("building workload: %w", err)
	}

	ids := nodeIDs
	if len(ids) == 0 {
		ids = catalog.Names()
	}
	for _, id := range ids {
		if _, ok := catalog.Device(id); !ok {
			return environment{}, noop, fmt.Errorf("node %q is not in the device catalog", id)
		}
	}

	env := environment{catalog: catalog, provider: catalog, nodeIDs: ids, tasks: tasks}
	if calibrationCache == "" {
		return env, noop, nil
	}
	cache, err := openCalibrationCache(calibrationCache, catalog)
	if err != nil {
		return environment{}, noop, err
	}
	env.provider = cache
	return env, func() { _ = cache.Close() }, nil
}

// closingProvider is a calibration provider holding a connection.
type closingProvider interface {
	calibration.Provider
	Close() error
}

// openCalibrationCache puts a Redis cache in front of upstream.
var openCalibrationCache = func(addr string, upstream calibration.Provider) (closingProvider, error) {
	return calibration.NewRedisProvider(addr, os.Getenv("QCLOUD_REDIS_PASSWORD"), 0, upstream, calibrationTTL)
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runCmd executes one simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one dispatch policy over a workload",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if err := runSimulation(cmd.Context()); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// runSimulation is the body of the run command. The calibration cache is
// closed before it returns, on every path.
func runSimulation(ctx context.Context) error {
	cfg, err := flagConfig()
	if err != nil {
		return err
	}
	env, cleanup, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer cleanup()

	logrus.Infof("Starting simulation: policy=%s, %d tasks on %d nodes, shots=%d", cfg.Policy, len(env.tasks), len(env.nodeIDs), cfg.Shots)
	out, err := simulate(ctx, env, cfg)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	out.Metrics.Print(os.Stdout)
	if out.Trace != nil {
		printTraceSummary(out.Trace)
	}

	if csvPath != "" {
		if err := results.WriteCSVFile(csvPath, out.Records); err != nil {
			return err
		}
		logrus.Infof("Saved results to %s", csvPath)
	}
	if metricsOut != "" {
		exporter := results.NewPromExporter()
		exporter.Observe(out.Metrics.Policy, out.Records)
		if err := exporter.WriteTextfile(metricsOut); err != nil {
			return err
		}
	}
	if resultsDB != "" {
		id := runID
		if id == "" {
			id = fmt.Sprintf("%s-%d", out.Metrics.Policy, time.Now().Unix())
		}
		if err := storeRun(ctx, id, out); err != nil {
			return err
		}
	}
	return nil
}

// compareCmd runs several policies over the same workload on fresh nodes
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Simulate several dispatch policies over the same workload and compare them",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if err := runComparison(cmd.Context()); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// runComparison is the body of the compare command.
func runComparison(ctx context.Context) error {
	base, err := flagConfig()
	if err != nil {
		return err
	}
	env, cleanup, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer cleanup()

	policies := comparePolicies
	if len(policies) == 0 {
		policies = sim.ValidPolicyNames()
	}
	runs, err := compare(ctx, env, base, policies)
	if err != nil {
		return err
	}

	var exporter *results.PromExporter
	if metricsOut != "" {
		exporter = results.NewPromExporter()
	}
	summary := make([]sim.RunMetrics, len(runs))
	for i, out := range runs {
		summary[i] = out.Metrics
		if exporter != nil {
			exporter.Observe(out.Metrics.Policy, out.Records)
		}
		if resultsDB != "" {
			id := fmt.Sprintf("%s-%s", runID, out.Metrics.Policy)
			if runID == "" {
				id = fmt.Sprintf("%s-%d", out.Metrics.Policy, time.Now().Unix())
			}
			if err := storeRun(ctx, id, out); err != nil {
				return err
			}
		}
	}
	sim.PrintComparison(os.Stdout, summary)
	if exporter != nil {
		return exporter.WriteTextfile(metricsOut)
	}
	return nil
}

// compare runs base once per policy, each on fresh nodes.
func compare(ctx context.Context, env environment, base runConfig, policies []string) ([]runOutcome, error) {
	runs := make([]runOutcome, 0, len(policies))
	for _, name := range policies {
		cfg := base
		cfg.Policy = name
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		out, err := simulate(ctx, env, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		runs = append(runs, out)
	}
	return runs, nil
}

func storeRun(ctx context.Context, id string, out runOutcome) error {
	sink, err := results.NewPostgresSink(ctx, resultsDB)
	if err != nil {
		return err
	}
	defer sink.Close()
	if err := sink.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("creating results schema: %w", err)
	}
	return sink.WriteRun(ctx, id, out.Metrics.Policy, out.Records)
}

func printTraceSummary(st *trace.SimulationTrace) {
	s := trace.Summarize(st)
	fmt.Println("=== Decision Trace ===")
	fmt.Printf("Decisions   : %d (%d unassigned)\n", s.TotalDecisions, s.UnassignedCount)
	fmt.Printf("Targets     : %d %v\n", s.UniqueTargets, s.TargetDistribution)
	fmt.Printf("Mean Regret : %.6g (max %.6g)\n", s.MeanRegret, s.MaxRegret)
	if st.Config.Level == trace.TraceLevelFull {
		fmt.Printf("Failed      : %d\n", s.FailedCount)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(c *cobra.Command) {
	c.Flags().StringVar(&devicesPath, "devices", "", "Device catalog YAML")
	c.Flags().StringVar(&workloadPath, "workload", "", "Workload spec YAML")
	c.Flags().StringVar(&policyConfigPath, "policy-config", "", "Policy bundle YAML; values set there override flags")
	c.Flags().StringSliceVar(&nodeIDs, "nodes", nil, "Comma-separated catalog devices to use as nodes (default: all)")
	c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	c.Flags().IntVar(&shots, "shots", cost.DefaultShots, "Shots per task")
	c.Flags().Float64Var(&fanEpsilon, "fan-epsilon", sim.DefaultFidelityEpsilon, "Epsilon in the fidelity-aware score fidelity/(exec_time+epsilon)")
	c.Flags().Float64Var(&compileRate, "compile-rate", 0, "Compile calls per wall-clock second (0 = unlimited)")
	c.Flags().IntVar(&compileBurst, "compile-burst", 1, "Compile call burst size")
	c.Flags().StringVar(&traceLevel, "trace", "none", "Decision trace level (none, decisions, full)")
	c.Flags().IntVar(&counterfactualK, "counterfactual-k", 3, "Ranked candidates kept per traced decision")

	c.Flags().StringVar(&calibrationCache, "calibration-cache", "", "Redis address caching calibration tables (empty = no cache)")
	c.Flags().DurationVar(&calibrationTTL, "calibration-ttl", time.Hour, "Calibration cache entry lifetime")

	c.Flags().StringVar(&metricsOut, "metrics-out", "", "Write run metrics as a Prometheus textfile")
	c.Flags().StringVar(&resultsDB, "results-db", "", "Postgres DSN to store records in")
	c.Flags().StringVar(&runID, "run-id", "", "Run identifier in the results database (default: policy and timestamp)")
}

// init sets up CLI flags and subcommands
func init() {
	addCommonFlags(runCmd)
	runCmd.Flags().StringVar(&policyName, "policy", sim.PolicyRoundRobin, fmt.Sprintf("Dispatch policy %v", sim.ValidPolicyNames()))
	runCmd.Flags().StringVar(&csvPath, "csv", "", "Write one CSV row per task")

	addCommonFlags(compareCmd)
	compareCmd.Flags().StringSliceVar(&comparePolicies, "policies", nil, "Comma-separated policies to compare (default: all)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
}
