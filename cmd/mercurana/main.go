package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/oxygene76/mercurana/internal/types"
	"github.com/oxygene76/mercurana/pkg/analysis"
	"github.com/oxygene76/mercurana/pkg/astronomy/nbody"
	"github.com/oxygene76/mercurana/pkg/astronomy/scenario"
	"github.com/oxygene76/mercurana/pkg/integrator/eos"
	"github.com/oxygene76/mercurana/pkg/integrator/mercurana"
	"github.com/oxygene76/mercurana/pkg/utils"
)

const (
	appName = "mercurana"
	version = "v0.3.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Adaptive symplectic multi-step N-body integrator",
		Long: `mercurana advances gravitational N-body systems with a recursive
symplectic splitting that subdivides the timestep only among particles in
close encounters.`,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", appName, version)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.SaveConfig(utils.DefaultConfig()); err != nil {
				return err
			}
			path, _ := utils.GetConfigPath()
			fmt.Println("Configuration saved to:", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", *cfg)
			return nil
		},
	})
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an integration",
		RunE:  runSimulation,
	}
	defaults := utils.DefaultConfig()
	flags := cmd.Flags()
	flags.String("preset", defaults.Scenario.Preset, "scenario preset (two_body, outer_solar_system)")
	flags.String("particles", "", "JSON particle file")
	flags.Float64("dt", defaults.Scenario.Dt, "global timestep in days")
	flags.Int("steps", defaults.Scenario.Steps, "number of global steps")
	flags.String("out", defaults.Output.SnapshotFile, "snapshot output file (JSONL)")
	_ = viper.BindPFlag("scenario.preset", flags.Lookup("preset"))
	_ = viper.BindPFlag("scenario.particle_file", flags.Lookup("particles"))
	_ = viper.BindPFlag("scenario.dt", flags.Lookup("dt"))
	_ = viper.BindPFlag("scenario.steps", flags.Lookup("steps"))
	_ = viper.BindPFlag("output.snapshot_file", flags.Lookup("out"))
	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := utils.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Output.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	sys, err := scenario.Build(cfg.Scenario.Preset, cfg.Scenario.ParticleFile)
	if err != nil {
		return err
	}
	sys.Dt = cfg.Scenario.Dt

	im, err := buildIntegrator(sys, cfg, logger)
	if err != nil {
		return err
	}

	// SIGINT turns into the integrator's cancellation point.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("interrupt received, halting")
		im.Halt()
	}()

	sink, err := nbody.NewJSONLSnapshotWriter(cfg.Output.SnapshotFile)
	if err != nil {
		return err
	}
	defer sink.Close()

	start := time.Now()
	steps := cfg.Scenario.Steps
	if err := sink.OnStart(steps, cfg.Output.SnapEvery); err != nil {
		return err
	}

	history := []nbody.Snapshot{snapshotOf(sys)}
	if err := sink.OnSnapshot(history[0], diagOf(sys, im)); err != nil {
		return err
	}

	done := 0
	for step := 0; step < steps; step++ {
		if err := im.Part1(); err != nil {
			return fmt.Errorf("configuration rejected: %w", err)
		}
		im.Part2()
		done++
		if (step+1)%cfg.Output.SnapEvery == 0 || step == steps-1 {
			im.Synchronize()
			snap := snapshotOf(sys)
			history = append(history, snap)
			if err := sink.OnSnapshot(snap, diagOf(sys, im)); err != nil {
				return err
			}
		}
	}
	im.Synchronize()
	if err := sink.OnEnd(sys.Time); err != nil {
		return err
	}

	report, err := analysis.EnergyReport(sys.G, history)
	if err != nil {
		logger.Warn("energy report unavailable", zap.Error(err))
	} else {
		logger.Info("energy conservation",
			zap.Float64("max_rel_error", report.MaxError),
			zap.Float64("mean_rel_error", report.MeanError))
	}

	var drifts []types.ElementDrift
	if sys.N() > 0 && sys.Particles[0].Mass > 0 {
		mu := sys.G * sys.Particles[0].Mass
		drifts, err = analysis.ElementsReport(mu, history)
		if err != nil {
			logger.Warn("element drift report unavailable", zap.Error(err))
		}
	}

	result := types.RunResult{
		ID:       fmt.Sprintf("run_%d", start.Unix()),
		Status:   "completed",
		Steps:    done,
		TimeDays: sys.Time,
		Energy:   report,
		Elements: drifts,
		Metadata: types.RunMetadata{
			Scenario:       cfg.Scenario.Preset,
			OutputFile:     cfg.Output.SnapshotFile,
			Scheme:         cfg.Integrator.Phi0,
			InnerScheme:    cfg.Integrator.Phi1,
			Nmaxshells:     cfg.Integrator.Nmaxshells,
			NmaxshellsUsed: im.NmaxshellsUsed,
			Kappa:          cfg.Integrator.Kappa,
			Dt:             cfg.Scenario.Dt,
			Version:        version,
		},
		Timestamp: start,
		Duration:  time.Since(start),
	}
	out, err := result.MarshalPretty()
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func buildIntegrator(sys *nbody.System, cfg *utils.Config, logger *zap.Logger) (*mercurana.Integrator, error) {
	im := mercurana.New(sys)
	im.SetLogger(logger)

	ic := cfg.Integrator
	phi0, err := eos.Parse(ic.Phi0)
	if err != nil {
		return nil, err
	}
	phi1, err := eos.Parse(ic.Phi1)
	if err != nil {
		return nil, err
	}

	im.Nmaxshells = ic.Nmaxshells
	im.N0 = ic.N0
	im.N1 = ic.N1
	im.Kappa = ic.Kappa
	im.Alpha = ic.Alpha
	im.Gm0r0 = ic.Gm0r0
	im.Phi0 = phi0
	im.Phi1 = phi1
	im.SafeMode = ic.SafeMode
	im.NDominant = ic.NDominant
	im.RecalculateDcrit = true

	if ic.Collision == "direct" {
		im.Collision = mercurana.CollisionDirect
		switch ic.Resolver {
		case "", "merge":
			im.ResolveCollisions = mergeResolver
		case "drop":
			im.ResolveCollisions = dropResolver
		}
	}
	return im, nil
}

// mergeResolver merges the first colliding pair, conserving mass and
// momentum. The other pairs of the batch are not merged here; the particle
// count changed, so the predictor re-runs and reports any remaining overlaps.
func mergeResolver(sys *nbody.System, pairs []mercurana.Collision) error {
	if len(pairs) > 0 {
		sys.Merge(pairs[0].P1, pairs[0].P2)
	}
	return nil
}

// dropResolver removes the lighter body of the first colliding pair.
func dropResolver(sys *nbody.System, pairs []mercurana.Collision) error {
	if len(pairs) == 0 {
		return nil
	}
	i, j := pairs[0].P1, pairs[0].P2
	if sys.Particles[i].Mass < sys.Particles[j].Mass {
		sys.Remove(i)
	} else {
		sys.Remove(j)
	}
	return nil
}

func snapshotOf(sys *nbody.System) nbody.Snapshot {
	particles := make([]nbody.Particle, len(sys.Particles))
	copy(particles, sys.Particles)
	return nbody.Snapshot{Time: sys.Time, Particles: particles}
}

func diagOf(sys *nbody.System, im *mercurana.Integrator) nbody.StepDiagnostics {
	return nbody.StepDiagnostics{
		Energy:     sys.TotalEnergy(),
		ShellsUsed: im.NmaxshellsUsed,
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
