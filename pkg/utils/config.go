package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oxygene76/mercurana/pkg/integrator/eos"
)

// Config represents the simulation configuration
type Config struct {
	Integrator IntegratorConfig `yaml:"integrator" mapstructure:"integrator"`
	Scenario   ScenarioConfig   `yaml:"scenario" mapstructure:"scenario"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
}

// IntegratorConfig contains the shell-integrator parameters
type IntegratorConfig struct {
	Nmaxshells int     `yaml:"nmaxshells" mapstructure:"nmaxshells"`
	N0         int     `yaml:"n0" mapstructure:"n0"`
	N1         int     `yaml:"n1" mapstructure:"n1"`
	Kappa      float64 `yaml:"kappa" mapstructure:"kappa"`
	Alpha      float64 `yaml:"alpha" mapstructure:"alpha"`
	Gm0r0      float64 `yaml:"gm0r0" mapstructure:"gm0r0"`
	Phi0       string  `yaml:"phi0" mapstructure:"phi0"`
	Phi1       string  `yaml:"phi1" mapstructure:"phi1"`
	SafeMode   bool    `yaml:"safe_mode" mapstructure:"safe_mode"`
	NDominant  int     `yaml:"n_dominant" mapstructure:"n_dominant"`
	Collision  string  `yaml:"collision" mapstructure:"collision"`
	Resolver   string  `yaml:"resolver" mapstructure:"resolver"`
}

// ScenarioConfig selects the initial conditions
type ScenarioConfig struct {
	Preset       string  `yaml:"preset" mapstructure:"preset"`
	ParticleFile string  `yaml:"particle_file" mapstructure:"particle_file"`
	Dt           float64 `yaml:"dt" mapstructure:"dt"`
	Steps        int     `yaml:"steps" mapstructure:"steps"`
}

// OutputConfig controls snapshot output
type OutputConfig struct {
	SnapshotFile string `yaml:"snapshot_file" mapstructure:"snapshot_file"`
	SnapEvery    int    `yaml:"snap_every" mapstructure:"snap_every"`
	LogLevel     string `yaml:"log_level" mapstructure:"log_level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Integrator: IntegratorConfig{
			Nmaxshells: 10,
			N0:         2,
			N1:         0,
			Kappa:      1e-3,
			Alpha:      0.5,
			Gm0r0:      0,
			Phi0:       "LF",
			Phi1:       "LF",
			SafeMode:   true,
			NDominant:  0,
			Collision:  "none",
			Resolver:   "merge",
		},
		Scenario: ScenarioConfig{
			Preset: "outer_solar_system",
			Dt:     10.0, // days
			Steps:  10000,
		},
		Output: OutputConfig{
			SnapshotFile: "snapshots.jsonl",
			SnapEvery:    100,
			LogLevel:     "info",
		},
	}
}

// LoadConfig loads configuration from file, environment and bound flags,
// falling back to defaults for everything unset.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	homeDir, _ := os.UserHomeDir()
	viper.AddConfigPath(filepath.Join(homeDir, ".mercurana"))
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	viper.SetEnvPrefix("MERCURANA")
	viper.AutomaticEnv()

	setDefaults(DefaultConfig())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults(c *Config) {
	viper.SetDefault("integrator.nmaxshells", c.Integrator.Nmaxshells)
	viper.SetDefault("integrator.n0", c.Integrator.N0)
	viper.SetDefault("integrator.n1", c.Integrator.N1)
	viper.SetDefault("integrator.kappa", c.Integrator.Kappa)
	viper.SetDefault("integrator.alpha", c.Integrator.Alpha)
	viper.SetDefault("integrator.gm0r0", c.Integrator.Gm0r0)
	viper.SetDefault("integrator.phi0", c.Integrator.Phi0)
	viper.SetDefault("integrator.phi1", c.Integrator.Phi1)
	viper.SetDefault("integrator.safe_mode", c.Integrator.SafeMode)
	viper.SetDefault("integrator.n_dominant", c.Integrator.NDominant)
	viper.SetDefault("integrator.collision", c.Integrator.Collision)
	viper.SetDefault("integrator.resolver", c.Integrator.Resolver)
	viper.SetDefault("scenario.preset", c.Scenario.Preset)
	viper.SetDefault("scenario.particle_file", c.Scenario.ParticleFile)
	viper.SetDefault("scenario.dt", c.Scenario.Dt)
	viper.SetDefault("scenario.steps", c.Scenario.Steps)
	viper.SetDefault("output.snapshot_file", c.Output.SnapshotFile)
	viper.SetDefault("output.snap_every", c.Output.SnapEvery)
	viper.SetDefault("output.log_level", c.Output.LogLevel)
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	homeDir, _ := os.UserHomeDir()
	configDir := filepath.Join(homeDir, ".mercurana")
	configFile := filepath.Join(configDir, "config.yaml")

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	ic := config.Integrator
	if ic.Nmaxshells <= 0 {
		return fmt.Errorf("nmaxshells must be larger than 0")
	}
	if ic.Nmaxshells > 1 && ic.Kappa <= 0 {
		return fmt.Errorf("kappa must be positive when nmaxshells > 1")
	}
	if _, err := eos.Parse(ic.Phi0); err != nil {
		return fmt.Errorf("phi0: %w", err)
	}
	if _, err := eos.Parse(ic.Phi1); err != nil {
		return fmt.Errorf("phi1: %w", err)
	}
	switch ic.Collision {
	case "", "none", "direct":
	default:
		return fmt.Errorf("invalid collision mode: %s", ic.Collision)
	}
	switch ic.Resolver {
	case "", "merge", "drop":
	default:
		return fmt.Errorf("invalid collision resolver: %s", ic.Resolver)
	}

	if config.Scenario.Dt == 0 {
		return fmt.Errorf("scenario timestep cannot be zero")
	}
	if config.Scenario.Steps <= 0 {
		return fmt.Errorf("scenario steps must be positive")
	}
	if config.Scenario.Preset == "" && config.Scenario.ParticleFile == "" {
		return fmt.Errorf("either a scenario preset or a particle file is required")
	}

	if config.Output.SnapEvery <= 0 {
		return fmt.Errorf("snap_every must be positive")
	}
	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".mercurana", "config.yaml"), nil
}
