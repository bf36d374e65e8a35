package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Extranet  ExtranetConfig  `yaml:"extranet" mapstructure:"extranet"`
	Master    MasterConfig    `yaml:"master" mapstructure:"master"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ExtranetConfig describes the declaration export layout.
type ExtranetConfig struct {
	SkipRows int    `yaml:"skip_rows" mapstructure:"skip_rows"`
	TempDir  string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// MasterConfig locates the producer master sheet.
type MasterConfig struct {
	Sheet string `yaml:"sheet" mapstructure:"sheet"`
}

// RegistryConfig configures the eRVC filter.
type RegistryConfig struct {
	StatusValue string `yaml:"status_value" mapstructure:"status_value"`
}

// ReconcileConfig tunes matching and aggregation.
type ReconcileConfig struct {
	WeightThresholdPct float64  `yaml:"weight_threshold_pct" mapstructure:"weight_threshold_pct"`
	ExcludedZones      []string `yaml:"excluded_zones" mapstructure:"excluded_zones"`
}

// OutputConfig configures where reports are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECONCILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("extranet.skip_rows", 6)
	v.SetDefault("extranet.temp_dir", "")
	v.SetDefault("master.sheet", "CAT")
	v.SetDefault("registry.status_value", "CV")
	v.SetDefault("reconcile.weight_threshold_pct", 15)
	v.SetDefault("reconcile.excluded_zones", []string{"Almendralejo", "Cariñena", "Requena"})
	v.SetDefault("output.dir", ".")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. Mode is the command name.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Extranet.SkipRows < 0 {
		errs = append(errs, "extranet.skip_rows must be >= 0")
	}

	switch mode {
	case "verify":
	case "check", "match", "run":
		if c.Master.Sheet == "" {
			errs = append(errs, "master.sheet is required")
		}
		if c.Registry.StatusValue == "" {
			errs = append(errs, "registry.status_value is required")
		}
		if c.Reconcile.WeightThresholdPct < 0 {
			errs = append(errs, "reconcile.weight_threshold_pct must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
