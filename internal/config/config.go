package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Calc      CalcConfig      `yaml:"calc" mapstructure:"calc"`
	Reference ReferenceConfig `yaml:"reference" mapstructure:"reference"`
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Tracs     TracsConfig     `yaml:"tracs" mapstructure:"tracs"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CalcConfig configures the lane traffic projection.
type CalcConfig struct {
	CurrentYear     int     `yaml:"current_year" mapstructure:"current_year"`
	DesignLifeYears int     `yaml:"design_life_years" mapstructure:"design_life_years"`
	GrowthRate      float64 `yaml:"growth_rate" mapstructure:"growth_rate"`
	HGVFloorPercent float64 `yaml:"hgv_floor_percent" mapstructure:"hgv_floor_percent"`
	Concurrency     int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// ReferenceConfig configures PSV reference table lookups.
type ReferenceConfig struct {
	Strategy string `yaml:"strategy" mapstructure:"strategy"` // "exact" or "band"
}

// InputConfig configures how uploaded tables are decoded.
type InputConfig struct {
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
	Sheet    string `yaml:"sheet" mapstructure:"sheet"`
}

// TracsConfig holds the failing-section thresholds.
type TracsConfig struct {
	MaxRutting float64 `yaml:"max_rutting" mapstructure:"max_rutting"`
	MinTexture float64 `yaml:"min_texture" mapstructure:"min_texture"`
}

// StoreConfig configures the optional run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // none, sqlite, postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the web front-end.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxUploadMB int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("PAVEMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("calc.current_year", 2025)
	v.SetDefault("calc.design_life_years", 20)
	v.SetDefault("calc.growth_rate", 0.0154)
	v.SetDefault("calc.hgv_floor_percent", 11.0)
	v.SetDefault("calc.concurrency", 4)
	v.SetDefault("reference.strategy", "band")
	v.SetDefault("input.encoding", "utf-8")
	v.SetDefault("input.sheet", "")
	v.SetDefault("tracs.max_rutting", 10.0)
	v.SetDefault("tracs.min_texture", 0.8)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command mode depends on. Modes are
// "psv", "tracs", "serve" and "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Reference.Strategy {
	case "exact", "band":
	default:
		errs = append(errs, fmt.Sprintf("reference.strategy must be exact or band, got %q", c.Reference.Strategy))
	}
	if c.Calc.Concurrency < 1 || c.Calc.Concurrency > 64 {
		errs = append(errs, "calc.concurrency must be between 1 and 64")
	}
	if c.Calc.GrowthRate < 0 || c.Calc.GrowthRate >= 1 {
		errs = append(errs, "calc.growth_rate must be in [0, 1)")
	}
	if c.Calc.DesignLifeYears < 0 {
		errs = append(errs, "calc.design_life_years must be >= 0")
	}

	switch c.Store.Driver {
	case "none", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be none, sqlite or postgres, got %q", c.Store.Driver))
	}

	switch mode {
	case "psv", "tracs":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
	case "runs":
		if c.Store.Driver == "none" {
			errs = append(errs, "store.driver must be sqlite or postgres to read run history")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid %s configuration:\n  %s", mode, strings.Join(errs, "\n  "))
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
