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
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	PageSpeed     PageSpeedConfig     `yaml:"pagespeed" mapstructure:"pagespeed"`
	SearchConsole SearchConsoleConfig `yaml:"searchconsole" mapstructure:"searchconsole"`
	Audit         AuditConfig         `yaml:"audit" mapstructure:"audit"`
	Schedule      ScheduleConfig      `yaml:"schedule" mapstructure:"schedule"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PageSpeedConfig holds performance measurement API settings.
type PageSpeedConfig struct {
	Key     string  `yaml:"key" mapstructure:"key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// SearchConsoleConfig holds URL inspection API settings. SiteURL is the
// verified site property inspections run against.
type SearchConsoleConfig struct {
	Token   string  `yaml:"token" mapstructure:"token"`
	SiteURL string  `yaml:"site_url" mapstructure:"site_url"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// AuditConfig configures the audit orchestrator.
type AuditConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	DelaySecs int    `yaml:"delay_secs" mapstructure:"delay_secs"`
}

// ScheduleConfig holds the cron triggers for scheduled audits.
type ScheduleConfig struct {
	Nightly  string `yaml:"nightly" mapstructure:"nightly"`
	Weekly   string `yaml:"weekly" mapstructure:"weekly"`
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("SEOAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("pagespeed.base_url", "https://www.googleapis.com/pagespeedonline/v5")
	v.SetDefault("pagespeed.rps", 1)
	v.SetDefault("searchconsole.base_url", "https://searchconsole.googleapis.com/v1")
	v.SetDefault("searchconsole.site_url", "https://www.brightwayclinics.com/")
	v.SetDefault("searchconsole.rps", 2)
	v.SetDefault("audit.base_url", "https://www.brightwayclinics.com")
	v.SetDefault("audit.delay_secs", 2)
	v.SetDefault("schedule.nightly", "0 3 * * *")
	v.SetDefault("schedule.weekly", "0 4 * * 0")
	v.SetDefault("schedule.timezone", "America/New_York")
	v.SetDefault("server.port", 8080)
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
