package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Edgar    EdgarConfig    `yaml:"edgar" mapstructure:"edgar"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Resolve  ResolveConfig  `yaml:"resolve" mapstructure:"resolve"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// EdgarConfig configures access to SEC EDGAR.
type EdgarConfig struct {
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	SearchURL        string `yaml:"search_url" mapstructure:"search_url"`
	ArchivesURL      string `yaml:"archives_url" mapstructure:"archives_url"`
	MinIntervalMS    int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRedirects     int    `yaml:"max_redirects" mapstructure:"max_redirects"`
	RetryAttempts    int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffSecs int    `yaml:"retry_backoff_secs" mapstructure:"retry_backoff_secs"`
}

// MinInterval is the pause enforced between any two outbound requests.
func (c EdgarConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalMS) * time.Millisecond
}

// Timeout bounds a single request.
func (c EdgarConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetryBackoff is the fixed wait between rate-limited attempts.
func (c EdgarConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSecs) * time.Second
}

// SearchConfig configures the search and fetch phases.
type SearchConfig struct {
	BatchSize  int `yaml:"batch_size" mapstructure:"batch_size"`
	MaxFilings int `yaml:"max_filings" mapstructure:"max_filings"`
}

// StoreConfig configures the document store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ClassifyConfig configures the validation engine.
type ClassifyConfig struct {
	RulesFile       string  `yaml:"rules_file" mapstructure:"rules_file"`
	ReviewThreshold float64 `yaml:"review_threshold" mapstructure:"review_threshold"`
}

// ResolveConfig configures name normalization.
type ResolveConfig struct {
	// Suffixes replaces the built-in corporate suffix vocabulary when set.
	Suffixes []string `yaml:"suffixes" mapstructure:"suffixes"`
}

// ServerConfig configures the read-only status API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the settings a command mode needs. Modes: "edgar" for
// commands that call SEC, "store" for offline commands, "serve" for the API.
// All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "edgar":
		if strings.TrimSpace(c.Edgar.UserAgent) == "" {
			errs = append(errs, "edgar.user_agent is required")
		}
		if c.Edgar.RetryAttempts < 1 {
			errs = append(errs, "edgar.retry_attempts must be >= 1")
		}
		if c.Search.BatchSize < 1 {
			errs = append(errs, "search.batch_size must be >= 1")
		}
		if c.Search.MaxFilings < 1 {
			errs = append(errs, "search.max_filings must be >= 1")
		}
	case "store":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "file", "sqlite":
		if c.Store.Dir == "" {
			errs = append(errs, "store.dir is required for driver "+c.Store.Driver)
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for driver postgres")
		}
	default:
		errs = append(errs, "store.driver must be one of file, sqlite, postgres")
	}

	if c.Classify.ReviewThreshold < 0 {
		errs = append(errs, "classify.review_threshold must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FORMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("edgar.user_agent", "Sells Advisors blake@sellsadvisors.com")
	v.SetDefault("edgar.search_url", "https://efts.sec.gov/LATEST/search-index")
	v.SetDefault("edgar.archives_url", "https://www.sec.gov/Archives/edgar/data")
	v.SetDefault("edgar.min_interval_ms", 200)
	v.SetDefault("edgar.timeout_secs", 30)
	v.SetDefault("edgar.max_redirects", 5)
	v.SetDefault("edgar.retry_attempts", 3)
	v.SetDefault("edgar.retry_backoff_secs", 5)
	v.SetDefault("search.batch_size", 20)
	v.SetDefault("search.max_filings", 10)
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dir", "data")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("classify.rules_file", "")
	v.SetDefault("classify.review_threshold", 0.10)
	v.SetDefault("resolve.suffixes", []string{})
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
