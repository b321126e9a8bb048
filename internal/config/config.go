package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/devaloi/toastbox/internal/logger"
	"github.com/devaloi/toastbox/internal/toast"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into Config.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	DBPath          string        `env:"DB_PATH" envDefault:"toastbox.db"`
	MaxProviders    int           `env:"MAX_PROVIDERS" envDefault:"100"`
	MaxSnackBar     int           `env:"MAX_SNACK_BAR" envDefault:"3"`
	DefaultDuration time.Duration `env:"DEFAULT_DURATION" envDefault:"1s"`
	CapacityPolicy  string        `env:"CAPACITY_POLICY" envDefault:"drop-oldest"`
	HistoryLimit    int           `env:"HISTORY_LIMIT" envDefault:"50"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	TraceStdout     bool          `env:"TRACE_STDOUT" envDefault:"false"`
}

// Load reads configuration from environment variables. Values in the given
// dotenv files are applied first without overriding the real environment;
// with no files, a ./.env file is used when present.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		// The default .env file is optional.
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.MaxProviders < 1 {
		errs = append(errs, fmt.Errorf("MAX_PROVIDERS must be positive, got %d", c.MaxProviders))
	}
	if c.MaxSnackBar < 1 {
		errs = append(errs, fmt.Errorf("MAX_SNACK_BAR must be positive, got %d", c.MaxSnackBar))
	}
	if c.DefaultDuration <= 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_DURATION must be positive, got %s", c.DefaultDuration))
	}
	if c.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit))
	}
	if _, err := toast.ParsePolicy(c.CapacityPolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logger.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// Toast returns the per-provider store configuration.
func (c Config) Toast() toast.Config {
	policy, _ := toast.ParsePolicy(c.CapacityPolicy)
	return toast.Config{
		MaxSnackBar:     c.MaxSnackBar,
		DefaultDuration: c.DefaultDuration,
		Policy:          policy,
	}
}
