package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv              string        `env:"APP_ENV" envDefault:"production"`
	Port                string        `env:"PORT" envDefault:"8080"`
	DBPath              string        `env:"DB_PATH" envDefault:":memory:"`
	PresetsFile         string        `env:"PRESETS_FILE"`
	CurrencyGlyph       string        `env:"CURRENCY_GLYPH" envDefault:"₹"`
	Passcode            string        `env:"CALC_PASSCODE"`
	SessionSecret       string        `env:"SESSION_SECRET"`
	ExportTTL           time.Duration `env:"EXPORT_TTL" envDefault:"2m"`
	ExportSweepSchedule string        `env:"EXPORT_SWEEP_SCHEDULE" envDefault:"@every 30s"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the dotenv file, if present, and the process environment.
// Values already set in the environment win over the file.
func Load() (Config, error) {
	return LoadFile(defaultEnvFile)
}

// LoadFile is Load with an explicit dotenv path.
func LoadFile(envFile string) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.ExportTTL <= 0 {
		return errors.New("EXPORT_TTL must be positive")
	}
	if c.Passcode != "" && c.SessionSecret == "" {
		return errors.New("SESSION_SECRET must be set when CALC_PASSCODE is set")
	}
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

// AuthEnabled reports whether an operator passcode guards the calculator.
func (c Config) AuthEnabled() bool {
	return c.Passcode != ""
}
