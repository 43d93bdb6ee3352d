package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/simulation"
	"claimsim/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database   DatabaseConfig
	Data       DataConfig
	Window     WindowConfig
	Simulation SimulationConfig
	Model      ModelConfig
	Server     ServerConfig
	Paths      PathConfig
}

// DatabaseConfig holds database connection settings. An empty URL runs
// without persistence.
type DatabaseConfig struct {
	URL     string
	SSLMode string
	Timeout time.Duration
}

// DataConfig names the claims input
type DataConfig struct {
	ClaimsFile string
}

// WindowConfig selects training and prediction rows
type WindowConfig struct {
	DevelopmentAge int
	PredictionDate string
	TrainingFrom   string
	TrainingTo     string
}

// SimulationConfig holds the Monte Carlo settings
type SimulationConfig struct {
	Trials  int
	Seed    uint64
	Workers int
}

// ModelConfig holds fitting settings
type ModelConfig struct {
	CVFolds   int
	CVRepeats int
	GAMKnots  int
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	APIPort string
	GinMode string
}

// PathConfig holds output paths
type PathConfig struct {
	ReportPath string
	ExportPath string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
			Timeout: getEnvDurationOrDefault("DB_TIMEOUT", 10*time.Second),
		},
		Data: DataConfig{
			ClaimsFile: getEnvOrDefault("CLAIMS_FILE", ""),
		},
		Window: WindowConfig{
			DevelopmentAge: getEnvIntOrDefault("DEVELOPMENT_AGE", 12),
			PredictionDate: getEnvOrDefault("PREDICTION_DATE", ""),
			TrainingFrom:   getEnvOrDefault("TRAINING_FROM", ""),
			TrainingTo:     getEnvOrDefault("TRAINING_TO", ""),
		},
		Simulation: SimulationConfig{
			Trials:  getEnvIntOrDefault("SIM_TRIALS", 2000),
			Seed:    getEnvUintOrDefault("SIM_SEED", 1234),
			Workers: getEnvIntOrDefault("SIM_WORKERS", runtime.NumCPU()),
		},
		Model: ModelConfig{
			CVFolds:   getEnvIntOrDefault("CV_FOLDS", 5),
			CVRepeats: getEnvIntOrDefault("CV_REPEATS", 3),
			GAMKnots:  getEnvIntOrDefault("GAM_KNOTS", 8),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			APIPort: getEnvOrDefault("API_PORT", "8081"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Paths: PathConfig{
			ReportPath: getEnvOrDefault("REPORT_PATH", "report.html"),
			ExportPath: getEnvOrDefault("EXPORT_PATH", "simulation.xlsx"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Validate checks ranges and date formats
func (c *Config) Validate() error {
	if c.Window.DevelopmentAge <= 0 {
		return errors.ConfigInvalid("DEVELOPMENT_AGE must be positive")
	}
	for name, v := range map[string]string{
		"PREDICTION_DATE": c.Window.PredictionDate,
		"TRAINING_FROM":   c.Window.TrainingFrom,
		"TRAINING_TO":     c.Window.TrainingTo,
	} {
		if v == "" {
			continue
		}
		if _, err := core.ParseEvalDate(v); err != nil {
			return errors.ConfigInvalid(name + " is not a date: " + v)
		}
	}
	if c.Simulation.Trials <= 0 {
		return errors.ConfigInvalid("SIM_TRIALS must be positive")
	}
	if c.Simulation.Workers < 0 {
		return errors.ConfigInvalid("SIM_WORKERS cannot be negative")
	}
	if c.Model.CVFolds < 2 {
		return errors.ConfigInvalid("CV_FOLDS must be at least 2")
	}
	if c.Model.CVRepeats < 1 {
		return errors.ConfigInvalid("CV_REPEATS must be at least 1")
	}
	if c.Model.GAMKnots < 4 {
		return errors.ConfigInvalid("GAM_KNOTS must be at least 4")
	}
	return nil
}

// ClaimWindow builds the data preparation window. PREDICTION_DATE is
// required here even though Load accepts it empty, since only the commands
// that fit models need it.
func (c *Config) ClaimWindow() (claims.Window, error) {
	w := claims.Window{DevelopmentAge: c.Window.DevelopmentAge}
	if c.Window.PredictionDate == "" {
		return w, errors.ConfigInvalid("PREDICTION_DATE is required")
	}
	var err error
	if w.PredictionDate, err = core.ParseEvalDate(c.Window.PredictionDate); err != nil {
		return w, errors.Wrap(err, "PREDICTION_DATE")
	}
	if c.Window.TrainingFrom != "" {
		if w.TrainingFrom, err = core.ParseEvalDate(c.Window.TrainingFrom); err != nil {
			return w, errors.Wrap(err, "TRAINING_FROM")
		}
	}
	if c.Window.TrainingTo != "" {
		if w.TrainingTo, err = core.ParseEvalDate(c.Window.TrainingTo); err != nil {
			return w, errors.Wrap(err, "TRAINING_TO")
		}
	}
	return w, nil
}

// SimulationSettings converts the simulation section
func (c *Config) SimulationSettings() simulation.Config {
	return simulation.Config{
		Trials:  c.Simulation.Trials,
		Seed:    c.Simulation.Seed,
		Workers: c.Simulation.Workers,
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUintOrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
