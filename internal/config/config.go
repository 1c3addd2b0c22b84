// Package config reads the application configuration from environment
// variables. Every knob has a default that reproduces the published
// analysis, so a bare `her2lab report` works against ./data.
package config

import (
	"os"
	"strconv"
	"strings"

	"her2lab/domain/cohort"
	"her2lab/domain/stats"
	"her2lab/domain/study"
	"her2lab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Paths    PathConfig
	Study    StudyConfig
	Database DatabaseConfig
	Charts   ChartConfig
}

// PathConfig holds the data and output directories
type PathConfig struct {
	DataDir   string
	OutputDir string
}

// StudyConfig holds the analysis parameters
type StudyConfig struct {
	SignalPreference   []string
	ViabilityThreshold float64
	TargetedDrugs      []string
	ComparatorDrugs    []string
	PathwayAlternative string
	SurvivalYates      bool
	MinDose            float64
	KeepZeroDose       bool
	TopMissing         int
	Seed               int64
}

// DatabaseConfig holds the ledger connection settings.
// An empty URL selects the in-memory ledger.
type DatabaseConfig struct {
	URL string
}

// ChartConfig holds figure rendering settings
type ChartConfig struct {
	Format string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Paths: PathConfig{
			DataDir:   getEnvOrDefault("HER2LAB_DATA_DIR", "data"),
			OutputDir: getEnvOrDefault("HER2LAB_OUTPUT_DIR", "out"),
		},
		Study: StudyConfig{
			SignalPreference:   getEnvListOrDefault("HER2LAB_SIGNAL_PREFERENCE", cohort.DefaultSignalPreference),
			ViabilityThreshold: getEnvFloatOrDefault("HER2LAB_VIABILITY_THRESHOLD", 50),
			TargetedDrugs:      getEnvListOrDefault("HER2LAB_TARGETED_DRUGS", []string{"lapatinib"}),
			ComparatorDrugs:    getEnvListOrDefault("HER2LAB_COMPARATOR_DRUGS", nil),
			PathwayAlternative: getEnvOrDefault("HER2LAB_PATHWAY_ALTERNATIVE", "greater"),
			SurvivalYates:      getEnvBoolOrDefault("HER2LAB_SURVIVAL_YATES", true),
			MinDose:            getEnvFloatOrDefault("HER2LAB_MIN_DOSE", 0),
			KeepZeroDose:       getEnvBoolOrDefault("HER2LAB_KEEP_ZERO_DOSE", true),
			TopMissing:         getEnvIntOrDefault("HER2LAB_TOP_MISSING", 25),
			Seed:               getEnvInt64OrDefault("HER2LAB_SEED", 42),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("HER2LAB_DATABASE_URL", ""),
		},
		Charts: ChartConfig{
			Format: getEnvOrDefault("HER2LAB_CHART_FORMAT", "png"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate rejects values no analysis could run with
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return errors.ConfigInvalid("HER2LAB_DATA_DIR cannot be empty")
	}
	if c.Paths.OutputDir == "" {
		return errors.ConfigInvalid("HER2LAB_OUTPUT_DIR cannot be empty")
	}
	if len(c.Study.SignalPreference) == 0 {
		return errors.ConfigInvalid("HER2LAB_SIGNAL_PREFERENCE needs at least one column")
	}
	if c.Study.ViabilityThreshold <= 0 || c.Study.ViabilityThreshold >= 200 {
		return errors.ConfigInvalid("HER2LAB_VIABILITY_THRESHOLD must be inside (0, 200)")
	}
	if len(c.Study.TargetedDrugs) == 0 {
		return errors.ConfigInvalid("HER2LAB_TARGETED_DRUGS needs at least one agent")
	}
	if _, err := stats.ParseAlternative(c.Study.PathwayAlternative); err != nil {
		return errors.ConfigInvalid("HER2LAB_PATHWAY_ALTERNATIVE: " + err.Error())
	}
	if c.Study.MinDose < 0 {
		return errors.ConfigInvalid("HER2LAB_MIN_DOSE cannot be negative")
	}
	if c.Study.TopMissing <= 0 {
		return errors.ConfigInvalid("HER2LAB_TOP_MISSING must be positive")
	}
	if c.Charts.Format != "png" && c.Charts.Format != "svg" {
		return errors.ConfigInvalid("HER2LAB_CHART_FORMAT must be png or svg")
	}
	return nil
}

// Params maps the study section onto run parameters. Validate has already
// accepted the alternative spelling, so the parse cannot fail here.
func (c *Config) Params() study.Params {
	alternative, _ := stats.ParseAlternative(c.Study.PathwayAlternative)
	return study.Params{
		PathwayAlternative: alternative,
		SurvivalYates:      c.Study.SurvivalYates,
		DrugThreshold:      c.Study.ViabilityThreshold,
		TargetedDrugs:      c.Study.TargetedDrugs,
		Comparators:        c.Study.ComparatorDrugs,
		MinDose:            c.Study.MinDose,
		KeepZeroDose:       c.Study.KeepZeroDose,
		TopMissing:         c.Study.TopMissing,
		Seed:               c.Study.Seed,
	}
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
