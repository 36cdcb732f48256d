// Package config holds compiler-wide tunables loaded from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the compiler's runtime configuration.
// Note: the compiler has no persistent state of its own; these are just
// env-sourced knobs for a single Compile() invocation.
type Config struct {
	// StdlibDir overrides the embedded stdlib with an on-disk directory,
	// useful when iterating on std:<name> modules without rebuilding.
	StdlibDir string

	// MaxCallDepth is read from TAKO_MAX_CALL_DEPTH (spec §4.5.1, suggested
	// 512). The evaluator does not consult it: it bounds recursion with its
	// own fixed limit of 512 (eval's maxCallDepth).
	MaxCallDepth int

	// TempoWarnBPM is the threshold above which Compile, right after
	// normalization, emits a tempo_high warning for a tempo event (spec §9 Open Questions: the
	// legacy threshold is "arbitrary and implementer-tunable").
	TempoWarnBPM float64

	// IRVersion is stamped into the IR header's tako.irVersion field.
	IRVersion int

	// SentryDSN, when set, routes internal-error telemetry (§4.8) to Sentry.
	SentryDSN string

	// Environment is a free-form deployment label carried into telemetry.
	Environment string
}

// Load reads configuration from the environment, optionally after loading a
// local .env file (ignored if absent — matches godotenv.Load's own policy).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		StdlibDir:    getEnv("TAKO_STDLIB_DIR", ""),
		MaxCallDepth: getEnvInt("TAKO_MAX_CALL_DEPTH", 512),
		TempoWarnBPM: getEnvFloat("TAKO_TEMPO_WARN_BPM", 128),
		IRVersion:    getEnvInt("TAKO_IR_VERSION", 1),
		SentryDSN:    getEnv("SENTRY_DSN", ""),
		Environment:  getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
