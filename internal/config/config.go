package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration values.
type Config struct {
	// Working tree
	BaseDir     string // where the buildable repositories live
	StateDir    string // per-run tracker, summary and log directories
	ChoicesFile string // persisted user choices

	// Execution
	LoadFactor float64 // fraction of CPU capacity used for parallel builds
	Workers    int     // explicit worker override, 0 = derive from CPUs

	// Logging
	LogFile  string
	LogLevel slog.Level

	// UX
	NonInteractive bool // never prompt, resolve everything from flags/choices
}

// Load reads configuration from environment variables.
func Load() Config {
	base := getEnv("OHW_BASE_DIR", defaultBaseDir())

	return Config{
		BaseDir:     base,
		StateDir:    getEnv("OHW_STATE_DIR", filepath.Join(base, "state")),
		ChoicesFile: getEnv("OHW_CHOICES_FILE", filepath.Join(base, ".ohw-choices")),

		LoadFactor: parseFloat(getEnv("OHW_LOAD_FACTOR", "0.8"), 0.8),
		Workers:    parseInt(getEnv("OHW_WORKERS", "0"), 0),

		LogFile:  getEnv("OHW_LOG_FILE", "/tmp/off-highway.log"),
		LogLevel: parseLogLevel(getEnv("OHW_LOG_LEVEL", "INFO")),

		NonInteractive: getEnv("OHW_NON_INTERACTIVE", "false") == "true",
	}
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "off-highway")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseFloat(s string, defaultVal float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return defaultVal
	}
	return f
}

func parseInt(s string, defaultVal int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
