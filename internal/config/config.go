// Package config loads asana settings from the environment.
// An optional .env file in the working directory is read first;
// variables already set in the environment take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/asana/internal/challenge"
)

// Defaults.
const (
	DefaultAddr            = ":8080"
	DefaultCameraID        = 0
	DefaultMotionThreshold = 1.0
	DefaultMatchThreshold  = 0.8
	DefaultDebounce        = 3
	DefaultToleranceDeg    = 45.0
	DefaultTargetSeconds   = 5
	DefaultTickInterval    = 100 * time.Millisecond
	DefaultLogLevel        = "info"
)

// Config holds runtime settings for the asana binary.
type Config struct {
	Addr            string
	DataDir         string
	PluginDir       string
	WebDir          string
	CameraID        int
	MotionThreshold float64
	MatchThreshold  float64
	Debounce        int
	ToleranceDeg    float64
	TargetSeconds   int
	TickInterval    time.Duration
	LogLevel        string
	Headless        bool
}

// Load reads .env (if present) and the ASANA_* environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	dataDir, err := dataDir()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:      getString("ASANA_ADDR", DefaultAddr),
		DataDir:   dataDir,
		PluginDir: getString("ASANA_PLUGIN_DIR", filepath.Join(dataDir, "plugins")),
		WebDir:    os.Getenv("ASANA_WEB_DIR"),
		LogLevel:  getString("ASANA_LOG_LEVEL", DefaultLogLevel),
	}

	var errs []error
	cfg.CameraID, err = getInt("ASANA_CAMERA_ID", DefaultCameraID)
	errs = append(errs, err)
	cfg.MotionThreshold, err = getFloat("ASANA_MOTION_THRESHOLD", DefaultMotionThreshold)
	errs = append(errs, err)
	cfg.MatchThreshold, err = getFloat("ASANA_MATCH_THRESHOLD", DefaultMatchThreshold)
	errs = append(errs, err)
	cfg.Debounce, err = getInt("ASANA_DEBOUNCE", DefaultDebounce)
	errs = append(errs, err)
	cfg.ToleranceDeg, err = getFloat("ASANA_TOLERANCE_DEG", DefaultToleranceDeg)
	errs = append(errs, err)
	cfg.TargetSeconds, err = getInt("ASANA_TARGET_SECONDS", DefaultTargetSeconds)
	errs = append(errs, err)
	tickMs, err := getInt("ASANA_TICK_MS", int(DefaultTickInterval/time.Millisecond))
	errs = append(errs, err)
	cfg.TickInterval = time.Duration(tickMs) * time.Millisecond
	cfg.Headless, err = getBool("ASANA_HEADLESS", false)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise break the challenge loop.
func (c Config) Validate() error {
	switch {
	case c.MatchThreshold <= 0 || c.MatchThreshold >= 1:
		return fmt.Errorf("match threshold %v out of range (0,1)", c.MatchThreshold)
	case c.Debounce < 1:
		return fmt.Errorf("debounce must be >= 1, got %d", c.Debounce)
	case c.ToleranceDeg <= 0:
		return fmt.Errorf("angle tolerance must be positive, got %v", c.ToleranceDeg)
	case !slices.Contains(challenge.DefaultAllowedTargets, time.Duration(c.TargetSeconds)*time.Second):
		return fmt.Errorf("target seconds %d is not one of %v", c.TargetSeconds, challenge.DefaultAllowedTargets)
	case c.TickInterval <= 0:
		return fmt.Errorf("tick interval must be positive, got %v", c.TickInterval)
	}
	return nil
}

// DBPath returns the SQLite database location inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "asana.db")
}

func dataDir() (string, error) {
	if dir := os.Getenv("ASANA_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".asana"), nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
