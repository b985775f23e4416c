// Package servoconfig resolves the servo directory and its static
// configuration (spec §6 "Filesystem", AMBIENT STACK "Configuration"):
// $HOME/.servo on Unix, %USERPROFILE%\.servo on Windows, created on
// startup if absent. A single-instance file lock guards the embedded
// database and the command/telemetry ports from a second `servo serve`.
package servoconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

const dirSuffix = ".servo"

// Config is the optional static configuration file read from
// <servo-dir>/servo.toml. Every field has a spec-mandated default, so the
// file itself is optional.
type Config struct {
	CommandAddr   string `toml:"command_addr"`
	TelemetryAddr string `toml:"telemetry_addr"`
	HTTPAddr      string `toml:"http_addr"`
	FanoutHz      int    `toml:"fanout_hz"`
}

// Default returns the spec's built-in bind addresses and 10 Hz fan-out
// rate (spec §4.C, §4.E, §4.J).
func Default() Config {
	return Config{
		CommandAddr:   "0.0.0.0:5025",
		TelemetryAddr: "0.0.0.0:7201",
		HTTPAddr:      "0.0.0.0:7200",
		FanoutHz:      10,
	}
}

// ResolveDir returns the servo directory, creating it if absent (spec §6:
// "Servo directory resolved from $HOME (Unix) or %USERPROFILE% (Windows),
// default suffix .servo. Created on startup if absent.").
func ResolveDir() (string, error) {
	home := os.Getenv("HOME")
	if runtime.GOOS == "windows" {
		home = os.Getenv("USERPROFILE")
	}
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("servoconfig: resolving home directory: %w", err)
		}
	}

	dir := filepath.Join(home, dirSuffix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("servoconfig: creating servo directory %s: %w", dir, err)
	}
	return dir, nil
}

// Load reads <servo-dir>/servo.toml over the defaults. A missing file is
// not an error; its absence just means every field keeps its default.
func Load(servoDir string) (Config, error) {
	cfg := Default()
	path := filepath.Join(servoDir, "servo.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("servoconfig: decoding %s: %w", path, err)
	}
	return cfg, nil
}

// DatabasePath returns <servo-dir>/database.sqlite (spec §6 "Persisted
// state").
func DatabasePath(servoDir string) string {
	return filepath.Join(servoDir, "database.sqlite")
}
