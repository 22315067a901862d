// Package config loads the server configuration from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// A Duration is a time.Duration that unmarshals from YAML strings like "350ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// A Config holds everything the server reads at startup.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	ScriptsDir string `yaml:"scripts_dir"`
	LogsDir    string `yaml:"logs_dir"`
	ReposDir   string `yaml:"repos_dir"`

	// HistoryCap bounds the in-memory line buffer kept per job. The
	// transcript file on disk always keeps every line.
	HistoryCap int `yaml:"history_cap"`

	// PollInterval is how long a live viewer waits between updates.
	PollInterval Duration `yaml:"poll_interval"`

	// JobRetention is how long finished jobs stay in the registry before
	// being swept. Zero disables sweeping.
	JobRetention Duration `yaml:"job_retention"`

	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		ScriptsDir:      "scripts",
		LogsDir:         "logs",
		ReposDir:        "repos",
		HistoryCap:      2500,
		PollInterval:    Duration(350 * time.Millisecond),
		JobRetention:    Duration(1 * time.Hour),
		ShutdownTimeout: Duration(30 * time.Second),
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
