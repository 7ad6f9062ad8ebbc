// Package config loads the directory node's configuration: data
// directory, operational HTTP bind address, logging, router policy and
// the rebuild controller's batch size. Defaults live here; a YAML file
// (parsed with gopkg.in/yaml.v3) may override them, and cobra flags take
// final precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/menmos/menmosd/pkg/log"
)

// RouterPolicy selects which storage-node selection policy the router
// uses.
type RouterPolicy string

const (
	PolicyRoundRobin  RouterPolicy = "round_robin"
	PolicyLeastFilled RouterPolicy = "least_filled"
)

// LogConfig configures the global logger.
type LogConfig struct {
	Level      log.Level `yaml:"level"`
	JSONOutput bool      `yaml:"json_output"`
}

// RouterConfig configures the storage-node router.
type RouterConfig struct {
	Policy         RouterPolicy  `yaml:"policy"`
	ForgetDuration time.Duration `yaml:"forget_duration"`
}

// RebuildConfig configures the rebuild/move-request controller.
type RebuildConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// Config is the full directory-node configuration.
type Config struct {
	DataDir  string        `yaml:"data_dir"`
	BindAddr string        `yaml:"bind_addr"`
	Log      LogConfig     `yaml:"log"`
	Router   RouterConfig  `yaml:"router"`
	Rebuild  RebuildConfig `yaml:"rebuild"`
}

// Default returns the configuration used when no file and no flags
// override it.
func Default() Config {
	return Config{
		DataDir:  "./menmosd-data",
		BindAddr: "127.0.0.1:8080",
		Log: LogConfig{
			Level:      log.InfoLevel,
			JSONOutput: false,
		},
		Router: RouterConfig{
			Policy:         PolicyRoundRobin,
			ForgetDuration: 60 * time.Second,
		},
		Rebuild: RebuildConfig{
			BatchSize: 10,
		},
	}
}

// Load reads a YAML file at path and merges it over Default(). A
// missing file is not an error: Default() alone is returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return cfg, nil
}
