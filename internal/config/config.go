// Package config loads the trscan YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Default and to zero fields after loading.
const (
	DefaultBackend      = "vulkan"
	DefaultFenceTimeout = 5 * time.Second
	DefaultVerbosity    = "info"
	DefaultListenAddr   = ":8090"
	DefaultMaxBodyBytes = 32 << 20
)

type Config struct {
	GPU struct {
		Backend      string        `yaml:"backend"`
		FenceTimeout time.Duration `yaml:"fenceTimeout"`
		NFC          bool          `yaml:"nfc"`
	} `yaml:"gpu"`
	Kernel struct {
		Path string `yaml:"path"`
	} `yaml:"kernel"`
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	Server struct {
		ListenAddr   string `yaml:"listenAddr"`
		MaxBodyBytes int64  `yaml:"maxBodyBytes"`
	} `yaml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// LoadConfig reads the YAML file at path. An empty path yields Default; a
// named file must exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.GPU.Backend == "" {
		c.GPU.Backend = DefaultBackend
	}
	if c.GPU.FenceTimeout <= 0 {
		c.GPU.FenceTimeout = DefaultFenceTimeout
	}
	if c.Logger.Verbosity == "" {
		c.Logger.Verbosity = DefaultVerbosity
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
}
