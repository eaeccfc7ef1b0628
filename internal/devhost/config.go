package devhost

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/imposter-project/imposter-dylib/internal/config"
	"github.com/imposter-project/imposter-dylib/internal/store"
	"gopkg.in/yaml.v3"
)

const (
	ModeInProcess = "inproc"
	ModeRPC       = "rpc"

	DefaultListenAddr      = "127.0.0.1:3000"
	DefaultPluginPrefix    = "/plugin"
	DefaultResponseTimeout = 30 * time.Second
	DefaultPollInterval    = 10 * time.Millisecond

	ListenEnvVar          = "DEVHOST_LISTEN"
	PluginPathEnvVar      = "DEVHOST_PLUGIN"
	ModeEnvVar            = "DEVHOST_MODE"
	ResponseTimeoutEnvVar = "DEVHOST_RESPONSE_TIMEOUT"
)

// Config is the development host configuration.
type Config struct {
	ListenAddr   string `yaml:"listen"`
	PluginPrefix string `yaml:"pluginPrefix"`
	// PluginPath is the go-plugin binary to launch in rpc mode.
	PluginPath string `yaml:"plugin"`
	Mode       string `yaml:"mode"`
	DataDir    string `yaml:"dataDir"`
	// Watch restarts the rpc plugin when its binary changes.
	Watch bool `yaml:"watch"`

	ResponseTimeout time.Duration `yaml:"responseTimeout"`
	PollInterval    time.Duration `yaml:"pollInterval"`

	Store StoreConfig `yaml:"store"`
}

// StoreConfig overrides the store options read from the environment.
type StoreConfig struct {
	Driver    string        `yaml:"driver"`
	KeyPrefix string        `yaml:"keyPrefix"`
	Expiry    time.Duration `yaml:"expiry"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      DefaultListenAddr,
		PluginPrefix:    DefaultPluginPrefix,
		Mode:            ModeInProcess,
		ResponseTimeout: DefaultResponseTimeout,
		PollInterval:    DefaultPollInterval,
	}
}

// LoadConfig reads the configuration file at path, if any, then applies
// environment overrides. Values in the file may reference the environment
// using ${env.VAR} or ${env.VAR:-default}. The result is not validated, so
// callers can apply further overrides before Run validates it.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read devhost config %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(config.SubstituteEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse devhost config %s: %w", path, err)
		}
	}

	if v := os.Getenv(ListenEnvVar); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(config.PluginPrefixURLEnvVar); v != "" {
		cfg.PluginPrefix = v
	}
	if v := os.Getenv(PluginPathEnvVar); v != "" {
		cfg.PluginPath = v
	}
	if v := os.Getenv(ModeEnvVar); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv(config.DataDirEnvVar); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(ResponseTimeoutEnvVar); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ResponseTimeoutEnvVar, err)
		}
		cfg.ResponseTimeout = timeout
	}

	return cfg, nil
}

// Validate fills in defaults for empty values and reports inconsistent ones.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.PluginPrefix == "" {
		c.PluginPrefix = DefaultPluginPrefix
	}
	c.PluginPrefix = "/" + strings.Trim(c.PluginPrefix, "/")
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}

	switch c.Mode {
	case "", ModeInProcess:
		c.Mode = ModeInProcess
	case ModeRPC:
		if c.PluginPath == "" {
			return fmt.Errorf("mode %q requires a plugin path", ModeRPC)
		}
	default:
		return fmt.Errorf("unknown mode %q, expected %q or %q", c.Mode, ModeInProcess, ModeRPC)
	}
	return nil
}

func (c *Config) storeOptions(logger hclog.Logger) store.Options {
	opts := store.OptionsFromEnv()
	if c.Store.Driver != "" {
		opts.Driver = c.Store.Driver
	}
	if c.Store.KeyPrefix != "" {
		opts.KeyPrefix = c.Store.KeyPrefix
	}
	if c.Store.Expiry > 0 {
		opts.Expiry = c.Store.Expiry
	}
	opts.Logger = logger.Named("store")
	return opts
}
