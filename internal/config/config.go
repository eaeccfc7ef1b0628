package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/imposter-project/imposter-dylib/pkg/abi"
	"github.com/imposter-project/imposter-dylib/pkg/logger"
)

const (
	// DefaultHostURL is used when HOST is unset or empty.
	DefaultHostURL = "http://127.0.0.1:3000"

	// DefaultHTTPTimeout bounds each fetch and push call.
	DefaultHTTPTimeout = 30 * time.Second

	HostEnvVar            = "HOST"
	PluginPrefixURLEnvVar = "PLUGIN_PREFIX_URL"
	DataDirEnvVar         = "DATA_DIR"
	HTTPTimeoutEnvVar     = "PLUGIN_HTTP_TIMEOUT"
)

// configFileNames are looked up, in order, inside the data directory.
var configFileNames = []string{"config.yaml", "config.yml"}

// PluginConfig is the configuration for a single handle_request invocation.
type PluginConfig struct {
	Host        abi.HostContext
	HTTPTimeout time.Duration
}

// LoadPluginConfig reads the plugin configuration from the environment. It is
// called once per invocation so that changes to the environment take effect
// for the next request without affecting one already in flight.
func LoadPluginConfig() *PluginConfig {
	dataDir := os.Getenv(DataDirEnvVar)
	configText, err := loadConfigText(dataDir)
	if err != nil {
		logger.Warnf("ignoring plugin config: %v", err)
	}

	return &PluginConfig{
		Host: abi.HostContext{
			HostURL:         HostURL(),
			PluginPrefixURL: os.Getenv(PluginPrefixURLEnvVar),
			DataDir:         dataDir,
			ConfigText:      configText,
		},
		HTTPTimeout: httpTimeout(),
	}
}

// HostURL returns the value of HOST, or DefaultHostURL when it is unset or empty.
func HostURL() string {
	if hostURL := strings.TrimSpace(os.Getenv(HostEnvVar)); hostURL != "" {
		return hostURL
	}
	return DefaultHostURL
}

func httpTimeout() time.Duration {
	raw := os.Getenv(HTTPTimeoutEnvVar)
	if raw == "" {
		return DefaultHTTPTimeout
	}
	timeout, err := time.ParseDuration(raw)
	if err != nil || timeout <= 0 {
		logger.Warnf("invalid %s value %q, using %v", HTTPTimeoutEnvVar, raw, DefaultHTTPTimeout)
		return DefaultHTTPTimeout
	}
	return timeout
}

// loadConfigText reads the plugin config file from dataDir, if there is one.
func loadConfigText(dataDir string) (*string, error) {
	if dataDir == "" {
		return nil, nil
	}
	for _, name := range configFileNames {
		path := filepath.Join(dataDir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		logger.Tracef("loaded plugin config file: %s", path)
		text := SubstituteEnvVars(string(data))
		return &text, nil
	}
	return nil, nil
}

var envVarPattern = regexp.MustCompile(`\$\{env\.([A-Za-z0-9_]+)(:-([^}]*))?\}`)

// SubstituteEnvVars replaces ${env.VAR} and ${env.VAR:-default} with
// environment variable values.
func SubstituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value, exists := os.LookupEnv(groups[1]); exists {
			return value
		}
		return groups[3]
	})
}
