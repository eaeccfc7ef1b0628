package abi

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// HostContext describes the environment the host runs the plugin in.
type HostContext struct {
	// HostURL is the base URL of the host, e.g. http://127.0.0.1:3000
	HostURL         string  `json:"host_url"`
	PluginPrefixURL string  `json:"plugin_prefix_url"`
	DataDir         string  `json:"data_dir"`
	ConfigText      *string `json:"config_text,omitempty"`
}

// IsZero reports whether no field is set.
func (c HostContext) IsZero() bool {
	return c.HostURL == "" && c.PluginPrefixURL == "" && c.DataDir == "" && c.ConfigText == nil
}

// Merge returns c with every empty field taken from fallback.
func (c HostContext) Merge(fallback HostContext) HostContext {
	if c.HostURL == "" {
		c.HostURL = fallback.HostURL
	}
	if c.PluginPrefixURL == "" {
		c.PluginPrefixURL = fallback.PluginPrefixURL
	}
	if c.DataDir == "" {
		c.DataDir = fallback.DataDir
	}
	if c.ConfigText == nil {
		c.ConfigText = fallback.ConfigText
	}
	return c
}

// ErrNoConfig is returned by ParseConfig when the host supplied no config text.
var ErrNoConfig = errors.New("plugin config is required but none was provided")

// ParseConfig unmarshals the YAML config text into v.
func (c HostContext) ParseConfig(v interface{}) error {
	if c.ConfigText == nil {
		return ErrNoConfig
	}
	if err := yaml.Unmarshal([]byte(*c.ConfigText), v); err != nil {
		return fmt.Errorf("failed to unmarshal plugin config: %w", err)
	}
	return nil
}
