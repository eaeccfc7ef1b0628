package rpcplugin

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"
	"github.com/imposter-project/imposter-dylib/pkg/abi"
)

// ErrNotStarted is returned when invoking a client with no running plugin.
var ErrNotStarted = errors.New("plugin process is not running")

// Client owns one plugin process. The process inherits the host environment,
// so HOST and the other plugin settings must be set before Start.
type Client struct {
	path   string
	logger hclog.Logger

	mu      sync.RWMutex
	client  *goplugin.Client
	handler *RequestHandlerRPC
}

// NewClient creates a client for the plugin binary at path.
func NewClient(path string, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{path: path, logger: logger.Named("plugin")}
}

// Path returns the plugin binary path.
func (c *Client) Path() string {
	return c.path
}

// Start launches the plugin process and dispenses its handler.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked()
}

func (c *Client) startLocked() error {
	c.logger.Debug("starting plugin process", "path", c.path)

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins:         pluginSet(nil),
		Cmd:             exec.Command(c.path),
		Logger:          c.logger,
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return fmt.Errorf("failed to connect to plugin %s: %w", c.path, err)
	}

	raw, err := rpcClient.Dispense(PluginName)
	if err != nil {
		client.Kill()
		return fmt.Errorf("failed to dispense plugin %s: %w", c.path, err)
	}

	handler, ok := raw.(*RequestHandlerRPC)
	if !ok {
		client.Kill()
		return fmt.Errorf("plugin %s dispensed unexpected type %T", c.path, raw)
	}

	c.client = client
	c.handler = handler
	return nil
}

// Invoke calls handle_request in the plugin process.
func (c *Client) Invoke(ctx context.Context, id abi.RequestID) error {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler == nil {
		return ErrNotStarted
	}
	return handler.HandleRequest(ctx, id)
}

// Restart replaces the running plugin process with a fresh one, e.g. after
// the binary has been rebuilt.
func (c *Client) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("restarting plugin process", "path", c.path)
	c.stopLocked()
	return c.startLocked()
}

// Stop kills the plugin process.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Client) stopLocked() {
	if c.client != nil {
		c.logger.Debug("stopping plugin process", "path", c.path)
		c.client.Kill()
	}
	c.client = nil
	c.handler = nil
}
