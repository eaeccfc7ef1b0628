package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/imposter-project/imposter-dylib/internal/devhost"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	listen     string
	plugin     string
	mode       string
	store      string
	prefix     string
	watch      bool
	logLevel   string
}

func newRootCommand() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "devhost",
		Short: "Development host for handle_request plugins",
		Long: `devhost serves the admin endpoints a plugin fetches requests from and
pushes responses to, and forwards every HTTP request under the plugin
prefix to the plugin.

Example:
  devhost
  devhost --mode rpc --plugin ./bin/plugin-rpc --watch`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to a devhost YAML config file")
	cmd.Flags().StringVar(&f.listen, "listen", "", "address to listen on")
	cmd.Flags().StringVar(&f.plugin, "plugin", "", "plugin binary to launch in rpc mode")
	cmd.Flags().StringVar(&f.mode, "mode", "", "plugin mode: inproc or rpc")
	cmd.Flags().StringVar(&f.store, "store", "", "store driver: memory, redis or dynamodb")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "URL prefix routed to the plugin")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "restart the rpc plugin when its binary changes")
	cmd.Flags().StringVar(&f.logLevel, "log-level", envOr("DEVHOST_LOG_LEVEL", "info"), "log level")

	return cmd
}

func run(cmd *cobra.Command, f *flags) error {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "devhost",
		Output: os.Stderr,
		Level:  hclog.LevelFromString(f.logLevel),
	})

	cfg, err := devhost.LoadConfig(f.configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return err
	}
	if f.listen != "" {
		cfg.ListenAddr = f.listen
	}
	if f.plugin != "" {
		cfg.PluginPath = f.plugin
	}
	if f.mode != "" {
		cfg.Mode = f.mode
	}
	if f.store != "" {
		cfg.Store.Driver = f.store
	}
	if f.prefix != "" {
		cfg.PluginPrefix = f.prefix
	}
	if cmd.Flags().Changed("watch") {
		cfg.Watch = f.watch
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := devhost.Run(ctx, cfg, logger); err != nil {
		logger.Error("devhost failed", "error", err)
		return fmt.Errorf("devhost: %w", err)
	}
	return nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
