package devhost

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/imposter-project/imposter-dylib/internal/config"
	"github.com/imposter-project/imposter-dylib/internal/handler"
	"github.com/imposter-project/imposter-dylib/internal/router"
	"github.com/imposter-project/imposter-dylib/internal/rpcplugin"
	"github.com/imposter-project/imposter-dylib/internal/store"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Run serves the development host until ctx is done.
func Run(ctx context.Context, cfg *Config, logger hclog.Logger) error {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	provider, err := store.NewProvider(cfg.storeOptions(logger))
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}
	hostURL := advertisedURL(listener.Addr())

	// Plugins resolve the host from the environment on every call, and rpc
	// plugins inherit it when their process starts.
	if err := exportPluginEnv(cfg, hostURL); err != nil {
		listener.Close()
		return err
	}

	var (
		invoker   Invoker
		rpcClient *rpcplugin.Client
	)
	switch cfg.Mode {
	case ModeRPC:
		rpcClient = rpcplugin.NewClient(cfg.PluginPath, logger)
		if err := rpcClient.Start(); err != nil {
			listener.Close()
			return err
		}
		defer rpcClient.Stop()
		invoker = rpcClient
	default:
		invoker = &InProcess{Handler: handler.New(router.NewDefault())}
	}

	server := &http.Server{
		Handler:           NewServer(cfg, hostURL, store.NewExchangeStore(provider), invoker, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("devhost listening", "url", hostURL, "prefix", cfg.PluginPrefix, "mode", cfg.Mode)
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down devhost")
		return server.Shutdown(shutdownCtx)
	})
	if rpcClient != nil && cfg.Watch {
		g.Go(func() error {
			return WatchPlugin(gctx, cfg.PluginPath, rpcClient.Restart, logger)
		})
	}
	return g.Wait()
}

func exportPluginEnv(cfg *Config, hostURL string) error {
	env := map[string]string{
		config.HostEnvVar:            hostURL,
		config.PluginPrefixURLEnvVar: cfg.PluginPrefix,
	}
	if cfg.DataDir != "" {
		env[config.DataDirEnvVar] = cfg.DataDir
	}
	for k, v := range env {
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return nil
}

// advertisedURL is the URL plugins use to reach a listener. Wildcard
// addresses are replaced with loopback.
func advertisedURL(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return "http://" + addr.String()
	}
	ip := tcp.IP
	if ip == nil || ip.IsUnspecified() {
		ip = net.IPv4(127, 0, 0, 1)
	}
	return "http://" + net.JoinHostPort(ip.String(), fmt.Sprint(tcp.Port))
}
