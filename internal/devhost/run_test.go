package devhost

import (
	"context"
	"net"
	"testing"

	"github.com/imposter-project/imposter-dylib/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestAdvertisedURL(t *testing.T) {
	tests := []struct {
		addr net.Addr
		want string
	}{
		{addr: &net.TCPAddr{IP: net.IPv4zero, Port: 3000}, want: "http://127.0.0.1:3000"},
		{addr: &net.TCPAddr{IP: net.IPv6unspecified, Port: 3000}, want: "http://127.0.0.1:3000"},
		{addr: &net.TCPAddr{Port: 8080}, want: "http://127.0.0.1:8080"},
		{addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 80}, want: "http://10.0.0.5:80"},
		{addr: &net.TCPAddr{IP: net.IPv6loopback, Port: 3000}, want: "http://[::1]:3000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, advertisedURL(tt.addr))
	}
}

func TestExportPluginEnv(t *testing.T) {
	t.Setenv(config.HostEnvVar, "")
	t.Setenv(config.PluginPrefixURLEnvVar, "")
	t.Setenv(config.DataDirEnvVar, "")

	cfg := DefaultConfig()
	cfg.DataDir = "/srv/data"
	assert.NoError(t, exportPluginEnv(cfg, "http://127.0.0.1:4000"))

	assert.Equal(t, "http://127.0.0.1:4000", config.HostURL())
	plugin := config.LoadPluginConfig()
	assert.Equal(t, "/plugin", plugin.Host.PluginPrefixURL)
	assert.Equal(t, "/srv/data", plugin.Host.DataDir)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "dlopen"
	assert.ErrorContains(t, Run(context.Background(), cfg, nil), "unknown mode")

	cfg = DefaultConfig()
	cfg.Store.Driver = "etcd"
	assert.ErrorContains(t, Run(context.Background(), cfg, nil), "unknown store driver")
}

func TestRun_StopsWithContext(t *testing.T) {
	t.Setenv(config.HostEnvVar, "")
	t.Setenv(config.PluginPrefixURLEnvVar, "")

	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Run(ctx, cfg, nil))
}
