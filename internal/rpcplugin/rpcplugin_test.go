package rpcplugin

import (
	"context"
	"net"
	"net/rpc"
	"sync"
	"testing"
	"time"

	"github.com/imposter-project/imposter-dylib/pkg/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	ids   []abi.RequestID
	block chan struct{}
}

func (r *recordingHandler) HandleRequest(id abi.RequestID) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recordingHandler) seen() []abi.RequestID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]abi.RequestID(nil), r.ids...)
}

// connect wires a RequestHandlerRPC to impl over an in-memory connection,
// mirroring what go-plugin does across the process boundary.
func connect(t *testing.T, impl RequestHandler) *RequestHandlerRPC {
	t.Helper()

	p := &RequestHandlerPlugin{Impl: impl}
	srv, err := p.Server(nil)
	require.NoError(t, err)

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("Plugin", srv))

	serverConn, clientConn := net.Pipe()
	go server.ServeConn(serverConn)

	client := rpc.NewClient(clientConn)
	t.Cleanup(func() { client.Close() })

	raw, err := (&RequestHandlerPlugin{}).Client(nil, client)
	require.NoError(t, err)
	handler, ok := raw.(*RequestHandlerRPC)
	require.True(t, ok)
	return handler
}

func TestRequestHandlerRPC_ForwardsRequestID(t *testing.T) {
	impl := &recordingHandler{}
	handler := connect(t, impl)

	require.NoError(t, handler.HandleRequest(context.Background(), 42))
	require.NoError(t, handler.HandleRequest(context.Background(), -1))

	assert.Equal(t, []abi.RequestID{42, -1}, impl.seen())
}

func TestRequestHandlerRPC_ContextCancelled(t *testing.T) {
	impl := &recordingHandler{block: make(chan struct{})}
	handler := connect(t, impl)
	defer close(impl.block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := handler.HandleRequest(ctx, 9)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_InvokeBeforeStart(t *testing.T) {
	c := NewClient("/nonexistent/plugin", nil)
	assert.Equal(t, "/nonexistent/plugin", c.Path())

	err := c.Invoke(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotStarted)

	assert.NotPanics(t, c.Stop)
}

func TestClient_StartMissingBinary(t *testing.T) {
	c := NewClient("/nonexistent/plugin", nil)
	err := c.Start()
	assert.Error(t, err)
	assert.ErrorIs(t, c.Invoke(context.Background(), 1), ErrNotStarted)
}

func TestHandshake(t *testing.T) {
	assert.Equal(t, abi.HandleRequestSymbol, Handshake.MagicCookieValue)
	assert.Contains(t, pluginSet(nil), PluginName)
}
