// Package rpcplugin exposes handle_request over hashicorp/go-plugin so a
// plugin can also run as a separate process. Only the request id crosses the
// RPC boundary; request and response data still travel over the host's admin
// endpoints.
package rpcplugin

import (
	"context"
	"fmt"
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/imposter-project/imposter-dylib/pkg/abi"
)

// PluginName is the name the handler is dispensed under.
const PluginName = abi.HandleRequestSymbol

// Handshake guards against launching a binary that is not a plugin. It is
// a UX feature, not a security feature.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "IMPOSTER_DYLIB_PLUGIN",
	MagicCookieValue: abi.HandleRequestSymbol,
}

// RequestHandler is the plugin-side entry point. Like the exported C symbol
// it has no return value; every outcome is reported through the push call.
type RequestHandler interface {
	HandleRequest(id abi.RequestID)
}

// RequestHandlerRPC is the host-side RPC client.
type RequestHandlerRPC struct{ client *rpc.Client }

// HandleRequest invokes handle_request in the plugin process and waits for it
// to return or for ctx to be done.
func (r *RequestHandlerRPC) HandleRequest(ctx context.Context, id abi.RequestID) error {
	var resp struct{}
	call := r.client.Go("Plugin.HandleRequest", int64(id), &resp, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		if call.Error != nil {
			return fmt.Errorf("plugin.HandleRequest: %w", call.Error)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("plugin.HandleRequest %d: %w", id, ctx.Err())
	}
}

// RequestHandlerRPCServer is the RPC server that RequestHandlerRPC talks to,
// conforming to the requirements of net/rpc
type RequestHandlerRPCServer struct {
	Impl RequestHandler
}

func (s *RequestHandlerRPCServer) HandleRequest(id int64, resp *struct{}) error {
	s.Impl.HandleRequest(abi.RequestID(id))
	*resp = struct{}{}
	return nil
}

// RequestHandlerPlugin is the implementation of goplugin.Plugin. Impl is only
// set on the plugin side.
type RequestHandlerPlugin struct {
	Impl RequestHandler
}

func (p *RequestHandlerPlugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &RequestHandlerRPCServer{Impl: p.Impl}, nil
}

func (RequestHandlerPlugin) Client(b *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RequestHandlerRPC{client: c}, nil
}

// pluginSet returns the plugins served or dispensed by this package.
func pluginSet(impl RequestHandler) goplugin.PluginSet {
	return goplugin.PluginSet{
		PluginName: &RequestHandlerPlugin{Impl: impl},
	}
}

// Serve runs the plugin process until the host disconnects.
func Serve(impl RequestHandler) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         pluginSet(impl),
	})
}
