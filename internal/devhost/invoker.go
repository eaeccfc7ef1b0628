package devhost

import (
	"context"

	"github.com/imposter-project/imposter-dylib/internal/rpcplugin"
	"github.com/imposter-project/imposter-dylib/pkg/abi"
)

// Invoker triggers handle_request for a stored request. It returns once the
// plugin call has returned; the response is collected from the store.
type Invoker interface {
	Invoke(ctx context.Context, id abi.RequestID) error
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, id abi.RequestID) error

func (f InvokerFunc) Invoke(ctx context.Context, id abi.RequestID) error {
	return f(ctx, id)
}

// InProcess runs a plugin handler in the host process.
type InProcess struct {
	Handler rpcplugin.RequestHandler
}

// Invoke calls the handler on its own goroutine. If ctx ends first the call
// is abandoned; it still pushes its response, which the caller then discards.
func (p *InProcess) Invoke(ctx context.Context, id abi.RequestID) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Handler.HandleRequest(id)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	_ Invoker = (*InProcess)(nil)
	_ Invoker = (*rpcplugin.Client)(nil)
)
