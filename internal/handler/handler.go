// Package handler implements the plugin side of handle_request: fetch the
// request from the host, route it, and push the response back.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/imposter-project/imposter-dylib/internal/config"
	"github.com/imposter-project/imposter-dylib/internal/exchange"
	"github.com/imposter-project/imposter-dylib/internal/router"
	"github.com/imposter-project/imposter-dylib/pkg/abi"
	"github.com/imposter-project/imposter-dylib/pkg/logger"
)

// RouterError wraps a failure of the business logic, including a panic.
type RouterError struct {
	RequestID abi.RequestID
	Err       error
	// Panic holds the recovered value when the router panicked.
	Panic interface{}
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("route request %d: %v", e.RequestID, e.Err)
}

func (e *RouterError) Unwrap() error {
	return e.Err
}

// Handler services handle_request calls. It holds no per-request state, so
// one value may serve concurrent invocations.
type Handler struct {
	Router router.Router

	// Transport is used for the host calls. Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// New returns a Handler that routes with r.
func New(r router.Router) *Handler {
	return &Handler{Router: r}
}

// HandleRequest runs one fetch, route, push cycle. It reports every outcome
// through the pushed response and never panics.
func (h *Handler) HandleRequest(id abi.RequestID) {
	pushed := false
	var client *exchange.Client

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Errorf("recovered from panic handling request %d: %v", id, r)
		if pushed || client == nil {
			return
		}
		pushed = true
		if err := client.Push(context.Background(), id, abi.ErrorResponse(fmt.Errorf("panic: %v", r))); err != nil {
			logger.Errorf("request %d lost: %v", id, err)
		}
	}()

	cfg := config.LoadPluginConfig()
	client = exchange.NewClient(cfg.Host.HostURL, cfg.HTTPTimeout, h.Transport)
	ctx := context.Background()

	logger.Debugf("handling request %d via host %s", id, client.HostURL())
	resp := h.process(ctx, client, cfg, id)

	pushed = true
	if err := client.Push(ctx, id, resp); err != nil {
		logger.Errorf("request %d lost: %v", id, err)
		return
	}
	logger.Debugf("pushed response %d: status=%d body=%d bytes", id, resp.StatusCode, len(resp.Body))
}

// process produces the response to push. Failures become 500 error
// responses; the router is not called when the fetch fails.
func (h *Handler) process(ctx context.Context, client *exchange.Client, cfg *config.PluginConfig, id abi.RequestID) *abi.Response {
	req, err := client.Fetch(ctx, id)
	if err != nil {
		logger.Errorf("failed to fetch request %d: %v", id, err)
		return abi.ErrorResponse(err)
	}
	req.Context = req.Context.Merge(cfg.Host)
	logger.Debugf("fetched request %d: method=%s url=%s query=%s", id, req.Method, req.URL, req.Query)

	resp, err := h.route(ctx, id, req)
	if err != nil {
		logger.Errorf("failed to route request %d: %v", id, err)
		return abi.ErrorResponse(err)
	}
	return resp
}

func (h *Handler) route(ctx context.Context, id abi.RequestID, req *abi.Request) (resp *abi.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = &RouterError{RequestID: id, Err: fmt.Errorf("panic: %v", r), Panic: r}
		}
	}()

	if h.Router == nil {
		return nil, &RouterError{RequestID: id, Err: errors.New("no router configured")}
	}
	resp, err = h.Router.Route(ctx, req)
	if err != nil {
		return nil, &RouterError{RequestID: id, Err: err}
	}
	if resp == nil {
		return nil, &RouterError{RequestID: id, Err: errors.New("router returned no response")}
	}
	return resp, nil
}
