// Package router maps fetched requests to responses. Routers only compute a
// response; they never talk to the host.
package router

import (
	"context"
	"strings"

	"github.com/imposter-project/imposter-dylib/pkg/abi"
)

// Router computes the response for a request. It must not modify req.
type Router interface {
	Route(ctx context.Context, req *abi.Request) (*abi.Response, error)
}

// Func adapts a function to the Router interface.
type Func func(ctx context.Context, req *abi.Request) (*abi.Response, error)

func (f Func) Route(ctx context.Context, req *abi.Request) (*abi.Response, error) {
	return f(ctx, req)
}

type rule struct {
	fragment string
	router   Router
}

// Mux dispatches on URL fragments. A rule matches when the request URL
// contains its fragment anywhere, so query strings and extra path segments
// do not prevent a match. Rules are tried in registration order.
type Mux struct {
	rules    []rule
	fallback Router
}

// NewMux creates a Mux. Requests matching no rule go to fallback, or get a
// 404 when fallback is nil.
func NewMux(fallback Router) *Mux {
	return &Mux{fallback: fallback}
}

// Handle registers r for URLs containing fragment.
func (m *Mux) Handle(fragment string, r Router) *Mux {
	m.rules = append(m.rules, rule{fragment: fragment, router: r})
	return m
}

// HandleFunc registers f for URLs containing fragment.
func (m *Mux) HandleFunc(fragment string, f Func) *Mux {
	return m.Handle(fragment, f)
}

func (m *Mux) Route(ctx context.Context, req *abi.Request) (*abi.Response, error) {
	for _, r := range m.rules {
		if strings.Contains(req.URL, r.fragment) {
			return r.router.Route(ctx, req)
		}
	}
	if m.fallback != nil {
		return m.fallback.Route(ctx, req)
	}
	return abi.NotFound(), nil
}
