// Package devhost is a development host for plugins. It serves the admin
// endpoints plugins fetch requests from and push responses to, and turns
// HTTP requests under the plugin prefix into handle_request calls.
package devhost

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/imposter-project/imposter-dylib/internal/exchange"
	"github.com/imposter-project/imposter-dylib/internal/store"
	"github.com/imposter-project/imposter-dylib/pkg/abi"
)

const (
	// TraceHeader carries the id the host logs a dispatched request under.
	TraceHeader = "X-Devhost-Trace"

	StatusPath = "/system/status"

	maxBodySize = 32 << 20
)

// Server is the development host's HTTP handler.
type Server struct {
	cfg      *Config
	hostURL  string
	exchange *store.ExchangeStore
	invoker  Invoker
	logger   hclog.Logger

	nextID atomic.Int64
	mux    *http.ServeMux
}

// NewServer returns a Server that advertises hostURL to plugins.
func NewServer(cfg *Config, hostURL string, exchangeStore *store.ExchangeStore, invoker Invoker, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Server{
		cfg:      cfg,
		hostURL:  strings.TrimSuffix(hostURL, "/"),
		exchange: exchangeStore,
		invoker:  invoker,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.nextID.Store(idSeed())

	s.mux.HandleFunc("GET "+exchange.GetRequestInfoPath, s.handleGetRequestInfo)
	s.mux.HandleFunc("POST "+exchange.PushResponseInfoPath, s.handlePushResponseInfo)
	s.mux.HandleFunc("POST "+exchange.StoreRequestInfoPath, s.handleStoreRequestInfo)
	s.mux.HandleFunc("GET "+StatusPath, s.handleStatus)

	s.mux.HandleFunc(cfg.PluginPrefix, s.handleDispatch)
	if cfg.PluginPrefix != "/" {
		s.mux.HandleFunc(cfg.PluginPrefix+"/", s.handleDispatch)
	}
	return s
}

// idSeed picks a random starting point for request ids, so hosts sharing a
// redis or dynamodb store hand out ids from disjoint ranges.
func idSeed() int64 {
	u := uuid.New()
	return int64(binary.BigEndian.Uint64(u[8:]) & (1<<62 - 1))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func requestID(r *http.Request) (abi.RequestID, error) {
	raw := r.URL.Query().Get(exchange.RequestIDParam)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", exchange.RequestIDParam, raw)
	}
	return abi.RequestID(id), nil
}

func (s *Server) handleGetRequestInfo(w http.ResponseWriter, r *http.Request) {
	id, err := requestID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, ok := s.exchange.GetRawRequest(id)
	if !ok {
		s.logger.Debug("request not found", "request_id", id)
		http.Error(w, fmt.Sprintf("Request with id %d not found", id), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handlePushResponseInfo(w http.ResponseWriter, r *http.Request) {
	id, err := requestID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if err := s.exchange.PutRawResponse(id, data); err != nil {
		if errors.Is(err, store.ErrNotStored) {
			s.logger.Error("failed to store response", "request_id", id, "error", err)
			http.Error(w, "Failed to store response", http.StatusInternalServerError)
			return
		}
		s.logger.Warn("rejected pushed response", "request_id", id, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Trace("response stored", "request_id", id)
	w.Write([]byte("Response stored successfully"))
}

func (s *Server) handleStoreRequestInfo(w http.ResponseWriter, r *http.Request) {
	id, err := requestID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if err := s.exchange.PutRawRequest(id, data); err != nil {
		if errors.Is(err, store.ErrNotStored) {
			s.logger.Error("failed to store request", "request_id", id, "error", err)
			http.Error(w, "Failed to store request", http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Trace("request stored", "request_id", id)
	w.Write([]byte("Request stored successfully"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := struct {
		Status  string `json:"status"`
		Mode    string `json:"mode"`
		Pending int    `json:"pending"`
	}{
		Status:  "ok",
		Mode:    s.cfg.Mode,
		Pending: s.exchange.Pending(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleDispatch stores the incoming request, invokes the plugin and writes
// out whatever response it pushed.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.NewString()
	w.Header().Set(TraceHeader, traceID)

	method, err := abi.ParseMethod(r.Method)
	if err != nil {
		w.Header().Set("Allow", strings.Join(methodNames(), ", "))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	id := abi.RequestID(s.nextID.Add(1))
	logger := s.logger.With("trace", traceID, "request_id", id)

	req := &abi.Request{
		Method:  method,
		URL:     r.URL.Path,
		Query:   r.URL.RawQuery,
		Body:    string(body),
		Headers: flattenHeaders(r.Header),
		Context: abi.HostContext{
			HostURL:         s.hostURL,
			PluginPrefixURL: s.cfg.PluginPrefix,
			DataDir:         s.cfg.DataDir,
		},
	}
	if err := s.exchange.PutRequest(id, req); err != nil {
		logger.Error("failed to store request", "error", err)
		http.Error(w, "Failed to store request", http.StatusInternalServerError)
		return
	}
	defer s.exchange.Delete(id)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ResponseTimeout)
	defer cancel()

	start := time.Now()
	logger.Debug("invoking plugin", "method", method, "url", req.URL)
	if err := s.invoker.Invoke(ctx, id); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("plugin timed out", "timeout", s.cfg.ResponseTimeout)
			http.Error(w, "Plugin response timeout", http.StatusGatewayTimeout)
			return
		}
		logger.Error("plugin invocation failed", "error", err)
		http.Error(w, "Plugin invocation failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	resp, err := s.waitForResponse(ctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("no response pushed", "timeout", s.cfg.ResponseTimeout)
			http.Error(w, "Plugin response timeout", http.StatusGatewayTimeout)
			return
		}
		logger.Error("failed to read pushed response", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	logger.Debug("plugin responded", "status", resp.StatusCode, "elapsed", time.Since(start))
	writeResponse(w, resp)
}

// waitForResponse polls the store until a response for id appears.
func (s *Server) waitForResponse(ctx context.Context, id abi.RequestID) (*abi.Response, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		resp, ok, err := s.exchange.GetResponse(id)
		if err != nil {
			return nil, err
		}
		if ok {
			return resp, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// writeResponse copies a pushed response to w. Informational and
// out-of-range status codes cannot carry a final response and become 502.
func writeResponse(w http.ResponseWriter, resp *abi.Response) {
	status := int(resp.StatusCode)
	if status < 200 || status > 999 {
		status = http.StatusBadGateway
	}

	if resp.HasError() {
		http.Error(w, *resp.Error, status)
		return
	}

	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(status)
	w.Write(resp.Body)
}

// flattenHeaders keeps the first value of each header, as the request
// document has one value per name.
func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return headers
}

func methodNames() []string {
	names := make([]string, len(abi.Methods))
	for i, m := range abi.Methods {
		names[i] = string(m)
	}
	return names
}
