// Package mcp exposes the registered connectors as one JSON-RPC 2.0
// endpoint. Tool, resource and prompt namespaces are unified by prefixing
// every name with the owning connector.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/core/services"
	"github.com/custodia-labs/conduit-cli/internal/logger"
)

// Version is reported in initialize responses.
const Version = "0.3.0"

// Server aggregates every registered connector behind one JSON-RPC
// endpoint.
type Server struct {
	registry *services.Registry
	store    driven.AuthStore
	usage    driven.UsageStore

	mu     sync.Mutex
	states map[string]domain.AuthState
}

// NewServer creates an aggregator over the given registry. usage may be nil
// to disable metering.
func NewServer(registry *services.Registry, store driven.AuthStore, usage driven.UsageStore) *Server {
	return &Server{
		registry: registry,
		store:    store,
		usage:    usage,
		states:   make(map[string]domain.AuthState),
	}
}

// Run serves line-delimited JSON-RPC over the given streams until the
// input closes or the context is cancelled. This is the stdio transport:
// out must carry nothing but responses.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if resp := s.HandleRaw(ctx, []byte(line)); resp != nil {
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
		}
	}
	return scanner.Err()
}

// RunHTTP serves JSON-RPC over HTTP POST at /rpc until the context is
// cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
		if err != nil {
			http.Error(w, "reading body", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		resp := s.HandleRaw(r.Context(), body)
		if resp == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(resp)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logger.Info("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// HandleRaw parses one JSON-RPC message and dispatches it. Returns nil for
// notifications.
func (s *Server) HandleRaw(ctx context.Context, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return newProtocolError(nil, codeParseError, "parse error: "+err.Error())
	}
	if req.Method == "" {
		return newProtocolError(req.ID, codeInvalidRequest, "missing method")
	}
	return s.Handle(ctx, &req)
}

// Handle dispatches one parsed request. Returns nil for notifications.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	if strings.HasPrefix(req.Method, "notifications/") {
		return nil
	}

	logger.Debug("rpc: %s", req.Method)
	result, err := s.dispatch(ctx, req.Method, req.Params)
	if req.ID == nil {
		// Request was a notification in disguise; nothing to answer.
		return nil
	}
	if err != nil {
		return newError(req.ID, err)
	}
	return newResult(req.ID, result)
}

func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "initialize":
		return s.initialize(ctx, params)
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		return s.listTools(ctx)
	case "tools/call":
		return s.callTool(ctx, params)
	case "resources/list":
		return s.listResources(ctx, params)
	case "resources/read":
		return s.readResource(ctx, params)
	case "prompts/list":
		return s.listPrompts(ctx)
	case "prompts/get":
		return s.getPrompt(ctx, params)
	case "authorization/describe":
		return s.describeAuthorization(ctx)
	case "authorization/status":
		return s.authorizationStatus(ctx)
	case "secrets/set":
		return s.secretsSet(ctx, params)
	case "secrets/delete":
		return s.secretsDelete(ctx, params)
	case "usage/report":
		return s.usageReport(ctx, params)
	default:
		return nil, domain.ErrMethodNotFound
	}
}

// initialize aggregates capabilities across all connectors.
func (s *Server) initialize(ctx context.Context, params json.RawMessage) (any, error) {
	var req domain.InitializeRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, domain.SerializationErr(err)
		}
	}

	caps := domain.ServerCapabilities{Tools: &domain.ToolsCapability{}}
	names := s.registry.Names()
	for _, name := range names {
		handle, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		handle.Do(func(c driven.Connector) error {
			cc := c.Capabilities()
			if cc.Resources != nil {
				caps.Resources = &domain.ResourcesCapability{}
			}
			if cc.Prompts != nil {
				caps.Prompts = &domain.PromptsCapability{}
			}
			return nil
		})
	}

	return &domain.InitializeResult{
		ProtocolVersion: domain.ProtocolVersion,
		Capabilities:    caps,
		ServerInfo:      domain.Implementation{Name: "conduit", Version: Version},
		Instructions: fmt.Sprintf(
			"Conduit aggregates %d data connectors (%s). Tools are named <connector>/<tool>; "+
				"auth/<connector>/* tools manage credentials.",
			len(names), strings.Join(names, ", ")),
	}, nil
}

// unmarshalParams decodes params into v, mapping failures to InvalidParams.
func unmarshalParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return domain.InvalidParamsf("missing params")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return domain.InvalidParamsf("malformed params: %v", err)
	}
	return nil
}
