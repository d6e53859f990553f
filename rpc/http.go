package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"payledger/gateway/middleware"
	"payledger/native/payment"
	"payledger/observability"
	"payledger/observability/otel"
	"payledger/storage/eventlog"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeServerError    = -32000
)

// EventQuery serves payment_getLogs.
type EventQuery interface {
	List(ctx context.Context, filter eventlog.Filter) ([]eventlog.Record, error)
}

// ServerOptions configures the HTTP surface around the ledger.
type ServerOptions struct {
	Logger         *slog.Logger
	Events         EventQuery
	Auth           middleware.AuthConfig
	RequiredScopes []string
	RateLimit      middleware.RateLimit
}

// Server exposes the ledger over JSON-RPC. Mutating methods are
// authenticated by a signed caller envelope; reads are open.
type Server struct {
	engine *payment.Engine
	nonces *NonceStore
	events EventQuery
	logger *slog.Logger
	opts   ServerOptions

	mutations map[string]mutationDecoder
	queries   map[string]queryHandler
}

func NewServer(engine *payment.Engine, nonces *NonceStore, opts ServerOptions) (*Server, error) {
	if engine == nil {
		return nil, errors.New("rpc: engine required")
	}
	if nonces == nil {
		return nil, errors.New("rpc: nonce store required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine: engine,
		nonces: nonces,
		events: opts.Events,
		logger: logger,
		opts:   opts,
	}
	s.registerPaymentMethods()
	s.registerBankMethods()
	return s, nil
}

// Handler returns the routed, instrumented HTTP handler: JSON-RPC on POST /,
// liveness on /healthz and prometheus metrics on /metrics.
func (s *Server) Handler() http.Handler {
	limiter := middleware.NewRateLimiter(s.opts.RateLimit, s.logger)
	limiter.OnThrottle(func(string) {
		observability.ModuleMetrics().RecordThrottle("rpc", "rate_limit")
	})
	authenticator := middleware.NewAuthenticator(s.opts.Auth, s.logger)

	router := chi.NewRouter()
	router.Use(middleware.AccessLog(s.logger))
	router.Get("/healthz", s.handleHealth)
	router.Handle("/metrics", promhttp.Handler())
	router.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Use(authenticator.Middleware(s.opts.RequiredScopes...))
		r.Post("/", s.handle)
	})
	return otelhttp.NewHandler(router, "payledger-rpc")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	initialized, err := s.engine.Initialized()
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "initialized": initialized})
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	ctx, span := otel.Tracer().Start(r.Context(), req.Method)
	span.SetAttributes(attribute.String("rpc.method", req.Method))
	defer span.End()

	code := s.dispatch(ctx, w, req)
	if code != 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("rpc error %d", code))
	}
	observability.ModuleMetrics().Observe(moduleOf(req.Method), req.Method, code, time.Since(start))
}

// dispatch runs the method and writes the response. It returns the JSON-RPC
// error code written, zero on success.
func (s *Server) dispatch(ctx context.Context, w http.ResponseWriter, req *RPCRequest) int {
	var (
		result interface{}
		err    error
	)
	if decode, ok := s.mutations[req.Method]; ok {
		result, err = s.handleMutation(req, decode)
	} else if query, ok := s.queries[req.Method]; ok {
		var params json.RawMessage
		if len(req.Params) > 1 {
			err = invalidParams("expected at most one parameter object")
		} else {
			if len(req.Params) == 1 {
				params = req.Params[0]
			}
			result, err = query(ctx, params)
		}
	} else {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return codeMethodNotFound
	}
	if err != nil {
		status, code, message, data := classify(err)
		if code == codeServerError {
			s.logger.Error("rpc call failed", slog.String("method", req.Method), slog.Any("error", err))
		} else {
			s.logger.Debug("rpc call rejected", slog.String("method", req.Method), slog.String("reason", message))
		}
		writeError(w, status, req.ID, code, message, data)
		return code
	}
	writeResult(w, req.ID, result)
	return 0
}

func moduleOf(method string) string {
	module, _, found := strings.Cut(method, "_")
	if !found {
		return "unknown"
	}
	return module
}
