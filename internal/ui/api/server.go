package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"pathref/internal/core/app"
	"pathref/internal/core/errors"
	"pathref/internal/core/ports"
	"pathref/internal/shared/observability"
	"pathref/internal/shared/util"
	"pathref/internal/ui/report"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestIDHeader = "X-Request-ID"

type HealthChecker interface {
	Check(ctx context.Context) app.HealthStatus
}

type route struct {
	method     string
	path       string
	operation  string
	documented bool
	handler    http.HandlerFunc
}

// Server serves /metrics, /health, /openapi.json and the JSON query API.
type Server struct {
	addr    string
	svc     ports.ReferenceService
	health  HealthChecker
	limiter *util.LimiterRegistry
	trusted []netip.Prefix
	doc     *openapi3.T
	handler http.Handler
	server  *http.Server
}

func NewServer(addr string, svc ports.ReferenceService, health HealthChecker, rateLimit float64, burst int) (*Server, error) {
	doc, err := LoadContract()
	if err != nil {
		return nil, err
	}
	s := &Server{
		addr:    addr,
		svc:     svc,
		health:  health,
		limiter: util.NewLimiterRegistry(rateLimit, burst, 10*time.Minute),
		doc:     doc,
	}

	routes := s.routes()
	if err := checkRoutes(doc, routes); err != nil {
		s.limiter.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(contractJSON)
	})
	for _, rt := range routes {
		mux.Handle(rt.method+" "+rt.path, s.instrument(rt.operation, rt.path, rt.handler))
	}
	s.handler = withRequestID(mux)
	return s, nil
}

func (s *Server) routes() []route {
	return []route{
		{method: http.MethodGet, path: "/health", operation: "health", documented: true, handler: s.handleHealth},
		{method: http.MethodGet, path: "/api/modules", operation: "listModules", documented: true, handler: s.handleModules},
		{method: http.MethodGet, path: "/api/roots", operation: "computeRoots", documented: true, handler: s.handleRoots},
		{method: http.MethodGet, path: "/api/references", operation: "fileReferences", documented: true, handler: s.handleReferences},
		{method: http.MethodGet, path: "/api/scan", operation: "currentScan", documented: true, handler: s.handleSnapshot},
		{method: http.MethodPost, path: "/api/scan", operation: "runScan", documented: true, handler: s.handleScan},
		{method: http.MethodGet, path: "/api/history", operation: "scanHistory", documented: true, handler: s.handleHistory},
	}
}

// TrustProxies lets connections from the given ranges name the client in
// X-Forwarded-For. It must be called before Start.
func (s *Server) TrustProxies(prefixes []netip.Prefix) {
	s.trusted = append([]netip.Prefix(nil), prefixes...)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	slog.Info("api server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server failed", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.limiter.Close()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument rate limits /api routes per client and counts every request.
func (s *Server) instrument(operation, path string, next http.HandlerFunc) http.Handler {
	limited := strings.HasPrefix(path, "/api/")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			observability.APIRequestsTotal.WithLabelValues(operation, strconv.Itoa(rec.status)).Inc()
		}()

		if limited && !s.limiter.Get(s.clientIP(r)).Allow(1) {
			rec.Header().Set("Retry-After", "1")
			writeError(rec, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			return
		}
		next(rec, r)
		slog.Debug("api request", "operation", operation, "status", rec.status, "request_id", w.Header().Get(requestIDHeader))
	})
}

// clientIP keys the rate limiter. It is the peer address unless the peer is
// a trusted proxy, in which case X-Forwarded-For is walked from the right
// and the first hop that is not itself trusted wins.
func (s *Server) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !s.isTrusted(host) {
		return host
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop != "" && !s.isTrusted(hop) {
			return hop
		}
	}
	return host
}

func (s *Server) isTrusted(ip string) bool {
	if len(s.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range s.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.health.Check(r.Context())
	code := http.StatusOK
	if status.Status != "up" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	mods, err := s.svc.Modules(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mods)
}

type rootsResponse struct {
	Module         string                 `json:"module"`
	ScannedModules int                    `json:"scanned_modules"`
	Roots          []report.RootJSON      `json:"roots"`
	Stale          []report.StaleRootJSON `json:"stale"`
}

func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	module := strings.TrimSpace(q.Get("module"))
	if module == "" {
		writeError(w, http.StatusBadRequest, string(errors.CodeValidationError), "module is required")
		return
	}
	libraries := true
	if raw := q.Get("libraries"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(errors.CodeValidationError), "libraries must be a boolean")
			return
		}
		libraries = v
	}

	res, err := s.svc.Roots(r.Context(), ports.RootsRequest{Module: module, IncludeLibraries: libraries})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rootsResponse{
		Module:         res.Module,
		ScannedModules: res.Stats.ScannedModules,
		Roots:          report.RootsToJSON(res.Roots),
		Stale:          report.StaleRootsToJSON(res.Stats.Stale),
	})
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	file := strings.TrimSpace(r.URL.Query().Get("file"))
	if file == "" {
		writeError(w, http.StatusBadRequest, string(errors.CodeValidationError), "file is required")
		return
	}
	res, err := s.svc.FileReferences(r.Context(), file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.FileToJSON(res))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.SnapshotToJSON(snap))
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Scan(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.ScanToJSON(res))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(errors.CodeValidationError), "since must be RFC3339")
			return
		}
		since = t
	}
	scans, err := s.svc.History(r.Context(), since)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scans)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode api response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = msg
	writeJSON(w, status, body)
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := string(errors.CodeInternal)
	switch {
	case errors.IsCode(err, errors.CodeNotFound):
		status, code = http.StatusNotFound, string(errors.CodeNotFound)
	case errors.IsCode(err, errors.CodeValidationError):
		status, code = http.StatusBadRequest, string(errors.CodeValidationError)
	case errors.IsCode(err, errors.CodeConflict):
		status, code = http.StatusConflict, string(errors.CodeConflict)
	case errors.IsCode(err, errors.CodeNotSupported):
		status, code = http.StatusNotImplemented, string(errors.CodeNotSupported)
	}
	writeError(w, status, code, err.Error())
}
