// Package web serves the lookup engine as a JSON API over HTTP.
// Binds to localhost only: no network exposure, no auth needed.
package web

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/corey/aptlookup/internal/domain/resolver"
	"github.com/corey/aptlookup/internal/ports"
	"github.com/gorilla/mux"
)

// reloadTimeout bounds how long a reload request waits for the shared load.
const reloadTimeout = 2 * time.Minute

// Server serves the JSON API over HTTP.
type Server struct {
	queries  socket.AppQueries
	router   *mux.Router
	listener net.Listener
	httpSrv  *http.Server
	port     int
	started  time.Time
	stopOnce sync.Once

	portFilePath string // .aptlookup/run/http.port
}

// NewServer creates an HTTP server answering from queries.
// The portFilePath is where the bound port is written for discovery.
func NewServer(queries socket.AppQueries, portFilePath string) *Server {
	s := &Server{
		queries:      queries,
		portFilePath: portFilePath,
		started:      time.Now(),
	}
	s.setupRoutes()
	return s
}

// DefaultPort computes a project-specific port: 19500 + (hash(abs_path) % 500).
func DefaultPort(projectRoot string) int {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	// Use first 4 bytes as uint32
	n := uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3])
	return 19500 + int(n%500)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Encoded paths keep "%2F" inside a building name from splitting the route.
	s.router = mux.NewRouter().UseEncodedPath()

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/resolve", s.handleResolve).Methods("GET")
	api.HandleFunc("/units/{number}", s.handleUnit).Methods("GET")
	api.HandleFunc("/districts", s.handleDistricts).Methods("GET")
	api.HandleFunc("/districts/{district}/subdistricts", s.handleSubDistricts).Methods("GET")
	api.HandleFunc("/districts/{district}/subdistricts/{sub}/buildings", s.handleBuildings).Methods("GET")
	api.HandleFunc("/districts/{district}/subdistricts/{sub}/buildings/{name}", s.handleBuilding).Methods("GET")
	api.HandleFunc("/reload", s.handleReload).Methods("POST")

	s.router.Use(jsonContentType)
}

// Router exposes the handler tree (used by tests with httptest).
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening on the preferred port. Writes the port to the port file.
func (s *Server) Start(preferredPort int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", preferredPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.started = time.Now()

	s.httpSrv = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: reloadTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Write port file for discovery
	if s.portFilePath != "" {
		os.WriteFile(s.portFilePath, []byte(fmt.Sprintf("%d", s.port)), 0644)
	}

	go s.httpSrv.Serve(ln)
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
		if s.portFilePath != "" {
			os.Remove(s.portFilePath)
		}
	})
}

// Port returns the bound port number.
func (s *Server) Port() int {
	return s.port
}

// URL returns the API base URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps error kinds onto status codes: not ready 503, unknown
// building 404, load failures 502, anything else 500.
func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error()}
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ports.ErrNotReady):
		code, body.Code = http.StatusServiceUnavailable, socket.CodeNotReady
	case errors.Is(err, ports.ErrUnknownBuilding):
		code, body.Code = http.StatusNotFound, socket.CodeUnknownBuilding
	case errors.Is(err, ports.ErrLoadTransport):
		code, body.Code = http.StatusBadGateway, socket.CodeLoadTransport
	case errors.Is(err, ports.ErrLoadShape):
		code, body.Code = http.StatusBadGateway, socket.CodeLoadShape
	}
	writeJSON(w, code, body)
}

// pathVar returns a decoded route variable.
func pathVar(r *http.Request, name string) (string, error) {
	v, err := url.PathUnescape(mux.Vars(r)[name])
	if err != nil {
		return "", fmt.Errorf("bad %s: %w", name, err)
	}
	return v, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.queries.Status()
	writeJSON(w, http.StatusOK, socket.HealthResult{
		Status:     "ok",
		Ready:      st.Ready,
		Generation: st.Generation,
		Records:    st.Records,
		Uptime:     time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queries.Status())
}

func (s *Server) writeOutcome(w http.ResponseWriter, out resolver.Outcome) {
	code := http.StatusOK
	if out.Kind == resolver.NotReady {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, socket.NewOutcomeResult(out))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing q parameter"})
		return
	}
	s.writeOutcome(w, s.queries.Resolve(q))
}

func (s *Server) handleUnit(w http.ResponseWriter, r *http.Request) {
	number, err := pathVar(r, "number")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	s.writeOutcome(w, s.queries.ResolveUnit(number))
}

func writeList(w http.ResponseWriter, items []string, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []string{}
	}
	writeJSON(w, http.StatusOK, socket.ListResult{Items: items, Count: len(items)})
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	items, err := s.queries.Districts()
	writeList(w, items, err)
}

func (s *Server) handleSubDistricts(w http.ResponseWriter, r *http.Request) {
	district, err := pathVar(r, "district")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	items, err := s.queries.SubDistricts(district)
	writeList(w, items, err)
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	district, err1 := pathVar(r, "district")
	sub, err2 := pathVar(r, "sub")
	if err := errors.Join(err1, err2); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	items, err := s.queries.Buildings(district, sub)
	writeList(w, items, err)
}

func (s *Server) handleBuilding(w http.ResponseWriter, r *http.Request) {
	district, err1 := pathVar(r, "district")
	sub, err2 := pathVar(r, "sub")
	name, err3 := pathVar(r, "name")
	if err := errors.Join(err1, err2, err3); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rec, err := s.queries.Building(district, sub, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, socket.BuildingResult{Record: rec})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reloadTimeout)
	defer cancel()

	summary, err := s.queries.Reload(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
