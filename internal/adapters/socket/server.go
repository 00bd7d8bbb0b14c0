package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/corey/aptlookup/internal/domain/resolver"
	"github.com/corey/aptlookup/internal/domain/status"
	"github.com/corey/aptlookup/internal/ports"
)

// AppQueries is the application surface the daemon serves.
// Thread safety is the implementor's responsibility.
type AppQueries interface {
	Resolve(text string) resolver.Outcome
	ResolveUnit(text string) resolver.Outcome
	Districts() ([]string, error)
	SubDistricts(district string) ([]string, error)
	Buildings(district, sub string) ([]string, error)
	Building(district, sub, name string) (*ports.Record, error)
	Status() status.StatusData
	Reload(ctx context.Context) (status.LoadSummary, error)
}

// reloadTimeout bounds how long a reload request waits; the load itself
// keeps running for other waiters.
const reloadTimeout = 2 * time.Minute

// Server is the daemon that listens on a Unix socket and serves lookup requests.
type Server struct {
	queries  AppQueries
	listener net.Listener
	sockPath string
	started  time.Time

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server answering from queries.
func NewServer(queries AppQueries, sockPath string) *Server {
	return &Server{
		queries:    queries,
		sockPath:   sockPath,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first. If the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	// Handle stale socket
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		// Stale socket, remove it
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop gracefully shuts down the server, closing the listener and removing the socket file.
// Idempotent; safe to call multiple times (e.g., after remote shutdown + signal).
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB max message

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodHealth:
		return s.handleHealth(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	}

	if s.queries == nil {
		return Response{ID: req.ID, Error: "no application attached"}
	}

	switch req.Method {
	case MethodResolve:
		return s.handleResolve(req, s.queries.Resolve)
	case MethodUnit:
		return s.handleResolve(req, s.queries.ResolveUnit)
	case MethodDistricts:
		return s.handleList(req, func(GroupParams) ([]string, error) { return s.queries.Districts() })
	case MethodSubDistricts:
		return s.handleList(req, func(p GroupParams) ([]string, error) { return s.queries.SubDistricts(p.District) })
	case MethodBuildings:
		return s.handleList(req, func(p GroupParams) ([]string, error) { return s.queries.Buildings(p.District, p.SubDistrict) })
	case MethodBuilding:
		return s.handleBuilding(req)
	case MethodStatus:
		return Response{ID: req.ID, Result: s.queries.Status()}
	case MethodReload:
		return s.handleReload(req)
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// decodeParams re-marshals the generic params into a typed struct.
func decodeParams(req Request, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(paramsJSON, v)
}

func (s *Server) handleResolve(req Request, fn func(string) resolver.Outcome) Response {
	var params ResolveParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid resolve params"}
	}
	return Response{ID: req.ID, Result: NewOutcomeResult(fn(params.Query))}
}

func (s *Server) handleList(req Request, fn func(GroupParams) ([]string, error)) Response {
	var params GroupParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid group params"}
	}
	items, err := fn(params)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	if items == nil {
		items = []string{}
	}
	return Response{ID: req.ID, Result: ListResult{Items: items, Count: len(items)}}
}

func (s *Server) handleBuilding(req Request) Response {
	var params GroupParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid group params"}
	}
	rec, err := s.queries.Building(params.District, params.SubDistrict, params.Name)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: BuildingResult{Record: rec}}
}

func (s *Server) handleReload(req Request) Response {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	result, err := s.queries.Reload(ctx)
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleHealth(req Request) Response {
	result := HealthResult{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}
	if s.queries != nil {
		st := s.queries.Status()
		result.Ready = st.Ready
		result.Generation = st.Generation
		result.Records = st.Records
	}
	return Response{ID: req.ID, Result: result}
}

// errorResponse attaches a code for the error kinds clients distinguish.
func errorResponse(id string, err error) Response {
	resp := Response{ID: id, Error: err.Error()}
	switch {
	case errors.Is(err, ports.ErrNotReady):
		resp.Code = CodeNotReady
	case errors.Is(err, ports.ErrUnknownBuilding):
		resp.Code = CodeUnknownBuilding
	case errors.Is(err, ports.ErrLoadTransport):
		resp.Code = CodeLoadTransport
	case errors.Is(err, ports.ErrLoadShape):
		resp.Code = CodeLoadShape
	}
	return resp
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
