package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/corey/aptlookup/internal/domain/resolver"
	"github.com/corey/aptlookup/internal/domain/status"
	"github.com/corey/aptlookup/internal/ports"
)

// RemoteError is an error returned by the daemon. It matches the ports
// sentinel named by its code, so callers classify it with errors.Is exactly
// like an in-process error.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return "server error: " + e.Message
}

// Is maps the wire code back onto the ports sentinels.
func (e *RemoteError) Is(target error) bool {
	switch e.Code {
	case CodeNotReady:
		return target == ports.ErrNotReady
	case CodeUnknownBuilding:
		return target == ports.ErrUnknownBuilding
	case CodeLoadTransport:
		return target == ports.ErrLoadTransport
	case CodeLoadShape:
		return target == ports.ErrLoadShape
	}
	return false
}

// Client connects to the aptlookup daemon over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Resolve sends a free-text resolve request.
func (c *Client) Resolve(query string) (resolver.Outcome, error) {
	return c.outcome(MethodResolve, query)
}

// ResolveUnit sends a unit-number request.
func (c *Client) ResolveUnit(query string) (resolver.Outcome, error) {
	return c.outcome(MethodUnit, query)
}

func (c *Client) outcome(method, query string) (resolver.Outcome, error) {
	var result OutcomeResult
	if err := c.do(method, ResolveParams{Query: query}, &result); err != nil {
		return resolver.Outcome{}, err
	}
	return result.Outcome(), nil
}

// Districts lists districts.
func (c *Client) Districts() ([]string, error) {
	return c.list(MethodDistricts, GroupParams{})
}

// SubDistricts lists the sub-districts of district.
func (c *Client) SubDistricts(district string) ([]string, error) {
	return c.list(MethodSubDistricts, GroupParams{District: district})
}

// Buildings lists the buildings of one sub-district.
func (c *Client) Buildings(district, sub string) ([]string, error) {
	return c.list(MethodBuildings, GroupParams{District: district, SubDistrict: sub})
}

func (c *Client) list(method string, params GroupParams) ([]string, error) {
	var result ListResult
	if err := c.do(method, params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Building fetches one record picked through the drill-down.
func (c *Client) Building(district, sub, name string) (*ports.Record, error) {
	var result BuildingResult
	if err := c.do(MethodBuilding, GroupParams{District: district, SubDistrict: sub, Name: name}, &result); err != nil {
		return nil, err
	}
	return result.Record, nil
}

// Status fetches the loader status.
func (c *Client) Status() (*status.StatusData, error) {
	var result status.StatusData
	if err := c.do(MethodStatus, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reload asks the daemon to refetch its source, with an extended timeout.
func (c *Client) Reload() (*status.LoadSummary, error) {
	resp, err := c.callWithTimeout(Request{ID: "1", Method: MethodReload}, reloadTimeout+5*time.Second)
	if err != nil {
		return nil, err
	}
	var result status.LoadSummary
	if err := decodeResult(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.do(MethodHealth, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.call(Request{
		ID:     "1",
		Method: MethodShutdown,
	})
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *Client) do(method string, params, result interface{}) error {
	resp, err := c.call(Request{ID: "1", Method: method, Params: params})
	if err != nil {
		return err
	}
	return decodeResult(resp, result)
}

func decodeResult(resp *Response, v interface{}) error {
	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(resultJSON, v); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) call(req Request) (*Response, error) {
	return c.callWithTimeout(req, 5*time.Second)
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	// Send request
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	// Read response
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, &RemoteError{Code: resp.Code, Message: resp.Error}
	}
	return &resp, nil
}
