// Package socket implements a JSON-over-Unix-socket protocol for the aptlookup daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"github.com/corey/aptlookup/internal/domain/resolver"
	"github.com/corey/aptlookup/internal/ports"
)

// SocketPath returns the Unix socket path for a given project root.
// Format: /tmp/aptlookup-{first12hex}.sock
func SocketPath(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/aptlookup-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodResolve      = "resolve"
	MethodUnit         = "unit"
	MethodDistricts    = "districts"
	MethodSubDistricts = "subdistricts"
	MethodBuildings    = "buildings"
	MethodBuilding     = "building"
	MethodStatus       = "status"
	MethodReload       = "reload"
	MethodHealth       = "health"
	MethodShutdown     = "shutdown"
)

// Error codes carried next to the message so clients can restore sentinel errors.
const (
	CodeNotReady        = "not_ready"
	CodeUnknownBuilding = "unknown_building"
	CodeLoadTransport   = "load_transport"
	CodeLoadShape       = "load_shape"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Code   string      `json:"code,omitempty"`
}

// ResolveParams is the params for resolve and unit requests.
type ResolveParams struct {
	Query string `json:"query"`
}

// GroupParams selects a level of the drill-down. Empty fields are unused.
type GroupParams struct {
	District    string `json:"district,omitempty"`
	SubDistrict string `json:"sub_district,omitempty"`
	Name        string `json:"name,omitempty"`
}

// OutcomeResult is the wire form of a resolver.Outcome.
type OutcomeResult struct {
	Kind       string        `json:"kind"`
	Record     *ports.Record `json:"record,omitempty"`
	Fuzzy      bool          `json:"fuzzy,omitempty"`
	Via        string        `json:"via,omitempty"`
	Candidates []string      `json:"candidates,omitempty"`
}

// NewOutcomeResult converts an Outcome for the wire.
func NewOutcomeResult(o resolver.Outcome) OutcomeResult {
	return OutcomeResult{
		Kind:       o.Kind.String(),
		Record:     o.Record,
		Fuzzy:      o.Fuzzy,
		Via:        o.Via,
		Candidates: o.Candidates,
	}
}

// Outcome converts back to the domain type.
func (r OutcomeResult) Outcome() resolver.Outcome {
	return resolver.Outcome{
		Kind:       resolver.ParseKind(r.Kind),
		Record:     r.Record,
		Fuzzy:      r.Fuzzy,
		Via:        r.Via,
		Candidates: r.Candidates,
	}
}

// ListResult is the result of the districts, subdistricts and buildings requests.
type ListResult struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

// BuildingResult is the result of a building request.
type BuildingResult struct {
	Record *ports.Record `json:"record"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status     string `json:"status"`
	Ready      bool   `json:"ready"`
	Generation uint64 `json:"generation"`
	Records    int    `json:"records"`
	Uptime     string `json:"uptime"`
}
