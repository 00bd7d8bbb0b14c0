package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/corey/aptlookup/internal/domain/index"
	"github.com/corey/aptlookup/internal/domain/resolver"
	"github.com/corey/aptlookup/internal/domain/rowstore"
	"github.com/corey/aptlookup/internal/domain/status"
	"github.com/corey/aptlookup/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueries answers from a real engine, or reports not-ready when engine is nil.
type fakeQueries struct {
	engine    *resolver.Engine
	reloadErr error
}

func newFakeQueries() *fakeQueries {
	store := rowstore.FromRaw([]ports.RawRow{
		{District: "Gangnam", SubDistrict: "Daechi", BuildingName: "Tower A", Info: "info-A", AliasSpec: "TA, 101-110"},
		{District: "Gangnam", SubDistrict: "Daechi", BuildingName: "Tower B", Info: "info-B", AliasSpec: "TB, 111-120"},
		{District: "Gangnam", SubDistrict: "Daechi", BuildingName: "A/S Hall", Info: "info-AS"},
	})
	return &fakeQueries{engine: resolver.New(index.Build(store, index.Options{}))}
}

func (f *fakeQueries) Resolve(text string) resolver.Outcome {
	if f.engine == nil {
		return resolver.NotReadyOutcome()
	}
	return f.engine.Resolve(text)
}

func (f *fakeQueries) ResolveUnit(text string) resolver.Outcome {
	if f.engine == nil {
		return resolver.NotReadyOutcome()
	}
	n, ok := resolver.UnitNumber(text)
	if !ok {
		return resolver.Outcome{Kind: resolver.None}
	}
	return f.engine.ResolveUnit(n)
}

func (f *fakeQueries) groups() (*index.GroupIndex, error) {
	if f.engine == nil {
		return nil, ports.ErrNotReady
	}
	return f.engine.Snapshot().Groups, nil
}

func (f *fakeQueries) Districts() ([]string, error) {
	g, err := f.groups()
	if err != nil {
		return nil, err
	}
	return g.Districts(), nil
}

func (f *fakeQueries) SubDistricts(d string) ([]string, error) {
	g, err := f.groups()
	if err != nil {
		return nil, err
	}
	return g.SubDistricts(d), nil
}

func (f *fakeQueries) Buildings(d, s string) ([]string, error) {
	g, err := f.groups()
	if err != nil {
		return nil, err
	}
	return g.Buildings(d, s), nil
}

func (f *fakeQueries) Building(d, s, name string) (*ports.Record, error) {
	g, err := f.groups()
	if err != nil {
		return nil, err
	}
	rec, ok := g.Building(d, s, name)
	if !ok {
		return nil, ports.ErrUnknownBuilding
	}
	return rec, nil
}

func (f *fakeQueries) Status() status.StatusData {
	if f.engine == nil {
		return status.StatusData{State: status.NotLoaded}
	}
	return status.StatusData{State: status.Loaded, Ready: true, Generation: 3, Records: f.engine.Snapshot().Store.Len()}
}

func (f *fakeQueries) Reload(ctx context.Context) (status.LoadSummary, error) {
	if f.reloadErr != nil {
		return status.LoadSummary{}, f.reloadErr
	}
	return status.LoadSummary{Generation: 4, Records: 3}, nil
}

var _ socket.AppQueries = (*fakeQueries)(nil)

func newTestServer(t *testing.T, q socket.AppQueries) *httptest.Server {
	t.Helper()
	srv := NewServer(q, "")
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, rawURL string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

// =============================================================================
// HTTP API: resolve, units, drill-down, status, reload
// =============================================================================

func TestHealth(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	var result socket.HealthResult
	code := getJSON(t, ts.URL+"/api/health", &result)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", result.Status)
	assert.True(t, result.Ready)
	assert.Equal(t, uint64(3), result.Generation)
	assert.Equal(t, 3, result.Records)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	var result status.StatusData
	code := getJSON(t, ts.URL+"/api/status", &result)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, status.Loaded, result.State)
	assert.Equal(t, 3, result.Records)
}

func TestResolve_Hit(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	var result socket.OutcomeResult
	code := getJSON(t, ts.URL+"/api/resolve?q="+url.QueryEscape("where is tower a?"), &result)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hit", result.Kind)
	require.NotNil(t, result.Record)
	assert.Equal(t, "Tower A", result.Record.BuildingName)
	assert.Equal(t, "info-A", result.Record.Info)
}

func TestResolve_UnitQuery(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	var result socket.OutcomeResult
	code := getJSON(t, ts.URL+"/api/resolve?q=115", &result)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hit", result.Kind)
	require.NotNil(t, result.Record)
	assert.Equal(t, "Tower B", result.Record.BuildingName)
}

func TestResolve_MissingQuery(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	var body errorBody
	code := getJSON(t, ts.URL+"/api/resolve", &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body.Error, "missing q")
}

func TestResolve_NotReady(t *testing.T) {
	ts := newTestServer(t, &fakeQueries{})

	var result socket.OutcomeResult
	code := getJSON(t, ts.URL+"/api/resolve?q=tower", &result)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, resolver.NotReady.String(), result.Kind)
}

func TestUnit(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	var result socket.OutcomeResult
	code := getJSON(t, ts.URL+"/api/units/"+url.PathEscape("105호"), &result)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hit", result.Kind)
	require.NotNil(t, result.Record)
	assert.Equal(t, "Tower A", result.Record.BuildingName)

	code = getJSON(t, ts.URL+"/api/units/999", &result)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "none", result.Kind)

	// Separators are not dropped: "1-05" is not unit 105.
	for _, number := range []string{"1-05", "-105", "1,05"} {
		var other socket.OutcomeResult
		code = getJSON(t, ts.URL+"/api/units/"+url.PathEscape(number), &other)
		assert.Equal(t, http.StatusOK, code, number)
		assert.Equal(t, "none", other.Kind, number)
		assert.Nil(t, other.Record, number)
	}
}

func TestDrillDown(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	var list socket.ListResult
	code := getJSON(t, ts.URL+"/api/districts", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"Gangnam"}, list.Items)

	code = getJSON(t, ts.URL+"/api/districts/Gangnam/subdistricts", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"Daechi"}, list.Items)

	code = getJSON(t, ts.URL+"/api/districts/Gangnam/subdistricts/Daechi/buildings", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, list.Count)
	assert.Contains(t, list.Items, "Tower A")

	var b socket.BuildingResult
	code = getJSON(t, ts.URL+"/api/districts/Gangnam/subdistricts/Daechi/buildings/"+url.PathEscape("Tower B"), &b)
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, b.Record)
	assert.Equal(t, "info-B", b.Record.Info)
}

func TestDrillDown_EncodedSlashInName(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	var b socket.BuildingResult
	name := strings.ReplaceAll(url.PathEscape("A/S Hall"), "/", "%2F")
	code := getJSON(t, ts.URL+"/api/districts/Gangnam/subdistricts/Daechi/buildings/"+name, &b)
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, b.Record)
	assert.Equal(t, "info-AS", b.Record.Info)
}

func TestDrillDown_UnknownDistrictIsEmpty(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	var list socket.ListResult
	code := getJSON(t, ts.URL+"/api/districts/Nowhere/subdistricts", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.NotNil(t, list.Items)
	assert.Empty(t, list.Items)
}

func TestDrillDown_UnknownBuilding(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	var body errorBody
	code := getJSON(t, ts.URL+"/api/districts/Gangnam/subdistricts/Daechi/buildings/Nope", &body)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, socket.CodeUnknownBuilding, body.Code)
}

func TestDrillDown_NotReady(t *testing.T) {
	ts := newTestServer(t, &fakeQueries{})

	var body errorBody
	code := getJSON(t, ts.URL+"/api/districts", &body)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, socket.CodeNotReady, body.Code)
}

func TestReload(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	resp, err := http.Post(ts.URL+"/api/reload", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var summary status.LoadSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, uint64(4), summary.Generation)
}

func TestReload_Failures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		wire string
	}{
		{"transport", &ports.TransportError{Source: "sheet x", Status: 500, Reason: "boom"}, http.StatusBadGateway, socket.CodeLoadTransport},
		{"shape", &ports.ShapeError{Source: "sheet x", Reason: "not an array"}, http.StatusBadGateway, socket.CodeLoadShape},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeQueries{engine: newFakeQueries().engine, reloadErr: tc.err})

			resp, err := http.Post(ts.URL+"/api/reload", "application/json", nil)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.code, resp.StatusCode)

			var body errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.wire, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestReload_WrongMethod(t *testing.T) {
	ts := newTestServer(t, newFakeQueries())

	resp, err := http.Get(ts.URL + "/api/reload")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// =============================================================================
// Lifecycle: port selection, port file
// =============================================================================

func TestDefaultPort(t *testing.T) {
	port := DefaultPort("/home/user/project")
	assert.GreaterOrEqual(t, port, 19500)
	assert.Less(t, port, 20000)

	// Deterministic
	assert.Equal(t, port, DefaultPort("/home/user/project"))
}

func TestDefaultPort_DifferentPaths(t *testing.T) {
	p1 := DefaultPort("/home/user/project-a")
	p2 := DefaultPort("/home/user/project-b")
	assert.GreaterOrEqual(t, p1, 19500)
	assert.GreaterOrEqual(t, p2, 19500)
}

func TestStartStop_PortFile(t *testing.T) {
	portFile := filepath.Join(t.TempDir(), "http.port")
	srv := NewServer(newFakeQueries(), portFile)
	require.NoError(t, srv.Start(0))

	data, err := os.ReadFile(portFile)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(srv.Port()), string(data))
	assert.Equal(t, "http://localhost:"+strconv.Itoa(srv.Port()), srv.URL())

	var result socket.HealthResult
	code := getJSON(t, "http://127.0.0.1:"+strconv.Itoa(srv.Port())+"/api/health", &result)
	assert.Equal(t, http.StatusOK, code)

	srv.Stop()
	srv.Stop()
	_, err = os.Stat(portFile)
	assert.True(t, os.IsNotExist(err))
}
