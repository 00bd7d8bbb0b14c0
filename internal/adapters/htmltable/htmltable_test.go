package htmltable

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corey/aptlookup/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A trimmed-down published spreadsheet: a column-letter row, row-number <th>
// cells, then the header and data.
const publishedPage = `<html><body>
<div id="sheets-viewport"><table class="waffle">
<thead><tr><th></th><th>A</th><th>B</th><th>C</th><th>D</th><th>E</th></tr></thead>
<tbody>
<tr><th>1</th><td>gu</td><td>dong</td><td>apt</td><td>info</td><td>aliases</td></tr>
<tr><th>2</th><td>Gangnam</td><td>Daechi</td><td>Tower   A</td><td>info-A</td><td>TA, 101-110</td></tr>
<tr><th>3</th><td></td><td></td><td></td><td></td><td></td></tr>
<tr><th>4</th><td>Gangnam</td><td>Daechi</td><td>Tower B</td><td>info-B</td><td>TB, 111-120</td></tr>
</tbody></table></div>
</body></html>`

func TestParse_PublishedSheet(t *testing.T) {
	rows, err := Parse("test", []byte(publishedPage), "table.waffle")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ports.RawRow{
		District: "Gangnam", SubDistrict: "Daechi", BuildingName: "Tower A",
		Info: "info-A", AliasSpec: "TA, 101-110",
	}, rows[0], "inner whitespace is condensed")
	assert.Equal(t, "Tower B", rows[1].BuildingName)
}

func TestParse_PlainTableWithThHeader(t *testing.T) {
	page := `<table id="t">
	<tr><th>District</th><th>Building</th></tr>
	<tr><td>Seocho</td><td>River Park</td></tr>
	</table>`
	rows, err := Parse("test", []byte(page), "#t")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Seocho", rows[0].District)
	assert.Equal(t, "River Park", rows[0].BuildingName)
}

func TestParse_ShapeFailures(t *testing.T) {
	_, err := Parse("test", []byte(publishedPage), "#missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrLoadShape))

	_, err = Parse("test", []byte(`<table><tr><td>x</td></tr></table>`), "table")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrLoadShape))
}

func TestSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(publishedPage))
	}))
	defer srv.Close()

	src := NewSource(srv.URL, "")
	assert.Equal(t, DefaultSelector, src.Selector)
	rows, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSource_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewSource(srv.URL, "").Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrLoadTransport))
}
