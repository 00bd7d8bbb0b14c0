package sheet

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/corey/aptlookup/internal/adapters/httpfetch"
	"github.com/corey/aptlookup/internal/ports"
)

// HTTPSource fetches the table from a spreadsheet web app endpoint.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns a source reading url with the default client.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, Client: httpfetch.NewClient(httpfetch.DefaultTimeout)}
}

// Describe names the source for errors and status output.
func (s *HTTPSource) Describe() string {
	return "sheet " + s.URL
}

// Fetch performs one GET and decodes the body.
func (s *HTTPSource) Fetch(ctx context.Context) ([]ports.RawRow, error) {
	body, err := httpfetch.Get(ctx, s.Client, s.Describe(), s.URL, "application/json")
	if err != nil {
		return nil, err
	}
	return Decode(s.Describe(), body)
}

// FileSource reads the same JSON payload from a local file.
type FileSource struct {
	Path string
}

// NewFileSource returns a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Describe names the source for errors and status output.
func (s *FileSource) Describe() string {
	return "file " + s.Path
}

// Fetch reads and decodes the file. An unreadable file is a transport failure.
func (s *FileSource) Fetch(ctx context.Context) ([]ports.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ports.TransportError{Source: s.Describe(), Reason: "cancelled", Err: err}
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &ports.TransportError{Source: s.Describe(), Reason: "read file", Err: err}
	}
	return Decode(s.Describe(), data)
}

// WriteFile writes rows as a JSON array of objects with canonical column
// names. Used by export.
func WriteFile(path string, rows []ports.RawRow) error {
	data, err := Encode(rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var (
	_ ports.RowSource = (*HTTPSource)(nil)
	_ ports.RowSource = (*FileSource)(nil)
)
