// Package httpfetch performs the single GET used by the remote data sources
// and classifies every failure as a ports.TransportError. Retries are left to
// the caller (reload command, watcher, HTTP reload endpoint).
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/corey/aptlookup/internal/ports"
)

// DefaultTimeout bounds one fetch end to end.
const DefaultTimeout = 25 * time.Second

// MaxBody caps the size of a table payload.
const MaxBody = 32 << 20

// bodyLimit is MaxBody outside tests.
var bodyLimit int64 = MaxBody

// NewClient returns an HTTP client with bounded dial and handshake times.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Get fetches rawURL and returns the body. Network errors and non-2xx
// statuses become *ports.TransportError attributed to source.
func Get(ctx context.Context, client *http.Client, source, rawURL, accept string) ([]byte, error) {
	if client == nil {
		client = NewClient(DefaultTimeout)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &ports.TransportError{Source: source, Reason: "bad request", Err: err}
	}
	req.Header.Set("User-Agent", "aptlookup/1")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ports.TransportError{Source: source, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ports.TransportError{
			Source: source,
			Status: resp.StatusCode,
			Reason: condense(string(b)),
		}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit+1))
	if err != nil {
		return nil, &ports.TransportError{Source: source, Reason: "read body", Err: err}
	}
	if int64(len(b)) > bodyLimit {
		return nil, &ports.TransportError{Source: source, Reason: fmt.Sprintf("payload exceeds %dMB", bodyLimit>>20)}
	}
	return b, nil
}

func condense(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "no body"
	}
	return s
}
