// Package status describes the loader's state for operators and clients.
//
// The daemon writes a JSON status file after every load attempt so that
// scripts can check freshness without talking to the socket.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StatusFile is the filename within the .aptlookup directory where status JSON is written.
const StatusFile = "status.json"

// State is the lifecycle state of the loaded data.
type State string

const (
	NotLoaded State = "not_loaded" // no load attempted yet
	Loading   State = "loading"    // a load is in flight (data may still be served from the previous generation)
	Loaded    State = "loaded"     // a generation is published
	Failed    State = "failed"     // the first load failed; no data
)

// StatusData is the JSON payload describing the current generation.
type StatusData struct {
	State      State     `json:"state"`
	Ready      bool      `json:"ready"`
	Generation uint64    `json:"generation"`
	Source     string    `json:"source"`
	Records    int       `json:"records"`
	Keys       int       `json:"keys"`
	Units      int       `json:"units"`
	Collisions int       `json:"collisions"`
	LoadedAt   time.Time `json:"loaded_at,omitzero"`
	LastError  string    `json:"last_error,omitempty"`
	Retryable  bool      `json:"retryable,omitempty"`
}

// Summary renders a one-line description for terminals and logs.
func (d *StatusData) Summary() string {
	switch d.State {
	case Loaded:
		s := "loaded " + plural(d.Records, "record") + ", " + plural(d.Keys, "key")
		if d.Collisions > 0 {
			s += ", " + plural(d.Collisions, "collision")
		}
		if d.LastError != "" {
			s += " (last refresh failed: " + d.LastError + ")"
		}
		return s
	case Loading:
		if d.Ready {
			return fmt.Sprintf("refreshing (serving generation %d)", d.Generation)
		}
		return "loading"
	case Failed:
		return "load failed: " + d.LastError
	default:
		return "not loaded"
	}
}

// WriteJSON writes the status data as JSON to a file.
func WriteJSON(path string, data *StatusData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// ReadJSON reads a status file written by WriteJSON.
// Returns nil, nil if the file does not exist.
func ReadJSON(path string) (*StatusData, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d StatusData
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// CollisionInfo is a wire-friendly Name Index collision: Key now resolves to
// Winner and no longer to Previous.
type CollisionInfo struct {
	Key      string `json:"key"`
	Previous string `json:"previous"`
	Winner   string `json:"winner"`
}

// LoadSummary reports the outcome of one successful load.
type LoadSummary struct {
	Generation uint64          `json:"generation"`
	Source     string          `json:"source"`
	Records    int             `json:"records"`
	Keys       int             `json:"keys"`
	Units      int             `json:"units"`
	Collisions []CollisionInfo `json:"collisions,omitempty"`
	ElapsedMs  int64           `json:"elapsed_ms"`
}

// Summary renders a one-line description of the load.
func (s *LoadSummary) Summary() string {
	out := fmt.Sprintf("generation %d: %s, %s, %s from %s in %dms",
		s.Generation, plural(s.Records, "record"), plural(s.Keys, "key"),
		plural(s.Units, "unit range"), s.Source, s.ElapsedMs)
	if n := len(s.Collisions); n > 0 {
		out += ", " + plural(n, "collision")
	}
	return out
}
