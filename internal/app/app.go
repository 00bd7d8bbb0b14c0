// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the aptlookup daemon: create, start, stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/corey/aptlookup/internal/adapters/ahocorasick"
	fsw "github.com/corey/aptlookup/internal/adapters/fsnotify"
	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/corey/aptlookup/internal/adapters/web"
	"github.com/corey/aptlookup/internal/domain/index"
	"github.com/corey/aptlookup/internal/domain/resolver"
	"github.com/corey/aptlookup/internal/domain/status"
	"github.com/corey/aptlookup/internal/ports"
)

// watchReloadTimeout bounds a reload triggered by a file change.
const watchReloadTimeout = 2 * time.Minute

// App is the top-level container wiring all components together.
type App struct {
	ProjectRoot string
	Paths       *Paths

	Source    ports.RowSource
	Server    *socket.Server
	WebServer *web.Server     // nil when the HTTP API is disabled
	Watcher   ports.Watcher   // nil when no local file is watched

	loader    *Loader
	watchPath string // absolute path of the watched source file ("" = none)
	httpPort  int    // preferred HTTP port (0 = auto from project root)
	started   time.Time
}

// Config holds initialization parameters for the App.
type Config struct {
	ProjectRoot string
	Source      ports.RowSource // required

	// WatchPath is a local source file to watch; a change triggers Reload.
	// Empty disables the watcher.
	WatchPath string

	SortLocale string // BCP 47 tag for drill-down ordering ("" = first-seen order)
	HTTPPort   int    // 0 = computed from project root, <0 = no HTTP API

	NewMatcher func() ports.KeyMatcher // default: Aho-Corasick
	Watcher    ports.Watcher           // default: fsnotify, only when WatchPath is set
}

// New creates an App with all dependencies wired. Does not start services
// and does not load data.
func New(cfg Config) (*App, error) {
	if cfg.ProjectRoot == "" {
		return nil, fmt.Errorf("project root required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("data source required")
	}
	if cfg.NewMatcher == nil {
		cfg.NewMatcher = ahocorasick.NewKeyMatcher
	}

	sorter, err := index.CollateSorter(cfg.SortLocale)
	if err != nil {
		return nil, err
	}

	a := &App{
		ProjectRoot: cfg.ProjectRoot,
		Paths:       NewPaths(cfg.ProjectRoot),
		Source:      cfg.Source,
		httpPort:    cfg.HTTPPort,
	}
	a.loader = NewLoader(cfg.Source, index.Options{Sorter: sorter, NewMatcher: cfg.NewMatcher})
	a.loader.onLoad = a.onLoad

	a.Server = socket.NewServer(a, socket.SocketPath(cfg.ProjectRoot))
	if cfg.HTTPPort >= 0 {
		a.WebServer = web.NewServer(a, a.Paths.PortFile)
	}

	if cfg.WatchPath != "" {
		abs, err := filepath.Abs(cfg.WatchPath)
		if err != nil {
			return nil, fmt.Errorf("watch path: %w", err)
		}
		a.watchPath = abs
		a.Watcher = cfg.Watcher
		if a.Watcher == nil {
			w, err := fsw.NewWatcher()
			if err != nil {
				return nil, fmt.Errorf("create watcher: %w", err)
			}
			a.Watcher = w
		}
	}
	return a, nil
}

// onLoad records every daemon load attempt in the status file and on stdout.
// In-process loads (before Start) report through their callers instead.
func (a *App) onLoad(summary status.LoadSummary, err error) {
	if a.started.IsZero() {
		return
	}
	st := a.loader.Status()
	if err == nil {
		fmt.Printf("[reload] %s\n", summary.Summary())
		for _, c := range summary.Collisions {
			fmt.Printf("[warning] key %q now resolves to %q (was %q)\n", c.Key, c.Winner, c.Previous)
		}
	} else if st.Ready {
		fmt.Printf("[warning] refresh failed, serving generation %d: %v\n", st.Generation, err)
	} else {
		fmt.Printf("[warning] load failed: %v\n", err)
	}
	if werr := status.WriteJSON(a.Paths.Status, &st); werr != nil {
		fmt.Printf("[warning] write status: %v\n", werr)
	}
}

// LoadOnce loads the source unless data is already loaded. Concurrent calls
// share one fetch.
func (a *App) LoadOnce(ctx context.Context) error {
	return a.loader.LoadOnce(ctx)
}

// Reload fetches the source again and publishes a new generation. The
// previous generation keeps serving if the fetch fails.
func (a *App) Reload(ctx context.Context) (status.LoadSummary, error) {
	return a.loader.Reload(ctx)
}

// Resolve answers free text: a unit number, a building name or an alias.
func (a *App) Resolve(text string) resolver.Outcome {
	e := a.loader.Engine()
	if e == nil {
		return resolver.NotReadyOutcome()
	}
	return detach(e.Resolve(text))
}

// ResolveUnit answers a unit number given as text ("1203", "1203호").
func (a *App) ResolveUnit(text string) resolver.Outcome {
	e := a.loader.Engine()
	if e == nil {
		return resolver.NotReadyOutcome()
	}
	n, ok := resolver.UnitNumber(text)
	if !ok {
		return resolver.Outcome{Kind: resolver.None}
	}
	return detach(e.ResolveUnit(n))
}

// detach gives the caller its own copy of a hit record, so nothing outside
// the app can modify a published generation.
func detach(out resolver.Outcome) resolver.Outcome {
	if out.Record != nil {
		rec := *out.Record
		out.Record = &rec
	}
	return out
}

func (a *App) groups() (*index.GroupIndex, error) {
	e := a.loader.Engine()
	if e == nil {
		return nil, ports.ErrNotReady
	}
	return e.Snapshot().Groups, nil
}

// Districts lists every district of the drill-down.
func (a *App) Districts() ([]string, error) {
	g, err := a.groups()
	if err != nil {
		return nil, err
	}
	return g.Districts(), nil
}

// SubDistricts lists the sub-districts of district. Unknown districts yield
// an empty list.
func (a *App) SubDistricts(district string) ([]string, error) {
	g, err := a.groups()
	if err != nil {
		return nil, err
	}
	return g.SubDistricts(district), nil
}

// Buildings lists the buildings of one sub-district.
func (a *App) Buildings(district, sub string) ([]string, error) {
	g, err := a.groups()
	if err != nil {
		return nil, err
	}
	return g.Buildings(district, sub), nil
}

// Building returns the record at the end of a drill-down path.
func (a *App) Building(district, sub, name string) (*ports.Record, error) {
	g, err := a.groups()
	if err != nil {
		return nil, err
	}
	rec, ok := g.Building(district, sub, name)
	if !ok {
		return nil, fmt.Errorf("%s / %s / %s: %w", district, sub, name, ports.ErrUnknownBuilding)
	}
	cp := *rec
	return &cp, nil
}

// Status describes the loaded data.
func (a *App) Status() status.StatusData {
	return a.loader.Status()
}

// Start prepares .aptlookup/, performs the first load and begins serving.
// A failed first load is reported but does not stop the daemon: queries
// answer not-ready until a reload succeeds.
func (a *App) Start(ctx context.Context) error {
	a.started = time.Now()
	if err := a.Paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create %s: %w", a.Paths.Root, err)
	}

	if err := a.LoadOnce(ctx); err != nil && IsCancelled(err) {
		return err
	}

	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	// HTTP API is non-fatal if the port is unavailable
	if a.WebServer != nil {
		httpPort := a.httpPort
		if httpPort == 0 {
			httpPort = web.DefaultPort(a.ProjectRoot)
		}
		if err := a.WebServer.Start(httpPort); err != nil {
			fmt.Printf("[warning] HTTP API unavailable: %v\n", err)
		}
	}
	// File watcher is non-fatal if setup fails
	if a.Watcher != nil {
		if err := a.Watcher.Watch(a.watchPath, a.onFileChanged); err != nil {
			fmt.Printf("[warning] file watcher unavailable: %v\n", err)
		}
	}
	return nil
}

// onFileChanged reloads after the watched source file settles.
func (a *App) onFileChanged(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), watchReloadTimeout)
	defer cancel()
	// onLoad already reported the outcome.
	_, _ = a.Reload(ctx)
}

// Stop shuts down all services. Idempotent.
func (a *App) Stop() error {
	var errs []error
	if a.Watcher != nil {
		errs = append(errs, a.Watcher.Stop())
	}
	if a.WebServer != nil {
		a.WebServer.Stop()
	}
	errs = append(errs, a.Server.Stop())
	return errors.Join(errs...)
}

// Uptime returns how long the daemon has been running.
func (a *App) Uptime() time.Duration {
	if a.started.IsZero() {
		return 0
	}
	return time.Since(a.started).Round(time.Second)
}
