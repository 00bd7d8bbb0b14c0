package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corey/aptlookup/internal/domain/index"
	"github.com/corey/aptlookup/internal/domain/resolver"
	"github.com/corey/aptlookup/internal/domain/rowstore"
	"github.com/corey/aptlookup/internal/domain/status"
	"github.com/corey/aptlookup/internal/ports"
	"golang.org/x/sync/singleflight"
)

// loadKey is the single singleflight key shared by LoadOnce and Reload, so a
// first load and a refresh can never run side by side.
const loadKey = "load"

// generation is one published, immutable set of indexes.
type generation struct {
	n        uint64
	engine   *resolver.Engine
	source   string
	loadedAt time.Time
}

// Loader fetches rows from a source, builds a Snapshot and publishes it
// atomically. At most one fetch is in flight; concurrent callers share it.
type Loader struct {
	source ports.RowSource
	opts   index.Options
	debug  bool

	group   singleflight.Group
	current atomic.Pointer[generation]
	nextGen atomic.Uint64
	waiting atomic.Int32 // callers attached to the in-flight load

	mu      sync.Mutex // guards state and lastErr
	state   status.State
	lastErr error

	// onLoad, if set, runs after every load attempt (success or failure),
	// outside any lock.
	onLoad func(summary status.LoadSummary, err error)
}

// NewLoader creates a loader in the not_loaded state.
func NewLoader(source ports.RowSource, opts index.Options) *Loader {
	return &Loader{
		source: source,
		opts:   opts,
		debug:  os.Getenv("APTLOOKUP_DEBUG") == "1",
		state:  status.NotLoaded,
	}
}

// LoadOnce loads the source unless a generation is already published.
// Concurrent callers attach to the same in-flight load.
func (l *Loader) LoadOnce(ctx context.Context) error {
	if l.current.Load() != nil {
		return nil
	}
	_, err := l.do(ctx, true)
	return err
}

// Reload fetches the source again and publishes a new generation. On
// failure the previous generation, if any, keeps serving.
func (l *Loader) Reload(ctx context.Context) (status.LoadSummary, error) {
	return l.do(ctx, false)
}

// do joins or starts the shared load. The load itself runs detached from
// ctx; ctx only bounds how long this caller waits for it. With once set, a
// generation published between the caller's check and the flight start
// satisfies the call without fetching again.
func (l *Loader) do(ctx context.Context, once bool) (status.LoadSummary, error) {
	detached := context.WithoutCancel(ctx)
	ch := l.group.DoChan(loadKey, func() (interface{}, error) {
		if g := l.current.Load(); once && g != nil {
			return summarize(g, 0), nil
		}
		return l.load(detached)
	})
	l.waiting.Add(1)
	defer l.waiting.Add(-1)
	select {
	case res := <-ch:
		if res.Err != nil {
			return status.LoadSummary{}, res.Err
		}
		return res.Val.(status.LoadSummary), nil
	case <-ctx.Done():
		return status.LoadSummary{}, ctx.Err()
	}
}

func (l *Loader) load(ctx context.Context) (summary status.LoadSummary, err error) {
	l.setState(status.Loading)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load panicked: %v", r)
			l.fail(err)
		}
		if l.onLoad != nil {
			l.onLoad(summary, err)
		}
	}()

	start := time.Now()
	raw, err := l.source.Fetch(ctx)
	if err != nil {
		l.fail(err)
		return status.LoadSummary{}, err
	}
	fetched := time.Since(start)

	store := rowstore.FromRaw(raw)
	snap := index.Build(store, l.opts)

	gen := &generation{
		n:        l.nextGen.Add(1),
		engine:   resolver.New(snap),
		source:   l.source.Describe(),
		loadedAt: time.Now(),
	}
	l.current.Store(gen)

	l.mu.Lock()
	l.state = status.Loaded
	l.lastErr = nil
	l.mu.Unlock()

	if l.debug {
		fmt.Fprintf(os.Stderr, "[%s] [debug] load generation=%d rows=%d fetch=%v names=%v groups=%v units=%v\n",
			time.Now().Format("15:04:05.000"), gen.n, store.Len(), fetched,
			snap.Timings.Names, snap.Timings.Groups, snap.Timings.Units)
	}

	return summarize(gen, time.Since(start)), nil
}

// fail records a load error. A refresh failure keeps the published
// generation and the loaded state; a first-load failure means no data.
func (l *Loader) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastErr = err
	if l.current.Load() != nil {
		l.state = status.Loaded
	} else {
		l.state = status.Failed
	}
}

func (l *Loader) setState(s status.State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Engine returns the resolver for the published generation, or nil.
func (l *Loader) Engine() *resolver.Engine {
	if g := l.current.Load(); g != nil {
		return g.engine
	}
	return nil
}

// Status describes the loader for operators.
func (l *Loader) Status() status.StatusData {
	l.mu.Lock()
	st, lastErr := l.state, l.lastErr
	l.mu.Unlock()

	d := status.StatusData{State: st, Source: l.source.Describe()}
	if lastErr != nil {
		d.LastError = lastErr.Error()
		d.Retryable = ports.Retryable(lastErr)
	}
	if g := l.current.Load(); g != nil {
		snap := g.engine.Snapshot()
		d.Ready = true
		d.Generation = g.n
		d.Source = g.source
		d.Records = snap.Store.Len()
		d.Keys = snap.Names.Len()
		d.Units = snap.Units.Len()
		d.Collisions = len(snap.Names.Collisions())
		d.LoadedAt = g.loadedAt
	}
	return d
}

func summarize(g *generation, elapsed time.Duration) status.LoadSummary {
	snap := g.engine.Snapshot()
	s := status.LoadSummary{
		Generation: g.n,
		Source:     g.source,
		Records:    snap.Store.Len(),
		Keys:       snap.Names.Len(),
		Units:      snap.Units.Len(),
		ElapsedMs:  elapsed.Milliseconds(),
	}
	for _, c := range snap.Names.Collisions() {
		s.Collisions = append(s.Collisions, status.CollisionInfo{
			Key:      c.Key,
			Previous: c.Previous.BuildingName,
			Winner:   c.Winner.BuildingName,
		})
	}
	return s
}

// IsCancelled reports whether err only means the caller stopped waiting.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
