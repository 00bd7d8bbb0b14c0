// Package config resolves where the building table comes from and how the
// daemon serves it. Settings are layered: defaults, .aptlookup/config.json,
// a project .env file, APTLOOKUP_* environment variables, then CLI flags.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/corey/aptlookup/internal/adapters/bbolt"
	"github.com/corey/aptlookup/internal/adapters/htmltable"
	"github.com/corey/aptlookup/internal/adapters/httpfetch"
	"github.com/corey/aptlookup/internal/adapters/postgres"
	"github.com/corey/aptlookup/internal/adapters/sheet"
	"github.com/corey/aptlookup/internal/adapters/xlsx"
	"github.com/corey/aptlookup/internal/app"
	"github.com/corey/aptlookup/internal/ports"
)

// Source kinds.
const (
	KindSheet    = "sheet"    // JSON from a spreadsheet web app URL
	KindFile     = "file"     // the same JSON from a local file
	KindXLSX     = "xlsx"     // an Excel workbook
	KindHTML     = "html"     // a table in a published web page
	KindPostgres = "postgres" // a PostgreSQL table
	KindBolt     = "bolt"     // a table imported into .aptlookup/aptlookup.db
)

// Kinds lists every source kind in display order.
var Kinds = []string{KindSheet, KindFile, KindXLSX, KindHTML, KindPostgres, KindBolt}

// DefaultTable is the table name used by the bolt and postgres sources.
const DefaultTable = "buildings"

// Config is the effective configuration for one project.
type Config struct {
	Source   string `json:"source"`
	URL      string `json:"url,omitempty"`      // sheet, html
	Path     string `json:"path,omitempty"`     // file, xlsx, bolt
	Sheet    string `json:"sheet,omitempty"`    // xlsx sheet name ("" = first sheet)
	Selector string `json:"selector,omitempty"` // html table selector
	DSN      string `json:"dsn,omitempty"`      // postgres
	Table    string `json:"table,omitempty"`    // postgres, bolt

	TimeoutSeconds int    `json:"timeout_seconds,omitempty"` // sheet, html
	SortLocale     string `json:"sort_locale,omitempty"`
	HTTPPort       int    `json:"http_port,omitempty"` // 0 = derived from project root, -1 = off
	Watch          bool   `json:"watch"`

	root string
}

// Default returns the configuration used when nothing is set: the table
// imported into the project database, watched for changes.
func Default(projectRoot string) *Config {
	return &Config{
		Source: KindBolt,
		Table:  DefaultTable,
		Watch:  true,
		root:   projectRoot,
	}
}

// Load builds the effective configuration for projectRoot from the config
// file, the project .env file and the environment.
func Load(projectRoot string) (*Config, error) {
	cfg := Default(projectRoot)
	if err := cfg.LoadFile(app.NewPaths(projectRoot).Config); err != nil {
		return nil, err
	}
	if err := LoadEnv(filepath.Join(projectRoot, ".env")); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFile overlays the JSON file at path. A missing file leaves cfg as is.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays APTLOOKUP_* variables.
func (c *Config) ApplyEnv() {
	c.Source = GetEnv("APTLOOKUP_SOURCE", c.Source)
	c.URL = GetEnv("APTLOOKUP_SOURCE_URL", c.URL)
	c.Path = GetEnv("APTLOOKUP_SOURCE_PATH", c.Path)
	c.Sheet = GetEnv("APTLOOKUP_SHEET", c.Sheet)
	c.Selector = GetEnv("APTLOOKUP_SELECTOR", c.Selector)
	c.DSN = GetEnv("APTLOOKUP_PG_DSN", c.DSN)
	c.Table = GetEnv("APTLOOKUP_TABLE", c.Table)
	c.TimeoutSeconds = GetEnvInt("APTLOOKUP_TIMEOUT", c.TimeoutSeconds)
	c.SortLocale = GetEnv("APTLOOKUP_SORT_LOCALE", c.SortLocale)
	c.HTTPPort = GetEnvInt("APTLOOKUP_HTTP_PORT", c.HTTPPort)
	c.Watch = GetEnvBool("APTLOOKUP_WATCH", c.Watch)
}

// Save writes the configuration as indented JSON, creating .aptlookup/ if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Validate checks that the selected source kind has everything it needs.
func (c *Config) Validate() error {
	switch c.Source {
	case KindSheet, KindHTML:
		if c.URL == "" {
			return fmt.Errorf("source %s needs a url (--url or APTLOOKUP_SOURCE_URL)", c.Source)
		}
		u, err := url.Parse(c.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("source %s: %q is not an http(s) url", c.Source, c.URL)
		}
	case KindFile, KindXLSX:
		if c.Path == "" {
			return fmt.Errorf("source %s needs a path (--path or APTLOOKUP_SOURCE_PATH)", c.Source)
		}
	case KindPostgres:
		if c.DSN == "" {
			return fmt.Errorf("source postgres needs a dsn (APTLOOKUP_PG_DSN)")
		}
		if c.Table == "" {
			return fmt.Errorf("source postgres needs a table")
		}
	case KindBolt:
		if c.Table == "" {
			return fmt.Errorf("source bolt needs a table")
		}
	case "":
		return fmt.Errorf("no source configured")
	default:
		return fmt.Errorf("unknown source %q (want one of %v)", c.Source, Kinds)
	}
	if c.HTTPPort < -1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http port %d out of range", c.HTTPPort)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout %ds must not be negative", c.TimeoutSeconds)
	}
	return nil
}

// ResolvedPath returns Path made absolute against the project root. The
// bolt source falls back to the project database.
func (c *Config) ResolvedPath() string {
	p := c.Path
	if p == "" {
		if c.Source != KindBolt {
			return ""
		}
		return app.NewPaths(c.root).DB
	}
	if !filepath.IsAbs(p) && c.root != "" {
		p = filepath.Join(c.root, p)
	}
	return p
}

func (c *Config) timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return httpfetch.DefaultTimeout
}

// BuildSource validates the configuration and constructs its data source.
func (c *Config) BuildSource() (ports.RowSource, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Source {
	case KindSheet:
		src := sheet.NewHTTPSource(c.URL)
		src.Client = httpfetch.NewClient(c.timeout())
		return src, nil
	case KindFile:
		return sheet.NewFileSource(c.ResolvedPath()), nil
	case KindXLSX:
		return xlsx.NewSource(c.ResolvedPath(), c.Sheet), nil
	case KindHTML:
		src := htmltable.NewSource(c.URL, c.Selector)
		src.Client = httpfetch.NewClient(c.timeout())
		return src, nil
	case KindPostgres:
		return postgres.NewSource(c.DSN, c.Table), nil
	default:
		return bbolt.NewSource(c.ResolvedPath(), c.Table), nil
	}
}

// WatchPath returns the local file to watch for changes, or "" when watching
// is off or the source is remote.
func (c *Config) WatchPath() string {
	if !c.Watch {
		return ""
	}
	switch c.Source {
	case KindFile, KindXLSX, KindBolt:
		return c.ResolvedPath()
	}
	return ""
}

// AppConfig derives the daemon configuration.
func (c *Config) AppConfig() (app.Config, error) {
	src, err := c.BuildSource()
	if err != nil {
		return app.Config{}, err
	}
	return app.Config{
		ProjectRoot: c.root,
		Source:      src,
		WatchPath:   c.WatchPath(),
		SortLocale:  c.SortLocale,
		HTTPPort:    c.HTTPPort,
	}, nil
}

// Redacted returns a copy safe to print: the DSN is masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.DSN != "" {
		out.DSN = "********"
	}
	return out
}
