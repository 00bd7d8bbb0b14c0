package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/corey/aptlookup/internal/app"
	"github.com/corey/aptlookup/internal/config"
	"github.com/corey/aptlookup/internal/domain/resolver"
	"github.com/corey/aptlookup/internal/ports"
	"github.com/spf13/cobra"
)

// loadTimeout bounds an in-process load when no daemon is running.
const loadTimeout = 2 * time.Minute

var (
	flagSource string
	flagURL    string
	flagPath   string
)

var rootCmd = &cobra.Command{
	Use:           "aptlookup",
	Short:         "aptlookup: building lookup by name, alias or unit number",
	Long:          "Resolves free text to a building record from a district building table, and browses the table by district.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// projectRoot returns the project root (cwd by default).
func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "", "data source kind (sheet, file, xlsx, html, postgres, bolt)")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "source URL (sheet, html)")
	rootCmd.PersistentFlags().StringVar(&flagPath, "path", "", "source file (file, xlsx, bolt)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(unitCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

// sourceFlagsSet reports whether the command line overrides the source.
func sourceFlagsSet() bool {
	return flagSource != "" || flagURL != "" || flagPath != ""
}

// loadConfig resolves the effective configuration, CLI flags last.
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if flagSource != "" {
		cfg.Source = flagSource
	}
	if flagURL != "" {
		cfg.URL = flagURL
	}
	if flagPath != "" {
		cfg.Path = flagPath
	}
	return cfg, nil
}

// querier is what the query commands need; both the daemon client and an
// in-process app satisfy it.
type querier interface {
	Resolve(text string) (resolver.Outcome, error)
	ResolveUnit(text string) (resolver.Outcome, error)
	Districts() ([]string, error)
	SubDistricts(district string) ([]string, error)
	Buildings(district, sub string) ([]string, error)
	Building(district, sub, name string) (*ports.Record, error)
}

// localQuerier answers from an App loaded in this process.
type localQuerier struct{ a *app.App }

func (l localQuerier) Resolve(text string) (resolver.Outcome, error) {
	return l.a.Resolve(text), nil
}

func (l localQuerier) ResolveUnit(text string) (resolver.Outcome, error) {
	return l.a.ResolveUnit(text), nil
}

func (l localQuerier) Districts() ([]string, error) {
	return l.a.Districts()
}

func (l localQuerier) SubDistricts(district string) ([]string, error) {
	return l.a.SubDistricts(district)
}

func (l localQuerier) Buildings(district, sub string) ([]string, error) {
	return l.a.Buildings(district, sub)
}

func (l localQuerier) Building(district, sub, name string) (*ports.Record, error) {
	return l.a.Building(district, sub, name)
}

// connect returns the running daemon when there is one and the command line
// does not pick another source; otherwise it loads the table in-process.
func connect(ctx context.Context) (querier, error) {
	root := projectRoot()
	client := socket.NewClient(socket.SocketPath(root))
	if !sourceFlagsSet() && client.Ping() {
		return client, nil
	}

	a, err := newLocalApp(root)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	if err := a.LoadOnce(ctx); err != nil {
		return nil, loadError(root, err)
	}
	return localQuerier{a: a}, nil
}

// newLocalApp builds an App for one in-process command; nothing is served.
func newLocalApp(root string) (*app.App, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	ac, err := cfg.AppConfig()
	if err != nil {
		return nil, err
	}
	ac.WatchPath = ""
	ac.HTTPPort = -1
	return app.New(ac)
}
