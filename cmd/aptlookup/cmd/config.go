package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/corey/aptlookup/internal/app"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the effective source settings, project paths, socket path, and daemon status. No daemon required.",
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to .aptlookup/config.json",
	Long: "Saves the current settings, including --source/--url/--path, so later commands and the daemon use them.\n\n" +
		"  aptlookup config init --source sheet --url https://script.google.com/.../exec",
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	paths := app.NewPaths(root)
	sockPath := socket.SocketPath(root)

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	shown := cfg.Redacted()

	client := socket.NewClient(sockPath)
	daemonRunning := client.Ping()
	daemonStatus := paint(colorYellow, "✗ not running")
	if daemonRunning {
		daemonStatus = paint(colorGreen, "✓ running")
	}

	fmt.Println(paint(colorBold, "⚡ aptlookup config"))
	fmt.Printf("  Project:    %s\n", filepath.Base(root))
	fmt.Printf("  Root:       %s\n", root)
	fmt.Printf("  Config:     %s\n", paths.Config)
	fmt.Printf("  DB:         %s\n", paths.DB)
	fmt.Printf("  Socket:     %s\n", sockPath)
	fmt.Printf("  Daemon:     %s\n", daemonStatus)

	if daemonRunning {
		if portData, err := os.ReadFile(paths.PortFile); err == nil {
			fmt.Printf("  HTTP API:   http://localhost:%s/api\n", strings.TrimSpace(string(portData)))
		}
	}

	fmt.Println(paint(colorBold, "  Source"))
	fmt.Printf("    Kind:     %s\n", shown.Source)
	for _, kv := range [][2]string{
		{"URL", shown.URL},
		{"Path", shown.ResolvedPath()},
		{"Sheet", shown.Sheet},
		{"Selector", shown.Selector},
		{"DSN", shown.DSN},
		{"Table", shown.Table},
		{"Locale", shown.SortLocale},
	} {
		if kv[1] != "" {
			fmt.Printf("    %-9s %s\n", kv[0]+":", kv[1])
		}
	}
	if w := cfg.WatchPath(); w != "" {
		fmt.Printf("    Watch:    %s\n", w)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("    %s\n", paint(colorYellow, "✗ "+err.Error()))
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	path := app.NewPaths(root).Config
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("⚡ wrote %s (source %s)\n", path, cfg.Source)
	return nil
}
