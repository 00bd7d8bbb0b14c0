package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/corey/aptlookup/internal/app"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the aptlookup daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	Long:  "Loads the table, serves queries on a Unix socket and a localhost HTTP API, and reloads when a local source file changes.",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	sockPath := socket.SocketPath(root)

	// Check if already running
	client := socket.NewClient(sockPath)
	if client.Ping() {
		fmt.Println("⚡ daemon already running")
		return nil
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	ac, err := cfg.AppConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ac)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	err = a.Start(ctx)
	cancel()
	if err != nil {
		return err
	}
	os.WriteFile(a.Paths.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644)

	fmt.Printf("⚡ aptlookup daemon started at %s\n", sockPath)
	fmt.Printf("  source: %s\n", a.Source.Describe())
	if a.WebServer != nil && a.WebServer.Port() != 0 {
		fmt.Printf("  http:   %s/api\n", a.WebServer.URL())
	}
	if ac.WatchPath != "" {
		fmt.Printf("  watch:  %s\n", ac.WatchPath)
	}

	// Wait for a signal or a remote stop
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-a.Server.ShutdownCh():
	}

	fmt.Println("\n⚡ shutting down...")
	err = a.Stop()
	a.Paths.CleanEphemeral()
	return err
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	sockPath := socket.SocketPath(root)
	client := socket.NewClient(sockPath)

	if !client.Ping() {
		fmt.Println("⚡ daemon is not running")
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return err
	}

	fmt.Println("⚡ daemon stopped")
	return nil
}
