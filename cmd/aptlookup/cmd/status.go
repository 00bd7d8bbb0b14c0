package cmd

import (
	"fmt"

	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/corey/aptlookup/internal/app"
	"github.com/corey/aptlookup/internal/domain/status"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the daemon has loaded",
	Long:  "Asks the running daemon for its load state. Without a daemon, shows the last status it wrote.",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	client := socket.NewClient(socket.SocketPath(root))

	if client.Ping() {
		st, err := client.Status()
		if err != nil {
			return err
		}
		fmt.Print(formatStatus(st))
		if h, err := client.Health(); err == nil {
			fmt.Printf("  Uptime:      %s\n", h.Uptime)
		}
		return nil
	}

	fmt.Println("⚡ aptlookup daemon is not running")
	st, err := status.ReadJSON(app.NewPaths(root).Status)
	if err != nil {
		return fmt.Errorf("read status file: %w", err)
	}
	if st != nil {
		fmt.Println(paint(colorGray, "  last recorded status:"))
		fmt.Print(formatStatus(st))
	}
	return nil
}
