package cmd

import (
	"context"
	"fmt"

	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Fetch the table again",
	Long: "Tells the running daemon to refetch its source. Without a daemon, performs one load\n" +
		"in-process and reports what it found, which checks that the source is usable.",
	RunE: runReload,
}

func runReload(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	client := socket.NewClient(socket.SocketPath(root))

	if !sourceFlagsSet() && client.Ping() {
		summary, err := client.Reload()
		if err != nil {
			return fmt.Errorf("reload failed, daemon keeps serving its previous data: %w", err)
		}
		fmt.Print(formatSummary(summary))
		return nil
	}

	a, err := newLocalApp(root)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()
	summary, err := a.Reload(ctx)
	if err != nil {
		return loadError(root, err)
	}
	fmt.Print(formatSummary(&summary))
	return nil
}
