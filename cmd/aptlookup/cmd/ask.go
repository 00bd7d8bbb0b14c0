package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/corey/aptlookup/internal/domain/resolver"
	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <text>",
	Short: "Resolve a building name, alias or unit number",
	Long: "Resolves free text to one building. Numbers such as 1203 or 1203호 are tried as unit numbers first.\n" +
		"Exit status: 0 found, 1 no single match, 2 error.",
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var unitCmd = &cobra.Command{
	Use:   "unit <number>",
	Short: "Find the building that owns a unit number",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnit,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the outcome as JSON")
	unitCmd.Flags().BoolVar(&askJSON, "json", false, "Print the outcome as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	q, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	text := strings.Join(args, " ")
	out, err := q.Resolve(text)
	if err != nil {
		return err
	}
	return printOutcome(text, out)
}

func runUnit(cmd *cobra.Command, args []string) error {
	if _, ok := resolver.UnitNumber(args[0]); !ok {
		return fmt.Errorf("%q is not a unit number", args[0])
	}
	q, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	out, err := q.ResolveUnit(args[0])
	if err != nil {
		return err
	}
	return printOutcome(args[0], out)
}

// printOutcome prints out and maps its kind onto the exit status.
func printOutcome(query string, out resolver.Outcome) error {
	if askJSON {
		data, err := json.MarshalIndent(socket.NewOutcomeResult(out), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		fmt.Print(formatOutcome(query, out))
	}
	return outcomeExit(out)
}

func outcomeExit(out resolver.Outcome) error {
	switch out.Kind {
	case resolver.Hit:
		return nil
	case resolver.NotReady:
		return exitCode{2}
	default:
		return exitCode{1}
	}
}
