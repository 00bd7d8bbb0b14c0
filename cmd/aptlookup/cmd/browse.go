package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse [district [sub-district [building]]]",
	Short: "Walk the table by district, sub-district and building",
	Long: "With no arguments lists districts. Each further argument descends one level;\n" +
		"naming a building prints its record.",
	Args: cobra.MaximumNArgs(3),
	RunE: runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	q, err := connect(cmd.Context())
	if err != nil {
		return err
	}

	switch len(args) {
	case 0:
		items, err := q.Districts()
		if err != nil {
			return err
		}
		fmt.Print(formatList("districts", items))
	case 1:
		items, err := q.SubDistricts(args[0])
		if err != nil {
			return err
		}
		fmt.Print(formatList(args[0], items))
	case 2:
		items, err := q.Buildings(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Print(formatList(args[0]+" / "+args[1], items))
	default:
		rec, err := q.Building(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Print(formatRecord(rec))
	}
	return nil
}
