package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/corey/aptlookup/internal/adapters/sheet"
	"github.com/corey/aptlookup/internal/adapters/xlsx"
	"github.com/corey/aptlookup/internal/ports"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx|file.json>",
	Short: "Write the configured source's rows to a workbook or JSON file",
	Long: "Fetches every row from the configured source and writes it with the canonical columns\n" +
		"(district, sub_district, building_name, info, alias_spec). The format follows the file extension.",
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

// exporters maps a file extension to its writer.
var exporters = map[string]func(path string, rows []ports.RawRow) error{
	".xlsx": xlsx.WriteWorkbook,
	".json": sheet.WriteFile,
}

func runExport(cmd *cobra.Command, args []string) error {
	out := args[0]
	write, ok := exporters[strings.ToLower(filepath.Ext(out))]
	if !ok {
		return fmt.Errorf("unsupported export format %q (want .xlsx or .json)", filepath.Ext(out))
	}

	root := projectRoot()
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	src, err := cfg.BuildSource()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()
	rows, err := src.Fetch(ctx)
	if err != nil {
		return loadError(root, err)
	}

	if err := write(out, rows); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("⚡ exported %d rows from %s to %s\n", len(rows), src.Describe(), out)
	return nil
}
