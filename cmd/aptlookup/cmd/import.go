package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/corey/aptlookup/internal/adapters/bbolt"
	"github.com/corey/aptlookup/internal/app"
	"github.com/corey/aptlookup/internal/config"
	"github.com/spf13/cobra"
)

var (
	importTable  string
	importList   bool
	importDelete bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the configured source into the project database",
	Long: "Fetches every row from the configured source and stores it as a table in .aptlookup/aptlookup.db,\n" +
		"where the bolt source (the default) reads it. A running daemon watching the database reloads on its own.\n\n" +
		"  aptlookup import --source sheet --url https://script.google.com/.../exec\n" +
		"  aptlookup import --source xlsx --path buildings.xlsx --table seoul\n" +
		"  aptlookup import --list",
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importTable, "table", config.DefaultTable, "Table to write")
	importCmd.Flags().BoolVar(&importList, "list", false, "List stored tables instead of importing")
	importCmd.Flags().BoolVar(&importDelete, "delete", false, "Delete the table instead of importing")
}

func runImport(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	paths := app.NewPaths(root)
	if err := paths.EnsureDirs(); err != nil {
		return err
	}

	if importList {
		return listTables(root, paths.DB)
	}

	if importDelete {
		store, err := openStore(root, paths.DB)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.DeleteTable(importTable); err != nil {
			return err
		}
		fmt.Printf("⚡ deleted table %s\n", importTable)
		return nil
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cfg.Source == config.KindBolt {
		return fmt.Errorf("import needs a source other than bolt (use --source)")
	}
	src, err := cfg.BuildSource()
	if err != nil {
		return err
	}

	// Fetch before opening the database so readers are only locked out
	// for the write itself.
	start := time.Now()
	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()
	rows, err := src.Fetch(ctx)
	if err != nil {
		return loadError(root, err)
	}

	store, err := openStore(root, paths.DB)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveRows(importTable, rows); err != nil {
		return fmt.Errorf("save table %s: %w", importTable, err)
	}

	fmt.Printf("⚡ imported %d rows from %s into table %s │ %s\n",
		len(rows), src.Describe(), importTable, time.Since(start).Round(time.Millisecond))
	return nil
}

func openStore(root, dbPath string) (*bbolt.Store, error) {
	store, err := bbolt.NewStore(dbPath)
	if err != nil && isDBLockError(err) {
		return nil, fmt.Errorf("%w\n%s", err, diagnoseDBLock(root))
	}
	return store, err
}

func listTables(root, dbPath string) error {
	store, err := bbolt.OpenReadOnly(dbPath)
	if err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("%w\n%s", err, diagnoseDBLock(root))
		}
		fmt.Println("⚡ no tables imported yet")
		return nil
	}
	defer store.Close()

	tables, err := store.Tables()
	if err != nil {
		return err
	}
	fmt.Printf("%s %d\n", paint(colorBold, "⚡ tables"), len(tables))
	for _, t := range tables {
		fmt.Printf("  %-16s %6d rows  %s\n", paint(colorCyan, t.Name), t.Rows,
			paint(colorGray, t.ImportedAt.Local().Format(time.DateTime)))
	}
	return nil
}
