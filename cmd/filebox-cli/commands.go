package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vrsandeep/filebox/internal/assets"
	"github.com/vrsandeep/filebox/internal/config"
	"github.com/vrsandeep/filebox/internal/db"
	"github.com/vrsandeep/filebox/internal/extract"
	"github.com/vrsandeep/filebox/internal/store"
	"github.com/vrsandeep/filebox/internal/util"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the folder lock database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		database, cfg, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date.\n", cfg.Database.Path)
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract ARCHIVE [DEST]",
	Short: "Extract a zip archive with the same checks the server applies",
	Long: "Extract a zip archive into DEST, or into a folder named after the\n" +
		"archive next to it. Entries that would land outside DEST abort the run.",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archivePath := args[0]
		dest := strings.TrimSuffix(archivePath, filepath.Ext(archivePath))
		if len(args) == 2 {
			dest = args[1]
		}
		info, err := os.Stat(archivePath)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dest, 0755); err != nil {
			return fmt.Errorf("could not create %s: %w", dest, err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Extracting %s (%s) into %s\n", archivePath, humanize.Bytes(uint64(info.Size())), dest)
		err = extract.Extract(cmd.Context(), archivePath, dest, func(percent float64) {
			fmt.Fprintf(out, "\r%5.1f%%", percent)
		})
		fmt.Fprintln(out)
		if errors.Is(err, extract.ErrPathTraversal) {
			return fmt.Errorf("refusing unsafe archive: %w", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Extraction completed successfully.")
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock FOLDER",
	Short: "Remove the password from a folder without knowing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		rel := util.CleanRelPath(args[0])
		st := store.New(database)
		folder, err := st.GetFolderByPath(rel)
		if errors.Is(err, store.ErrFolderNotFound) || (err == nil && !folder.Locked()) {
			return fmt.Errorf("folder %q is not locked", rel)
		}
		if err != nil {
			return err
		}
		if err := st.SetFolderPassword(rel, ""); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Folder %q unlocked.\n", rel)
		return nil
	},
}

// openDatabase loads config.yml and returns the migrated lock database.
func openDatabase() (*sql.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(database, assets.MigrationsFS); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return database, cfg, nil
}
