package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
	"github.com/tendant/tagged-content/pkg/taggedcontent/config"
	fsstorage "github.com/tendant/tagged-content/pkg/taggedcontent/storage/fs"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database lifecycle commands",
}

func withMaintenance(fn func(ctx context.Context, maint taggedcontent.Maintenance) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		maint, err := cfg.BuildMaintenance(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, maint)
	}
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema",
	RunE: withMaintenance(func(ctx context.Context, maint taggedcontent.Maintenance) error {
		return maint.InitSchema(ctx)
	}),
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: withMaintenance(func(ctx context.Context, maint taggedcontent.Maintenance) error {
		return maint.Migrate(ctx)
	}),
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all data and recreate the schema",
	RunE: withMaintenance(func(ctx context.Context, maint taggedcontent.Maintenance) error {
		return maint.Reset(ctx)
	}),
}

var dbDumpCmd = &cobra.Command{
	Use:   "dump <path>",
	Short: "Write a database archive to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMaintenance(func(ctx context.Context, maint taggedcontent.Maintenance) error {
			return maint.Dump(ctx, args[0])
		})(cmd, args)
	},
}

var dbRestoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Replace the database contents with an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMaintenance(func(ctx context.Context, maint taggedcontent.Maintenance) error {
			return maint.Restore(ctx, args[0])
		})(cmd, args)
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Reclaim stale drafts and unreferenced objects",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		ctx := cmd.Context()

		repo, err := cfg.BuildRepo(ctx, log)
		if err != nil {
			return err
		}
		defer repo.Shutdown()

		result, err := repo.Prune(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("removed %d objects, freed %d bytes\n", len(result.Removed), result.SpaceFreed)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <export.json> <blob-dir>",
	Short: "Load an export file and its blobs into an empty repository",
	Long: `Load an export file and its blobs into an empty repository. The first
argument is an export payload written by the admin export endpoint; the
second is a directory holding the referenced blobs in filesystem store
layout. The target repository must be empty.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var data taggedcontent.ExportData
		if err := json.Unmarshal(payload, &data); err != nil {
			return fmt.Errorf("invalid export file: %w", err)
		}

		source, err := fsstorage.New(fsstorage.Config{BaseDir: args[1]})
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		ctx := cmd.Context()

		repo, err := cfg.BuildRepo(ctx, log)
		if err != nil {
			return err
		}
		defer repo.Shutdown()

		return repo.Import(ctx, &data, source)
	},
}

var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin <user-id>",
	Short: "Grant administrator rights to a user",
	Long: `Grant administrator rights to a user. This bootstraps the first
administrator; further grants can go through the API.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		ctx := cmd.Context()

		repo, err := cfg.BuildRepo(ctx, log)
		if err != nil {
			return err
		}
		defer repo.Shutdown()

		return repo.GrantAdmin(ctx, userID)
	},
}

func init() {
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbDumpCmd)
	dbCmd.AddCommand(dbRestoreCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(grantAdminCmd)
}
