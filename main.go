package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/azure"
	"github.com/careplanner/backend/internal/config"
	"github.com/careplanner/backend/internal/kvstore"
	"github.com/careplanner/backend/internal/store"
	"github.com/careplanner/backend/pkg/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "careplanner",
		Short:         "CarePlanner care coordination backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(auditCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runServer(cfg, logger)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reset the configured storage to the demo data set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			storage, closeStorage, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStorage()

			s := openStore(ctx, cfg, storage, logger)
			s.Reset()

			fmt.Printf("Storage %q reset to %d patients and %d appointments.\n",
				cfg.Storage.Driver, len(s.Patients()), len(s.Appointments()))
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate counts from the configured storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			storage, closeStorage, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStorage()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(openStore(ctx, cfg, storage, logger).Stats())
		},
	}
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent audit entries for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			auditor, closeAudit, err := audit.Open(cmd.Context(), cfg.Audit.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer closeAudit()

			if !auditor.Persistent() {
				return fmt.Errorf("audit.databaseurl is not configured")
			}

			entries, err := auditor.GetAuditLogs(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-25s %-8s %-16s %s\n", "TIMESTAMP", "OP", "RESOURCE", "ID")
			for _, e := range entries {
				fmt.Fprintf(out, "%-25s %-8s %-16s %s\n",
					e.Timestamp.Format(time.RFC3339), e.OperationType, e.ResourceType, e.ResourceID)
			}
			return nil
		},
	}
	cmd.Flags().String("user", "d1", "User ID to list entries for")
	cmd.Flags().Int("limit", 50, "Maximum number of entries")
	return cmd
}

// bootstrap loads configuration and builds the process logger
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Server.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level

	switch cfg.Logging.Format {
	case "json":
		zcfg.Encoding = "json"
	case "console":
		zcfg.Encoding = "console"
	}

	return zcfg.Build()
}

// openStorage builds the configured key/value storage. The blob driver gets
// its own container client.
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (kvstore.Storage, func(), error) {
	opts := kvstore.Options{
		Driver:        cfg.Storage.Driver,
		Dir:           cfg.Storage.Dir,
		DatabaseURL:   cfg.Storage.DatabaseURL,
		MaxConns:      cfg.Storage.MaxConns,
		EncryptionKey: cfg.Storage.EncryptionKey,
	}

	if cfg.Storage.Driver == kvstore.DriverBlob {
		blobs, err := newBlobClient(ctx, cfg, cfg.Azure.Storage.StateContainer, logger)
		if err != nil {
			return nil, nil, err
		}
		opts.Blobs = blobs
	}

	return kvstore.Open(ctx, opts, logger)
}

func newBlobClient(ctx context.Context, cfg *config.Config, container string, logger *zap.Logger) (*azure.BlobStorageClient, error) {
	client, err := azure.NewBlobStorageClient(
		cfg.Azure.Storage.AccountName,
		cfg.Azure.Storage.AccountKey,
		container,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob storage client for %s: %w", container, err)
	}
	if err := client.EnsureContainer(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func openStore(ctx context.Context, cfg *config.Config, storage kvstore.Storage, logger *zap.Logger) *store.Store {
	return store.Open(ctx, storage, logger,
		store.WithRiskPolicy(store.RiskPolicy{
			model.VitalStatusCritical: cfg.Risk.Critical,
			model.VitalStatusHigh:     cfg.Risk.High,
			model.VitalStatusElevated: cfg.Risk.Elevated,
			model.VitalStatusNormal:   cfg.Risk.Normal,
		}),
		store.WithPersistTimeout(cfg.Storage.PersistTimeout),
	)
}
