package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	pkgconfig "github.com/SrinivasareddyGatla/open-commerce-search/pkg/config"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/database"
	pkgkafka "github.com/SrinivasareddyGatla/open-commerce-search/pkg/kafka"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/logger"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/configstore"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/tenant"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/migrations"
)

const defaultConfigFile = "config/search.yaml"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate, resolve and import search settings",
	}
	cmd.PersistentFlags().StringP("file", "f", defaultConfigFile, "Path to the settings YAML file")

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the settings file",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "resolve <tenant>",
		Short: "Print the merged search configuration of a tenant",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	})

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the settings stored in PostgreSQL with the file contents",
		Long: "Reads the POSTGRES_* environment variables, runs pending migrations and " +
			"replaces every stored tenant and index configuration. With --notify the " +
			"running search services are told to reload.",
		Args: cobra.NoArgs,
		RunE: runImport,
	}
	importCmd.Flags().StringSlice("notify", nil, "Kafka brokers to publish a config-changed event to")
	cmd.AddCommand(importCmd)

	return cmd
}

func commandLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logger.NewWithWriter("ocsctl", level, logger.FormatText, cmd.ErrOrStderr())
}

func loadFile(cmd *cobra.Command) (*domain.Settings, error) {
	path, _ := cmd.Flags().GetString("file")
	return configstore.NewFileStore(path, commandLogger(cmd)).Load(cmd.Context())
}

func runValidate(cmd *cobra.Command, _ []string) error {
	settings, err := loadFile(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d tenants, %d indexes\n", len(settings.Tenants), len(settings.Indexes))
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	settings, err := loadFile(cmd)
	if err != nil {
		return err
	}
	sc, err := tenant.NewResolver(settings, false, commandLogger(cmd)).Resolve(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(sc)
}

func runImport(cmd *cobra.Command, _ []string) error {
	log := commandLogger(cmd)
	settings, err := loadFile(cmd)
	if err != nil {
		return err
	}

	var pgCfg database.PostgresConfig
	if err := pkgconfig.Load(&pgCfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if err := configstore.NewPostgresStore(pool).Save(ctx, settings); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d tenants, %d indexes\n", len(settings.Tenants), len(settings.Indexes))

	brokers, _ := cmd.Flags().GetStringSlice("notify")
	if len(brokers) == 0 {
		return nil
	}
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(brokers), log)
	defer producer.Close()

	event, err := pkgkafka.NewEvent(ctx, pkgkafka.EventTypeConfigChanged, "", "ocsctl", pkgkafka.ConfigChanged{})
	if err != nil {
		return err
	}
	if err := producer.Publish(ctx, pkgkafka.TopicConfigChanged, event); err != nil {
		return fmt.Errorf("notify search services: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "config-changed event published")
	return nil
}
