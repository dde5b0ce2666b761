package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	atrocore "github.com/deepakkuma24/atrocore"
	"github.com/deepakkuma24/atrocore/internal/config"
	"github.com/deepakkuma24/atrocore/internal/db"
	"github.com/deepakkuma24/atrocore/internal/logging"
	"github.com/deepakkuma24/atrocore/internal/migration"
	_ "github.com/deepakkuma24/atrocore/internal/migrations/treo"
	"github.com/deepakkuma24/atrocore/internal/schema"
)

var (
	configFile   string
	metadataDir  string
	fragmentsDir string
	dbURL        string
	dialect      string
	entities     string
	format       string
	outputDir    string
	outputFile   string
	withDDL      bool
	charset      string
	schemaName   string
	logLevel     string

	migrateModule string
	migrateFrom   string
	migrateTo     string
)

var rootCmd = &cobra.Command{
	Use:          "schemasync",
	Short:        "Build the database schema of an AtroCore application from its entity metadata",
	Long:         `Schemasync converts EspoCRM/AtroCore entity metadata into tables, columns, indexes and join tables, reconciled against an existing MySQL, PostgreSQL or SQLite database.`,
	SilenceUsage: true,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build and print the schema described by the metadata",
	RunE:  runBuild,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the registered migration units of a module between two versions",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	buildCmd.Flags().StringVarP(&metadataDir, "metadata", "m", "", "Entity metadata directory")
	buildCmd.Flags().StringVar(&fragmentsDir, "fragments", "", "Custom table fragments directory")
	buildCmd.Flags().StringVar(&dbURL, "db-url", "", "Database URL (postgres://, mysql:// or sqlite://); empty builds offline")
	buildCmd.Flags().StringVar(&dialect, "dialect", "", "Dialect of an offline build: mysql, postgres or sqlite")
	buildCmd.Flags().StringVarP(&entities, "entities", "e", "", "Specific entities (comma-separated, optional)")
	buildCmd.Flags().StringVarP(&format, "format", "f", "", "Output format: text, markdown or yaml (default: text)")
	buildCmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	buildCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	buildCmd.Flags().BoolVar(&withDDL, "ddl", false, "Append CREATE statements for the new tables")
	buildCmd.Flags().StringVar(&charset, "charset", "", "Charset of string columns (default: utf8mb4)")
	buildCmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL)")

	migrateCmd.Flags().StringVar(&dbURL, "db-url", "", "MySQL database to migrate (mysql://...)")
	migrateCmd.Flags().StringVar(&migrateModule, "module", "", "Module whose migrations run")
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "", "Installed version")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "Target version")
	_ = migrateCmd.MarkFlagRequired("module")
	_ = migrateCmd.MarkFlagRequired("from")
	_ = migrateCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(buildCmd, migrateCmd)
}

// loadConfig reads the configuration file and applies the flags that were set explicitly
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("metadata") {
		cfg.Metadata.Dir = metadataDir
	}
	if flags.Changed("fragments") {
		cfg.Metadata.FragmentsDir = fragmentsDir
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = dbURL
	}
	if flags.Changed("dialect") {
		cfg.Dialect = dialect
	}
	if flags.Changed("format") {
		cfg.Output.Format = format
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir = outputDir
	}
	if flags.Changed("charset") {
		cfg.Charset = charset
	}
	if flags.Changed("schema") {
		cfg.SchemaName = schemaName
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Validate flag combinations
	if cfg.Output.Dir != "" && outputFile != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}
	if cfg.Output.Dir != "" && withDDL {
		return fmt.Errorf("--ddl cannot be combined with --output-dir")
	}
	d, ok := schema.ParseDialect(cfg.Dialect)
	if !ok {
		return fmt.Errorf("invalid dialect: %s (must be 'mysql', 'postgres' or 'sqlite')", cfg.Dialect)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, err := atrocore.BuildSchema(ctx, &atrocore.Options{
		MetadataDir:       cfg.Metadata.Dir,
		FragmentsDir:      cfg.Metadata.FragmentsDir,
		Entities:          parseEntityList(entities),
		DatabaseURL:       cfg.DatabaseURL,
		SchemaName:        cfg.SchemaName,
		Dialect:           d,
		MaxIndexKeyLength: cfg.MaxIndexKeyLength,
		Charset:           cfg.Charset,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	logger.Info("Schema built", zap.Int("tables", len(s.Tables)))

	outOpts := &atrocore.OutputOptions{
		OutputDir: cfg.Output.Dir,
		Format:    cfg.Output.Format,
		DDL:       withDDL,
	}
	if cfg.Output.Dir == "" {
		var writer io.Writer = cmd.OutOrStdout()
		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer func() {
				if err := f.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
				}
			}()
			writer = f
		}
		outOpts.Writer = writer
	}

	if err := atrocore.FormatSchema(ctx, s, outOpts); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("--db-url is required to run migrations")
	}
	conn, err := openMigrationDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ran, err := migration.NewRunner(migration.Default, conn, logger).Run(ctx, migrateModule, migrateFrom, migrateTo)
	if err != nil {
		return err
	}
	if !ran {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "nothing to migrate for %s\n", migrateModule)
		return nil
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s from %s to %s\n", migrateModule, migrateFrom, migrateTo)
	return nil
}

// openMigrationDB connects to the database migrations run against. The
// registered units issue MySQL statements.
var openMigrationDB = func(ctx context.Context, url string) (*sql.DB, error) {
	if !strings.HasPrefix(url, "mysql://") {
		return nil, fmt.Errorf("migrations run against MySQL only (database URL must start with mysql://)")
	}
	client, err := db.NewMySQLClient(ctx, strings.TrimPrefix(url, "mysql://"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	return client.GetDB(), nil
}

// parseEntityList splits a comma-separated entity list
func parseEntityList(s string) []string {
	if s == "" {
		return nil
	}
	list := strings.Split(s, ",")
	for i, e := range list {
		list[i] = strings.TrimSpace(e)
	}
	return list
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
