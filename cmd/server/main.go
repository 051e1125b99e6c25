// Command server runs the linkshelf HTTP API.
//
//	server                 # same as "server serve"
//	server serve --port 9090
//	server migrate         # apply database migrations and exit
//
// Configuration comes from flags, LINKSHELF_* environment variables, an
// optional --config file and a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/linkshelf/internal/config"
	"github.com/sakif/linkshelf/internal/logging"
	sqliteRepo "github.com/sakif/linkshelf/internal/repository/sqlite"
	"github.com/sakif/linkshelf/internal/server"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}

	rootCmd := &cobra.Command{
		Use:          "server",
		Short:        "linkshelf bookmark organizer backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: serveCmd.RunE,
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to a YAML/TOML/JSON configuration file")
	flags.Int("port", defaults.GetInt("http.port"), "HTTP listen port")
	flags.String("base-url", defaults.GetString("http.base_url"), "Public origin used for OAuth callbacks")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("log-format", defaults.GetString("log.format"), "Log format (text, json)")
	flags.String("log-file", defaults.GetString("log.file"), "Also write logs to this rotated file")

	bindFlag(cmd, "http.port", "port")
	bindFlag(cmd, "http.base_url", "base-url")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "log.file", "log-file")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("linkshelf")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func runMigrate(ctx context.Context) error {
	dbCfg, err := config.LoadDatabase(viper.GetViper())
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(config.Log{Level: viper.GetString("log.level"), Format: viper.GetString("log.format")})
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := os.MkdirAll(filepath.Dir(dbCfg.Path), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sqliteRepo.Open(dbCfg.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return err
	}
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	logger.Info("migrations applied",
		slog.Int("applied", applied),
		slog.Int64("version", version),
		slog.String("database", dbCfg.Path),
	)
	return nil
}
