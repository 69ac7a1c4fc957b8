package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hypergopher/downblog"
	"github.com/hypergopher/downblog/bboltstore"
	"github.com/hypergopher/downblog/internal/config"
	"github.com/hypergopher/downblog/mongostore"
	"github.com/hypergopher/downblog/sqlstore"
)

// app is the state shared by every command once the root pre-run has loaded it.
type app struct {
	v      *viper.Viper
	cfg    config.Config
	logger *slog.Logger
	blog   *downblog.DownBlog
}

const configFlag = "config"

// NewRootCommand builds the downblog command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "downblog",
		Short: "Store, list and serve blog posts",
		Long: `downblog manages blog posts kept in memory, bbolt, SQLite, PostgreSQL or MongoDB.

Settings come from an optional config file, DOWNBLOG_* environment variables and flags.

Examples:
  downblog serve --store sqlite --data-dir ./data
  downblog list --sort-field title --sort-order desc --limit 10
  downblog seed posts.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(configFlag, "", "Path to a YAML or TOML config file")
	flags.String("store", config.StoreMemory, "Post store (memory, bbolt, sqlite, postgres, pgx, mongo)")
	flags.String("dsn", "", "Connection string for sqlite, postgres, pgx or mongo")
	flags.String("data-dir", "data", "Directory for the bbolt and default sqlite files")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	for key, flag := range map[string]string{
		config.KeyStore:    "store",
		config.KeyDSN:      "dsn",
		config.KeyDataDir:  "data-dir",
		config.KeyLogLevel: "log-level",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newServeCommand(a),
		newListCommand(a),
		newGetCommand(a),
		newSubmitCommand(a),
		newEditCommand(a),
		newDeleteCommand(a),
		newAuthorsCommand(a),
		newCountCommand(a),
		newSeedCommand(a),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	configFile, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(a.v, configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())

	store, err := openStore(cmd.Context(), cfg, a.logger)
	if err != nil {
		return err
	}

	blog, err := downblog.New(downblog.Options{
		Store:  store,
		Logger: a.logger,
	})
	if err != nil {
		_ = store.Close()
		return err
	}
	a.blog = blog

	return nil
}

// run wraps a command so the store is closed whether or not the command fails.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if closeErr := a.close(); err == nil {
				err = closeErr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) close() error {
	if a.blog == nil {
		return nil
	}
	err := a.blog.Close()
	a.blog = nil
	return err
}

// openStore creates and initializes the store named by the configuration.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (downblog.PostStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var store downblog.PostStore
	switch cfg.Store {
	case config.StoreMemory:
		store = downblog.NewMemoryPostStore()

	case config.StoreBBolt:
		store = bboltstore.New(cfg.DataDir, logger)

	case config.StoreSQLite, config.StorePostgres, config.StorePGX:
		dsn := cfg.DSN
		if cfg.Store == config.StoreSQLite {
			dsn = cfg.SQLiteDSN()
			if cfg.DSN == "" {
				if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
					return nil, fmt.Errorf("failed to create data directory: %w", err)
				}
			}
		}

		db, dialect, err := sqlstore.Open(ctx, cfg.Store, dsn)
		if err != nil {
			return nil, err
		}

		store, err = sqlstore.New(sqlstore.Options{
			DB:      db,
			Dialect: dialect,
			Table:   cfg.Table,
			Logger:  logger,
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}

	case config.StoreMongo:
		var err error
		store, err = mongostore.New(ctx, mongostore.Options{
			URI:        cfg.DSN,
			Database:   cfg.Database,
			Collection: cfg.Collection,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize %s store: %w", cfg.Store, err)
	}

	logger.Debug("store opened", slog.String("store", cfg.Store))
	return store, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
