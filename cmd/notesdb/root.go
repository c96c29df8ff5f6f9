package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"secureNotes/internal/audit"
	"secureNotes/internal/config"
	"secureNotes/internal/db"
	"secureNotes/internal/logging"
)

// app carries what every subcommand needs once the root pre-run has finished.
type app struct {
	configPath string
	driver     string
	dsn        string
	logLevel   string
	verbose    bool

	cfg   *config.Config
	log   *logrus.Logger
	audit *audit.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "notesdb",
		Short: "Manage the users/notes store",
		Long: `notesdb owns the users and notes tables: it applies and resets the schema,
manages rows from the command line and serves a gRPC health endpoint.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&a.driver, "db-driver", "", "database driver (sqlite3|postgres)")
	flags.StringVar(&a.dsn, "db-dsn", "", "SQLite path or Postgres connection string")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (overrides config)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newMigrateCmd(a),
		newResetCmd(a),
		newServeCmd(a),
		newUsersCmd(a),
		newNotesCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Read(a.configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if a.driver != "" {
		cfg.Database.Driver = a.driver
	}
	if a.dsn != "" {
		if dialect, _ := db.ParseDialect(cfg.Database.Driver); dialect == db.Postgres {
			cfg.Database.DSN = a.dsn
		} else {
			cfg.Database.Path = a.dsn
		}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.audit = cfg, log, audit.New(log)
	log.Debugf("Configuration loaded: %v", cfg)
	return nil
}

// connect opens the configured database without touching the schema.
func (a *app) connect() (*db.DB, error) {
	return db.Connect(a.cfg.Database.Driver, a.cfg.Database.DataSource())
}

// open opens the configured database and applies pending migrations.
func (a *app) open() (*db.DB, error) {
	return db.OpenDriver(a.cfg.Database.Driver, a.cfg.Database.DataSource())
}
