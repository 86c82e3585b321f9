package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/internal/pkg/config"
	"github.com/yolotrainer/portal/internal/pkg/env"
	"github.com/yolotrainer/portal/internal/pkg/logger"
)

func main() {
	env.SetupEnvFile()
	cfg := config.Load()
	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel, ServiceName: "portal-migrate", Version: cfg.Version})
	defer func() { _ = log.Sync() }()

	var source string

	open := func() (*migrate.Migrate, error) {
		db := cfg.Database
		if db.Driver != "mysql" {
			return nil, fmt.Errorf("migrations are written for mysql, got DB_DRIVER=%s (use DB_AUTO_MIGRATE instead)", db.Driver)
		}
		dbURL := fmt.Sprintf("mysql://%s:%s@tcp(%s:%d)/%s?multiStatements=true&parseTime=true",
			db.User, db.Password, db.Host, db.Port, db.Name)
		log.Info("connecting to database",
			zap.String("user", db.User),
			zap.String("host", db.Host),
			zap.Int("port", db.Port),
			zap.String("database", db.Name),
		)
		return migrate.New("file://"+source, dbURL)
	}

	run := func(fn func(m *migrate.Migrate) error) error {
		m, err := open()
		if err != nil {
			return fmt.Errorf("init migrate: %w", err)
		}
		defer func() {
			if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
				log.Warn("closing migrate resources", zap.NamedError("source", sourceErr), zap.NamedError("database", dbErr))
			}
		}()
		err = fn(m)
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no change: database is up to date")
			return nil
		}
		return err
	}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Schema migrations for the YOLO Trainer portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&source, "path", "migrations", "directory holding the migration files")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(m *migrate.Migrate) error { return m.Up() })
			},
		},
		&cobra.Command{
			Use:   "down [n]",
			Short: "Roll back n migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n := 1
				if len(args) == 1 {
					v, err := strconv.Atoi(args[0])
					if err != nil || v < 1 {
						return fmt.Errorf("invalid step count %q", args[0])
					}
					n = v
				}
				return run(func(m *migrate.Migrate) error { return m.Steps(-n) })
			},
		},
		&cobra.Command{
			Use:   "goto <version>",
			Short: "Migrate up or down to a specific version",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return run(func(m *migrate.Migrate) error { return m.Migrate(uint(v)) })
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the version without running migrations (clears the dirty flag)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return run(func(m *migrate.Migrate) error { return m.Force(v) })
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(m *migrate.Migrate) error {
					v, dirty, err := m.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						fmt.Println("no migrations applied")
						return nil
					}
					if err != nil {
						return err
					}
					fmt.Printf("version=%d dirty=%t\n", v, dirty)
					return nil
				})
			},
		},
	)

	if err := root.Execute(); err != nil {
		log.Error("migration failed", zap.Error(err))
		os.Exit(1)
	}
}
