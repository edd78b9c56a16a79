package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/pageza/macrolog/backend/config"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	dir := flag.String("dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	flag.Parse()

	log := logrus.New()

	migrationsDir := *dir
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" || migrationsDir == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.WithError(err).Fatal("failed to load configuration")
		}
		if dsn == "" {
			dsn = cfg.PostgresDSN()
		}
		if migrationsDir == "" {
			migrationsDir = cfg.MigrationsDir
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		log.WithError(err).Fatal("failed to create migrations table")
	}

	if *rollback {
		if err := rollbackLast(db, migrationsDir, log); err != nil {
			log.WithError(err).Fatal("rollback failed")
		}
		return
	}
	if err := applyAll(db, migrationsDir, log); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	log.Info("all migrations applied successfully")
}

func applyAll(db *sql.DB, migrationsDir string, log logrus.FieldLogger) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		version := strings.TrimSuffix(file, ".up.sql")

		var applied bool
		if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", version).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			log.WithField("migration", version).Info("migration already applied")
			continue
		}

		content, err := os.ReadFile(filepath.Join(migrationsDir, file))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		err = inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(string(content)); err != nil {
				return err
			}
			_, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
		log.WithField("migration", version).Info("applied migration")
	}
	return nil
}

func rollbackLast(db *sql.DB, migrationsDir string, log logrus.FieldLogger) error {
	var version string
	err := db.QueryRow("SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		log.Info("no migrations to rollback")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	content, err := os.ReadFile(filepath.Join(migrationsDir, version+".down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback file: %w", err)
	}
	err = inTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(content)); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM schema_migrations WHERE version = $1", version)
		return err
	})
	if err != nil {
		return err
	}
	log.WithField("migration", version).Info("rolled back migration")
	return nil
}

func inTx(db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
