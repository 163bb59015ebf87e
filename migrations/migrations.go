// Package migrations creates and upgrades the countries schema
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"path"
	"sort"

	"github.com/amirphl/country-gdp-service/models"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var files embed.FS

// nameIndexFile is dialect neutral and also applied after gorm's AutoMigrate
const nameIndexFile = "0002_create_countries_name_key_index.sql"

// Files returns the embedded migration file names in execution order
func Files() ([]string, error) {
	entries, err := files.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func read(name string) (string, error) {
	content, err := files.ReadFile(path.Join("sql", name))
	if err != nil {
		return "", fmt.Errorf("failed to read migration file %s: %w", name, err)
	}
	return string(content), nil
}

// Apply executes every PostgreSQL migration in order; each file is idempotent
func Apply(ctx context.Context, db *sql.DB) error {
	names, err := Files()
	if err != nil {
		return err
	}

	for _, name := range names {
		content, err := read(name)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, content); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		log.Printf("Applied migration: %s", name)
	}

	log.Printf("Successfully applied %d migrations", len(names))
	return nil
}

// AutoMigrate builds the schema through gorm for dialects the SQL files do not target (SQLite)
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Country{}); err != nil {
		return fmt.Errorf("failed to auto-migrate countries: %w", err)
	}

	content, err := read(nameIndexFile)
	if err != nil {
		return err
	}
	if err := db.Exec(content).Error; err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", nameIndexFile, err)
	}
	return nil
}
