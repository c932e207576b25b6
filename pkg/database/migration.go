package database

import (
	"fmt"

	"github.com/surdiana/modelbank/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		// Accounts and sessions
		&model.User{},
		&model.PasswordHistory{},
		&model.RefreshToken{},

		// Versioned records
		&model.Entity{},
		&model.EntityVersion{},
		&model.Relationship{},
		&model.RelationshipVersion{},
		&model.ModelDiagram{},
		&model.ModelDiagramVersion{},

		// Audit chain
		&model.AuditEntry{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
