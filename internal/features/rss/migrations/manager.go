package migrations

import (
	"context"
	"fmt"
	"slices"

	"feedwatch/internal/core"
)

// schema lists the feed store migrations in version order
var schema = []core.Migration{
	Migration001CreateRSSTables,
	Migration002AddPostIndexes,
}

// Manager applies the schema of the sqlite mirror
type Manager struct {
	migrationService *core.MigrationService
	logger           *core.Logger
}

// NewManager creates a new RSS migration manager
func NewManager(db *core.Database, logger *core.Logger) *Manager {
	return &Manager{
		migrationService: core.NewMigrationService(db, logger),
		logger:           logger,
	}
}

// Migrations returns the feed store migrations in version order
func (m *Manager) Migrations() []core.Migration {
	return slices.Clone(schema)
}

// Migrate applies every migration not yet recorded
func (m *Manager) Migrate(ctx context.Context) error {
	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.Debug("Feed store schema is up to date", "version", schema[len(schema)-1].Version)
		return nil
	}

	for _, migration := range pending {
		if err := m.migrationService.ApplyMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	m.logger.Info("Feed store schema migrated", "applied", len(pending), "version", pending[len(pending)-1].Version)
	return nil
}

// Rollback reverts the newest applied feed store migration
func (m *Manager) Rollback(ctx context.Context) error {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for i := len(schema) - 1; i >= 0; i-- {
		if !applied[schema[i].Version] {
			continue
		}
		if err := m.migrationService.RollbackMigration(ctx, schema[i]); err != nil {
			return fmt.Errorf("failed to rollback migration %d (%s): %w", schema[i].Version, schema[i].Name, err)
		}
		return nil
	}

	return fmt.Errorf("no feed store migrations have been applied")
}

// Status returns the current migration status
func (m *Manager) Status(ctx context.Context) (*core.MigrationStatus, error) {
	if err := m.migrationService.InitMigrations(ctx); err != nil {
		return nil, err
	}
	return m.migrationService.GetMigrationStatus(ctx)
}

// Pending returns the migrations that have not been applied, in version order
func (m *Manager) Pending(ctx context.Context) ([]core.Migration, error) {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var pending []core.Migration
	for _, migration := range schema {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

func (m *Manager) appliedVersions(ctx context.Context) (map[int]bool, error) {
	if err := m.migrationService.InitMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	applied, err := m.migrationService.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	versions := make(map[int]bool, len(applied))
	for _, migration := range applied {
		versions[migration.Version] = true
	}
	return versions, nil
}
