package db

import (
	"encoding/json"
	"fmt"

	"github.com/zulandar/caretaker/internal/config"
	"github.com/zulandar/caretaker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model for migration, parents before children.
func AllModels() []interface{} {
	return []interface{}{
		&models.Asset{},
		&models.Unit{},
		&models.Role{},
		&models.User{},
		&models.UserAsset{},
		&models.TaskGroup{},
		&models.TaskTemplate{},
		&models.TaskSchedule{},
		&models.TaskParent{},
		&models.UserTask{},
		&models.UserTaskParent{},
		&models.UserTaskEvidence{},
		&models.AuditLog{},
		&models.GenerationRun{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// DropAll drops every table, children first. Used by reset on drivers
// without a separate admin connection.
func DropAll(db *gorm.DB) error {
	all := AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("db: drop %T: %w", all[i], err)
		}
	}
	return nil
}

// SeedRoles upserts Role rows from configuration.
func SeedRoles(db *gorm.DB, roles []config.RoleConfig) error {
	for _, rc := range roles {
		caps, err := marshalJSON(rc.Capabilities)
		if err != nil {
			return fmt.Errorf("db: marshal capabilities for role %q: %w", rc.Name, err)
		}
		role := models.Role{Name: rc.Name, Capabilities: caps}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"capabilities"}),
		}).Create(&role)
		if result.Error != nil {
			return fmt.Errorf("db: seed role %q: %w", rc.Name, result.Error)
		}
	}
	return nil
}

// SeedTaskGroups upserts TaskGroup rows from configuration. Seeded groups
// are active.
func SeedTaskGroups(db *gorm.DB, groups []config.TaskGroupConfig) error {
	for _, gc := range groups {
		group := models.TaskGroup{
			Name:      gc.Name,
			StartTime: gc.Start,
			EndTime:   gc.End,
			IsActive:  true,
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_time", "end_time", "is_active"}),
		}).Create(&group)
		if result.Error != nil {
			return fmt.Errorf("db: seed task group %q: %w", gc.Name, result.Error)
		}
	}
	return nil
}

// marshalJSON marshals a value to a JSON string, returning empty string for nil.
func marshalJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
