package task

import (
	"strings"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/audit"
	"github.com/zulandar/caretaker/internal/db"
	"github.com/zulandar/caretaker/internal/models"
	"gorm.io/gorm"
)

// CreateAsset stores a building or site.
func CreateAsset(gdb *gorm.DB, actorID uint, name, address string) (*models.Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name", "is required")
	}

	a := models.Asset{Name: name, Address: address}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&a).Error; err != nil {
			if db.IsDuplicate(err) {
				return apperr.Invalid("name", "asset %q already exists", name)
			}
			return apperr.Storage("task: create asset", err)
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityAsset,
			EntityID: a.ID,
			Action:   "create",
			After:    a,
			ActorID:  actorID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssets returns all assets with their units.
func ListAssets(gdb *gorm.DB) ([]models.Asset, error) {
	var assets []models.Asset
	if err := gdb.Preload("Units").Order("name").Find(&assets).Error; err != nil {
		return nil, apperr.Storage("task: list assets", err)
	}
	return assets, nil
}

// CreateUnit adds a unit to an existing asset.
func CreateUnit(gdb *gorm.DB, actorID, assetID uint, name, floor string) (*models.Unit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name", "is required")
	}

	u := models.Unit{AssetID: assetID, Name: name, Floor: floor}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Asset{}, "asset", assetID); err != nil {
			return err
		}
		if err := tx.Create(&u).Error; err != nil {
			return apperr.Storage("task: create unit", err)
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityAsset,
			EntityID: assetID,
			Action:   "add_unit",
			After:    u,
			ActorID:  actorID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}
