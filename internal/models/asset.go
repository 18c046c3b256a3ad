package models

import "time"

// Asset is a building or site that tasks are performed at.
type Asset struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null;uniqueIndex"`
	Address   string `gorm:"size:256"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Units []Unit `gorm:"foreignKey:AssetID"`
}

// Unit is a room, floor section or rentable space inside an asset.
type Unit struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	AssetID   uint   `gorm:"not null;index"`
	Name      string `gorm:"size:128;not null"`
	Floor     string `gorm:"size:16"`
	CreatedAt time.Time
}
