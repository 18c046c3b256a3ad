package models

import "time"

// Role is a named job function (cleaner, guard, supervisor). Capabilities is a
// JSON list resolved once at the boundary; core code never compares names.
type Role struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"size:64;not null;uniqueIndex"`
	Capabilities string `gorm:"type:json"`
}

// User is a staff member who can be assigned work.
type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null"`
	Email     string `gorm:"size:191;uniqueIndex"`
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAsset assigns a user to an asset under a role. It is the source of
// eligible assignees for task generation.
type UserAsset struct {
	UserID    uint `gorm:"primaryKey"`
	AssetID   uint `gorm:"primaryKey"`
	RoleID    uint `gorm:"primaryKey;index"`
	CreatedAt time.Time
}
