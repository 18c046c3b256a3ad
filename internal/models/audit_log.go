package models

import "time"

// AuditLog is an append-only record of a mutation.
type AuditLog struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Entity      string `gorm:"size:32;not null;index:idx_audit_entity"`
	EntityID    uint   `gorm:"index:idx_audit_entity"`
	Action      string `gorm:"size:32;not null"`
	Before      string `gorm:"type:json"`
	After       string `gorm:"type:json"`
	ActorID     uint   `gorm:"index"`
	Note        string `gorm:"type:text"`
	EvidenceURL string `gorm:"size:512"`
	CreatedAt   time.Time
}
