// Package audit records who changed what. The sink is write-only from the
// core's point of view and always runs inside the transaction it documents.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/models"
	"gorm.io/gorm"
)

// Entity names.
const (
	EntityTemplate = "task_template"
	EntityGroup    = "task_group"
	EntityAsset    = "asset"
	EntityUserTask = "user_task"
)

// Entry is one audited mutation. Before and After are arbitrary snapshots,
// encoded as JSON.
type Entry struct {
	Entity      string
	EntityID    uint
	Action      string
	Before      any
	After       any
	ActorID     uint
	Note        string
	EvidenceURL string
	At          time.Time
}

// Sink appends entries using the caller's transaction.
type Sink interface {
	Append(tx *gorm.DB, e Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(tx *gorm.DB, e Entry) error

func (f SinkFunc) Append(tx *gorm.DB, e Entry) error { return f(tx, e) }

// DBSink writes entries to the audit_logs table.
type DBSink struct{}

// Append inserts e as an AuditLog row.
func (DBSink) Append(tx *gorm.DB, e Entry) error {
	before, err := snapshot(e.Before)
	if err != nil {
		return fmt.Errorf("audit: encode before: %w", err)
	}
	after, err := snapshot(e.After)
	if err != nil {
		return fmt.Errorf("audit: encode after: %w", err)
	}
	row := models.AuditLog{
		Entity:      e.Entity,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Before:      before,
		After:       after,
		ActorID:     e.ActorID,
		Note:        e.Note,
		EvidenceURL: e.EvidenceURL,
		CreatedAt:   e.At,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return apperr.Storage("audit: append", tx.Create(&row).Error)
}

// snapshot always yields valid JSON so strict json columns accept it.
func snapshot(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// List returns the audit rows for one entity, oldest first.
func List(db *gorm.DB, entity string, id uint) ([]models.AuditLog, error) {
	var rows []models.AuditLog
	err := db.Where("entity = ? AND entity_id = ?", entity, id).Order("id").Find(&rows).Error
	if err != nil {
		return nil, apperr.Storage("audit: list", err)
	}
	return rows, nil
}
