package models

import "time"

// UserTaskStatus is the completion state of a materialized work item.
type UserTaskStatus int

const (
	StatusPending    UserTaskStatus = 0
	StatusInProgress UserTaskStatus = 1
	StatusCompleted  UserTaskStatus = 2
)

func (s UserTaskStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "inprogress"
	case StatusCompleted:
		return "completed"
	}
	return "unknown"
}

// Evidence kinds.
const (
	EvidencePhoto = "photo"
	EvidenceScan  = "scan"
	EvidenceGeo   = "geo"
	EvidenceFile  = "file"
)

// UserTask is one dated, assignee-specific work item generated from a
// template. (TaskID, UserID, ScheduledDate, Time) is unique.
type UserTask struct {
	ID               uint           `gorm:"primaryKey;autoIncrement"`
	TaskID           uint           `gorm:"not null;uniqueIndex:idx_user_task_occurrence,priority:1"`
	UserID           uint           `gorm:"not null;uniqueIndex:idx_user_task_occurrence,priority:2;index"`
	ScheduledDate    string         `gorm:"size:10;not null;uniqueIndex:idx_user_task_occurrence,priority:3;index"`
	Time             string         `gorm:"size:5;not null;uniqueIndex:idx_user_task_occurrence,priority:4"`
	Code             string         `gorm:"size:16;not null;uniqueIndex"`
	IsMainTask       bool
	ParentUserTaskID *uint          `gorm:"index"`
	Status           UserTaskStatus `gorm:"not null;default:0;index"`
	StartAt          *time.Time
	CompletedAt      *time.Time
	ValidatedAt      *time.Time
	ValidatedBy      *uint
	Notes            string `gorm:"type:text"`
	GenerationRunID  string `gorm:"size:36"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Task     *TaskTemplate      `gorm:"foreignKey:TaskID"`
	Evidence []UserTaskEvidence `gorm:"foreignKey:UserTaskID;constraint:OnDelete:CASCADE"`
}

// UserTaskParent mirrors TaskParent for one occurrence.
type UserTaskParent struct {
	UserTaskID       uint `gorm:"primaryKey"`
	ParentUserTaskID uint `gorm:"primaryKey;index"`
	CreatedAt        time.Time
}

// UserTaskEvidence references a photo, scan or location proving completion.
// Only the reference is stored; the payload lives in external storage.
type UserTaskEvidence struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	UserTaskID uint   `gorm:"not null;index"`
	Kind       string `gorm:"size:16;default:photo"`
	URL        string `gorm:"size:512;not null"`
	Latitude   *float64
	Longitude  *float64
	CreatedBy  uint
	CreatedAt  time.Time
}
