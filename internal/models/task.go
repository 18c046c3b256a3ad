package models

import "time"

// Completion orders between a template and its hierarchy neighbours.
const (
	OrderIndependent   = "independent"
	OrderParentFirst   = "parent_first"
	OrderChildrenFirst = "children_first"
)

// TaskTemplate defines a unit of recurring work: what, how often, by whom.
type TaskTemplate struct {
	ID                  uint   `gorm:"primaryKey;autoIncrement"`
	Name                string `gorm:"size:128;not null"`
	Description         string `gorm:"type:text"`
	DurationMinutes     int
	IsMainTask          bool
	RequiresValidation  bool
	RequiresScan        bool
	ScanCode            string `gorm:"size:128"`
	AssetID             uint   `gorm:"not null;index"`
	RoleID              uint   `gorm:"not null;index"`
	UnitID              *uint
	AppliesAllTimeSlots bool
	TaskGroupID         *uint  `gorm:"index"`
	CompletionOrder     string `gorm:"size:16;default:independent"`
	Active              bool   `gorm:"index"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Group     *TaskGroup     `gorm:"foreignKey:TaskGroupID"`
	Schedules []TaskSchedule `gorm:"foreignKey:TaskID"`
	Parents   []TaskParent   `gorm:"foreignKey:ChildTaskID"`
}

// TaskGroup is a named shift window, e.g. morning 06:00-14:00.
type TaskGroup struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:64;not null;uniqueIndex"`
	StartTime string `gorm:"size:5;not null"`
	EndTime   string `gorm:"size:5;not null"`
	IsActive  bool
}

// TaskSchedule is one weekly recurrence point of a template.
type TaskSchedule struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TaskID    uint   `gorm:"not null;uniqueIndex:idx_task_schedule_slot,priority:1"`
	DayOfWeek string `gorm:"size:3;not null;uniqueIndex:idx_task_schedule_slot,priority:2"`
	Time      string `gorm:"size:5;not null;uniqueIndex:idx_task_schedule_slot,priority:3"`
}

// TaskParent is a child → parent edge between templates.
type TaskParent struct {
	ChildTaskID  uint `gorm:"primaryKey"`
	ParentTaskID uint `gorm:"primaryKey;index"`
	CreatedAt    time.Time
}
