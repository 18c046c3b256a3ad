package models

import "time"

// GenerationRun records one invocation of the daily generator.
type GenerationRun struct {
	ID         string `gorm:"primaryKey;size:36"`
	Date       string `gorm:"size:10;not null;index"`
	StartedAt  time.Time
	FinishedAt *time.Time
	Created    int
	Existing   int
	Linked     int
	Error      string `gorm:"type:text"`
}
