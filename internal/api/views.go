package api

import (
	"time"

	"github.com/zulandar/caretaker/internal/models"
)

type scheduleView struct {
	ID   uint   `json:"id"`
	Day  string `json:"day"`
	Time string `json:"time"`
}

type templateView struct {
	ID                  uint           `json:"id"`
	Name                string         `json:"name"`
	Description         string         `json:"description,omitempty"`
	DurationMinutes     int            `json:"duration_minutes"`
	IsMainTask          bool           `json:"is_main_task"`
	RequiresValidation  bool           `json:"requires_validation"`
	RequiresScan        bool           `json:"requires_scan"`
	AssetID             uint           `json:"asset_id"`
	RoleID              uint           `json:"role_id"`
	UnitID              *uint          `json:"unit_id,omitempty"`
	TaskGroupID         *uint          `json:"task_group_id,omitempty"`
	AppliesAllTimeSlots bool           `json:"applies_all_time_slots"`
	CompletionOrder     string         `json:"completion_order"`
	Active              bool           `json:"active"`
	Schedules           []scheduleView `json:"schedules"`
	ParentIDs           []uint         `json:"parent_ids"`
}

func toTemplateView(t models.TaskTemplate) templateView {
	v := templateView{
		ID:                  t.ID,
		Name:                t.Name,
		Description:         t.Description,
		DurationMinutes:     t.DurationMinutes,
		IsMainTask:          t.IsMainTask,
		RequiresValidation:  t.RequiresValidation,
		RequiresScan:        t.RequiresScan,
		AssetID:             t.AssetID,
		RoleID:              t.RoleID,
		UnitID:              t.UnitID,
		TaskGroupID:         t.TaskGroupID,
		AppliesAllTimeSlots: t.AppliesAllTimeSlots,
		CompletionOrder:     t.CompletionOrder,
		Active:              t.Active,
		Schedules:           []scheduleView{},
		ParentIDs:           []uint{},
	}
	for _, s := range t.Schedules {
		v.Schedules = append(v.Schedules, scheduleView{ID: s.ID, Day: s.DayOfWeek, Time: s.Time})
	}
	for _, p := range t.Parents {
		v.ParentIDs = append(v.ParentIDs, p.ParentTaskID)
	}
	return v
}

type evidenceView struct {
	ID        uint      `json:"id"`
	Kind      string    `json:"kind"`
	URL       string    `json:"url"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toEvidenceView(e models.UserTaskEvidence) evidenceView {
	return evidenceView{
		ID:        e.ID,
		Kind:      e.Kind,
		URL:       e.URL,
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		CreatedAt: e.CreatedAt,
	}
}

type userTaskView struct {
	ID               uint           `json:"id"`
	Code             string         `json:"code"`
	TaskID           uint           `json:"task_id"`
	TaskName         string         `json:"task_name,omitempty"`
	UserID           uint           `json:"user_id"`
	ScheduledDate    string         `json:"scheduled_date"`
	Time             string         `json:"time"`
	Status           string         `json:"status"`
	IsMainTask       bool           `json:"is_main_task"`
	ParentUserTaskID *uint          `json:"parent_user_task_id,omitempty"`
	StartAt          *time.Time     `json:"start_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	ValidatedAt      *time.Time     `json:"validated_at,omitempty"`
	ValidatedBy      *uint          `json:"validated_by,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	Evidence         []evidenceView `json:"evidence,omitempty"`
}

func toUserTaskView(ut models.UserTask) userTaskView {
	v := userTaskView{
		ID:               ut.ID,
		Code:             ut.Code,
		TaskID:           ut.TaskID,
		UserID:           ut.UserID,
		ScheduledDate:    ut.ScheduledDate,
		Time:             ut.Time,
		Status:           ut.Status.String(),
		IsMainTask:       ut.IsMainTask,
		ParentUserTaskID: ut.ParentUserTaskID,
		StartAt:          ut.StartAt,
		CompletedAt:      ut.CompletedAt,
		ValidatedAt:      ut.ValidatedAt,
		ValidatedBy:      ut.ValidatedBy,
		Notes:            ut.Notes,
	}
	if ut.Task != nil {
		v.TaskName = ut.Task.Name
	}
	for _, e := range ut.Evidence {
		v.Evidence = append(v.Evidence, toEvidenceView(e))
	}
	return v
}
