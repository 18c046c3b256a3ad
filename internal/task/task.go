// Package task manages task templates: what recurring work exists, when it
// recurs, and how templates depend on each other.
package task

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/audit"
	"github.com/zulandar/caretaker/internal/db"
	"github.com/zulandar/caretaker/internal/models"
	"github.com/zulandar/caretaker/internal/recurrence"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for creating a template.
type CreateOpts struct {
	Name                string         `json:"name" validate:"required,max=128"`
	Description         string         `json:"description"`
	DurationMinutes     int            `json:"duration_minutes" validate:"gte=0"`
	IsMainTask          bool           `json:"is_main_task"`
	RequiresValidation  bool           `json:"requires_validation"`
	RequiresScan        bool           `json:"requires_scan"`
	ScanCode            string         `json:"scan_code" validate:"required_if=RequiresScan true,max=128"`
	AssetID             uint           `json:"asset_id" validate:"required"`
	RoleID              uint           `json:"role_id" validate:"required"`
	UnitID              *uint          `json:"unit_id"`
	TaskGroupID         *uint          `json:"task_group_id"`
	AppliesAllTimeSlots bool           `json:"applies_all_time_slots"`
	CompletionOrder     string         `json:"completion_order" validate:"omitempty,oneof=independent parent_first children_first"`
	Schedules           []ScheduleOpts `json:"schedules" validate:"dive"`
	Inactive            bool           `json:"inactive"`
}

// ScheduleOpts is one weekly recurrence point.
type ScheduleOpts struct {
	Day  string `json:"day" validate:"required"`
	Time string `json:"time" validate:"required,clock"`
}

// ListFilters holds optional filters for listing templates.
type ListFilters struct {
	AssetID uint
	RoleID  uint
	GroupID uint
	Active  *bool
}

// updatable lists the columns Update accepts.
var updatable = map[string]bool{
	"name":                   true,
	"description":            true,
	"duration_minutes":       true,
	"is_main_task":           true,
	"requires_validation":    true,
	"requires_scan":          true,
	"scan_code":              true,
	"role_id":                true,
	"unit_id":                true,
	"task_group_id":          true,
	"applies_all_time_slots": true,
	"completion_order":       true,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := recurrence.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// validationError converts validator output into the first failing field.
func validationError(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		if fe.Param() != "" {
			return apperr.Invalid(fe.Field(), "failed %s=%s", fe.Tag(), fe.Param())
		}
		return apperr.Invalid(fe.Field(), "failed %s", fe.Tag())
	}
	return apperr.Invalid("", "%v", err)
}

// Create validates opts and stores the template with its schedules in one
// transaction.
func Create(gdb *gorm.DB, actorID uint, opts CreateOpts) (*models.TaskTemplate, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, validationError(err)
	}
	if opts.CompletionOrder == "" {
		opts.CompletionOrder = models.OrderIndependent
	}

	schedules, err := normalizeSchedules(opts.Schedules)
	if err != nil {
		return nil, err
	}

	tmpl := models.TaskTemplate{
		Name:                strings.TrimSpace(opts.Name),
		Description:         opts.Description,
		DurationMinutes:     opts.DurationMinutes,
		IsMainTask:          opts.IsMainTask,
		RequiresValidation:  opts.RequiresValidation,
		RequiresScan:        opts.RequiresScan,
		ScanCode:            opts.ScanCode,
		AssetID:             opts.AssetID,
		RoleID:              opts.RoleID,
		UnitID:              opts.UnitID,
		TaskGroupID:         opts.TaskGroupID,
		AppliesAllTimeSlots: opts.AppliesAllTimeSlots,
		CompletionOrder:     opts.CompletionOrder,
		Active:              !opts.Inactive,
		Schedules:           schedules,
	}

	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := checkTemplate(tx, &tmpl, len(schedules)); err != nil {
			return err
		}
		if err := tx.Create(&tmpl).Error; err != nil {
			return apperr.Storage("task: create", err)
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityTemplate,
			EntityID: tmpl.ID,
			Action:   "create",
			After:    tmpl,
			ActorID:  actorID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func normalizeSchedules(in []ScheduleOpts) ([]models.TaskSchedule, error) {
	seen := make(map[string]bool)
	out := make([]models.TaskSchedule, 0, len(in))
	for _, s := range in {
		day, err := recurrence.ParseDay(s.Day)
		if err != nil {
			return nil, err
		}
		key := day + "@" + s.Time
		if seen[key] {
			return nil, apperr.Invalid("schedules", "duplicate slot %s %s", day, s.Time)
		}
		seen[key] = true
		out = append(out, models.TaskSchedule{DayOfWeek: day, Time: s.Time})
	}
	return out, nil
}

// checkTemplate verifies references and the schedule invariant.
func checkTemplate(tx *gorm.DB, t *models.TaskTemplate, schedules int) error {
	if t.Name == "" {
		return apperr.Invalid("name", "is required")
	}
	if t.DurationMinutes < 0 {
		return apperr.Invalid("duration_minutes", "must not be negative")
	}
	if t.RequiresScan && t.ScanCode == "" {
		return apperr.Invalid("scan_code", "is required when requires_scan is set")
	}
	switch t.CompletionOrder {
	case models.OrderIndependent, models.OrderParentFirst, models.OrderChildrenFirst:
	default:
		return apperr.Invalid("completion_order", "%q is not a completion order", t.CompletionOrder)
	}
	if !t.AppliesAllTimeSlots && schedules == 0 {
		return apperr.Invalid("schedules", "a template that does not apply to all time slots needs at least one schedule")
	}

	if err := exists(tx, &models.Asset{}, "asset", t.AssetID); err != nil {
		return err
	}
	if err := exists(tx, &models.Role{}, "role", t.RoleID); err != nil {
		return err
	}
	if t.TaskGroupID != nil {
		if err := exists(tx, &models.TaskGroup{}, "task_group", *t.TaskGroupID); err != nil {
			return err
		}
	}
	if t.UnitID != nil {
		var unit models.Unit
		if err := tx.Where("id = ?", *t.UnitID).First(&unit).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("unit", *t.UnitID)
			}
			return apperr.Storage("task: get unit", err)
		}
		if unit.AssetID != t.AssetID {
			return apperr.Invalid("unit_id", "unit %d belongs to asset %d, not %d", unit.ID, unit.AssetID, t.AssetID)
		}
	}
	return nil
}

func exists(tx *gorm.DB, model interface{}, entity string, id uint) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperr.Storage("task: check "+entity, err)
	}
	if count == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

func record(tx *gorm.DB, e audit.Entry) error {
	return audit.DBSink{}.Append(tx, e)
}

// Get retrieves a template with its group, schedules and parent edges.
func Get(gdb *gorm.DB, id uint) (*models.TaskTemplate, error) {
	var t models.TaskTemplate
	err := gdb.Preload("Group").
		Preload("Schedules", func(q *gorm.DB) *gorm.DB { return q.Order("day_of_week, time") }).
		Preload("Parents").
		Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task_template", id)
		}
		return nil, apperr.Storage("task: get", err)
	}
	return &t, nil
}

// List returns templates matching filters, ordered by id.
func List(gdb *gorm.DB, filters ListFilters) ([]models.TaskTemplate, error) {
	q := gdb.Model(&models.TaskTemplate{}).Preload("Group").Preload("Schedules")
	if filters.AssetID != 0 {
		q = q.Where("asset_id = ?", filters.AssetID)
	}
	if filters.RoleID != 0 {
		q = q.Where("role_id = ?", filters.RoleID)
	}
	if filters.GroupID != 0 {
		q = q.Where("task_group_id = ?", filters.GroupID)
	}
	if filters.Active != nil {
		q = q.Where("active = ?", *filters.Active)
	}

	var out []models.TaskTemplate
	if err := q.Order("id").Find(&out).Error; err != nil {
		return nil, apperr.Storage("task: list", err)
	}
	return out, nil
}

// Update modifies whitelisted template columns. The resulting template must
// still satisfy every creation rule, otherwise nothing is written.
func Update(gdb *gorm.DB, actorID, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return apperr.Invalid("", "no fields to update")
	}
	for col := range updates {
		if !updatable[col] {
			return apperr.Invalid(col, "cannot be updated")
		}
	}

	return gdb.Transaction(func(tx *gorm.DB) error {
		before, err := Get(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.TaskTemplate{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("task: update %d", id), err)
		}
		after, err := Get(tx, id)
		if err != nil {
			return err
		}
		if err := checkTemplate(tx, after, len(after.Schedules)); err != nil {
			return err
		}
		if after.CompletionOrder != before.CompletionOrder {
			if err := checkOrderConflicts(tx, after); err != nil {
				return err
			}
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityTemplate,
			EntityID: id,
			Action:   "update",
			Before:   before,
			After:    after,
			ActorID:  actorID,
		})
	})
}

// SetActive activates or deactivates a template. Inactive templates are
// skipped by generation; existing work items are untouched.
func SetActive(gdb *gorm.DB, actorID, id uint, active bool) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.TaskTemplate{}, "task_template", id); err != nil {
			return err
		}
		if err := tx.Model(&models.TaskTemplate{}).Where("id = ?", id).Update("active", active).Error; err != nil {
			return apperr.Storage("task: set active", err)
		}
		action := "deactivate"
		if active {
			action = "activate"
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityTemplate,
			EntityID: id,
			Action:   action,
			After:    map[string]bool{"active": active},
			ActorID:  actorID,
		})
	})
}

// AddSchedule adds a weekly slot to a template.
func AddSchedule(gdb *gorm.DB, actorID, taskID uint, day, at string) (*models.TaskSchedule, error) {
	day, err := recurrence.ParseDay(day)
	if err != nil {
		return nil, err
	}
	if _, err := recurrence.ParseClock(at); err != nil {
		return nil, err
	}

	s := models.TaskSchedule{TaskID: taskID, DayOfWeek: day, Time: at}
	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.TaskTemplate{}, "task_template", taskID); err != nil {
			return err
		}
		if err := tx.Create(&s).Error; err != nil {
			if db.IsDuplicate(err) {
				return apperr.Invalid("schedules", "slot %s %s already exists", day, at)
			}
			return apperr.Storage("task: add schedule", err)
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityTemplate,
			EntityID: taskID,
			Action:   "add_schedule",
			After:    s,
			ActorID:  actorID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RemoveSchedule deletes a slot. The last slot of a template that does not
// apply to all time slots cannot be removed.
func RemoveSchedule(gdb *gorm.DB, actorID, taskID, scheduleID uint) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		t, err := Get(tx, taskID)
		if err != nil {
			return err
		}
		var target *models.TaskSchedule
		for i := range t.Schedules {
			if t.Schedules[i].ID == scheduleID {
				target = &t.Schedules[i]
			}
		}
		if target == nil {
			return apperr.NotFound("task_schedule", scheduleID)
		}
		if !t.AppliesAllTimeSlots && len(t.Schedules) == 1 {
			return apperr.Invalid("schedules", "cannot remove the last schedule of template %d", taskID)
		}
		if err := tx.Delete(&models.TaskSchedule{}, scheduleID).Error; err != nil {
			return apperr.Storage("task: remove schedule", err)
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityTemplate,
			EntityID: taskID,
			Action:   "remove_schedule",
			Before:   target,
			ActorID:  actorID,
		})
	})
}
