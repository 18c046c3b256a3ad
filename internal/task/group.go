package task

import (
	"strings"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/audit"
	"github.com/zulandar/caretaker/internal/db"
	"github.com/zulandar/caretaker/internal/models"
	"github.com/zulandar/caretaker/internal/recurrence"
	"gorm.io/gorm"
)

// CreateGroup stores an active shift window. Windows may not cross midnight.
func CreateGroup(gdb *gorm.DB, actorID uint, name, start, end string) (*models.TaskGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name", "is required")
	}
	if err := checkWindow(start, end); err != nil {
		return nil, err
	}

	g := models.TaskGroup{Name: name, StartTime: start, EndTime: end, IsActive: true}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&g).Error; err != nil {
			if db.IsDuplicate(err) {
				return apperr.Invalid("name", "task group %q already exists", name)
			}
			return apperr.Storage("task: create group", err)
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityGroup,
			EntityID: g.ID,
			Action:   "create",
			After:    g,
			ActorID:  actorID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func checkWindow(start, end string) error {
	if _, err := recurrence.ParseClock(start); err != nil {
		return apperr.Invalid("start_time", "%q is not HH:MM", start)
	}
	if _, err := recurrence.ParseClock(end); err != nil {
		return apperr.Invalid("end_time", "%q is not HH:MM", end)
	}
	if start >= end {
		return apperr.Invalid("end_time", "window %s-%s must end after it starts", start, end)
	}
	return nil
}

// ListGroups returns all task groups ordered by start time.
func ListGroups(gdb *gorm.DB) ([]models.TaskGroup, error) {
	var groups []models.TaskGroup
	if err := gdb.Order("start_time, name").Find(&groups).Error; err != nil {
		return nil, apperr.Storage("task: list groups", err)
	}
	return groups, nil
}

// SetGroupActive toggles a group. Templates in an inactive group are not
// generated.
func SetGroupActive(gdb *gorm.DB, actorID, id uint, active bool) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.TaskGroup{}, "task_group", id); err != nil {
			return err
		}
		if err := tx.Model(&models.TaskGroup{}).Where("id = ?", id).Update("is_active", active).Error; err != nil {
			return apperr.Storage("task: set group active", err)
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityGroup,
			EntityID: id,
			Action:   "set_active",
			After:    map[string]bool{"is_active": active},
			ActorID:  actorID,
		})
	})
}
