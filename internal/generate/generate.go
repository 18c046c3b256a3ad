// Package generate materializes task templates into dated, per-user work
// items. Runs are idempotent: the store's unique occurrence index absorbs
// repeats, so the daily trigger may fire any number of times.
package generate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/assignee"
	"github.com/zulandar/caretaker/internal/audit"
	"github.com/zulandar/caretaker/internal/db"
	"github.com/zulandar/caretaker/internal/logging"
	"github.com/zulandar/caretaker/internal/models"
	"github.com/zulandar/caretaker/internal/recurrence"
	"github.com/zulandar/caretaker/internal/role"
	"github.com/zulandar/caretaker/internal/task"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxCodeAttempts = 5

// Key identifies one work item: a template occurrence for one user.
type Key struct {
	TaskID uint
	UserID uint
	Date   string
	Time   string
}

// Result summarizes one run. On failure it holds what was done before the
// error.
type Result struct {
	RunID       string
	Date        string
	Templates   int
	Occurrences int
	Created     int
	Existing    int
	Linked      int
	// Completed lists every occurrence that exists after the run, created
	// or found, in processing order.
	Completed []Key
}

// Generator creates UserTask rows for a date.
type Generator struct {
	DB         *gorm.DB
	Assignees  assignee.Resolver
	Audit      audit.Sink
	Recurrence recurrence.Resolver
	Log        *logrus.Entry
	Now        func() time.Time
}

// New returns a Generator wired to the database-backed resolver and sink.
func New(gdb *gorm.DB, defaultTime string, log *logrus.Entry) *Generator {
	return &Generator{
		DB:         gdb,
		Assignees:  assignee.DBResolver{DB: gdb},
		Audit:      audit.DBSink{},
		Recurrence: recurrence.Resolver{DefaultTime: defaultTime},
		Log:        log,
		Now:        time.Now,
	}
}

// NewCode returns a human-friendly work item code in ut-xxxxxxxx format.
func NewCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate: code: %w", err)
	}
	return "ut-" + hex.EncodeToString(b), nil
}

func (g *Generator) log() *logrus.Entry {
	if g.Log == nil {
		return logging.Discard()
	}
	return g.Log
}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// GenerateForDate creates every missing work item for date and links the
// day's items along the template hierarchy. It stops at the first error and
// returns the partial result alongside it.
func (g *Generator) GenerateForDate(ctx context.Context, date string) (*Result, error) {
	if _, err := recurrence.ParseDate(date); err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.NewString(), Date: date}
	log := g.log().WithFields(logrus.Fields{"operation": "generate", "date": date, "run_id": res.RunID})

	run := models.GenerationRun{ID: res.RunID, Date: date, StartedAt: g.now().UTC()}
	if err := g.DB.WithContext(ctx).Create(&run).Error; err != nil {
		return res, apperr.Storage("generate: start run", err)
	}

	err := g.generate(ctx, date, res, log)
	// Whatever exists must be linked before anyone can act on it, including
	// after a failed or cancelled run.
	if linkErr := g.link(context.WithoutCancel(ctx), date, res); err == nil {
		err = linkErr
	} else if linkErr != nil {
		log.WithError(linkErr).Warn("could not link partial run")
	}
	g.finish(ctx, &run, res, err, log)
	if err != nil {
		return res, err
	}
	log.WithFields(logrus.Fields{
		"created":  res.Created,
		"existing": res.Existing,
		"linked":   res.Linked,
	}).Info("generation finished")
	return res, nil
}

func (g *Generator) finish(ctx context.Context, run *models.GenerationRun, res *Result, runErr error, log *logrus.Entry) {
	finished := g.now().UTC()
	updates := map[string]interface{}{
		"finished_at": finished,
		"created":     res.Created,
		"existing":    res.Existing,
		"linked":      res.Linked,
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
		log.WithError(runErr).WithField("created", res.Created).Error("generation failed")
	}
	// The run row is written even when ctx was cancelled mid-run.
	err := g.DB.WithContext(context.WithoutCancel(ctx)).Model(run).Updates(updates).Error
	if err != nil {
		log.WithError(err).Warn("could not record generation run")
	}
}

// ActiveTemplates returns active templates whose group, if any, is active,
// with schedules and group preloaded, ordered by id.
func ActiveTemplates(gdb *gorm.DB) ([]models.TaskTemplate, error) {
	var out []models.TaskTemplate
	err := gdb.Preload("Group").Preload("Schedules").
		Where("active = ?", true).
		Where("task_group_id IS NULL OR task_group_id IN (?)",
			gdb.Model(&models.TaskGroup{}).Select("id").Where("is_active = ?", true)).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, apperr.Storage("generate: load templates", err)
	}
	return out, nil
}

func (g *Generator) generate(ctx context.Context, date string, res *Result, log *logrus.Entry) error {
	templates, err := ActiveTemplates(g.DB.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Templates = len(templates)

	for i := range templates {
		if err := ctx.Err(); err != nil {
			return err
		}
		tmpl := &templates[i]
		occs, err := g.Recurrence.Due(tmpl, date)
		if err != nil {
			return fmt.Errorf("generate: template %d: %w", tmpl.ID, err)
		}
		if len(occs) == 0 {
			continue
		}
		users, err := g.Assignees.EligibleUsers(ctx, tmpl.AssetID, tmpl.RoleID)
		if err != nil {
			return fmt.Errorf("generate: template %d: %w", tmpl.ID, err)
		}
		if len(users) == 0 {
			log.WithField("task_id", tmpl.ID).Debug("no eligible users")
			continue
		}

		for _, occ := range occs {
			for _, userID := range users {
				created, err := g.ensure(ctx, tmpl, occ, userID, res.RunID)
				if err != nil {
					return fmt.Errorf("generate: template %d user %d at %s: %w", tmpl.ID, userID, occ.Time, err)
				}
				res.Occurrences++
				res.Completed = append(res.Completed, Key{TaskID: tmpl.ID, UserID: userID, Date: occ.Date, Time: occ.Time})
				if created {
					res.Created++
				} else {
					res.Existing++
				}
			}
		}
	}
	return nil
}

// ensure inserts the work item for one (template, occurrence, user) unless
// it already exists. It reports whether a row was created.
func (g *Generator) ensure(ctx context.Context, tmpl *models.TaskTemplate, occ recurrence.Occurrence, userID uint, runID string) (bool, error) {
	gdb := g.DB.WithContext(ctx)
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := NewCode()
		if err != nil {
			return false, err
		}
		ut := models.UserTask{
			TaskID:          tmpl.ID,
			UserID:          userID,
			ScheduledDate:   occ.Date,
			Time:            occ.Time,
			Code:            code,
			IsMainTask:      tmpl.IsMainTask,
			Status:          models.StatusPending,
			GenerationRunID: runID,
		}

		created := false
		err = gdb.Transaction(func(tx *gorm.DB) error {
			res := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "task_id"}, {Name: "user_id"}, {Name: "scheduled_date"}, {Name: "time"},
				},
				DoNothing: true,
			}).Create(&ut)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			created = true
			return g.Audit.Append(tx, audit.Entry{
				Entity:   audit.EntityUserTask,
				EntityID: ut.ID,
				Action:   "generate",
				After:    ut,
				ActorID:  role.System.UserID,
				At:       g.now().UTC(),
			})
		})
		switch {
		case err != nil && db.IsDuplicate(err):
			// Code collision on a dialect that only ignores the named conflict.
			continue
		case err != nil:
			return false, apperr.Storage("generate: insert user task", err)
		case created:
			return true, nil
		}

		// Nothing inserted: the occurrence exists, or (on MySQL) the code collided.
		var count int64
		err = gdb.Model(&models.UserTask{}).
			Where("task_id = ? AND user_id = ? AND scheduled_date = ? AND time = ?", tmpl.ID, userID, occ.Date, occ.Time).
			Count(&count).Error
		if err != nil {
			return false, apperr.Storage("generate: check user task", err)
		}
		if count > 0 {
			return false, nil
		}
	}
	return false, fmt.Errorf("generate: no unique code after %d attempts", maxCodeAttempts)
}

type instanceKey struct {
	taskID uint
	userID uint
}

// link mirrors the template hierarchy onto the date's work items.
func (g *Generator) link(ctx context.Context, date string, res *Result) error {
	gdb := g.DB.WithContext(ctx)
	graph, err := task.LoadGraph(gdb)
	if err != nil {
		return err
	}

	var items []models.UserTask
	if err := gdb.Where("scheduled_date = ?", date).Order("task_id, user_id, time").Find(&items).Error; err != nil {
		return apperr.Storage("generate: load day", err)
	}
	byKey := make(map[instanceKey][]models.UserTask)
	for _, it := range items {
		k := instanceKey{it.TaskID, it.UserID}
		byKey[k] = append(byKey[k], it)
	}

	for _, child := range items {
		parents := graph.Parents(child.TaskID)
		if len(parents) == 0 {
			continue
		}
		var targets []uint
		for _, p := range parents {
			if parent, ok := task.PickParent(byKey[instanceKey{p, child.UserID}], child.Time); ok {
				targets = append(targets, parent.ID)
			}
		}
		if len(targets) == 0 {
			continue
		}
		n, err := g.linkOne(gdb, child, targets)
		if err != nil {
			return err
		}
		res.Linked += n
	}
	return nil
}

// linkOne inserts the child's parent edges and fills ParentUserTaskID with
// the first one. It returns the number of new edges.
func (g *Generator) linkOne(gdb *gorm.DB, child models.UserTask, parentIDs []uint) (int, error) {
	added := 0
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var newEdges []uint
		for _, pid := range parentIDs {
			edge := models.UserTaskParent{UserTaskID: child.ID, ParentUserTaskID: pid}
			r := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
			if r.Error != nil {
				return apperr.Storage("generate: link", r.Error)
			}
			if r.RowsAffected > 0 {
				newEdges = append(newEdges, pid)
			}
		}
		if child.ParentUserTaskID == nil {
			err := tx.Model(&models.UserTask{}).
				Where("id = ? AND parent_user_task_id IS NULL", child.ID).
				Update("parent_user_task_id", parentIDs[0]).Error
			if err != nil {
				return apperr.Storage("generate: set parent", err)
			}
		}
		if len(newEdges) == 0 {
			return nil
		}
		added = len(newEdges)
		return g.Audit.Append(tx, audit.Entry{
			Entity:   audit.EntityUserTask,
			EntityID: child.ID,
			Action:   "link",
			After:    map[string][]uint{"parents": newEdges},
			ActorID:  role.System.UserID,
			At:       g.now().UTC(),
		})
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
