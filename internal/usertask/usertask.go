// Package usertask implements the work-item completion state machine:
// pending → inprogress → completed, with dependency gating along the
// mirrored hierarchy, evidence requirements, and supervisor validation.
package usertask

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/audit"
	"github.com/zulandar/caretaker/internal/logging"
	"github.com/zulandar/caretaker/internal/models"
	"github.com/zulandar/caretaker/internal/role"
	"github.com/zulandar/caretaker/internal/task"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Actions, as recorded in the audit log.
const (
	ActionStart    = "start"
	ActionComplete = "complete"
	ActionEvidence = "attach_evidence"
	ActionValidate = "validate"
	ActionAnnotate = "note"
	ActionDelete   = "delete"
)

// transitions maps each status-changing action to its required source and
// resulting status. Completed has no outgoing transition.
var transitions = map[string]struct{ from, to models.UserTaskStatus }{
	ActionStart:    {models.StatusPending, models.StatusInProgress},
	ActionComplete: {models.StatusInProgress, models.StatusCompleted},
}

// EvidenceInput references one proof item stored elsewhere.
type EvidenceInput struct {
	Kind      string   `json:"kind"`
	URL       string   `json:"url"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CompleteInput carries what a worker submits when finishing a task.
type CompleteInput struct {
	Evidence []EvidenceInput `json:"evidence"`
	ScanCode string          `json:"scan_code"`
	Note     string          `json:"note"`
}

// ListFilters holds optional filters for listing work items.
type ListFilters struct {
	Date   string
	UserID uint
	TaskID uint
	Status *models.UserTaskStatus
}

// Machine applies state-machine actions. Every mutation locks the row, runs
// its checks, writes, and appends the audit entry in one transaction.
type Machine struct {
	DB    *gorm.DB
	Audit audit.Sink
	Log   *logrus.Entry
	Now   func() time.Time
}

// New returns a Machine writing audit entries to the database.
func New(gdb *gorm.DB, log *logrus.Entry) *Machine {
	return &Machine{DB: gdb, Audit: audit.DBSink{}, Log: log, Now: time.Now}
}

func (m *Machine) log() *logrus.Entry {
	if m.Log == nil {
		return logging.Discard()
	}
	return m.Log
}

func (m *Machine) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now().UTC()
}

// lock loads the work item and its template, holding a row lock where the
// store supports one.
func lock(tx *gorm.DB, id uint) (*models.UserTask, *models.TaskTemplate, error) {
	var ut models.UserTask
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&ut).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("user_task", id)
		}
		return nil, nil, apperr.Storage("usertask: lock", err)
	}
	var tmpl models.TaskTemplate
	if err := tx.Where("id = ?", ut.TaskID).First(&tmpl).Error; err != nil {
		return nil, nil, apperr.Storage("usertask: load template", err)
	}
	return &ut, &tmpl, nil
}

// mayWork reports whether actor may act as the worker on ut: the assignee,
// or a supervisor at the template's asset.
func mayWork(actor role.Actor, ut *models.UserTask, tmpl *models.TaskTemplate) bool {
	return actor.UserID == ut.UserID || actor.CanAt(role.Supervisor, tmpl.AssetID)
}

func denied(actor role.Actor, action string) error {
	return &apperr.PermissionError{ActorID: actor.UserID, Action: action}
}

// transition moves ut along the named action, guarding on the source status
// so a concurrent writer cannot be overwritten.
func transition(tx *gorm.DB, ut *models.UserTask, action string, extra map[string]interface{}) error {
	t := transitions[action]
	if ut.Status != t.from {
		return &apperr.TransitionError{UserTaskID: ut.ID, Action: action, Current: ut.Status.String()}
	}
	updates := map[string]interface{}{"status": t.to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&models.UserTask{}).Where("id = ? AND status = ?", ut.ID, t.from).Updates(updates)
	if res.Error != nil {
		return apperr.Storage("usertask: "+action, res.Error)
	}
	if res.RowsAffected == 0 {
		var current models.UserTask
		if err := tx.Select("status").Where("id = ?", ut.ID).First(&current).Error; err != nil {
			return apperr.Storage("usertask: reload status", err)
		}
		return &apperr.TransitionError{UserTaskID: ut.ID, Action: action, Current: current.Status.String()}
	}
	ut.Status = t.to
	return nil
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func statusSnapshot(s models.UserTaskStatus) map[string]string {
	return map[string]string{"status": s.String()}
}

// Start moves a pending work item to inprogress.
func (m *Machine) Start(ctx context.Context, id uint, actor role.Actor) (*models.UserTask, error) {
	var out *models.UserTask
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ut, tmpl, err := lock(tx, id)
		if err != nil {
			return err
		}
		if !mayWork(actor, ut, tmpl) {
			return denied(actor, "start user task")
		}
		now := m.now()
		if err := transition(tx, ut, ActionStart, map[string]interface{}{"start_at": now}); err != nil {
			return err
		}
		ut.StartAt = &now
		out = ut
		return m.Audit.Append(tx, audit.Entry{
			Entity:   audit.EntityUserTask,
			EntityID: id,
			Action:   ActionStart,
			Before:   statusSnapshot(models.StatusPending),
			After:    statusSnapshot(models.StatusInProgress),
			ActorID:  actor.UserID,
			At:       now,
		})
	})
	if err != nil {
		return nil, err
	}
	m.log().WithFields(logrus.Fields{"operation": ActionStart, "user_task_id": id, "actor_id": actor.UserID}).Info("user task started")
	return out, nil
}

// Complete moves an inprogress work item to completed once its dependencies
// are completed and its evidence requirements are met. Supplied evidence,
// the status change, and the audit entry commit together.
func (m *Machine) Complete(ctx context.Context, id uint, actor role.Actor, in CompleteInput) (*models.UserTask, error) {
	evidence, err := normalizeEvidence(in.Evidence)
	if err != nil {
		return nil, err
	}

	var out *models.UserTask
	err = m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ut, tmpl, err := lock(tx, id)
		if err != nil {
			return err
		}
		if !mayWork(actor, ut, tmpl) {
			return denied(actor, "complete user task")
		}
		if ut.Status != models.StatusInProgress {
			return &apperr.TransitionError{UserTaskID: id, Action: ActionComplete, Current: ut.Status.String()}
		}

		blocking, err := blockers(tx, ut, tmpl)
		if err != nil {
			return err
		}
		if len(blocking) > 0 {
			return &apperr.DependencyError{UserTaskID: id, Blocking: blocking}
		}

		if in.ScanCode != "" {
			if tmpl.ScanCode == "" {
				return apperr.Invalid("scan_code", "template %d has no scan code", tmpl.ID)
			}
			if in.ScanCode != tmpl.ScanCode {
				return &apperr.EvidenceError{UserTaskID: id, Reason: "scan code does not match"}
			}
			evidence = append(evidence, EvidenceInput{Kind: models.EvidenceScan, URL: "scan:" + in.ScanCode})
		}

		var existing int64
		if err := tx.Model(&models.UserTaskEvidence{}).Where("user_task_id = ?", id).Count(&existing).Error; err != nil {
			return apperr.Storage("usertask: count evidence", err)
		}
		total := int(existing) + len(evidence)
		if tmpl.RequiresScan && total == 0 {
			return &apperr.EvidenceError{UserTaskID: id, Reason: "a scan of the task code or other evidence is required"}
		}
		if tmpl.RequiresValidation && total == 0 {
			return &apperr.EvidenceError{UserTaskID: id, Reason: "at least one evidence item is required"}
		}

		now := m.now()
		if err := insertEvidence(tx, id, actor.UserID, evidence, now); err != nil {
			return err
		}
		extra := map[string]interface{}{"completed_at": now}
		if note := appendNote(ut.Notes, in.Note); note != ut.Notes {
			extra["notes"] = note
			ut.Notes = note
		}
		if err := transition(tx, ut, ActionComplete, extra); err != nil {
			return err
		}
		ut.CompletedAt = &now
		out = ut

		entry := audit.Entry{
			Entity:   audit.EntityUserTask,
			EntityID: id,
			Action:   ActionComplete,
			Before:   statusSnapshot(models.StatusInProgress),
			After:    statusSnapshot(models.StatusCompleted),
			ActorID:  actor.UserID,
			Note:     in.Note,
			At:       now,
		}
		if len(evidence) > 0 {
			entry.EvidenceURL = evidence[0].URL
		}
		return m.Audit.Append(tx, entry)
	})
	if err != nil {
		return nil, err
	}
	m.log().WithFields(logrus.Fields{"operation": ActionComplete, "user_task_id": id, "actor_id": actor.UserID}).Info("user task completed")
	return out, nil
}

// blockers returns the ids of not-yet-completed work items ut waits on,
// according to its template's completion order. Items related through the
// template hierarchy count even before generation has linked them.
func blockers(tx *gorm.DB, ut *models.UserTask, tmpl *models.TaskTemplate) ([]uint, error) {
	var (
		related []uint
		implied []uint
		err     error
	)
	switch tmpl.CompletionOrder {
	case models.OrderParentFirst:
		err = tx.Model(&models.UserTaskParent{}).Where("user_task_id = ?", ut.ID).Pluck("parent_user_task_id", &related).Error
		if err == nil {
			implied, err = impliedParents(tx, ut)
		}
	case models.OrderChildrenFirst:
		err = tx.Model(&models.UserTaskParent{}).Where("parent_user_task_id = ?", ut.ID).Pluck("user_task_id", &related).Error
		if err == nil {
			implied, err = impliedChildren(tx, ut)
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("usertask: check dependencies", err)
	}
	related = append(related, implied...)
	if len(related) == 0 {
		return nil, nil
	}

	var ids []uint
	err = tx.Model(&models.UserTask{}).
		Where("id IN ? AND status <> ?", related, models.StatusCompleted).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, apperr.Storage("usertask: check dependencies", err)
	}
	return ids, nil
}

// impliedParents picks, per parent template, the instance generation would
// link ut to.
func impliedParents(tx *gorm.DB, ut *models.UserTask) ([]uint, error) {
	var cands []models.UserTask
	err := tx.Where("task_id IN (?) AND user_id = ? AND scheduled_date = ?",
		tx.Model(&models.TaskParent{}).Select("parent_task_id").Where("child_task_id = ?", ut.TaskID),
		ut.UserID, ut.ScheduledDate).
		Order("task_id, time").
		Find(&cands).Error
	if err != nil {
		return nil, err
	}
	byTask := make(map[uint][]models.UserTask)
	var order []uint
	for _, c := range cands {
		if _, ok := byTask[c.TaskID]; !ok {
			order = append(order, c.TaskID)
		}
		byTask[c.TaskID] = append(byTask[c.TaskID], c)
	}
	var ids []uint
	for _, taskID := range order {
		if p, ok := task.PickParent(byTask[taskID], ut.Time); ok {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

// impliedChildren returns the child-template instances generation would
// link under ut.
func impliedChildren(tx *gorm.DB, ut *models.UserTask) ([]uint, error) {
	var siblings []models.UserTask
	err := tx.Where("task_id = ? AND user_id = ? AND scheduled_date = ?", ut.TaskID, ut.UserID, ut.ScheduledDate).
		Order("time").
		Find(&siblings).Error
	if err != nil {
		return nil, err
	}
	var kids []models.UserTask
	err = tx.Where("task_id IN (?) AND user_id = ? AND scheduled_date = ?",
		tx.Model(&models.TaskParent{}).Select("child_task_id").Where("parent_task_id = ?", ut.TaskID),
		ut.UserID, ut.ScheduledDate).
		Order("id").
		Find(&kids).Error
	if err != nil {
		return nil, err
	}
	var ids []uint
	for _, k := range kids {
		if p, ok := task.PickParent(siblings, k.Time); ok && p.ID == ut.ID {
			ids = append(ids, k.ID)
		}
	}
	return ids, nil
}

func normalizeEvidence(in []EvidenceInput) ([]EvidenceInput, error) {
	out := make([]EvidenceInput, 0, len(in))
	for i, e := range in {
		e.URL = strings.TrimSpace(e.URL)
		if e.URL == "" {
			return nil, apperr.Invalid("evidence", "item %d has no url", i)
		}
		if e.Kind == "" {
			e.Kind = models.EvidencePhoto
		}
		switch e.Kind {
		case models.EvidencePhoto, models.EvidenceScan, models.EvidenceFile:
		case models.EvidenceGeo:
			if e.Latitude == nil || e.Longitude == nil {
				return nil, apperr.Invalid("evidence", "item %d: geo evidence needs latitude and longitude", i)
			}
		default:
			return nil, apperr.Invalid("evidence", "item %d: unknown kind %q", i, e.Kind)
		}
		out = append(out, e)
	}
	return out, nil
}

func insertEvidence(tx *gorm.DB, userTaskID, actorID uint, in []EvidenceInput, at time.Time) error {
	if len(in) == 0 {
		return nil
	}
	rows := make([]models.UserTaskEvidence, len(in))
	for i, e := range in {
		rows[i] = models.UserTaskEvidence{
			UserTaskID: userTaskID,
			Kind:       e.Kind,
			URL:        e.URL,
			Latitude:   e.Latitude,
			Longitude:  e.Longitude,
			CreatedBy:  actorID,
			CreatedAt:  at,
		}
	}
	if err := tx.Create(&rows).Error; err != nil {
		return apperr.Storage("usertask: insert evidence", err)
	}
	return nil
}

// AttachEvidence adds evidence to a work item that is not finished, or that
// is completed and still awaiting validation.
func (m *Machine) AttachEvidence(ctx context.Context, id uint, actor role.Actor, in EvidenceInput) (*models.UserTaskEvidence, error) {
	items, err := normalizeEvidence([]EvidenceInput{in})
	if err != nil {
		return nil, err
	}
	e := items[0]

	var out models.UserTaskEvidence
	err = m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ut, tmpl, err := lock(tx, id)
		if err != nil {
			return err
		}
		if !mayWork(actor, ut, tmpl) {
			return denied(actor, "attach evidence")
		}
		if ut.Status == models.StatusCompleted && (!tmpl.RequiresValidation || ut.ValidatedAt != nil) {
			return &apperr.TransitionError{UserTaskID: id, Action: ActionEvidence, Current: ut.Status.String()}
		}
		now := m.now()
		out = models.UserTaskEvidence{
			UserTaskID: id,
			Kind:       e.Kind,
			URL:        e.URL,
			Latitude:   e.Latitude,
			Longitude:  e.Longitude,
			CreatedBy:  actor.UserID,
			CreatedAt:  now,
		}
		if err := tx.Create(&out).Error; err != nil {
			return apperr.Storage("usertask: insert evidence", err)
		}
		return m.Audit.Append(tx, audit.Entry{
			Entity:      audit.EntityUserTask,
			EntityID:    id,
			Action:      ActionEvidence,
			After:       out,
			ActorID:     actor.UserID,
			EvidenceURL: out.URL,
			At:          now,
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate records a supervisor's sign-off on a completed work item whose
// template requires validation. A work item is validated at most once.
func (m *Machine) Validate(ctx context.Context, id uint, actor role.Actor, note string) (*models.UserTask, error) {
	if !actor.Can(role.Supervisor) {
		return nil, denied(actor, "validate user task")
	}

	var out *models.UserTask
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ut, tmpl, err := lock(tx, id)
		if err != nil {
			return err
		}
		if !actor.CanAt(role.Supervisor, tmpl.AssetID) {
			return denied(actor, "validate user task")
		}
		if ut.Status != models.StatusCompleted {
			return &apperr.TransitionError{UserTaskID: id, Action: ActionValidate, Current: ut.Status.String()}
		}
		if !tmpl.RequiresValidation {
			return apperr.Invalid("user_task", "template %d does not require validation", tmpl.ID)
		}
		if ut.ValidatedAt != nil {
			return &apperr.TransitionError{UserTaskID: id, Action: ActionValidate, Current: "validated"}
		}

		now := m.now()
		updates := map[string]interface{}{"validated_at": now, "validated_by": actor.UserID}
		if n := appendNote(ut.Notes, note); n != ut.Notes {
			updates["notes"] = n
			ut.Notes = n
		}
		res := tx.Model(&models.UserTask{}).Where("id = ? AND validated_at IS NULL", id).Updates(updates)
		if res.Error != nil {
			return apperr.Storage("usertask: validate", res.Error)
		}
		if res.RowsAffected == 0 {
			return &apperr.TransitionError{UserTaskID: id, Action: ActionValidate, Current: "validated"}
		}
		validator := actor.UserID
		ut.ValidatedAt = &now
		ut.ValidatedBy = &validator
		out = ut
		return m.Audit.Append(tx, audit.Entry{
			Entity:   audit.EntityUserTask,
			EntityID: id,
			Action:   ActionValidate,
			After:    map[string]interface{}{"validated_by": actor.UserID},
			ActorID:  actor.UserID,
			Note:     note,
			At:       now,
		})
	})
	if err != nil {
		return nil, err
	}
	m.log().WithFields(logrus.Fields{"operation": ActionValidate, "user_task_id": id, "actor_id": actor.UserID}).Info("user task validated")
	return out, nil
}

// Annotate appends a note. It is the correction path: statuses never move
// backwards, but anyone working the task can record what went wrong.
func (m *Machine) Annotate(ctx context.Context, id uint, actor role.Actor, note string) (*models.UserTask, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, apperr.Invalid("note", "is required")
	}

	var out *models.UserTask
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ut, tmpl, err := lock(tx, id)
		if err != nil {
			return err
		}
		if !mayWork(actor, ut, tmpl) {
			return denied(actor, "annotate user task")
		}
		ut.Notes = appendNote(ut.Notes, note)
		if err := tx.Model(&models.UserTask{}).Where("id = ?", id).Update("notes", ut.Notes).Error; err != nil {
			return apperr.Storage("usertask: annotate", err)
		}
		out = ut
		return m.Audit.Append(tx, audit.Entry{
			Entity:   audit.EntityUserTask,
			EntityID: id,
			Action:   ActionAnnotate,
			Before:   statusSnapshot(ut.Status),
			After:    statusSnapshot(ut.Status),
			ActorID:  actor.UserID,
			Note:     note,
			At:       m.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a work item with its evidence and hierarchy edges. Children
// that pointed at it become top-level.
func (m *Machine) Delete(ctx context.Context, id uint, actor role.Actor) error {
	if !actor.Can(role.Admin) {
		return denied(actor, "delete user task")
	}
	return m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ut, _, err := lock(tx, id)
		if err != nil {
			return err
		}
		steps := []struct {
			op  string
			run func() error
		}{
			{"delete evidence", func() error {
				return tx.Where("user_task_id = ?", id).Delete(&models.UserTaskEvidence{}).Error
			}},
			{"delete edges", func() error {
				return tx.Where("user_task_id = ? OR parent_user_task_id = ?", id, id).Delete(&models.UserTaskParent{}).Error
			}},
			{"detach children", func() error {
				return tx.Model(&models.UserTask{}).Where("parent_user_task_id = ?", id).Update("parent_user_task_id", nil).Error
			}},
			{"delete", func() error {
				return tx.Delete(&models.UserTask{}, id).Error
			}},
		}
		for _, s := range steps {
			if err := s.run(); err != nil {
				return apperr.Storage("usertask: "+s.op, err)
			}
		}
		return m.Audit.Append(tx, audit.Entry{
			Entity:   audit.EntityUserTask,
			EntityID: id,
			Action:   ActionDelete,
			Before:   ut,
			ActorID:  actor.UserID,
			At:       m.now(),
		})
	})
}

// Get returns a work item with its template and evidence.
func (m *Machine) Get(ctx context.Context, id uint) (*models.UserTask, error) {
	var ut models.UserTask
	err := m.DB.WithContext(ctx).Preload("Task").Preload("Evidence").Where("id = ?", id).First(&ut).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user_task", id)
		}
		return nil, apperr.Storage("usertask: get", err)
	}
	return &ut, nil
}

// List returns work items matching filters ordered by date, time and id.
func (m *Machine) List(ctx context.Context, f ListFilters) ([]models.UserTask, error) {
	q := m.DB.WithContext(ctx).Model(&models.UserTask{}).Preload("Task")
	if f.Date != "" {
		q = q.Where("scheduled_date = ?", f.Date)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.TaskID != 0 {
		q = q.Where("task_id = ?", f.TaskID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	var out []models.UserTask
	if err := q.Order("scheduled_date, time, id").Find(&out).Error; err != nil {
		return nil, apperr.Storage("usertask: list", err)
	}
	return out, nil
}

// Children returns the work items linked under id.
func (m *Machine) Children(ctx context.Context, id uint) ([]models.UserTask, error) {
	gdb := m.DB.WithContext(ctx)
	var out []models.UserTask
	err := gdb.Where("id IN (?)", gdb.Model(&models.UserTaskParent{}).Select("user_task_id").Where("parent_user_task_id = ?", id)).
		Order("time, id").Find(&out).Error
	if err != nil {
		return nil, apperr.Storage("usertask: children", err)
	}
	return out, nil
}

// ParseStatus maps a status name to its value.
func ParseStatus(s string) (models.UserTaskStatus, error) {
	for _, st := range []models.UserTaskStatus{models.StatusPending, models.StatusInProgress, models.StatusCompleted} {
		if st.String() == strings.ToLower(strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return 0, apperr.Invalid("status", "%q must be pending, inprogress or completed", s)
}
