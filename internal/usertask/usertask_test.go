package usertask

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/audit"
	"github.com/zulandar/caretaker/internal/generate"
	"github.com/zulandar/caretaker/internal/models"
	"github.com/zulandar/caretaker/internal/role"
	"github.com/zulandar/caretaker/internal/testutil"
	"gorm.io/gorm"
)

const day = "2025-06-01"

var ctx = context.Background()

type fixture struct {
	db     *gorm.DB
	m      *Machine
	asset  models.Asset
	role   models.Role
	worker role.Actor
	other  role.Actor
	super  role.Actor
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.OpenDB(t)
	f := &fixture{
		db:    gdb,
		asset: testutil.Asset(t, gdb, "North Tower"),
		role:  testutil.Role(t, gdb, "cleaner", "worker"),
	}
	ana := testutil.User(t, gdb, "ana")
	testutil.Assign(t, gdb, ana.ID, f.asset.ID, f.role.ID)
	bo := testutil.User(t, gdb, "bo")
	sup := testutil.User(t, gdb, "sam")

	f.worker = role.Actor{UserID: ana.ID, Caps: role.Worker}
	f.other = role.Actor{UserID: bo.ID, Caps: role.Worker}
	f.super = role.Actor{UserID: sup.ID, Caps: role.Supervisor}

	f.m = New(gdb, nil)
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	f.m.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return f
}

func (f *fixture) template(t *testing.T, tmpl models.TaskTemplate) models.TaskTemplate {
	t.Helper()
	tmpl.AssetID = f.asset.ID
	tmpl.RoleID = f.role.ID
	tmpl.Active = true
	if len(tmpl.Schedules) == 0 {
		tmpl.Schedules = []models.TaskSchedule{{DayOfWeek: "all", Time: "09:00"}}
	}
	return testutil.Template(t, f.db, tmpl)
}

// generate materializes the day and returns the work item for each template.
func (f *fixture) generate(t *testing.T) map[uint]models.UserTask {
	t.Helper()
	if _, err := generate.New(f.db, "08:00", nil).GenerateForDate(ctx, day); err != nil {
		t.Fatalf("GenerateForDate: %v", err)
	}
	var items []models.UserTask
	if err := f.db.Where("scheduled_date = ?", day).Find(&items).Error; err != nil {
		t.Fatalf("load items: %v", err)
	}
	out := make(map[uint]models.UserTask)
	for _, it := range items {
		out[it.TaskID] = it
	}
	return out
}

func (f *fixture) single(t *testing.T, tmpl models.TaskTemplate) models.UserTask {
	t.Helper()
	tp := f.template(t, tmpl)
	return f.generate(t)[tp.ID]
}

func TestStartComplete(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Lobby Sweep"})

	started, err := f.m.Start(ctx, ut.ID, f.worker)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != models.StatusInProgress || started.StartAt == nil {
		t.Errorf("after start = %+v", started)
	}

	done, err := f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{Note: "all clear"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != models.StatusCompleted || done.CompletedAt == nil {
		t.Errorf("after complete = %+v", done)
	}

	got, err := f.m.Get(ctx, ut.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.StatusCompleted || got.Notes != "all clear" || got.Task == nil {
		t.Errorf("stored = %+v", got)
	}
	if !got.CompletedAt.After(*got.StartAt) {
		t.Errorf("completed %v not after started %v", got.CompletedAt, got.StartAt)
	}

	rows, _ := audit.List(f.db, audit.EntityUserTask, ut.ID)
	var actions []string
	for _, r := range rows {
		actions = append(actions, r.Action)
	}
	if !reflect.DeepEqual(actions, []string{"generate", ActionStart, ActionComplete}) {
		t.Errorf("audit actions = %v", actions)
	}
}

func TestTransitions_Monotonic(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Lobby Sweep"})

	_, err := f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{})
	var te *apperr.TransitionError
	if !errors.As(err, &te) || te.Current != "pending" {
		t.Fatalf("complete from pending error = %v, want transition error from pending", err)
	}

	if _, err := f.m.Start(ctx, ut.ID, f.worker); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err = f.m.Start(ctx, ut.ID, f.worker)
	if !errors.As(err, &te) || te.Current != "inprogress" {
		t.Errorf("second start error = %v, want transition error from inprogress", err)
	}

	if _, err := f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	for name, act := range map[string]func() error{
		"start": func() error {
			_, err := f.m.Start(ctx, ut.ID, f.worker)
			return err
		},
		"complete": func() error {
			_, err := f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{})
			return err
		},
	} {
		err := act()
		if !errors.Is(err, apperr.ErrInvalidTransition) || !strings.Contains(err.Error(), "completed") {
			t.Errorf("%s after completion error = %v", name, err)
		}
	}
}

func TestTransition_LostRace(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Lobby Sweep"})

	// Another writer started the item after it was read.
	stale := ut
	if err := f.db.Model(&models.UserTask{}).Where("id = ?", ut.ID).Update("status", models.StatusInProgress).Error; err != nil {
		t.Fatalf("update status: %v", err)
	}
	err := transition(f.db, &stale, ActionStart, nil)
	var te *apperr.TransitionError
	if !errors.As(err, &te) || te.Current != "inprogress" {
		t.Fatalf("error = %v, want transition from inprogress", err)
	}

	// The row vanished: the reload fails and must not report a status.
	if err := f.db.Delete(&models.UserTask{}, ut.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	stale = ut
	err = transition(f.db, &stale, ActionStart, nil)
	if !errors.Is(err, apperr.ErrStorage) || errors.As(err, &te) {
		t.Errorf("error = %v, want storage error", err)
	}
}

func TestNotFound(t *testing.T) {
	f := setup(t)
	if _, err := f.m.Start(ctx, 404, f.worker); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Start error = %v, want not found", err)
	}
	if _, err := f.m.Get(ctx, 404); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get error = %v, want not found", err)
	}
}

func TestPermissions(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Lobby Sweep"})

	if _, err := f.m.Start(ctx, ut.ID, f.other); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("other worker start error = %v, want permission", err)
	}
	if _, err := f.m.Start(ctx, ut.ID, f.super); err != nil {
		t.Errorf("supervisor start: %v", err)
	}
	if _, err := f.m.Annotate(ctx, ut.ID, f.other, "not mine"); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("other worker annotate error = %v, want permission", err)
	}
	if err := f.m.Delete(ctx, ut.ID, f.super); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("supervisor delete error = %v, want permission", err)
	}
}

func TestPermissions_SupervisorScopedToAsset(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Restroom Check", RequiresValidation: true})
	south := testutil.Asset(t, f.db, "South Tower")
	lead := testutil.Role(t, f.db, "lead", "supervisor")
	sam := testutil.User(t, f.db, "sam-south")
	testutil.Assign(t, f.db, sam.ID, south.ID, lead.ID)
	elsewhere, err := role.ResolveActor(f.db, sam.ID)
	if err != nil {
		t.Fatalf("ResolveActor: %v", err)
	}

	if _, err := f.m.Start(ctx, ut.ID, elsewhere); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("start by supervisor of another asset error = %v, want permission", err)
	}
	f.m.Start(ctx, ut.ID, f.worker)
	f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{Evidence: []EvidenceInput{{URL: "https://files.example/r.jpg"}}})
	if _, err := f.m.Validate(ctx, ut.ID, elsewhere, ""); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("validate by supervisor of another asset error = %v, want permission", err)
	}

	testutil.Assign(t, f.db, sam.ID, f.asset.ID, lead.ID)
	here, err := role.ResolveActor(f.db, sam.ID)
	if err != nil {
		t.Fatalf("ResolveActor: %v", err)
	}
	if _, err := f.m.Validate(ctx, ut.ID, here, ""); err != nil {
		t.Errorf("validate by supervisor of the asset: %v", err)
	}
}

// Validate Room may only complete once its child Clean Room is completed.
func TestScenario_ValidateRoomWaitsForCleanRoom(t *testing.T) {
	f := setup(t)
	room := f.template(t, models.TaskTemplate{
		Name:               "Validate Room",
		RequiresValidation: true,
		CompletionOrder:    models.OrderChildrenFirst,
	})
	clean := f.template(t, models.TaskTemplate{Name: "Clean Room"})
	testutil.Parent(t, f.db, clean.ID, room.ID)
	items := f.generate(t)
	parent, child := items[room.ID], items[clean.ID]

	if _, err := f.m.Start(ctx, parent.ID, f.worker); err != nil {
		t.Fatalf("Start parent: %v", err)
	}
	_, err := f.m.Complete(ctx, parent.ID, f.worker, CompleteInput{
		Evidence: []EvidenceInput{{URL: "https://files.example/room.jpg"}},
	})
	var de *apperr.DependencyError
	if !errors.As(err, &de) || !reflect.DeepEqual(de.Blocking, []uint{child.ID}) {
		t.Fatalf("complete parent early error = %v, want dependency on %d", err, child.ID)
	}
	// The failed completion wrote nothing.
	var evidence int64
	f.db.Model(&models.UserTaskEvidence{}).Where("user_task_id = ?", parent.ID).Count(&evidence)
	if evidence != 0 {
		t.Errorf("evidence rows after rollback = %d, want 0", evidence)
	}

	if _, err := f.m.Start(ctx, child.ID, f.worker); err != nil {
		t.Fatalf("Start child: %v", err)
	}
	if _, err := f.m.Complete(ctx, child.ID, f.worker, CompleteInput{}); err != nil {
		t.Fatalf("Complete child: %v", err)
	}
	done, err := f.m.Complete(ctx, parent.ID, f.worker, CompleteInput{
		Evidence: []EvidenceInput{{URL: "https://files.example/room.jpg"}},
	})
	if err != nil {
		t.Fatalf("Complete parent: %v", err)
	}
	if done.Status != models.StatusCompleted {
		t.Errorf("parent status = %v", done.Status)
	}

	if _, err := f.m.Validate(ctx, parent.ID, f.worker, ""); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("worker validate error = %v, want permission", err)
	}
	validated, err := f.m.Validate(ctx, parent.ID, f.super, "looks good")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if validated.ValidatedAt == nil || *validated.ValidatedBy != f.super.UserID {
		t.Errorf("validated = %+v", validated)
	}
	if _, err := f.m.Validate(ctx, parent.ID, f.super, ""); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("second validate error = %v, want transition", err)
	}

	children, err := f.m.Children(ctx, parent.ID)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(children) != 1 || children[0].ID != child.ID {
		t.Errorf("children = %+v", children)
	}
}

func TestParentFirstChildWaits(t *testing.T) {
	f := setup(t)
	open := f.template(t, models.TaskTemplate{Name: "Open Building"})
	lights := f.template(t, models.TaskTemplate{Name: "Lights On", CompletionOrder: models.OrderParentFirst})
	testutil.Parent(t, f.db, lights.ID, open.ID)
	items := f.generate(t)

	child := items[lights.ID]
	if _, err := f.m.Start(ctx, child.ID, f.worker); err != nil {
		t.Fatalf("Start child: %v", err)
	}
	if _, err := f.m.Complete(ctx, child.ID, f.worker, CompleteInput{}); !errors.Is(err, apperr.ErrDependencyNotMet) {
		t.Fatalf("complete child early error = %v, want dependency", err)
	}

	parent := items[open.ID]
	f.m.Start(ctx, parent.ID, f.worker)
	if _, err := f.m.Complete(ctx, parent.ID, f.worker, CompleteInput{}); err != nil {
		t.Fatalf("Complete parent: %v", err)
	}
	if _, err := f.m.Complete(ctx, child.ID, f.worker, CompleteInput{}); err != nil {
		t.Errorf("Complete child: %v", err)
	}
}

// unlink removes the mirrored edges, leaving items as they are between
// insert and link during a generation run.
func (f *fixture) unlink(t *testing.T) {
	t.Helper()
	if err := f.db.Where("1 = 1").Delete(&models.UserTaskParent{}).Error; err != nil {
		t.Fatalf("delete edges: %v", err)
	}
	if err := f.db.Model(&models.UserTask{}).Where("1 = 1").Update("parent_user_task_id", nil).Error; err != nil {
		t.Fatalf("clear parents: %v", err)
	}
}

func TestDependencies_BeforeLinking(t *testing.T) {
	t.Run("parent first", func(t *testing.T) {
		f := setup(t)
		room := f.template(t, models.TaskTemplate{Name: "Validate Room"})
		clean := f.template(t, models.TaskTemplate{Name: "Clean Room", CompletionOrder: models.OrderParentFirst})
		testutil.Parent(t, f.db, clean.ID, room.ID)
		items := f.generate(t)
		f.unlink(t)

		child := items[clean.ID]
		f.m.Start(ctx, child.ID, f.worker)
		_, err := f.m.Complete(ctx, child.ID, f.worker, CompleteInput{})
		var de *apperr.DependencyError
		if !errors.As(err, &de) || !reflect.DeepEqual(de.Blocking, []uint{items[room.ID].ID}) {
			t.Fatalf("complete child error = %v, want dependency on parent", err)
		}
	})

	t.Run("children first", func(t *testing.T) {
		f := setup(t)
		room := f.template(t, models.TaskTemplate{Name: "Validate Room", CompletionOrder: models.OrderChildrenFirst})
		clean := f.template(t, models.TaskTemplate{Name: "Clean Room"})
		testutil.Parent(t, f.db, clean.ID, room.ID)
		items := f.generate(t)
		f.unlink(t)

		parent := items[room.ID]
		f.m.Start(ctx, parent.ID, f.worker)
		_, err := f.m.Complete(ctx, parent.ID, f.worker, CompleteInput{})
		var de *apperr.DependencyError
		if !errors.As(err, &de) || !reflect.DeepEqual(de.Blocking, []uint{items[clean.ID].ID}) {
			t.Fatalf("complete parent error = %v, want dependency on child", err)
		}
	})

	t.Run("other user's items do not block", func(t *testing.T) {
		f := setup(t)
		room := f.template(t, models.TaskTemplate{Name: "Validate Room"})
		clean := f.template(t, models.TaskTemplate{Name: "Clean Room", CompletionOrder: models.OrderParentFirst})
		testutil.Parent(t, f.db, clean.ID, room.ID)
		items := f.generate(t)
		f.unlink(t)
		if err := f.db.Model(&models.UserTask{}).Where("id = ?", items[room.ID].ID).Update("user_id", f.other.UserID).Error; err != nil {
			t.Fatalf("reassign: %v", err)
		}

		child := items[clean.ID]
		f.m.Start(ctx, child.ID, f.worker)
		if _, err := f.m.Complete(ctx, child.ID, f.worker, CompleteInput{}); err != nil {
			t.Errorf("Complete child: %v", err)
		}
	})
}

func TestEvidenceGate_Validation(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Restroom Check", RequiresValidation: true})
	f.m.Start(ctx, ut.ID, f.worker)

	_, err := f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{})
	if !errors.Is(err, apperr.ErrEvidenceRequired) {
		t.Fatalf("complete without evidence error = %v, want evidence required", err)
	}
	got, _ := f.m.Get(ctx, ut.ID)
	if got.Status != models.StatusInProgress {
		t.Errorf("status after refusal = %v, want inprogress", got.Status)
	}

	if _, err := f.m.AttachEvidence(ctx, ut.ID, f.worker, EvidenceInput{URL: "https://files.example/a.jpg"}); err != nil {
		t.Fatalf("AttachEvidence: %v", err)
	}
	if _, err := f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{}); err != nil {
		t.Fatalf("Complete with prior evidence: %v", err)
	}

	// Completed but not yet validated: more evidence is still accepted.
	if _, err := f.m.AttachEvidence(ctx, ut.ID, f.super, EvidenceInput{URL: "https://files.example/b.jpg"}); err != nil {
		t.Errorf("AttachEvidence awaiting validation: %v", err)
	}
	f.m.Validate(ctx, ut.ID, f.super, "")
	if _, err := f.m.AttachEvidence(ctx, ut.ID, f.worker, EvidenceInput{URL: "https://files.example/c.jpg"}); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("AttachEvidence after validation error = %v, want transition", err)
	}
}

func TestEvidenceGate_Scan(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Boiler Round", RequiresScan: true, ScanCode: "BOILER-1"})
	f.m.Start(ctx, ut.ID, f.worker)

	if _, err := f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{}); !errors.Is(err, apperr.ErrEvidenceRequired) {
		t.Errorf("no scan error = %v, want evidence required", err)
	}
	if _, err := f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{ScanCode: "BOILER-2"}); !errors.Is(err, apperr.ErrEvidenceRequired) {
		t.Errorf("wrong scan error = %v, want evidence required", err)
	}
	if _, err := f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{ScanCode: "BOILER-1"}); err != nil {
		t.Fatalf("Complete with scan: %v", err)
	}

	got, _ := f.m.Get(ctx, ut.ID)
	if len(got.Evidence) != 1 || got.Evidence[0].Kind != models.EvidenceScan {
		t.Errorf("evidence = %+v, want one scan row", got.Evidence)
	}
}

func TestEvidenceInput_Invalid(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Lobby Sweep"})
	lat := 52.5
	tests := []EvidenceInput{
		{URL: ""},
		{Kind: "video", URL: "https://files.example/v.mp4"},
		{Kind: models.EvidenceGeo, URL: "geo:1", Latitude: &lat},
	}
	for _, in := range tests {
		if _, err := f.m.AttachEvidence(ctx, ut.ID, f.worker, in); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("AttachEvidence(%+v) error = %v, want validation", in, err)
		}
	}
}

func TestValidate_NotRequired(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Lobby Sweep"})
	f.m.Start(ctx, ut.ID, f.worker)
	f.m.Complete(ctx, ut.ID, f.worker, CompleteInput{})
	if _, err := f.m.Validate(ctx, ut.ID, f.super, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestValidate_NotCompleted(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Restroom Check", RequiresValidation: true})
	if _, err := f.m.Validate(ctx, ut.ID, f.super, ""); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("error = %v, want transition", err)
	}
}

func TestAnnotate(t *testing.T) {
	f := setup(t)
	ut := f.single(t, models.TaskTemplate{Name: "Lobby Sweep"})

	if _, err := f.m.Annotate(ctx, ut.ID, f.worker, "  "); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty note error = %v, want validation", err)
	}
	f.m.Annotate(ctx, ut.ID, f.worker, "wet floor")
	got, err := f.m.Annotate(ctx, ut.ID, f.super, "marked complete by mistake yesterday")
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if got.Notes != "wet floor\nmarked complete by mistake yesterday" {
		t.Errorf("notes = %q", got.Notes)
	}
	if got.Status != models.StatusPending {
		t.Errorf("annotate changed status to %v", got.Status)
	}
}

func TestDelete(t *testing.T) {
	f := setup(t)
	room := f.template(t, models.TaskTemplate{Name: "Validate Room"})
	clean := f.template(t, models.TaskTemplate{Name: "Clean Room"})
	testutil.Parent(t, f.db, clean.ID, room.ID)
	items := f.generate(t)
	parent, child := items[room.ID], items[clean.ID]
	f.m.AttachEvidence(ctx, parent.ID, f.worker, EvidenceInput{URL: "https://files.example/p.jpg"})

	if err := f.m.Delete(ctx, parent.ID, role.System); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.m.Get(ctx, parent.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete error = %v", err)
	}
	var evidence, edges int64
	f.db.Model(&models.UserTaskEvidence{}).Count(&evidence)
	f.db.Model(&models.UserTaskParent{}).Count(&edges)
	if evidence != 0 || edges != 0 {
		t.Errorf("evidence = %d, edges = %d, want 0", evidence, edges)
	}
	got, _ := f.m.Get(ctx, child.ID)
	if got.ParentUserTaskID != nil {
		t.Errorf("child still points at %d", *got.ParentUserTaskID)
	}
	if err := f.m.Delete(ctx, parent.ID, role.System); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete error = %v, want not found", err)
	}
}

func TestList(t *testing.T) {
	f := setup(t)
	a := f.template(t, models.TaskTemplate{Name: "A", Schedules: []models.TaskSchedule{{DayOfWeek: "all", Time: "07:00"}}})
	f.template(t, models.TaskTemplate{Name: "B", Schedules: []models.TaskSchedule{{DayOfWeek: "all", Time: "06:00"}}})
	items := f.generate(t)
	f.m.Start(ctx, items[a.ID].ID, f.worker)

	all, err := f.m.List(ctx, ListFilters{Date: day})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].Time != "06:00" {
		t.Errorf("list = %+v", all)
	}
	inProgress := models.StatusInProgress
	started, _ := f.m.List(ctx, ListFilters{Status: &inProgress, UserID: f.worker.UserID})
	if len(started) != 1 || started[0].TaskID != a.ID {
		t.Errorf("inprogress = %+v", started)
	}
	none, _ := f.m.List(ctx, ListFilters{Date: "2025-06-02"})
	if len(none) != 0 {
		t.Errorf("other day = %d items", len(none))
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]models.UserTaskStatus{
		"pending":    models.StatusPending,
		"InProgress": models.StatusInProgress,
		"completed":  models.StatusCompleted,
	} {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Errorf("ParseStatus(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStatus("done"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("ParseStatus(done) error = %v", err)
	}
}
