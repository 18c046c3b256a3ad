package task

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/models"
)

func TestGraph_Reachable(t *testing.T) {
	// 3 → 2 → 1, 4 → 1
	g := NewGraph([]models.TaskParent{
		{ChildTaskID: 2, ParentTaskID: 1},
		{ChildTaskID: 3, ParentTaskID: 2},
		{ChildTaskID: 4, ParentTaskID: 1},
	})
	tests := []struct {
		from, to uint
		want     bool
	}{
		{3, 1, true},
		{3, 3, true},
		{1, 3, false},
		{4, 2, false},
		{2, 1, true},
	}
	for _, tt := range tests {
		if got := g.Reachable(tt.from, tt.to); got != tt.want {
			t.Errorf("Reachable(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if !reflect.DeepEqual(g.Children(1), []uint{2, 4}) {
		t.Errorf("Children(1) = %v", g.Children(1))
	}
}

func TestAddParent(t *testing.T) {
	f := setup(t)
	room, _ := Create(f.db, 1, f.opts("Validate Room"))
	clean, _ := Create(f.db, 1, f.opts("Clean Room"))

	if err := AddParent(f.db, 1, clean.ID, room.ID); err != nil {
		t.Fatalf("AddParent: %v", err)
	}

	parents, err := ListParents(f.db, clean.ID)
	if err != nil {
		t.Fatalf("ListParents: %v", err)
	}
	if len(parents) != 1 || parents[0].ID != room.ID {
		t.Errorf("parents = %+v", parents)
	}
	children, err := ListChildren(f.db, room.ID)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 1 || children[0].ID != clean.ID {
		t.Errorf("children = %+v", children)
	}
}

func TestAddParent_ManyToMany(t *testing.T) {
	f := setup(t)
	p1, _ := Create(f.db, 1, f.opts("Floor 1"))
	p2, _ := Create(f.db, 1, f.opts("Floor 2"))
	c, _ := Create(f.db, 1, f.opts("Empty Bins"))

	for _, p := range []uint{p2.ID, p1.ID} {
		if err := AddParent(f.db, 1, c.ID, p); err != nil {
			t.Fatalf("AddParent(%d): %v", p, err)
		}
	}
	g, err := LoadGraph(f.db)
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	if !reflect.DeepEqual(g.Parents(c.ID), []uint{p1.ID, p2.ID}) {
		t.Errorf("Parents = %v", g.Parents(c.ID))
	}
}

func TestAddParent_Rejections(t *testing.T) {
	f := setup(t)
	a, _ := Create(f.db, 1, f.opts("A"))
	b, _ := Create(f.db, 1, f.opts("B"))
	c, _ := Create(f.db, 1, f.opts("C"))
	// c → b → a
	if err := AddParent(f.db, 1, b.ID, a.ID); err != nil {
		t.Fatalf("AddParent b→a: %v", err)
	}
	if err := AddParent(f.db, 1, c.ID, b.ID); err != nil {
		t.Fatalf("AddParent c→b: %v", err)
	}

	tests := []struct {
		name          string
		child, parent uint
		kind          error
		want          string
	}{
		{"self", a.ID, a.ID, apperr.ErrValidation, "own parent"},
		{"duplicate", b.ID, a.ID, apperr.ErrValidation, "already a parent"},
		{"direct cycle", a.ID, b.ID, apperr.ErrValidation, "would create a cycle"},
		{"transitive cycle", a.ID, c.ID, apperr.ErrValidation, "would create a cycle"},
		{"unknown child", 999, a.ID, apperr.ErrNotFound, "task_template"},
		{"unknown parent", a.ID, 999, apperr.ErrNotFound, "task_template"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AddParent(f.db, 1, tt.child, tt.parent)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("error = %v, want kind %v", err, tt.kind)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestAddParent_DeadlockingOrders(t *testing.T) {
	f := setup(t)
	parentOpts := f.opts("Inspect")
	parentOpts.CompletionOrder = models.OrderChildrenFirst
	parent, _ := Create(f.db, 1, parentOpts)
	childOpts := f.opts("Sweep")
	childOpts.CompletionOrder = models.OrderParentFirst
	child, _ := Create(f.db, 1, childOpts)

	err := AddParent(f.db, 1, child.ID, parent.ID)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("error = %v, want validation", err)
	}

	if err := Update(f.db, 1, child.ID, map[string]interface{}{"completion_order": models.OrderIndependent}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := AddParent(f.db, 1, child.ID, parent.ID); err != nil {
		t.Fatalf("AddParent: %v", err)
	}
	// Flipping back would deadlock the existing edge.
	err = Update(f.db, 1, child.ID, map[string]interface{}{"completion_order": models.OrderParentFirst})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestRemoveParent(t *testing.T) {
	f := setup(t)
	a, _ := Create(f.db, 1, f.opts("A"))
	b, _ := Create(f.db, 1, f.opts("B"))
	if err := AddParent(f.db, 1, b.ID, a.ID); err != nil {
		t.Fatalf("AddParent: %v", err)
	}
	if err := RemoveParent(f.db, 1, b.ID, a.ID); err != nil {
		t.Fatalf("RemoveParent: %v", err)
	}
	if err := RemoveParent(f.db, 1, b.ID, a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second remove error = %v, want not found", err)
	}
	// Now the reverse edge is legal.
	if err := AddParent(f.db, 1, a.ID, b.ID); err != nil {
		t.Errorf("AddParent reversed: %v", err)
	}
}

func TestPickParent(t *testing.T) {
	at := func(times ...string) []models.UserTask {
		out := make([]models.UserTask, len(times))
		for i, tm := range times {
			out[i] = models.UserTask{ID: uint(i + 1), Time: tm}
		}
		return out
	}
	tests := []struct {
		name      string
		cands     []models.UserTask
		childTime string
		wantID    uint
		wantOK    bool
	}{
		{"none", nil, "09:00", 0, false},
		{"same time", at("07:00", "09:00", "19:00"), "09:00", 2, true},
		{"latest earlier", at("07:00", "08:00", "19:00"), "09:00", 2, true},
		{"earliest when all later", at("10:00", "19:00"), "09:00", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickParent(tt.cands, tt.childTime)
			if ok != tt.wantOK || got.ID != tt.wantID {
				t.Errorf("PickParent = (%d, %v), want (%d, %v)", got.ID, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}
