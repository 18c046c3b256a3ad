package task

import (
	"fmt"
	"sort"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/audit"
	"github.com/zulandar/caretaker/internal/models"
	"gorm.io/gorm"
)

// Graph is an in-memory adjacency list of the template hierarchy.
type Graph struct {
	parents  map[uint][]uint
	children map[uint][]uint
}

// NewGraph builds a graph from edges.
func NewGraph(edges []models.TaskParent) *Graph {
	g := &Graph{parents: make(map[uint][]uint), children: make(map[uint][]uint)}
	for _, e := range edges {
		g.parents[e.ChildTaskID] = append(g.parents[e.ChildTaskID], e.ParentTaskID)
		g.children[e.ParentTaskID] = append(g.children[e.ParentTaskID], e.ChildTaskID)
	}
	for _, m := range []map[uint][]uint{g.parents, g.children} {
		for k := range m {
			ids := m[k]
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		}
	}
	return g
}

// LoadGraph reads every TaskParent edge.
func LoadGraph(gdb *gorm.DB) (*Graph, error) {
	var edges []models.TaskParent
	if err := gdb.Find(&edges).Error; err != nil {
		return nil, apperr.Storage("task: load hierarchy", err)
	}
	return NewGraph(edges), nil
}

// Parents returns the parent template ids of child, ascending.
func (g *Graph) Parents(child uint) []uint { return g.parents[child] }

// Children returns the child template ids of parent, ascending.
func (g *Graph) Children(parent uint) []uint { return g.children[parent] }

// Reachable reports whether to can be reached from from by following
// child → parent edges.
func (g *Graph) Reachable(from, to uint) bool {
	visited := make(map[uint]bool)
	stack := []uint{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		stack = append(stack, g.parents[cur]...)
	}
	return false
}

// AddParent links childID under parentID. Self edges, duplicate edges,
// cycles and completion orders that could never be satisfied are rejected.
func AddParent(gdb *gorm.DB, actorID, childID, parentID uint) error {
	if childID == parentID {
		return apperr.Invalid("parent_id", "template %d cannot be its own parent", childID)
	}

	return gdb.Transaction(func(tx *gorm.DB) error {
		child, err := Get(tx, childID)
		if err != nil {
			return err
		}
		parent, err := Get(tx, parentID)
		if err != nil {
			return err
		}

		g, err := LoadGraph(tx)
		if err != nil {
			return err
		}
		for _, p := range g.Parents(childID) {
			if p == parentID {
				return apperr.Invalid("parent_id", "template %d is already a parent of %d", parentID, childID)
			}
		}
		// The new edge closes a cycle if the child is already an ancestor of the parent.
		if g.Reachable(parentID, childID) {
			return apperr.Invalid("parent_id", "linking %d under %d would create a cycle", childID, parentID)
		}
		if deadlocked(child.CompletionOrder, parent.CompletionOrder) {
			return apperr.Invalid("completion_order",
				"template %d waits for its parents but parent %d waits for its children", childID, parentID)
		}

		edge := models.TaskParent{ChildTaskID: childID, ParentTaskID: parentID}
		if err := tx.Create(&edge).Error; err != nil {
			return apperr.Storage("task: add parent", err)
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityTemplate,
			EntityID: childID,
			Action:   "add_parent",
			After:    edge,
			ActorID:  actorID,
		})
	})
}

func deadlocked(childOrder, parentOrder string) bool {
	return childOrder == models.OrderParentFirst && parentOrder == models.OrderChildrenFirst
}

// checkOrderConflicts re-checks the edges around t after its completion
// order changed.
func checkOrderConflicts(tx *gorm.DB, t *models.TaskTemplate) error {
	g, err := LoadGraph(tx)
	if err != nil {
		return err
	}
	var neighbours []models.TaskTemplate
	ids := append(append([]uint{}, g.Parents(t.ID)...), g.Children(t.ID)...)
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("id IN ?", ids).Find(&neighbours).Error; err != nil {
		return apperr.Storage("task: load neighbours", err)
	}
	order := make(map[uint]string, len(neighbours))
	for _, n := range neighbours {
		order[n.ID] = n.CompletionOrder
	}
	for _, p := range g.Parents(t.ID) {
		if deadlocked(t.CompletionOrder, order[p]) {
			return apperr.Invalid("completion_order", "parent %d waits for its children", p)
		}
	}
	for _, c := range g.Children(t.ID) {
		if deadlocked(order[c], t.CompletionOrder) {
			return apperr.Invalid("completion_order", "child %d waits for its parents", c)
		}
	}
	return nil
}

// RemoveParent deletes the edge childID → parentID.
func RemoveParent(gdb *gorm.DB, actorID, childID, parentID uint) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("child_task_id = ? AND parent_task_id = ?", childID, parentID).Delete(&models.TaskParent{})
		if res.Error != nil {
			return apperr.Storage("task: remove parent", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("task_parent", fmt.Sprintf("%d→%d", childID, parentID))
		}
		return record(tx, audit.Entry{
			Entity:   audit.EntityTemplate,
			EntityID: childID,
			Action:   "remove_parent",
			Before:   models.TaskParent{ChildTaskID: childID, ParentTaskID: parentID},
			ActorID:  actorID,
		})
	})
}

// ListParents returns the parent templates of id.
func ListParents(gdb *gorm.DB, id uint) ([]models.TaskTemplate, error) {
	var out []models.TaskTemplate
	err := gdb.Where("id IN (?)", gdb.Model(&models.TaskParent{}).Select("parent_task_id").Where("child_task_id = ?", id)).
		Order("id").Find(&out).Error
	if err != nil {
		return nil, apperr.Storage("task: list parents", err)
	}
	return out, nil
}

// ListChildren returns the child templates of id.
func ListChildren(gdb *gorm.DB, id uint) ([]models.TaskTemplate, error) {
	var out []models.TaskTemplate
	err := gdb.Where("id IN (?)", gdb.Model(&models.TaskParent{}).Select("child_task_id").Where("parent_task_id = ?", id)).
		Order("id").Find(&out).Error
	if err != nil {
		return nil, apperr.Storage("task: list children", err)
	}
	return out, nil
}

// PickParent chooses the parent instance for a child scheduled at childTime
// from candidates sorted by time: the same time, else the latest earlier
// time, else the earliest time that day.
func PickParent(candidates []models.UserTask, childTime string) (models.UserTask, bool) {
	if len(candidates) == 0 {
		return models.UserTask{}, false
	}
	best := -1
	for i, c := range candidates {
		if c.Time == childTime {
			return c, true
		}
		if c.Time < childTime {
			best = i
		}
	}
	if best >= 0 {
		return candidates[best], true
	}
	return candidates[0], true
}
