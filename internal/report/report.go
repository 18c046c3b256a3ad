// Package report exports a day's work items as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/models"
	"github.com/zulandar/caretaker/internal/recurrence"
	"gorm.io/gorm"
)

// Sheet names.
const (
	TasksSheet   = "Tasks"
	SummarySheet = "Summary"
)

var taskHeaders = []interface{}{
	"Code", "Template", "User", "Date", "Time", "Status", "Started", "Completed", "Validated", "Evidence",
}

type row struct {
	models.UserTask
	TemplateName  string
	UserName      string
	EvidenceCount int
}

// ExportDay writes the work items scheduled on date to w.
func ExportDay(gdb *gorm.DB, date string, w io.Writer) error {
	if _, err := recurrence.ParseDate(date); err != nil {
		return err
	}
	rows, err := load(gdb, date)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TasksSheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(TasksSheet, "A1", &taskHeaders); err != nil {
		return fmt.Errorf("report: header: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(TasksSheet, 1, 1, headerStyle)
	}

	counts := make(map[models.UserTaskStatus]int)
	for i, r := range rows {
		counts[r.Status]++
		values := []interface{}{
			r.Code,
			r.TemplateName,
			r.UserName,
			r.ScheduledDate,
			r.Time,
			r.Status.String(),
			stamp(r.StartAt),
			stamp(r.CompletedAt),
			stamp(r.ValidatedAt),
			r.EvidenceCount,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(TasksSheet, cell, &values); err != nil {
			return fmt.Errorf("report: row %d: %w", i+2, err)
		}
	}
	f.SetColWidth(TasksSheet, "A", "J", 15)

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("report: summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Date", date},
		{"Status", "Count"},
	}
	for _, st := range []models.UserTaskStatus{models.StatusPending, models.StatusInProgress, models.StatusCompleted} {
		summary = append(summary, []interface{}{st.String(), counts[st]})
	}
	summary = append(summary, []interface{}{"total", len(rows)})
	for i, line := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &line); err != nil {
			return fmt.Errorf("report: summary row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

func load(gdb *gorm.DB, date string) ([]row, error) {
	var items []models.UserTask
	if err := gdb.Preload("Task").Where("scheduled_date = ?", date).Order("time, task_id, user_id").Find(&items).Error; err != nil {
		return nil, apperr.Storage("report: load user tasks", err)
	}

	var users []models.User
	if err := gdb.Find(&users).Error; err != nil {
		return nil, apperr.Storage("report: load users", err)
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	type evidenceCount struct {
		UserTaskID uint
		N          int
	}
	var ecs []evidenceCount
	err := gdb.Model(&models.UserTaskEvidence{}).
		Select("user_task_id, COUNT(*) AS n").
		Where("user_task_id IN (?)", gdb.Model(&models.UserTask{}).Select("id").Where("scheduled_date = ?", date)).
		Group("user_task_id").
		Scan(&ecs).Error
	if err != nil {
		return nil, apperr.Storage("report: count evidence", err)
	}
	evidence := make(map[uint]int, len(ecs))
	for _, ec := range ecs {
		evidence[ec.UserTaskID] = ec.N
	}

	out := make([]row, len(items))
	for i, it := range items {
		r := row{UserTask: it, UserName: names[it.UserID], EvidenceCount: evidence[it.ID]}
		if it.Task != nil {
			r.TemplateName = it.Task.Name
		}
		out[i] = r
	}
	return out, nil
}

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
