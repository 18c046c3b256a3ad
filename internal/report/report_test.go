package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/zulandar/caretaker/internal/models"
	"github.com/zulandar/caretaker/internal/testutil"
)

func TestExportDay(t *testing.T) {
	gdb := testutil.OpenDB(t)
	asset := testutil.Asset(t, gdb, "North")
	r := testutil.Role(t, gdb, "cleaner", "worker")
	ana := testutil.User(t, gdb, "ana")
	tmpl := testutil.Template(t, gdb, models.TaskTemplate{
		Name: "Lobby Sweep", AssetID: asset.ID, RoleID: r.ID, AppliesAllTimeSlots: true, Active: true,
	})

	started := time.Date(2025, 6, 1, 8, 5, 0, 0, time.UTC)
	items := []models.UserTask{
		{TaskID: tmpl.ID, UserID: ana.ID, ScheduledDate: "2025-06-01", Time: "08:00", Code: "ut-00000001", Status: models.StatusInProgress, StartAt: &started},
		{TaskID: tmpl.ID, UserID: ana.ID, ScheduledDate: "2025-06-01", Time: "12:00", Code: "ut-00000002"},
		{TaskID: tmpl.ID, UserID: ana.ID, ScheduledDate: "2025-06-02", Time: "08:00", Code: "ut-00000003"},
	}
	if err := gdb.Create(&items).Error; err != nil {
		t.Fatalf("create items: %v", err)
	}
	gdb.Create(&models.UserTaskEvidence{UserTaskID: items[0].ID, Kind: models.EvidencePhoto, URL: "https://files.example/1.jpg"})

	var buf bytes.Buffer
	if err := ExportDay(gdb, "2025-06-01", &buf); err != nil {
		t.Fatalf("ExportDay: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(TasksSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("task rows = %d, want header + 2", len(rows))
	}
	first := rows[1]
	if first[0] != "ut-00000001" || first[1] != "Lobby Sweep" || first[2] != "ana" || first[5] != "inprogress" {
		t.Errorf("first row = %v", first)
	}
	if first[6] != "2025-06-01 08:05" || first[9] != "1" {
		t.Errorf("first row stamps/evidence = %v", first)
	}

	summary, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("GetRows summary: %v", err)
	}
	want := map[string]string{"pending": "1", "inprogress": "1", "completed": "0", "total": "2"}
	for _, line := range summary[2:] {
		if want[line[0]] != line[1] {
			t.Errorf("summary %s = %s, want %s", line[0], line[1], want[line[0]])
		}
	}
}

func TestExportDay_BadDate(t *testing.T) {
	gdb := testutil.OpenDB(t)
	var buf bytes.Buffer
	if err := ExportDay(gdb, "tomorrow", &buf); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
