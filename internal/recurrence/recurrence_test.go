package recurrence

import (
	"errors"
	"reflect"
	"testing"

	"github.com/zulandar/caretaker/internal/apperr"
	"github.com/zulandar/caretaker/internal/models"
)

func times(occ []Occurrence) []string {
	out := []string{}
	for _, o := range occ {
		out = append(out, o.Time)
	}
	return out
}

func TestDue_AllSlotsWithGroup(t *testing.T) {
	tmpl := &models.TaskTemplate{
		Name:                "Morning Sweep",
		AppliesAllTimeSlots: true,
		Group:               &models.TaskGroup{Name: "morning", StartTime: "06:00", EndTime: "14:00"},
		// Schedules are ignored for all-slots templates.
		Schedules: []models.TaskSchedule{{DayOfWeek: "sun", Time: "11:00"}},
	}
	got, err := Resolver{DefaultTime: "08:00"}.Due(tmpl, "2025-06-01")
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	want := []Occurrence{{Date: "2025-06-01", Time: "06:00"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Due = %+v, want %+v", got, want)
	}
}

func TestDue_AllSlotsDefaultTime(t *testing.T) {
	tmpl := &models.TaskTemplate{AppliesAllTimeSlots: true}
	got, err := Resolver{DefaultTime: "08:00"}.Due(tmpl, "2025-06-03")
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if !reflect.DeepEqual(times(got), []string{"08:00"}) {
		t.Errorf("times = %v, want [08:00]", times(got))
	}
}

func TestDue_WeeklySchedules(t *testing.T) {
	gate := &models.TaskTemplate{
		Name: "Gate Check",
		Schedules: []models.TaskSchedule{
			{DayOfWeek: "all", Time: "19:00"},
			{DayOfWeek: "mon", Time: "07:00"},
		},
	}
	tests := []struct {
		date string
		want []string
	}{
		{"2025-06-02", []string{"07:00", "19:00"}}, // Monday
		{"2025-06-03", []string{"19:00"}},          // Tuesday
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got, err := Resolver{DefaultTime: "08:00"}.Due(gate, tt.date)
			if err != nil {
				t.Fatalf("Due: %v", err)
			}
			if !reflect.DeepEqual(times(got), tt.want) {
				t.Errorf("times = %v, want %v", times(got), tt.want)
			}
		})
	}
}

func TestDue_Dedupes(t *testing.T) {
	tmpl := &models.TaskTemplate{Schedules: []models.TaskSchedule{
		{DayOfWeek: "all", Time: "09:00"},
		{DayOfWeek: "wed", Time: "09:00"},
		{DayOfWeek: "wed", Time: "08:30"},
	}}
	got, err := Resolver{}.Due(tmpl, "2025-06-04")
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if !reflect.DeepEqual(times(got), []string{"08:30", "09:00"}) {
		t.Errorf("times = %v", times(got))
	}
}

func TestDue_NoneIsNotError(t *testing.T) {
	tmpl := &models.TaskTemplate{Schedules: []models.TaskSchedule{{DayOfWeek: "sat", Time: "10:00"}}}
	got, err := Resolver{}.Due(tmpl, "2025-06-02")
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Due = %v, want empty", got)
	}
}

func TestDue_BadDate(t *testing.T) {
	_, err := Resolver{}.Due(&models.TaskTemplate{}, "06/01/2025")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"mon", "mon", false},
		{"Monday", "mon", false},
		{" ALL ", "all", false},
		{"sun", "sun", false},
		{"Wednesday", "wed", false},
		{"monkey", "", true},
		{"sunXYZ", "", true},
		{"tues", "", true},
		{"xyz", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDay(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDay(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestParseClock(t *testing.T) {
	for _, ok := range []string{"00:00", "06:30", "23:59"} {
		if _, err := ParseClock(ok); err != nil {
			t.Errorf("ParseClock(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"6:30", "24:00", "12:60", "noon", ""} {
		if _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q) expected error", bad)
		}
	}
}

func TestWeekday(t *testing.T) {
	d, _ := ParseDate("2025-06-01")
	if got := Weekday(d); got != "sun" {
		t.Errorf("Weekday(2025-06-01) = %q, want sun", got)
	}
}
