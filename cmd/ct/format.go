package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/zulandar/caretaker/internal/models"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed, color.Bold)
)

// table renders aligned columns with a highlighted header row.
type table struct {
	headers []string
	rows    [][]string
	widths  []int
}

func newTable(headers ...string) *table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &table{headers: headers, widths: widths}
}

func (t *table) add(cells ...string) {
	for i, c := range cells {
		if i < len(t.widths) && len(c) > t.widths[i] {
			t.widths[i] = len(c)
		}
	}
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	for i, h := range t.headers {
		fmt.Fprint(w, headerColor.Sprint(pad(h, t.widths[i])))
		fmt.Fprint(w, "  ")
	}
	fmt.Fprintln(w)
	for i := range t.headers {
		fmt.Fprint(w, strings.Repeat("-", t.widths[i]), "  ")
	}
	fmt.Fprintln(w)
	for _, row := range t.rows {
		for i, c := range row {
			if i >= len(t.widths) {
				break
			}
			cell := pad(c, t.widths[i])
			if i == statusColumn(t.headers) {
				cell = colorStatus(c, cell)
			}
			fmt.Fprint(w, cell, "  ")
		}
		fmt.Fprintln(w)
	}
	if len(t.rows) == 0 {
		fmt.Fprintln(w, "(none)")
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func statusColumn(headers []string) int {
	for i, h := range headers {
		if h == "STATUS" {
			return i
		}
	}
	return -1
}

// colorStatus colors a padded cell by the status it shows.
func colorStatus(status, cell string) string {
	switch status {
	case models.StatusCompleted.String(), "active":
		return okColor.Sprint(cell)
	case models.StatusInProgress.String():
		return warnColor.Sprint(cell)
	case "inactive":
		return errColor.Sprint(cell)
	}
	return cell
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func optionalID(id *uint) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprint(*id)
}
