package view

import (
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/photodiary/internal/calendar"
	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
	"github.com/charmbracelet/lipgloss"
)

func mustMonth(t *testing.T, monthKey string, records []photos.Record, navigation MonthNavigation) string {
	t.Helper()
	cells, err := calendar.BuildMonthGrid(monthKey, records)
	if err != nil {
		t.Fatalf("failed to build grid: %v", err)
	}
	rendered, err := NewRenderer(DefaultTheme).Month(monthKey, cells, navigation)
	if err != nil {
		t.Fatalf("failed to render month: %v", err)
	}
	return rendered
}

func TestMonthRendersTitleHeaderAndMarkers(t *testing.T) {
	rendered := mustMonth(t, "2024-01", []photos.Record{{Day: "2024-01-05"}, {Day: "2024-01-20"}}, MonthNavigation{})

	lines := strings.Split(rendered, "\n")
	if !strings.Contains(lines[0], "January 2024") {
		t.Fatalf("expected title line, got %q", lines[0])
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[1]), "Mon") || !strings.Contains(lines[1], "Sun") {
		t.Fatalf("expected Monday-first header, got %q", lines[1])
	}
	if strings.Count(rendered, photoMarker) != 2 {
		t.Fatalf("expected two photo markers, got:\n%s", rendered)
	}
	if !strings.Contains(rendered, "5"+photoMarker) || !strings.Contains(rendered, "20"+photoMarker) {
		t.Fatalf("expected markers on days 5 and 20, got:\n%s", rendered)
	}
	// Title, header and five week rows.
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d:\n%s", len(lines), rendered)
	}
}

func TestMonthRowsHaveEqualCellWidth(t *testing.T) {
	rendered := mustMonth(t, "2024-02", nil, MonthNavigation{})
	lines := strings.Split(rendered, "\n")
	firstWeek := lines[2]
	if lipgloss.Width(firstWeek) != cellWidth*calendar.DaysPerWeek {
		t.Fatalf("unexpected first week width %d: %q", lipgloss.Width(firstWeek), firstWeek)
	}
	if !strings.HasPrefix(strings.TrimSpace(firstWeek), "1") {
		t.Fatalf("expected day 1 after placeholders, got %q", firstWeek)
	}
	if strings.Index(firstWeek, "1") != 3*cellWidth {
		t.Fatalf("expected day 1 under Thursday, got %q", firstWeek)
	}
}

func TestMonthNavigationHints(t *testing.T) {
	rendered := mustMonth(t, "2024-01", nil, MonthNavigation{Newer: "2024-02", Older: "2023-12"})
	if !strings.Contains(rendered, "older: 2023-12") || !strings.Contains(rendered, "newer: 2024-02") {
		t.Fatalf("expected navigation hints, got:\n%s", rendered)
	}
	if _, err := NewRenderer(DefaultTheme).Month("2024-13", nil, MonthNavigation{}); err == nil {
		t.Fatalf("expected invalid month to fail")
	}
}

func TestDetailRendersNotesExifAndLocation(t *testing.T) {
	record := photos.Record{
		Day:      "2024-02-15",
		Filepath: "/uploads/b.jpg",
		Notes:    "Snow in the park",
		Lat:      52.52,
		Lon:      13.405,
		ExifData: `{"Model":"\"X100V\"","ISOSpeedRatings":"200"}`,
	}
	rendered := NewRenderer(DefaultTheme).Detail(record, "2024-03-01", "")
	for _, want := range []string{"2024-02-15", "/uploads/b.jpg", "Snow in the park", "Camera: X100V", "ISO: 200", "52.52000, 13.40500", "newer: 2024-03-01"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("expected %q in detail, got:\n%s", want, rendered)
		}
	}
	if strings.Contains(rendered, "older:") {
		t.Fatalf("unexpected older hint:\n%s", rendered)
	}
}

func TestDetailWithoutNotesOrLocation(t *testing.T) {
	rendered := NewRenderer(DefaultTheme).Detail(photos.Record{Day: "2024-01-01", Filepath: "/uploads/a.jpg"}, "", "")
	if !strings.Contains(rendered, noNotes) {
		t.Fatalf("expected placeholder notes, got:\n%s", rendered)
	}
	if strings.Contains(rendered, "Location:") {
		t.Fatalf("unexpected location:\n%s", rendered)
	}
}

func TestListRendersOneLinePerRecord(t *testing.T) {
	renderer := NewRenderer(DefaultTheme)
	if !strings.Contains(renderer.List(nil), "No photos yet.") {
		t.Fatalf("expected empty message")
	}
	rendered := renderer.List([]photos.Record{
		{Day: "2024-02-01", Filepath: "/uploads/b.jpg", Notes: "line one\nline two"},
		{Day: "2024-01-01", Filepath: "/uploads/a.jpg"},
	})
	lines := strings.Split(rendered, "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "line one") || strings.Contains(rendered, "line two") {
		t.Fatalf("unexpected list:\n%s", rendered)
	}
}
