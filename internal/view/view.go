package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/photodiary/internal/calendar"
	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
	"github.com/charmbracelet/lipgloss"
)

const (
	cellWidth   = 5
	photoMarker = "*"
	noNotes     = "No notes."
)

// Renderer turns calendar grids and records into terminal text.
type Renderer struct {
	theme Theme
}

// NewRenderer constructs a Renderer using theme.
func NewRenderer(theme Theme) Renderer {
	return Renderer{theme: theme}
}

// MonthNavigation names the neighbouring months; empty strings mean none.
type MonthNavigation struct {
	Newer string
	Older string
}

// Month renders a month grid under its title and the Monday-first weekday
// header. Days with a photo carry a marker.
func (renderer Renderer) Month(monthKey string, cells []calendar.Cell, navigation MonthNavigation) (string, error) {
	title, err := calendar.MonthTitle(monthKey)
	if err != nil {
		return "", err
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(renderer.theme.Title)
	headerStyle := lipgloss.NewStyle().Width(cellWidth).Foreground(renderer.theme.Header)
	dayStyle := lipgloss.NewStyle().Width(cellWidth).Foreground(renderer.theme.DayText)
	photoStyle := lipgloss.NewStyle().Width(cellWidth).Bold(true).Foreground(renderer.theme.PhotoDay)
	blankStyle := lipgloss.NewStyle().Width(cellWidth)

	lines := []string{titleStyle.Render(title)}

	header := make([]string, 0, calendar.DaysPerWeek)
	for _, weekday := range calendar.Weekdays {
		header = append(header, headerStyle.Render(weekday))
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, header...))

	for _, week := range calendar.Weeks(cells) {
		row := make([]string, 0, len(week))
		for _, cell := range week {
			switch {
			case cell.Placeholder:
				row = append(row, blankStyle.Render(""))
			case cell.HasPhoto():
				row = append(row, photoStyle.Render(strconv.Itoa(cell.DayNumber)+photoMarker))
			default:
				row = append(row, dayStyle.Render(strconv.Itoa(cell.DayNumber)))
			}
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}

	if hints := renderer.navigationLine(navigation.Newer, navigation.Older); hints != "" {
		lines = append(lines, "", hints)
	}
	return strings.Join(lines, "\n"), nil
}

// Detail renders one record with its notes, EXIF highlights and location.
// newer and older name the neighbouring days; empty strings mean none.
func (renderer Renderer) Detail(record photos.Record, newer, older string) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(renderer.theme.Title)
	labelStyle := lipgloss.NewStyle().Foreground(renderer.theme.Label)
	faintStyle := lipgloss.NewStyle().Foreground(renderer.theme.FaintText)

	lines := []string{
		titleStyle.Render(record.Day),
		faintStyle.Render(record.Thumbnail()),
		"",
	}

	notes := strings.TrimSpace(record.Notes)
	if notes == "" {
		lines = append(lines, faintStyle.Render(noNotes))
	} else {
		lines = append(lines, notes)
	}

	highlights := record.ExifHighlights()
	if len(highlights) > 0 {
		lines = append(lines, "")
		for _, field := range highlights {
			lines = append(lines, labelStyle.Render(field.Label+":")+" "+field.Value)
		}
	}

	if lat, lon, ok := record.Location(); ok {
		lines = append(lines, "", labelStyle.Render("Location:")+" "+fmt.Sprintf("%.5f, %.5f", lat, lon))
	}

	if hints := renderer.navigationLine(newer, older); hints != "" {
		lines = append(lines, "", hints)
	}
	return strings.Join(lines, "\n")
}

// List renders one line per record, in the order given.
func (renderer Renderer) List(records []photos.Record) string {
	if len(records) == 0 {
		return lipgloss.NewStyle().Foreground(renderer.theme.FaintText).Render("No photos yet.")
	}
	dayStyle := lipgloss.NewStyle().Foreground(renderer.theme.Label)
	lines := make([]string, 0, len(records))
	for _, record := range records {
		line := dayStyle.Render(record.Day) + "  " + record.Filepath
		if notes := firstLine(record.Notes); notes != "" {
			line += "  " + notes
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (renderer Renderer) navigationLine(newer, older string) string {
	hintStyle := lipgloss.NewStyle().Foreground(renderer.theme.FaintText)
	parts := make([]string, 0, 2)
	if older != "" {
		parts = append(parts, "< older: "+older)
	}
	if newer != "" {
		parts = append(parts, "newer: "+newer+" >")
	}
	if len(parts) == 0 {
		return ""
	}
	return hintStyle.Render(strings.Join(parts, "   "))
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if index := strings.IndexByte(text, '\n'); index >= 0 {
		return strings.TrimSpace(text[:index])
	}
	return text
}
