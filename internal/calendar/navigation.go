package calendar

import (
	"sort"

	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
)

// Direction is a chronological step through the diary.
type Direction int

const (
	// Older moves back in time ("previous").
	Older Direction = iota
	// Newer moves forward in time ("next").
	Newer
)

func (d Direction) String() string {
	if d == Newer {
		return "newer"
	}
	return "older"
}

// AdjacentMonthIndex steps through MonthKeysDescending output. Older months
// have larger indexes. Steps past either end leave the index unchanged.
func AdjacentMonthIndex(currentIndex int, direction Direction, totalMonths int) int {
	next := currentIndex
	switch direction {
	case Older:
		next = currentIndex + 1
	case Newer:
		next = currentIndex - 1
	}
	if next < 0 || next >= totalMonths {
		return currentIndex
	}
	return next
}

// AdjacentDay returns the day of the neighbouring record in the given
// direction. It reports false at either end or when currentDay has no record.
func AdjacentDay(records []photos.Record, currentDay string, direction Direction) (string, bool) {
	days := make([]string, 0, len(records))
	for _, record := range records {
		days = append(days, record.Day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	position := -1
	for index, day := range days {
		if day == currentDay {
			position = index
			break
		}
	}
	if position < 0 {
		return "", false
	}

	neighbour := position + 1
	if direction == Newer {
		neighbour = position - 1
	}
	if neighbour < 0 || neighbour >= len(days) {
		return "", false
	}
	return days[neighbour], true
}

// FindDay returns the record for day, or nil.
func FindDay(records []photos.Record, day string) *photos.Record {
	for index := range records {
		if records[index].Day == day {
			return &records[index]
		}
	}
	return nil
}

// Gallery tracks which month of the diary is being viewed.
type Gallery struct {
	months  map[string][]photos.Record
	keys    []string
	current int
}

// NewGallery indexes records by month, starting at the newest month.
func NewGallery(records []photos.Record) *Gallery {
	return &Gallery{
		months: GroupByMonth(records),
		keys:   MonthKeysDescending(records),
	}
}

// Months returns the month keys, newest first.
func (g *Gallery) Months() []string {
	return append([]string(nil), g.keys...)
}

// Current returns the viewed month key; false when the diary is empty.
func (g *Gallery) Current() (string, bool) {
	if len(g.keys) == 0 {
		return "", false
	}
	return g.keys[g.current], true
}

// Index returns the position of the viewed month.
func (g *Gallery) Index() int {
	return g.current
}

// Seek moves to monthKey if the diary has entries for it.
func (g *Gallery) Seek(monthKey string) bool {
	for index, key := range g.keys {
		if key == monthKey {
			g.current = index
			return true
		}
	}
	return false
}

// HasOlder reports whether an older month exists.
func (g *Gallery) HasOlder() bool {
	return g.current < len(g.keys)-1
}

// HasNewer reports whether a newer month exists.
func (g *Gallery) HasNewer() bool {
	return g.current > 0
}

// Step moves one month in direction; it is a no-op at either end.
func (g *Gallery) Step(direction Direction) {
	g.current = AdjacentMonthIndex(g.current, direction, len(g.keys))
}

// Grid builds the cells of the viewed month.
func (g *Gallery) Grid() ([]Cell, error) {
	key, ok := g.Current()
	if !ok {
		return nil, nil
	}
	return BuildMonthGrid(key, g.months[key])
}
