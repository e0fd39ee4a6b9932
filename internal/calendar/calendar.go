package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
)

const (
	monthKeyLength = len("2006-01")
	monthKeyLayout = "2006-01"

	// DaysPerWeek is the column count of a month grid.
	DaysPerWeek = 7
)

// ErrInvalidMonth indicates a month key that is not a YYYY-MM value.
var ErrInvalidMonth = errors.New("calendar: invalid month key")

// Weekdays lists the grid column headers, Monday first.
var Weekdays = [DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Cell is one square of a month grid. Placeholder cells pad the first week so
// day 1 sits under its weekday column; they carry no day.
type Cell struct {
	Day         string
	DayNumber   int
	Photo       *photos.Record
	Placeholder bool
}

// HasPhoto reports whether a record is slotted into the cell.
func (c Cell) HasPhoto() bool {
	return c.Photo != nil
}

// MonthKey returns the YYYY-MM prefix of a day string.
func MonthKey(day string) string {
	if len(day) < monthKeyLength {
		return day
	}
	return day[:monthKeyLength]
}

// GroupByMonth partitions records by the month prefix of their day.
func GroupByMonth(records []photos.Record) map[string][]photos.Record {
	months := make(map[string][]photos.Record)
	for _, record := range records {
		key := MonthKey(record.Day)
		months[key] = append(months[key], record)
	}
	return months
}

// MonthKeysDescending lists every month present in records, newest first.
func MonthKeysDescending(records []photos.Record) []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for _, record := range records {
		key := MonthKey(record.Day)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// ParseMonth validates a month key and returns its first day in UTC.
func ParseMonth(monthKey string) (time.Time, error) {
	first, err := time.Parse(monthKeyLayout, monthKey)
	if err != nil || first.Format(monthKeyLayout) != monthKey {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, monthKey)
	}
	return first, nil
}

// BuildMonthGrid lays out a Monday-first month: leading placeholders followed
// by exactly one cell per calendar day, with records attached by exact day match.
func BuildMonthGrid(monthKey string, records []photos.Record) ([]Cell, error) {
	first, err := ParseMonth(monthKey)
	if err != nil {
		return nil, err
	}

	leading := (int(first.Weekday()) + 6) % DaysPerWeek
	daysInMonth := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()

	byDay := make(map[string]*photos.Record, len(records))
	for index := range records {
		byDay[records[index].Day] = &records[index]
	}

	cells := make([]Cell, 0, leading+daysInMonth)
	for range leading {
		cells = append(cells, Cell{Placeholder: true})
	}
	for dayNumber := 1; dayNumber <= daysInMonth; dayNumber++ {
		day := monthKey + "-" + twoDigits(dayNumber)
		cells = append(cells, Cell{
			Day:       day,
			DayNumber: dayNumber,
			Photo:     byDay[day],
		})
	}
	return cells, nil
}

// Weeks splits a grid into rows of seven; the last row may be shorter.
func Weeks(cells []Cell) [][]Cell {
	weeks := make([][]Cell, 0, (len(cells)+DaysPerWeek-1)/DaysPerWeek)
	for start := 0; start < len(cells); start += DaysPerWeek {
		end := min(start+DaysPerWeek, len(cells))
		weeks = append(weeks, cells[start:end])
	}
	return weeks
}

// MonthTitle renders a month key as e.g. "January 2024".
func MonthTitle(monthKey string) (string, error) {
	first, err := ParseMonth(monthKey)
	if err != nil {
		return "", err
	}
	return first.Format("January 2006"), nil
}

func twoDigits(value int) string {
	if value < 10 {
		return "0" + strconv.Itoa(value)
	}
	return strconv.Itoa(value)
}
