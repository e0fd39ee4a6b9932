package photos

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the canonical calendar day format.
const DayLayout = "2006-01-02"

// ErrInvalidDay indicates a day string that is not a YYYY-MM-DD calendar date.
var ErrInvalidDay = errors.New("photos: invalid day")

// Record is one diary entry as served by the API. At most one record exists
// per Day. Field names match the server's JSON.
type Record struct {
	Day           string    `json:"Day"`
	ID            string    `json:"ID"`
	Filepath      string    `json:"Filepath"`
	ThumbnailPath string    `json:"ThumbnailPath"`
	Lat           float64   `json:"Lat"`
	Lon           float64   `json:"Lon"`
	Notes         string    `json:"Notes"`
	ExifData      string    `json:"ExifData"`
	CreatedAt     time.Time `json:"CreatedAt,omitzero"`
}

// ParseDay validates a canonical day string.
func ParseDay(value string) (time.Time, error) {
	parsed, err := time.Parse(DayLayout, value)
	if err != nil || parsed.Format(DayLayout) != value {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, value)
	}
	return parsed, nil
}

// Thumbnail returns the thumbnail locator, or the full image when the server
// produced none.
func (r Record) Thumbnail() string {
	if strings.TrimSpace(r.ThumbnailPath) != "" {
		return r.ThumbnailPath
	}
	return r.Filepath
}

// Location returns the coordinates. (0,0) means no location was recorded.
func (r Record) Location() (lat, lon float64, ok bool) {
	if r.Lat == 0 && r.Lon == 0 {
		return 0, 0, false
	}
	return r.Lat, r.Lon, true
}

// Exif parses the camera metadata map. Unparseable data yields an empty map.
func (r Record) Exif() map[string]string {
	exif := map[string]string{}
	if strings.TrimSpace(r.ExifData) == "" {
		return exif
	}
	if err := json.Unmarshal([]byte(r.ExifData), &exif); err != nil {
		return map[string]string{}
	}
	return exif
}
