package photos

import (
	"errors"
	"testing"
)

func TestParseDay(t *testing.T) {
	if _, err := ParseDay("2024-02-29"); err != nil {
		t.Fatalf("expected leap day to parse: %v", err)
	}
	for _, value := range []string{"", "2023-02-29", "2024-2-01", "2024-02-01T00:00:00Z", "01-02-2024"} {
		if _, err := ParseDay(value); !errors.Is(err, ErrInvalidDay) {
			t.Fatalf("expected ErrInvalidDay for %q, got %v", value, err)
		}
	}
}

func TestRecordThumbnailFallsBackToFilepath(t *testing.T) {
	record := Record{Filepath: "/uploads/a.jpg"}
	if record.Thumbnail() != "/uploads/a.jpg" {
		t.Fatalf("unexpected thumbnail: %s", record.Thumbnail())
	}
	record.ThumbnailPath = "/uploads/thumbs/a.jpg"
	if record.Thumbnail() != "/uploads/thumbs/a.jpg" {
		t.Fatalf("unexpected thumbnail: %s", record.Thumbnail())
	}
}

func TestRecordLocation(t *testing.T) {
	if _, _, ok := (Record{}).Location(); ok {
		t.Fatalf("zero coordinates must mean no location")
	}
	lat, lon, ok := Record{Lat: 52.52, Lon: 13.405}.Location()
	if !ok || lat != 52.52 || lon != 13.405 {
		t.Fatalf("unexpected location: %v %v %v", lat, lon, ok)
	}
}

func TestRecordExifToleratesGarbage(t *testing.T) {
	if exif := (Record{ExifData: "not json"}).Exif(); len(exif) != 0 {
		t.Fatalf("expected empty map, got %v", exif)
	}
	if exif := (Record{}).Exif(); exif == nil || len(exif) != 0 {
		t.Fatalf("expected empty non-nil map, got %v", exif)
	}
}

func TestExifHighlightsOrderAndCleanup(t *testing.T) {
	record := Record{ExifData: `{"ISOSpeedRatings":"200","Model":"\"X100V\"","FNumber":"\"16/10\"","Unrelated":"1"}`}
	highlights := record.ExifHighlights()
	if len(highlights) != 3 {
		t.Fatalf("unexpected highlights: %+v", highlights)
	}
	if highlights[0].Label != "Camera" || highlights[0].Value != "X100V" {
		t.Fatalf("unexpected first highlight: %+v", highlights[0])
	}
	if highlights[1].Label != "F-Stop" || highlights[1].Value != "16/10" {
		t.Fatalf("unexpected second highlight: %+v", highlights[1])
	}
	if highlights[2].Label != "ISO" || highlights[2].Value != "200" {
		t.Fatalf("unexpected third highlight: %+v", highlights[2])
	}
}
