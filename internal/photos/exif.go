package photos

// ExifField is a labelled EXIF value shown in the detail view.
type ExifField struct {
	Label string
	Key   string
	Value string
}

var highlightKeys = []ExifField{
	{Label: "Camera", Key: "Model"},
	{Label: "Lens", Key: "LensModel"},
	{Label: "F-Stop", Key: "FNumber"},
	{Label: "ISO", Key: "ISOSpeedRatings"},
	{Label: "Shutter", Key: "ExposureTime"},
	{Label: "Date", Key: "DateTimeOriginal"},
}

// ExifHighlights returns the interesting EXIF values in display order,
// skipping missing ones.
func (r Record) ExifHighlights() []ExifField {
	exif := r.Exif()
	highlights := make([]ExifField, 0, len(highlightKeys))
	for _, field := range highlightKeys {
		value := exif[field.Key]
		if value == "" {
			continue
		}
		field.Value = cleanExifValue(value)
		highlights = append(highlights, field)
	}
	return highlights
}

// cleanExifValue strips the quotes the EXIF walker leaves around strings.
func cleanExifValue(value string) string {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		return value[1 : len(value)-1]
	}
	return value
}
