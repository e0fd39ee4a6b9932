package fakeserver

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"sort"
)

// SamplePhoto describes a generated JPEG and the EXIF tags embedded in it.
// Zero fields are left out of the EXIF block.
type SamplePhoto struct {
	Width, Height int
	Make, Model   string
	// FNumber is written as a rational over 10, e.g. 28 for f/2.8.
	FNumber     uint32
	ISO         uint16
	Orientation uint16
	Latitude    float64
	Longitude   float64
}

const (
	tiffASCII    = 2
	tiffShort    = 3
	tiffLong     = 4
	tiffRational = 5

	tagMake        = 0x010f
	tagModel       = 0x0110
	tagOrientation = 0x0112
	tagExifIFD     = 0x8769
	tagGPSIFD      = 0x8825
	tagFNumber     = 0x829d
	tagISO         = 0x8827
	tagLatRef      = 0x0001
	tagLat         = 0x0002
	tagLonRef      = 0x0003
	tagLon         = 0x0004

	gpsPrecision = 1000000
	tiffHeader   = 8
)

// SampleJPEG renders a gradient JPEG carrying the EXIF tags from photo.
func SampleJPEG(photo SamplePhoto) ([]byte, error) {
	width, height := photo.Width, photo.Height
	if width <= 0 {
		width = 64
	}
	if height <= 0 {
		height = 48
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			canvas.Set(x, y, color.RGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: 96, A: 255})
		}
	}
	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, canvas, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	plain := encoded.Bytes()

	segment := exifSegment(photo)
	out := make([]byte, 0, len(plain)+len(segment))
	out = append(out, plain[:2]...)
	out = append(out, segment...)
	out = append(out, plain[2:]...)
	return out, nil
}

type ifdEntry struct {
	tag      uint16
	kind     uint16
	count    uint32
	value    []byte
	children []ifdEntry
}

// exifSegment builds an APP1 segment holding a little-endian TIFF block.
func exifSegment(photo SamplePhoto) []byte {
	var root, exifTags, gpsTags []ifdEntry
	if photo.Make != "" {
		root = append(root, asciiEntry(tagMake, photo.Make))
	}
	if photo.Model != "" {
		root = append(root, asciiEntry(tagModel, photo.Model))
	}
	if photo.Orientation != 0 {
		root = append(root, shortEntry(tagOrientation, photo.Orientation))
	}
	if photo.FNumber != 0 {
		exifTags = append(exifTags, rationalEntry(tagFNumber, [2]uint32{photo.FNumber, 10}))
	}
	if photo.ISO != 0 {
		exifTags = append(exifTags, shortEntry(tagISO, photo.ISO))
	}
	if photo.Latitude != 0 || photo.Longitude != 0 {
		latRef, lonRef := "N", "E"
		if photo.Latitude < 0 {
			latRef = "S"
		}
		if photo.Longitude < 0 {
			lonRef = "W"
		}
		gpsTags = append(gpsTags,
			asciiEntry(tagLatRef, latRef),
			degreesEntry(tagLat, photo.Latitude),
			asciiEntry(tagLonRef, lonRef),
			degreesEntry(tagLon, photo.Longitude),
		)
	}
	if len(exifTags) > 0 {
		root = append(root, ifdEntry{tag: tagExifIFD, kind: tiffLong, count: 1, children: exifTags})
	}
	if len(gpsTags) > 0 {
		root = append(root, ifdEntry{tag: tagGPSIFD, kind: tiffLong, count: 1, children: gpsTags})
	}

	tiff := []byte{'I', 'I', 42, 0}
	tiff = binary.LittleEndian.AppendUint32(tiff, tiffHeader)
	tiff = append(tiff, encodeIFD(root, tiffHeader)...)

	payload := append([]byte("Exif\x00\x00"), tiff...)
	segment := []byte{0xff, 0xe1}
	segment = binary.BigEndian.AppendUint16(segment, uint16(len(payload)+2))
	return append(segment, payload...)
}

// encodeIFD lays out one directory at offset, followed by its out-of-line
// values and then any child directories.
func encodeIFD(entries []ifdEntry, offset uint32) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	dataOffset := offset + 2 + 12*uint32(len(entries)) + 4
	var data []byte
	for _, entry := range entries {
		if len(entry.value) > 4 {
			data = append(data, entry.value...)
			if len(data)%2 == 1 {
				data = append(data, 0)
			}
		}
	}
	childOffset := dataOffset + uint32(len(data))
	var children []byte
	childStart := make(map[int]uint32)
	for i, entry := range entries {
		if entry.children == nil {
			continue
		}
		childStart[i] = childOffset + uint32(len(children))
		children = append(children, encodeIFD(entry.children, childStart[i])...)
	}

	out := binary.LittleEndian.AppendUint16(nil, uint16(len(entries)))
	nextData := dataOffset
	for i, entry := range entries {
		out = binary.LittleEndian.AppendUint16(out, entry.tag)
		out = binary.LittleEndian.AppendUint16(out, entry.kind)
		out = binary.LittleEndian.AppendUint32(out, entry.count)
		switch {
		case entry.children != nil:
			out = binary.LittleEndian.AppendUint32(out, childStart[i])
		case len(entry.value) > 4:
			out = binary.LittleEndian.AppendUint32(out, nextData)
			nextData += uint32(len(entry.value) + len(entry.value)%2)
		default:
			inline := make([]byte, 4)
			copy(inline, entry.value)
			out = append(out, inline...)
		}
	}
	out = binary.LittleEndian.AppendUint32(out, 0)
	out = append(out, data...)
	return append(out, children...)
}

func asciiEntry(tag uint16, value string) ifdEntry {
	raw := append([]byte(value), 0)
	return ifdEntry{tag: tag, kind: tiffASCII, count: uint32(len(raw)), value: raw}
}

func shortEntry(tag uint16, value uint16) ifdEntry {
	return ifdEntry{tag: tag, kind: tiffShort, count: 1, value: binary.LittleEndian.AppendUint16(nil, value)}
}

func rationalEntry(tag uint16, values ...[2]uint32) ifdEntry {
	var raw []byte
	for _, value := range values {
		raw = binary.LittleEndian.AppendUint32(raw, value[0])
		raw = binary.LittleEndian.AppendUint32(raw, value[1])
	}
	return ifdEntry{tag: tag, kind: tiffRational, count: uint32(len(values)), value: raw}
}

// degreesEntry stores an absolute coordinate as whole degrees with zero
// minutes and seconds, keeping six decimal places.
func degreesEntry(tag uint16, coordinate float64) ifdEntry {
	scaled := uint32(math.Round(math.Abs(coordinate) * gpsPrecision))
	return rationalEntry(tag, [2]uint32{scaled, gpsPrecision}, [2]uint32{0, 1}, [2]uint32{0, 1})
}
