package fakeserver

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"go.uber.org/zap"
)

const (
	uploadsPrefix     = "/uploads/"
	thumbnailSize     = 400
	thumbnailQuality  = 85
	uploadedText      = "Photo uploaded"
	missingFileText   = "Error retrieving file"
	thumbnailFileTail = "_thumb.jpg"
)

func (s *Server) handleListPhotos(c *gin.Context) {
	s.mu.Lock()
	records := make([]photos.Record, 0, len(s.photos))
	for _, record := range s.photos {
		records = append(records, record)
	}
	s.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].Day > records[j].Day
	})
	if len(records) > maxListedPhotos {
		records = records[:maxListedPhotos]
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleUploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	header, err := c.FormFile("photo")
	if err != nil {
		c.String(http.StatusBadRequest, missingFileText)
		return
	}
	file, err := header.Open()
	if err != nil {
		c.String(http.StatusBadRequest, missingFileText)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		c.String(http.StatusBadRequest, missingFileText)
		return
	}

	day := strings.TrimSpace(c.PostForm("day"))
	if day == "" {
		day = s.clock().Format(photos.DayLayout)
	}
	if _, err := photos.ParseDay(day); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	id := uuid.NewString()
	record := photos.Record{
		Day:       day,
		ID:        id,
		Filepath:  uploadsPrefix + id + strings.ToLower(path.Ext(header.Filename)),
		Notes:     c.PostForm("notes"),
		CreatedAt: s.clock().UTC(),
	}

	metadata, err := readMetadata(content)
	if err != nil {
		s.logger.Debug("exif skipped", zap.String("id", id), zap.Error(err))
	}
	record.Lat, record.Lon = metadata.lat, metadata.lon
	record.ExifData = metadata.tags

	thumbnail, err := renderThumbnail(content, metadata.orientation)
	if err != nil {
		s.logger.Debug("thumbnail skipped", zap.String("id", id), zap.Error(err))
	} else {
		record.ThumbnailPath = uploadsPrefix + id + thumbnailFileTail
	}

	s.mu.Lock()
	s.photos[day] = record
	s.files[record.Filepath] = content
	if thumbnail != nil {
		s.files[record.ThumbnailPath] = thumbnail
	}
	s.mu.Unlock()

	s.logger.Info("photo uploaded",
		zap.String("username", c.GetString(usernameContextKey)),
		zap.String("day", day),
		zap.String("id", id))
	c.String(http.StatusOK, uploadedText)
}

func (s *Server) handleUploadedFile(c *gin.Context) {
	s.mu.Lock()
	content, ok := s.files[uploadsPrefix+c.Param("name")]
	s.mu.Unlock()
	if !ok {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(content), content)
}

type photoMetadata struct {
	lat, lon    float64
	orientation int
	// tags is the JSON object of every EXIF field, rendered as goexif prints it.
	tags string
}

// tagCollector gathers EXIF fields by name.
type tagCollector map[string]string

func (c tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c[string(name)] = tag.String()
	return nil
}

// readMetadata extracts coordinates, orientation and the tag map. Images
// without EXIF yield zero metadata and an error.
func readMetadata(content []byte) (photoMetadata, error) {
	decoded, err := exif.Decode(bytes.NewReader(content))
	if err != nil {
		return photoMetadata{}, err
	}
	var metadata photoMetadata
	if lat, lon, err := decoded.LatLong(); err == nil {
		metadata.lat, metadata.lon = lat, lon
	}
	if tag, err := decoded.Get(exif.Orientation); err == nil {
		if value, err := tag.Int(0); err == nil {
			metadata.orientation = value
		}
	}
	collector := tagCollector{}
	if err := decoded.Walk(collector); err != nil {
		return metadata, err
	}
	encoded, err := json.Marshal(collector)
	if err != nil {
		return metadata, err
	}
	metadata.tags = string(encoded)
	return metadata, nil
}

// renderThumbnail turns the image upright according to its EXIF orientation,
// scales it to fit a square and re-encodes it as JPEG.
func renderThumbnail(content []byte, orientation int) ([]byte, error) {
	source, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	thumbnail := resize.Thumbnail(thumbnailSize, thumbnailSize, upright(source, orientation), resize.Lanczos3)
	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, thumbnail, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}

func upright(source image.Image, orientation int) image.Image {
	switch orientation {
	case 3:
		return imaging.Rotate180(source)
	case 6:
		return imaging.Rotate270(source)
	case 8:
		return imaging.Rotate90(source)
	default:
		return source
	}
}
