package photos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/photodiary/internal/apiclient"
	"go.uber.org/zap"
)

const (
	photosPath     = "/api/photos"
	authStatusPath = "/api/auth/status"

	opList       = "photos.list"
	opUpload     = "photos.upload"
	opAuthStatus = "auth.status"
)

var (
	errMissingAPIClient = errors.New("photos: api client is required")
	// ErrMissingContent indicates an upload without image bytes.
	ErrMissingContent = errors.New("photos: upload content is required")
)

// ClientConfig describes the dependencies of a photos Client.
type ClientConfig struct {
	API    *apiclient.Client
	Clock  func() time.Time
	Logger *zap.Logger
}

// Client reads and writes diary entries through the API.
type Client struct {
	api    *apiclient.Client
	clock  func() time.Time
	logger *zap.Logger
}

// NewClient constructs a photos Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.API == nil {
		return nil, errMissingAPIClient
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: cfg.API, clock: clock, logger: logger}, nil
}

// List fetches every record the server exposes.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	body, err := c.api.Do(ctx, apiclient.Request{Operation: opList, Method: http.MethodGet, Path: photosPath})
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", opList, err)
	}
	if records == nil {
		records = []Record{}
	}
	c.logger.Debug("photos listed", zap.Int("count", len(records)))
	return records, nil
}

// UploadRequest describes one photo upload.
type UploadRequest struct {
	Filename string
	Content  io.Reader
	// Day defaults to today's UTC date when empty.
	Day   string
	Notes string
}

// Upload posts the photo as multipart form data and returns the server's
// confirmation text.
func (c *Client) Upload(ctx context.Context, request UploadRequest) (string, error) {
	if request.Content == nil {
		return "", ErrMissingContent
	}
	day := strings.TrimSpace(request.Day)
	if day == "" {
		day = c.clock().UTC().Format(DayLayout)
	}
	if _, err := ParseDay(day); err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("photo", filepath.Base(request.Filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, request.Content); err != nil {
		return "", fmt.Errorf("%s: read content: %w", opUpload, err)
	}
	if err := writer.WriteField("day", day); err != nil {
		return "", err
	}
	if err := writer.WriteField("notes", request.Notes); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	response, err := c.api.Do(ctx, apiclient.Request{
		Operation:   opUpload,
		Method:      http.MethodPost,
		Path:        photosPath,
		Body:        &body,
		ContentType: writer.FormDataContentType(),
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("photo uploaded", zap.String("day", day), zap.String("filename", request.Filename))
	return strings.TrimSpace(string(response)), nil
}

// AuthStatus reports whether the current session is authenticated. Only
// transport failures are returned as errors.
func (c *Client) AuthStatus(ctx context.Context) (bool, error) {
	_, err := c.api.Do(ctx, apiclient.Request{Operation: opAuthStatus, Method: http.MethodGet, Path: authStatusPath})
	if err == nil {
		return true, nil
	}
	if apiclient.IsProtocolError(err) {
		return false, nil
	}
	return false, err
}
