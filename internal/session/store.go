package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("session: database handle is required")

// Session is a persisted login for one API base URL.
type Session struct {
	BaseURL   string    `gorm:"column:base_url;primaryKey;size:512;not null"`
	Token     string    `gorm:"column:token;type:text;not null"`
	Subject   string    `gorm:"column:subject;size:190;not null;default:''"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
	SavedAt   time.Time `gorm:"column:saved_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Session) TableName() string {
	return "sessions"
}

// Store persists session tokens between CLI invocations.
type Store struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewStore constructs a Store over an already migrated database.
func NewStore(db *gorm.DB, clock func() time.Time, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, clock: clock, logger: logger}, nil
}

// Save records token as the session for baseURL, replacing any previous one.
func (s *Store) Save(ctx context.Context, baseURL, token string) error {
	claims, err := Inspect(token)
	if err != nil {
		return err
	}
	record := Session{
		BaseURL:   normalizeBaseURL(baseURL),
		Token:     strings.TrimSpace(token),
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt,
		SavedAt:   s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "base_url"}},
		UpdateAll: true,
	}).Create(&record).Error; err != nil {
		return err
	}
	s.logger.Debug("session saved",
		zap.String("base_url", record.BaseURL),
		zap.String("subject", record.Subject),
		zap.Bool("opaque", claims.Opaque))
	return nil
}

// Load returns the stored session for baseURL. Expired sessions are removed
// and reported as ErrExpired.
func (s *Store) Load(ctx context.Context, baseURL string) (Session, error) {
	var record Session
	err := s.db.WithContext(ctx).Where("base_url = ?", normalizeBaseURL(baseURL)).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	claims := Claims{Subject: record.Subject, ExpiresAt: record.ExpiresAt}
	if claims.Expired(s.clock()) {
		if err := s.Delete(ctx, baseURL); err != nil {
			return Session{}, err
		}
		s.logger.Info("stored session expired", zap.String("base_url", record.BaseURL))
		return Session{}, ErrExpired
	}
	return record, nil
}

// Delete forgets the session for baseURL.
func (s *Store) Delete(ctx context.Context, baseURL string) error {
	return s.db.WithContext(ctx).Where("base_url = ?", normalizeBaseURL(baseURL)).Delete(&Session{}).Error
}

func normalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}
