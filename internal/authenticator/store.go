package authenticator

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrCredentialNotFound indicates no stored credential matched.
	ErrCredentialNotFound = errors.New("authenticator: credential not found")

	errMissingDatabase = errors.New("authenticator: database handle is required")
)

// StoredCredential is a key pair held by the software authenticator.
type StoredCredential struct {
	CredentialID  []byte    `gorm:"column:credential_id;primaryKey;size:255;not null"`
	RPID          string    `gorm:"column:rp_id;size:255;not null;index:idx_credentials_rp"`
	UserName      string    `gorm:"column:user_name;size:190;not null;default:''"`
	UserHandle    []byte    `gorm:"column:user_handle"`
	HasUserHandle bool      `gorm:"column:has_user_handle;not null;default:false"`
	PrivateKey    []byte    `gorm:"column:private_key;not null"`
	SignCount     uint32    `gorm:"column:sign_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (StoredCredential) TableName() string {
	return "authenticator_credentials"
}

// CredentialStore persists authenticator key pairs.
type CredentialStore interface {
	Save(ctx context.Context, credential StoredCredential) error
	ListForRP(ctx context.Context, rpID string) ([]StoredCredential, error)
	UpdateSignCount(ctx context.Context, credentialID []byte, signCount uint32) error
}

// GormStore keeps credentials in the local SQLite database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a GormStore over a migrated database.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, credential StoredCredential) error {
	return s.db.WithContext(ctx).Create(&credential).Error
}

func (s *GormStore) ListForRP(ctx context.Context, rpID string) ([]StoredCredential, error) {
	var credentials []StoredCredential
	err := s.db.WithContext(ctx).
		Where("rp_id = ?", rpID).
		Order("created_at ASC").
		Find(&credentials).
		Error
	return credentials, err
}

func (s *GormStore) UpdateSignCount(ctx context.Context, credentialID []byte, signCount uint32) error {
	result := s.db.WithContext(ctx).
		Model(&StoredCredential{}).
		Where("credential_id = ?", credentialID).
		Update("sign_count", signCount)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// MemoryStore keeps credentials for the lifetime of the process.
type MemoryStore struct {
	mu          sync.Mutex
	credentials []StoredCredential
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, credential StoredCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = time.Now()
	}
	s.credentials = append(s.credentials, credential)
	return nil
}

func (s *MemoryStore) ListForRP(_ context.Context, rpID string) ([]StoredCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := make([]StoredCredential, 0, len(s.credentials))
	for _, credential := range s.credentials {
		if credential.RPID == rpID {
			matches = append(matches, credential)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

func (s *MemoryStore) UpdateSignCount(_ context.Context, credentialID []byte, signCount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for index := range s.credentials {
		if bytes.Equal(s.credentials[index].CredentialID, credentialID) {
			s.credentials[index].SignCount = signCount
			return nil
		}
	}
	return ErrCredentialNotFound
}
