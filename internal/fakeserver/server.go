// Package fakeserver is an in-memory diary API used by tests and local
// development. It speaks the same routes, status codes and response texts as
// the production backend.
package fakeserver

import (
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
	"github.com/MarcoPoloResearchLab/photodiary/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"go.uber.org/zap"
)

const (
	usernameContextKey = "photodiary_username"

	defaultRelyingPartyName = "Photo Diary"
	defaultIssuer           = "photodiary"
	userIDLength            = 16
	maxListedPhotos         = 365
	maxUploadSize           = 10 << 20
	sessionMaxAge           = 30 * 24 * 60 * 60
)

var errMissingOrigin = errors.New("fakeserver: origin is required")

// Config describes a fake diary API.
type Config struct {
	// Origin is the web origin clients must report, e.g. "http://127.0.0.1:8080".
	Origin string
	// RelyingPartyID defaults to the origin host.
	RelyingPartyID   string
	RelyingPartyName string
	SigningSecret    []byte
	Clock            func() time.Time
	// Random defaults to crypto/rand.
	Random io.Reader
	Logger *zap.Logger
}

// Server holds users, credentials, pending ceremonies and photos in memory.
type Server struct {
	origin       string
	relyingParty *webauthn.WebAuthn
	tokens       *TokenIssuer
	clock        func() time.Time
	random       io.Reader
	logger       *zap.Logger

	mu         sync.Mutex
	users      map[string]*user
	ceremonies map[ceremonyKey]*webauthn.SessionData
	photos     map[string]photos.Record
	files      map[string][]byte
}

type ceremonyKind int

const (
	ceremonyRegistration ceremonyKind = iota
	ceremonyAuthentication
)

type ceremonyKey struct {
	username string
	kind     ceremonyKind
}

// New constructs a Server.
func New(cfg Config) (*Server, error) {
	origin := strings.TrimRight(strings.TrimSpace(cfg.Origin), "/")
	if origin == "" {
		return nil, errMissingOrigin
	}
	relyingPartyID := strings.TrimSpace(cfg.RelyingPartyID)
	if relyingPartyID == "" {
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Hostname() == "" {
			return nil, errMissingOrigin
		}
		relyingPartyID = parsed.Hostname()
	}
	relyingPartyName := strings.TrimSpace(cfg.RelyingPartyName)
	if relyingPartyName == "" {
		relyingPartyName = defaultRelyingPartyName
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	random := cfg.Random
	if random == nil {
		random = rand.Reader
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	secret := cfg.SigningSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := io.ReadFull(random, secret); err != nil {
			return nil, err
		}
	}
	relyingParty, err := newRelyingParty(relyingPartyID, relyingPartyName, origin)
	if err != nil {
		return nil, err
	}
	tokens, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: secret,
		Issuer:        defaultIssuer,
		TokenTTL:      sessionMaxAge * time.Second,
		Clock:         clock,
	})
	if err != nil {
		return nil, err
	}
	return &Server{
		origin:       origin,
		relyingParty: relyingParty,
		tokens:       tokens,
		clock:        clock,
		random:       random,
		logger:       logger,
		users:        make(map[string]*user),
		ceremonies:   make(map[ceremonyKey]*webauthn.SessionData),
		photos:       make(map[string]photos.Record),
		files:        make(map[string][]byte),
	}, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(s.origin))

	router.GET("/uploads/:name", s.handleUploadedFile)

	api := router.Group("/api")
	api.POST("/auth/register/begin/:username", s.handleRegisterBegin)
	api.POST("/auth/register/finish/:username", s.handleRegisterFinish)
	api.POST("/auth/login/begin/:username", s.handleLoginBegin)
	api.POST("/auth/login/finish/:username", s.handleLoginFinish)
	api.GET("/photos", s.handleListPhotos)

	protected := api.Group("/")
	protected.Use(s.authorizeRequest)
	protected.GET("/auth/status", s.handleAuthStatus)
	protected.POST("/photos", s.handleUploadPhoto)

	return router
}

// SeedPhotos stores records as if they had been uploaded.
func (s *Server) SeedPhotos(records ...photos.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.photos[record.Day] = record
	}
}

// Photo returns the stored record for day.
func (s *Server) Photo(day string) (photos.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.photos[day]
	return record, ok
}

// IssueSession returns a valid session cookie value for username.
func (s *Server) IssueSession(username string) (string, error) {
	token, _, err := s.tokens.Issue(username)
	return token, err
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func (s *Server) authorizeRequest(c *gin.Context) {
	cookie, err := c.Cookie(session.CookieName)
	if err != nil || strings.TrimSpace(cookie) == "" {
		c.String(http.StatusUnauthorized, "Unauthorized")
		c.Abort()
		return
	}
	username, err := s.tokens.Validate(cookie)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			s.logger.Info("token validation failed", zap.Error(err))
		} else {
			s.logger.Warn("token validation failed", zap.Error(err))
		}
		c.String(http.StatusUnauthorized, "Unauthorized")
		c.Abort()
		return
	}
	c.Set(usernameContextKey, username)
	c.Next()
}

func (s *Server) handleAuthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "authenticated"})
}

func (s *Server) randomBytes(length int) ([]byte, error) {
	buffer := make([]byte, length)
	if _, err := io.ReadFull(s.random, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}
