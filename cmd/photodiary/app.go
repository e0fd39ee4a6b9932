package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/photodiary/internal/apiclient"
	"github.com/MarcoPoloResearchLab/photodiary/internal/authenticator"
	"github.com/MarcoPoloResearchLab/photodiary/internal/ceremony"
	"github.com/MarcoPoloResearchLab/photodiary/internal/config"
	"github.com/MarcoPoloResearchLab/photodiary/internal/database"
	"github.com/MarcoPoloResearchLab/photodiary/internal/logging"
	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
	"github.com/MarcoPoloResearchLab/photodiary/internal/session"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app wires the client packages for one CLI invocation.
type app struct {
	config        config.AppConfig
	logger        *zap.Logger
	db            *gorm.DB
	api           *apiclient.Client
	ceremonies    *ceremony.Client
	authenticator *authenticator.Authenticator
	photos        *photos.Client
	cache         *photos.Cache
	sessions      *session.Store
}

func newApp(ctx context.Context) (*app, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	api, err := apiclient.New(apiclient.Config{
		BaseURL: appConfig.BaseURL,
		Timeout: appConfig.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	ceremonies, err := ceremony.NewClient(api, logger)
	if err != nil {
		return nil, err
	}

	credentialStore, err := authenticator.NewGormStore(db)
	if err != nil {
		return nil, err
	}
	platform, err := authenticator.New(authenticator.Config{
		Origin: appConfig.Origin,
		Store:  credentialStore,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	diary, err := photos.NewClient(photos.ClientConfig{API: api, Logger: logger})
	if err != nil {
		return nil, err
	}
	cache, err := photos.NewCache(db, nil)
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewStore(db, nil, logger)
	if err != nil {
		return nil, err
	}

	application := &app{
		config:        appConfig,
		logger:        logger,
		db:            db,
		api:           api,
		ceremonies:    ceremonies,
		authenticator: platform,
		photos:        diary,
		cache:         cache,
		sessions:      sessions,
	}
	application.restoreSession(ctx)
	return application, nil
}

// restoreSession seeds the cookie jar with the stored session, if any.
func (a *app) restoreSession(ctx context.Context) {
	stored, err := a.sessions.Load(ctx, a.config.BaseURL)
	switch {
	case err == nil:
		a.api.SetCookies([]*http.Cookie{session.Cookie(stored.Token)})
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
	default:
		a.logger.Warn("failed to restore session", zap.Error(err))
	}
}

// saveSession persists the session cookie issued by the last login.
func (a *app) saveSession(ctx context.Context) error {
	token, ok := session.TokenFromCookies(a.api.Cookies())
	if !ok {
		a.logger.Warn("login completed without a session cookie")
		return nil
	}
	return a.sessions.Save(ctx, a.config.BaseURL, token)
}

// records fetches the diary from the API and refreshes the local cache, or
// reads the cache alone when offline is set.
func (a *app) records(ctx context.Context, offline bool) ([]photos.Record, error) {
	if offline {
		return a.cache.Load(ctx)
	}
	records, err := a.photos.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.cache.Store(ctx, records); err != nil {
		a.logger.Warn("failed to refresh photo cache", zap.Error(err))
	}
	return records, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}
