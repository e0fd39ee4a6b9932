package ceremony

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarcoPoloResearchLab/photodiary/internal/apiclient"
	"go.uber.org/zap"
)

const (
	registerBeginPath  = "/api/auth/register/begin/"
	registerFinishPath = "/api/auth/register/finish/"
	loginBeginPath     = "/api/auth/login/begin/"
	loginFinishPath    = "/api/auth/login/finish/"

	opRegisterBegin  = "register.begin"
	opRegisterFinish = "register.finish"
	opLoginBegin     = "login.begin"
	opLoginFinish    = "login.finish"

	jsonContentType = "application/json"
)

// Client performs the server half of the registration and authentication
// ceremonies. Each method is a single network round trip.
type Client struct {
	api    *apiclient.Client
	logger *zap.Logger
}

// NewClient wraps an API client. A nil logger disables logging.
func NewClient(api *apiclient.Client, logger *zap.Logger) (*Client, error) {
	if api == nil {
		return nil, errMissingClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, logger: logger}, nil
}

// BeginRegistration fetches server-chosen creation options for username.
func (c *Client) BeginRegistration(ctx context.Context, username string) (CreationOptions, error) {
	path, err := usernamePath(registerBeginPath, username)
	if err != nil {
		return CreationOptions{}, err
	}
	body, err := c.api.Do(ctx, apiclient.Request{Operation: opRegisterBegin, Method: http.MethodPost, Path: path})
	if err != nil {
		return CreationOptions{}, err
	}
	options, err := ParseCreationOptions(body)
	if err != nil {
		return CreationOptions{}, err
	}
	c.logger.Debug("registration options received",
		zap.String("username", username),
		zap.String("rp_id", options.RelyingParty.ID),
		zap.Int("challenge_bytes", len(options.Challenge)))
	return options, nil
}

// FinishRegistration submits the new credential with its binary fields encoded.
func (c *Client) FinishRegistration(ctx context.Context, username string, credential *AttestationCredential) error {
	path, err := usernamePath(registerFinishPath, username)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(NewRegistrationResponse(credential))
	if err != nil {
		return err
	}
	_, err = c.api.Do(ctx, apiclient.Request{
		Operation:   opRegisterFinish,
		Method:      http.MethodPost,
		Path:        path,
		Body:        bytes.NewReader(payload),
		ContentType: jsonContentType,
	})
	return err
}

// BeginAuthentication fetches server-chosen request options for username.
func (c *Client) BeginAuthentication(ctx context.Context, username string) (RequestOptions, error) {
	path, err := usernamePath(loginBeginPath, username)
	if err != nil {
		return RequestOptions{}, err
	}
	body, err := c.api.Do(ctx, apiclient.Request{Operation: opLoginBegin, Method: http.MethodPost, Path: path})
	if err != nil {
		return RequestOptions{}, err
	}
	options, err := ParseRequestOptions(body)
	if err != nil {
		return RequestOptions{}, err
	}
	c.logger.Debug("authentication options received",
		zap.String("username", username),
		zap.String("rp_id", options.RelyingPartyID),
		zap.Int("allowed_credentials", len(options.AllowCredentials)))
	return options, nil
}

// FinishAuthentication submits the assertion with its binary fields encoded.
func (c *Client) FinishAuthentication(ctx context.Context, username string, assertion *AssertionCredential) error {
	path, err := usernamePath(loginFinishPath, username)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(NewAuthenticationResponse(assertion))
	if err != nil {
		return err
	}
	_, err = c.api.Do(ctx, apiclient.Request{
		Operation:   opLoginFinish,
		Method:      http.MethodPost,
		Path:        path,
		Body:        bytes.NewReader(payload),
		ContentType: jsonContentType,
	})
	return err
}

func usernamePath(prefix, username string) (string, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return "", ErrMissingUsername
	}
	return prefix + url.PathEscape(trimmed), nil
}
