package fakeserver

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/photodiary/internal/ceremony"
	"github.com/MarcoPoloResearchLab/photodiary/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"go.uber.org/zap"
)

const (
	registrationClosedText  = "Registration is closed."
	registrationSuccessText = "Registration Success"
	loginSuccessText        = "Login Success"
	sessionNotFoundText     = "session not found"
	userNotFoundText        = "user not found"

	ceremonyTimeout = 60 * time.Second
)

var errSignCount = errors.New("sign count did not increase")

// user is the webauthn.User view of a diary account.
type user struct {
	name        string
	id          []byte
	credentials []webauthn.Credential
}

func (u *user) WebAuthnID() []byte {
	return u.id
}

func (u *user) WebAuthnName() string {
	return u.name
}

func (u *user) WebAuthnDisplayName() string {
	return u.name
}

func (u *user) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}

func newRelyingParty(relyingPartyID, relyingPartyName, origin string) (*webauthn.WebAuthn, error) {
	timeout := webauthn.TimeoutConfig{Enforce: true, Timeout: ceremonyTimeout}
	return webauthn.New(&webauthn.Config{
		RPID:                  relyingPartyID,
		RPDisplayName:         relyingPartyName,
		RPOrigins:             []string{origin},
		AttestationPreference: protocol.PreferNoAttestation,
		Timeouts: webauthn.TimeoutsConfig{
			Login:        timeout,
			Registration: timeout,
		},
	})
}

func (s *Server) handleRegisterBegin(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if len(existing.credentials) > 0 {
			c.String(http.StatusForbidden, registrationClosedText)
			return
		}
	}

	account, ok := s.users[username]
	if !ok {
		userID, err := s.randomBytes(userIDLength)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		account = &user{name: username, id: userID}
		s.users[username] = account
	}

	options, sessionData, err := s.relyingParty.BeginRegistration(account)
	if err != nil {
		s.logger.Error("registration begin failed", zap.String("username", username), zap.Error(err))
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	s.ceremonies[ceremonyKey{username: username, kind: ceremonyRegistration}] = sessionData
	c.JSON(http.StatusOK, options)
}

func (s *Server) handleRegisterFinish(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.users[username]
	if !ok {
		c.String(http.StatusBadRequest, userNotFoundText)
		return
	}
	sessionData, ok := s.takeCeremony(username, ceremonyRegistration)
	if !ok {
		c.String(http.StatusBadRequest, sessionNotFoundText)
		return
	}

	registered, err := s.relyingParty.FinishRegistration(account, *sessionData, c.Request)
	if err != nil {
		s.rejectCeremony(c, "registration rejected", username, err)
		return
	}
	account.credentials = append(account.credentials, *registered)

	s.logger.Info("credential registered",
		zap.String("username", username),
		zap.String("credential_id", ceremony.EncodeBinary(registered.ID)))
	c.String(http.StatusOK, registrationSuccessText)
}

func (s *Server) handleLoginBegin(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.users[username]
	if !ok || len(account.credentials) == 0 {
		c.String(http.StatusBadRequest, userNotFoundText)
		return
	}

	options, sessionData, err := s.relyingParty.BeginLogin(account)
	if err != nil {
		s.logger.Error("login begin failed", zap.String("username", username), zap.Error(err))
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	s.ceremonies[ceremonyKey{username: username, kind: ceremonyAuthentication}] = sessionData
	c.JSON(http.StatusOK, options)
}

func (s *Server) handleLoginFinish(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.users[username]
	if !ok {
		c.String(http.StatusBadRequest, userNotFoundText)
		return
	}
	sessionData, ok := s.takeCeremony(username, ceremonyAuthentication)
	if !ok {
		c.String(http.StatusBadRequest, sessionNotFoundText)
		return
	}

	asserted, err := s.relyingParty.FinishLogin(account, *sessionData, c.Request)
	if err != nil {
		s.rejectCeremony(c, "login rejected", username, err)
		return
	}
	if asserted.Authenticator.CloneWarning {
		s.rejectCeremony(c, "login rejected", username, errSignCount)
		return
	}
	for i := range account.credentials {
		if bytes.Equal(account.credentials[i].ID, asserted.ID) {
			account.credentials[i].Authenticator = asserted.Authenticator
		}
	}

	token, _, err := s.tokens.Issue(username)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to create session")
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(session.CookieName, token, sessionMaxAge, "/", "", false, true)

	s.logger.Info("user logged in", zap.String("username", username))
	c.String(http.StatusOK, loginSuccessText)
}

// takeCeremony removes and returns the pending ceremony, so every challenge
// is answered at most once. Callers hold s.mu.
func (s *Server) takeCeremony(username string, kind ceremonyKind) (*webauthn.SessionData, bool) {
	key := ceremonyKey{username: username, kind: kind}
	sessionData, ok := s.ceremonies[key]
	if ok {
		delete(s.ceremonies, key)
	}
	return sessionData, ok
}

func (s *Server) rejectCeremony(c *gin.Context, message, username string, err error) {
	fields := []zap.Field{zap.String("username", username), zap.Error(err)}
	var protocolErr *protocol.Error
	if errors.As(err, &protocolErr) && protocolErr.DevInfo != "" {
		fields = append(fields, zap.String("detail", protocolErr.DevInfo))
	}
	s.logger.Warn(message, fields...)
	c.String(http.StatusBadRequest, err.Error())
}
