package authenticator

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/MarcoPoloResearchLab/photodiary/internal/ceremony"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrDeclined indicates the authenticator refused the request. Callers see
	// it wrapped in a ceremony.CredentialError.
	ErrDeclined = errors.New("authenticator: request declined")

	errMissingStore  = errors.New("authenticator: credential store is required")
	errMissingOrigin = errors.New("authenticator: origin is required")
)

// Config describes a software authenticator.
type Config struct {
	// Origin is the web origin reported in client data, e.g. "https://diary.example.com".
	Origin string
	Store  CredentialStore
	// Random defaults to crypto/rand.
	Random io.Reader
	Logger *zap.Logger
}

// Authenticator is a software platform credential manager holding P-256 keys.
type Authenticator struct {
	origin     string
	originHost string
	store      CredentialStore
	random     io.Reader
	logger     *zap.Logger
}

// New constructs an Authenticator.
func New(cfg Config) (*Authenticator, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	origin := strings.TrimRight(strings.TrimSpace(cfg.Origin), "/")
	if origin == "" {
		return nil, errMissingOrigin
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return nil, fmt.Errorf("authenticator: invalid origin %q", origin)
	}
	random := cfg.Random
	if random == nil {
		random = rand.Reader
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		origin:     origin,
		originHost: parsed.Hostname(),
		store:      cfg.Store,
		random:     random,
		logger:     logger,
	}, nil
}

// CreateCredential generates a key pair for the relying party and user named
// in the options and returns a "none" attestation.
func (a *Authenticator) CreateCredential(ctx context.Context, options ceremony.CreationOptions) (*ceremony.AttestationCredential, error) {
	if len(options.Challenge) == 0 || len(options.User.ID) == 0 {
		return nil, fmt.Errorf("%w: challenge and user id are required", ErrDeclined)
	}
	if !supportsES256(options) {
		return nil, fmt.Errorf("%w: no supported public key algorithm", ErrDeclined)
	}
	rpID := a.relyingPartyID(options.RelyingParty.ID)

	existing, err := a.store.ListForRP(ctx, rpID)
	if err != nil {
		return nil, err
	}
	for _, excluded := range excludedCredentialIDs(options) {
		for _, stored := range existing {
			if bytes.Equal(stored.CredentialID, excluded) {
				return nil, fmt.Errorf("%w: credential already registered", ErrDeclined)
			}
		}
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), a.random)
	if err != nil {
		return nil, err
	}
	credentialUUID, err := uuid.NewRandomFromReader(a.random)
	if err != nil {
		return nil, err
	}
	credentialID := credentialUUID[:]

	authData, err := AuthenticatorData{
		RPIDHash:  RPIDHash(rpID),
		Flags:     FlagUserPresent | FlagUserVerified,
		SignCount: 0,
		AttestedCredential: &AttestedCredential{
			CredentialID: credentialID,
			PublicKey:    &privateKey.PublicKey,
		},
	}.Marshal()
	if err != nil {
		return nil, err
	}
	attestationObject, err := MarshalAttestationObject(authData)
	if err != nil {
		return nil, err
	}
	clientDataJSON, err := a.clientData(ClientDataTypeCreate, options.Challenge)
	if err != nil {
		return nil, err
	}

	encodedKey, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(ctx, StoredCredential{
		CredentialID:  credentialID,
		RPID:          rpID,
		UserName:      options.User.Name,
		UserHandle:    options.User.ID,
		HasUserHandle: true,
		PrivateKey:    encodedKey,
	}); err != nil {
		return nil, err
	}

	a.logger.Info("credential created",
		zap.String("rp_id", rpID),
		zap.String("user", options.User.Name),
		zap.String("credential_id", ceremony.EncodeBinary(credentialID)))

	return &ceremony.AttestationCredential{
		ID:                ceremony.EncodeBinary(credentialID),
		RawID:             credentialID,
		Type:              ceremony.PublicKeyCredentialType,
		AttestationObject: attestationObject,
		ClientDataJSON:    clientDataJSON,
	}, nil
}

// GetAssertion signs the challenge with the first stored credential the
// server allows.
func (a *Authenticator) GetAssertion(ctx context.Context, options ceremony.RequestOptions) (*ceremony.AssertionCredential, error) {
	if len(options.Challenge) == 0 {
		return nil, fmt.Errorf("%w: challenge is required", ErrDeclined)
	}
	rpID := a.relyingPartyID(options.RelyingPartyID)

	candidates, err := a.store.ListForRP(ctx, rpID)
	if err != nil {
		return nil, err
	}
	credential, ok := selectCredential(candidates, options.AllowCredentials)
	if !ok {
		return nil, fmt.Errorf("%w: no credential for %s", ErrDeclined, rpID)
	}

	privateKey, err := parsePrivateKey(credential.PrivateKey)
	if err != nil {
		return nil, err
	}

	signCount := credential.SignCount + 1
	authData, err := AuthenticatorData{
		RPIDHash:  RPIDHash(rpID),
		Flags:     FlagUserPresent | FlagUserVerified,
		SignCount: signCount,
	}.Marshal()
	if err != nil {
		return nil, err
	}
	clientDataJSON, err := a.clientData(ClientDataTypeGet, options.Challenge)
	if err != nil {
		return nil, err
	}
	signature, err := ecdsa.SignASN1(a.random, privateKey, signedDigest(authData, clientDataJSON))
	if err != nil {
		return nil, err
	}
	if err := a.store.UpdateSignCount(ctx, credential.CredentialID, signCount); err != nil {
		return nil, err
	}

	userHandle := ceremony.None()
	if credential.HasUserHandle {
		userHandle = ceremony.Some(credential.UserHandle)
	}

	a.logger.Info("assertion created",
		zap.String("rp_id", rpID),
		zap.String("credential_id", ceremony.EncodeBinary(credential.CredentialID)),
		zap.Uint32("sign_count", signCount))

	return &ceremony.AssertionCredential{
		ID:                ceremony.EncodeBinary(credential.CredentialID),
		RawID:             credential.CredentialID,
		Type:              ceremony.PublicKeyCredentialType,
		AuthenticatorData: authData,
		ClientDataJSON:    clientDataJSON,
		Signature:         signature,
		UserHandle:        userHandle,
	}, nil
}

// signedDigest is the message an assertion signature covers:
// SHA-256(authenticatorData || SHA-256(clientDataJSON)).
func signedDigest(authData, clientDataJSON []byte) []byte {
	clientDataHash := sha256.Sum256(clientDataJSON)
	message := make([]byte, 0, len(authData)+len(clientDataHash))
	message = append(message, authData...)
	message = append(message, clientDataHash[:]...)
	digest := sha256.Sum256(message)
	return digest[:]
}

func (a *Authenticator) relyingPartyID(requested string) string {
	if trimmed := strings.TrimSpace(requested); trimmed != "" {
		return trimmed
	}
	return a.originHost
}

func (a *Authenticator) clientData(clientDataType string, challenge []byte) ([]byte, error) {
	return json.Marshal(ClientData{
		Type:      clientDataType,
		Challenge: ceremony.EncodeBinary(challenge),
		Origin:    a.origin,
	})
}

func selectCredential(candidates []StoredCredential, allowed []ceremony.CredentialDescriptor) (StoredCredential, bool) {
	if len(allowed) == 0 {
		if len(candidates) == 0 {
			return StoredCredential{}, false
		}
		return candidates[0], true
	}
	for _, descriptor := range allowed {
		for _, candidate := range candidates {
			if bytes.Equal(candidate.CredentialID, descriptor.ID) {
				return candidate, true
			}
		}
	}
	return StoredCredential{}, false
}

func parsePrivateKey(encoded []byte) (*ecdsa.PrivateKey, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("authenticator: stored key: %w", err)
	}
	privateKey, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("authenticator: stored key is %T, want ECDSA", parsed)
	}
	return privateKey, nil
}

type credentialParameter struct {
	Type      string `json:"type"`
	Algorithm int    `json:"alg"`
}

// supportsES256 reports whether the server accepts ES256. Options without
// pubKeyCredParams are accepted.
func supportsES256(options ceremony.CreationOptions) bool {
	raw, ok := options.Metadata["pubKeyCredParams"]
	if !ok {
		return true
	}
	var parameters []credentialParameter
	if err := json.Unmarshal(raw, &parameters); err != nil {
		return false
	}
	if len(parameters) == 0 {
		return true
	}
	for _, parameter := range parameters {
		if parameter.Type == ceremony.PublicKeyCredentialType && parameter.Algorithm == coseAlgES256 {
			return true
		}
	}
	return false
}

type excludedDescriptor struct {
	ID string `json:"id"`
}

func excludedCredentialIDs(options ceremony.CreationOptions) [][]byte {
	raw, ok := options.Metadata["excludeCredentials"]
	if !ok {
		return nil
	}
	var descriptors []excludedDescriptor
	if err := json.Unmarshal(raw, &descriptors); err != nil {
		return nil
	}
	ids := make([][]byte, 0, len(descriptors))
	for _, descriptor := range descriptors {
		id, err := ceremony.DecodeBinary(descriptor.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
