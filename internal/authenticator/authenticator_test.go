package authenticator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"testing"

	"github.com/MarcoPoloResearchLab/photodiary/internal/ceremony"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

const testOrigin = "http://localhost:8080"

func mustAuthenticator(t *testing.T, store CredentialStore) *Authenticator {
	t.Helper()
	authenticator, err := New(Config{Origin: testOrigin, Store: store})
	if err != nil {
		t.Fatalf("failed to construct authenticator: %v", err)
	}
	return authenticator
}

func creationOptions(challenge []byte) ceremony.CreationOptions {
	return ceremony.CreationOptions{
		Challenge:    challenge,
		User:         ceremony.UserEntity{ID: []byte("admin"), Name: "admin", DisplayName: "admin"},
		RelyingParty: ceremony.RelyingParty{ID: "localhost", Name: "365 Project"},
		Metadata: map[string]json.RawMessage{
			"pubKeyCredParams": json.RawMessage(`[{"type":"public-key","alg":-7},{"type":"public-key","alg":-257}]`),
		},
	}
}

// mustParseRegistration reads the credential the way a WebAuthn relying party
// reads the register-finish body.
func mustParseRegistration(t *testing.T, credential *ceremony.AttestationCredential) *protocol.ParsedCredentialCreationData {
	t.Helper()
	body, err := json.Marshal(ceremony.NewRegistrationResponse(credential))
	if err != nil {
		t.Fatalf("failed to encode registration response: %v", err)
	}
	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse registration response: %v", err)
	}
	return parsed
}

func mustParseAssertion(t *testing.T, assertion *ceremony.AssertionCredential) *protocol.ParsedCredentialAssertionData {
	t.Helper()
	body, err := json.Marshal(ceremony.NewAuthenticationResponse(assertion))
	if err != nil {
		t.Fatalf("failed to encode authentication response: %v", err)
	}
	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse authentication response: %v", err)
	}
	return parsed
}

func TestCreateCredentialProducesVerifiableAttestation(t *testing.T) {
	authenticator := mustAuthenticator(t, NewMemoryStore())
	challenge := []byte{9, 8, 7, 6}

	credential, err := authenticator.CreateCredential(context.Background(), creationOptions(challenge))
	if err != nil {
		t.Fatalf("unexpected create failure: %v", err)
	}
	if credential.ID != ceremony.EncodeBinary(credential.RawID) {
		t.Fatalf("id %q does not match raw id %x", credential.ID, credential.RawID)
	}

	parsed := mustParseRegistration(t, credential)
	object := parsed.Response.AttestationObject
	if object.Format != "none" {
		t.Fatalf("unexpected format: %s", object.Format)
	}
	rpIDHash := RPIDHash("localhost")
	if !bytes.Equal(object.AuthData.RPIDHash, rpIDHash[:]) {
		t.Fatalf("unexpected rp id hash")
	}
	if !object.AuthData.Flags.UserPresent() {
		t.Fatalf("expected user present flag")
	}
	if !bytes.Equal(object.AuthData.AttData.CredentialID, credential.RawID) {
		t.Fatalf("attested credential id mismatch")
	}

	clientData := parsed.Response.CollectedClientData
	if clientData.Type != protocol.CreateCeremony || clientData.Origin != testOrigin {
		t.Fatalf("unexpected client data: %+v", clientData)
	}
	if clientData.Challenge != ceremony.EncodeBinary(challenge) {
		t.Fatalf("unexpected challenge: %s", clientData.Challenge)
	}
}

func TestGetAssertionSignsWithRegisteredKey(t *testing.T) {
	store := NewMemoryStore()
	authenticator := mustAuthenticator(t, store)
	created, err := authenticator.CreateCredential(context.Background(), creationOptions([]byte{1}))
	if err != nil {
		t.Fatalf("unexpected create failure: %v", err)
	}
	publicKey, err := webauthncose.ParsePublicKey(mustParseRegistration(t, created).Response.AttestationObject.AuthData.AttData.CredentialPublicKey)
	if err != nil {
		t.Fatalf("failed to parse public key: %v", err)
	}

	for expectedCount := uint32(1); expectedCount <= 2; expectedCount++ {
		assertion, err := authenticator.GetAssertion(context.Background(), ceremony.RequestOptions{
			Challenge:        []byte{2, 3},
			RelyingPartyID:   "localhost",
			AllowCredentials: []ceremony.CredentialDescriptor{{Type: "public-key", ID: []byte("unknown")}, {Type: "public-key", ID: created.RawID}},
		})
		if err != nil {
			t.Fatalf("unexpected assertion failure: %v", err)
		}
		clientDataHash := sha256.Sum256(assertion.ClientDataJSON)
		signed := append(append([]byte(nil), assertion.AuthenticatorData...), clientDataHash[:]...)
		if valid, err := webauthncose.VerifySignature(publicKey, signed, assertion.Signature); err != nil || !valid {
			t.Fatalf("signature does not verify (valid=%v, err=%v)", valid, err)
		}
		parsed := mustParseAssertion(t, assertion)
		authData := parsed.Response.AuthenticatorData
		if authData.Counter != expectedCount {
			t.Fatalf("unexpected sign count: got %d, want %d", authData.Counter, expectedCount)
		}
		if authData.Flags.HasAttestedCredentialData() {
			t.Fatalf("assertions must not carry attested credential data")
		}
		if parsed.Response.CollectedClientData.Type != protocol.AssertCeremony {
			t.Fatalf("unexpected client data type %q", parsed.Response.CollectedClientData.Type)
		}
		if string(parsed.Response.UserHandle) != "admin" {
			t.Fatalf("unexpected user handle on the wire: %q", parsed.Response.UserHandle)
		}
	}
}

func TestGetAssertionDeclinesWithoutCredential(t *testing.T) {
	authenticator := mustAuthenticator(t, NewMemoryStore())
	_, err := authenticator.GetAssertion(context.Background(), ceremony.RequestOptions{Challenge: []byte{1}})
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
}

func TestGetAssertionOmitsMissingUserHandle(t *testing.T) {
	store := NewMemoryStore()
	authenticator := mustAuthenticator(t, store)
	if _, err := authenticator.CreateCredential(context.Background(), creationOptions([]byte{1})); err != nil {
		t.Fatalf("unexpected create failure: %v", err)
	}
	store.credentials[0].HasUserHandle = false
	store.credentials[0].UserHandle = nil

	assertion, err := authenticator.GetAssertion(context.Background(), ceremony.RequestOptions{Challenge: []byte{1}, RelyingPartyID: "localhost"})
	if err != nil {
		t.Fatalf("unexpected assertion failure: %v", err)
	}
	if assertion.UserHandle.Present() {
		t.Fatalf("expected absent user handle")
	}
}

func TestCreateCredentialDeclines(t *testing.T) {
	authenticator := mustAuthenticator(t, NewMemoryStore())

	noChallenge := creationOptions(nil)
	if _, err := authenticator.CreateCredential(context.Background(), noChallenge); !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined without challenge, got %v", err)
	}

	rsaOnly := creationOptions([]byte{1})
	rsaOnly.Metadata["pubKeyCredParams"] = json.RawMessage(`[{"type":"public-key","alg":-257}]`)
	if _, err := authenticator.CreateCredential(context.Background(), rsaOnly); !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined for unsupported algorithm, got %v", err)
	}

	created, err := authenticator.CreateCredential(context.Background(), creationOptions([]byte{1}))
	if err != nil {
		t.Fatalf("unexpected create failure: %v", err)
	}
	excluded := creationOptions([]byte{2})
	excluded.Metadata["excludeCredentials"] = json.RawMessage(`[{"type":"public-key","id":"` + created.ID + `"}]`)
	if _, err := authenticator.CreateCredential(context.Background(), excluded); !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined for excluded credential, got %v", err)
	}
}

func TestRelyingPartyDefaultsToOriginHost(t *testing.T) {
	authenticator := mustAuthenticator(t, NewMemoryStore())
	options := creationOptions([]byte{1})
	options.RelyingParty.ID = ""

	credential, err := authenticator.CreateCredential(context.Background(), options)
	if err != nil {
		t.Fatalf("unexpected create failure: %v", err)
	}
	rpIDHash := RPIDHash("localhost")
	if !bytes.Equal(mustParseRegistration(t, credential).Response.AttestationObject.AuthData.RPIDHash, rpIDHash[:]) {
		t.Fatalf("expected rp id derived from origin host")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{Origin: testOrigin}); !errors.Is(err, errMissingStore) {
		t.Fatalf("expected missing store error, got %v", err)
	}
	if _, err := New(Config{Store: NewMemoryStore()}); !errors.Is(err, errMissingOrigin) {
		t.Fatalf("expected missing origin error, got %v", err)
	}
	if _, err := New(Config{Store: NewMemoryStore(), Origin: "not a url"}); err == nil {
		t.Fatalf("expected invalid origin to be rejected")
	}
}
