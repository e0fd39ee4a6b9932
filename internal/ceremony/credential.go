package ceremony

import "context"

// PublicKeyCredentialType is the only credential type the ceremonies use.
const PublicKeyCredentialType = "public-key"

// CredentialManager is the platform capability that prompts the user or device.
// Implementations return an error, or a nil credential, when the platform
// declines.
type CredentialManager interface {
	CreateCredential(ctx context.Context, options CreationOptions) (*AttestationCredential, error)
	GetAssertion(ctx context.Context, options RequestOptions) (*AssertionCredential, error)
}

// AttestationCredential is the platform's answer to a registration ceremony.
type AttestationCredential struct {
	ID                string
	RawID             []byte
	Type              string
	AttestationObject []byte
	ClientDataJSON    []byte
}

// AssertionCredential is the platform's answer to an authentication ceremony.
type AssertionCredential struct {
	ID                string
	RawID             []byte
	Type              string
	AuthenticatorData []byte
	ClientDataJSON    []byte
	Signature         []byte
	UserHandle        OptionalBytes
}

// OptionalBytes distinguishes an absent binary field from a present but empty one.
type OptionalBytes struct {
	value   []byte
	present bool
}

// Some returns a present value, which may be empty.
func Some(value []byte) OptionalBytes {
	if value == nil {
		value = []byte{}
	}
	return OptionalBytes{value: value, present: true}
}

// None returns the absent value.
func None() OptionalBytes {
	return OptionalBytes{}
}

// Get returns the bytes and whether they are present.
func (o OptionalBytes) Get() ([]byte, bool) {
	return o.value, o.present
}

// Present reports whether a value was supplied.
func (o OptionalBytes) Present() bool {
	return o.present
}

// RegistrationResponse is the register-finish request body.
type RegistrationResponse struct {
	ID       string              `json:"id"`
	RawID    string              `json:"rawId"`
	Type     string              `json:"type"`
	Response AttestationResponse `json:"response"`
}

// AttestationResponse carries the encoded attestation fields.
type AttestationResponse struct {
	AttestationObject string `json:"attestationObject"`
	ClientDataJSON    string `json:"clientDataJSON"`
}

// AuthenticationResponse is the login-finish request body.
type AuthenticationResponse struct {
	ID       string            `json:"id"`
	RawID    string            `json:"rawId"`
	Type     string            `json:"type"`
	Response AssertionResponse `json:"response"`
}

// AssertionResponse carries the encoded assertion fields. UserHandle is
// serialized as null when the platform returned none.
type AssertionResponse struct {
	AuthenticatorData string  `json:"authenticatorData"`
	ClientDataJSON    string  `json:"clientDataJSON"`
	Signature         string  `json:"signature"`
	UserHandle        *string `json:"userHandle"`
}

// NewRegistrationResponse encodes each binary field of the credential once.
func NewRegistrationResponse(credential *AttestationCredential) RegistrationResponse {
	return RegistrationResponse{
		ID:    credential.ID,
		RawID: EncodeBinary(credential.RawID),
		Type:  credentialType(credential.Type),
		Response: AttestationResponse{
			AttestationObject: EncodeBinary(credential.AttestationObject),
			ClientDataJSON:    EncodeBinary(credential.ClientDataJSON),
		},
	}
}

// NewAuthenticationResponse encodes each binary field of the assertion once.
func NewAuthenticationResponse(credential *AssertionCredential) AuthenticationResponse {
	var userHandle *string
	if value, ok := credential.UserHandle.Get(); ok {
		encoded := EncodeBinary(value)
		userHandle = &encoded
	}
	return AuthenticationResponse{
		ID:    credential.ID,
		RawID: EncodeBinary(credential.RawID),
		Type:  credentialType(credential.Type),
		Response: AssertionResponse{
			AuthenticatorData: EncodeBinary(credential.AuthenticatorData),
			ClientDataJSON:    EncodeBinary(credential.ClientDataJSON),
			Signature:         EncodeBinary(credential.Signature),
			UserHandle:        userHandle,
		},
	}
}

// DecodedUserHandle decodes the optional user handle back into its tagged form.
func (r AssertionResponse) DecodedUserHandle() (OptionalBytes, error) {
	if r.UserHandle == nil {
		return None(), nil
	}
	value, err := decodeField("response.userHandle", *r.UserHandle)
	if err != nil {
		return OptionalBytes{}, err
	}
	return Some(value), nil
}

// CreateCredential asks the platform for a new credential. A refusal or an
// empty answer becomes a *CredentialError.
func CreateCredential(ctx context.Context, manager CredentialManager, options CreationOptions) (*AttestationCredential, error) {
	credential, err := manager.CreateCredential(ctx, options)
	if err != nil {
		return nil, &CredentialError{Operation: "credential creation", Err: err}
	}
	if credential == nil {
		return nil, &CredentialError{Operation: "credential creation"}
	}
	return credential, nil
}

// GetAssertion asks the platform to sign the challenge with an existing
// credential. A refusal or an empty answer becomes a *CredentialError.
func GetAssertion(ctx context.Context, manager CredentialManager, options RequestOptions) (*AssertionCredential, error) {
	assertion, err := manager.GetAssertion(ctx, options)
	if err != nil {
		return nil, &CredentialError{Operation: "assertion", Err: err}
	}
	if assertion == nil {
		return nil, &CredentialError{Operation: "assertion"}
	}
	return assertion, nil
}

func credentialType(value string) string {
	if value == "" {
		return PublicKeyCredentialType
	}
	return value
}
