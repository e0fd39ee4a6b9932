package authenticator

const (
	// ClientDataTypeCreate marks client data collected during registration.
	ClientDataTypeCreate = "webauthn.create"
	// ClientDataTypeGet marks client data collected during authentication.
	ClientDataTypeGet = "webauthn.get"

	attestationFormatNone = "none"
)

// ClientData is the JSON the client hashes into every signature.
type ClientData struct {
	Type        string `json:"type"`
	Challenge   string `json:"challenge"`
	Origin      string `json:"origin"`
	CrossOrigin bool   `json:"crossOrigin"`
}

// attestationObject is the CBOR envelope returned at registration.
type attestationObject struct {
	Format    string         `cbor:"fmt"`
	Statement map[string]any `cbor:"attStmt"`
	AuthData  []byte         `cbor:"authData"`
}

// MarshalAttestationObject wraps authenticator data in a "none" attestation.
func MarshalAttestationObject(authData []byte) ([]byte, error) {
	return ctap2EncMode.Marshal(attestationObject{
		Format:    attestationFormatNone,
		Statement: map[string]any{},
		AuthData:  authData,
	})
}
