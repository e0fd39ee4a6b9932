package authenticator

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	FlagUserPresent            byte = 0x01
	FlagUserVerified           byte = 0x04
	FlagAttestedCredentialData byte = 0x40

	rpIDHashLength     = sha256.Size
	authDataHeaderSize = rpIDHashLength + 1 + 4
	aaguidLength       = 16

	coseKeyTypeEC2     = 2
	coseAlgES256       = -7
	coseCurveP256      = 1
	p256CoordinateSize = 32
)

var ctap2EncMode cbor.EncMode

func init() {
	var err error
	ctap2EncMode, err = cbor.CTAP2EncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("authenticator: CTAP2 encoding options: %v", err))
	}
}

// AuthenticatorData is the binary structure signed by the authenticator.
type AuthenticatorData struct {
	RPIDHash           [rpIDHashLength]byte
	Flags              byte
	SignCount          uint32
	AttestedCredential *AttestedCredential
}

// AttestedCredential is present in authenticator data produced at registration.
type AttestedCredential struct {
	AAGUID       [aaguidLength]byte
	CredentialID []byte
	PublicKey    *ecdsa.PublicKey
}

// coseKey is an EC2 public key in COSE form.
type coseKey struct {
	KeyType   int    `cbor:"1,keyasint"`
	Algorithm int    `cbor:"3,keyasint"`
	Curve     int    `cbor:"-1,keyasint"`
	X         []byte `cbor:"-2,keyasint"`
	Y         []byte `cbor:"-3,keyasint"`
}

// RPIDHash returns the SHA-256 digest of a relying party id.
func RPIDHash(rpID string) [rpIDHashLength]byte {
	return sha256.Sum256([]byte(rpID))
}

// Marshal serializes the authenticator data.
func (d AuthenticatorData) Marshal() ([]byte, error) {
	out := make([]byte, 0, authDataHeaderSize)
	out = append(out, d.RPIDHash[:]...)
	flags := d.Flags
	if d.AttestedCredential != nil {
		flags |= FlagAttestedCredentialData
	}
	out = append(out, flags)
	out = binary.BigEndian.AppendUint32(out, d.SignCount)
	if d.AttestedCredential == nil {
		return out, nil
	}

	credential := d.AttestedCredential
	if len(credential.CredentialID) == 0 || len(credential.CredentialID) > 0xffff {
		return nil, fmt.Errorf("authenticator: credential id length %d out of range", len(credential.CredentialID))
	}
	encodedKey, err := encodeCOSEKey(credential.PublicKey)
	if err != nil {
		return nil, err
	}
	out = append(out, credential.AAGUID[:]...)
	out = binary.BigEndian.AppendUint16(out, uint16(len(credential.CredentialID)))
	out = append(out, credential.CredentialID...)
	out = append(out, encodedKey...)
	return out, nil
}

func encodeCOSEKey(publicKey *ecdsa.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, fmt.Errorf("authenticator: public key is required")
	}
	ecdhKey, err := publicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("authenticator: public key: %w", err)
	}
	point := ecdhKey.Bytes()
	if len(point) != 1+2*p256CoordinateSize {
		return nil, fmt.Errorf("authenticator: unsupported public key size %d", len(point))
	}
	return ctap2EncMode.Marshal(coseKey{
		KeyType:   coseKeyTypeEC2,
		Algorithm: coseAlgES256,
		Curve:     coseCurveP256,
		X:         point[1 : 1+p256CoordinateSize],
		Y:         point[1+p256CoordinateSize:],
	})
}
