package ceremony

import (
	"encoding/json"
	"fmt"
)

const (
	publicKeyMember        = "publicKey"
	challengeMember        = "challenge"
	userMember             = "user"
	relyingPartyMember     = "rp"
	relyingPartyIDMember   = "rpId"
	allowCredentialsMember = "allowCredentials"
	userVerificationMember = "userVerification"
)

// RelyingParty identifies the server side of the ceremony.
type RelyingParty struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// UserEntity is the account a credential is created for. ID is binary.
type UserEntity struct {
	ID          []byte
	Name        string
	DisplayName string
}

// CredentialDescriptor names a credential the server will accept. ID is binary.
type CredentialDescriptor struct {
	Type       string
	ID         []byte
	Transports []string
}

// CreationOptions are the decoded registration options handed to the platform.
type CreationOptions struct {
	Challenge    []byte
	User         UserEntity
	RelyingParty RelyingParty
	// Metadata holds every other publicKey member verbatim (pubKeyCredParams,
	// timeout, authenticatorSelection, attestation, extensions, ...).
	Metadata map[string]json.RawMessage
}

// RequestOptions are the decoded authentication options handed to the platform.
type RequestOptions struct {
	Challenge        []byte
	RelyingPartyID   string
	AllowCredentials []CredentialDescriptor
	UserVerification string
	Metadata         map[string]json.RawMessage
}

type wireUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type wireDescriptor struct {
	Type       string   `json:"type"`
	ID         string   `json:"id"`
	Transports []string `json:"transports,omitempty"`
}

// ParseCreationOptions decodes the begin-registration response body. The
// challenge and user id are decoded from text to binary exactly once.
func ParseCreationOptions(body []byte) (CreationOptions, error) {
	members, err := publicKeyMembers(body)
	if err != nil {
		return CreationOptions{}, err
	}

	challenge, err := decodeStringMember(members, challengeMember)
	if err != nil {
		return CreationOptions{}, err
	}

	rawUser, ok := members[userMember]
	if !ok {
		return CreationOptions{}, fmt.Errorf("%w: missing %s.%s", ErrMalformedOptions, publicKeyMember, userMember)
	}
	var user wireUser
	if err := json.Unmarshal(rawUser, &user); err != nil {
		return CreationOptions{}, fmt.Errorf("%w: %s.%s: %v", ErrMalformedOptions, publicKeyMember, userMember, err)
	}
	userID, err := decodeField(publicKeyMember+".user.id", user.ID)
	if err != nil {
		return CreationOptions{}, err
	}

	var relyingParty RelyingParty
	if rawRelyingParty, ok := members[relyingPartyMember]; ok {
		if err := json.Unmarshal(rawRelyingParty, &relyingParty); err != nil {
			return CreationOptions{}, fmt.Errorf("%w: %s.%s: %v", ErrMalformedOptions, publicKeyMember, relyingPartyMember, err)
		}
	}

	delete(members, challengeMember)
	delete(members, userMember)

	return CreationOptions{
		Challenge: challenge,
		User: UserEntity{
			ID:          userID,
			Name:        user.Name,
			DisplayName: user.DisplayName,
		},
		RelyingParty: relyingParty,
		Metadata:     members,
	}, nil
}

// ParseRequestOptions decodes the begin-login response body. The challenge and
// each allowed credential id are decoded individually.
func ParseRequestOptions(body []byte) (RequestOptions, error) {
	members, err := publicKeyMembers(body)
	if err != nil {
		return RequestOptions{}, err
	}

	challenge, err := decodeStringMember(members, challengeMember)
	if err != nil {
		return RequestOptions{}, err
	}

	options := RequestOptions{Challenge: challenge}

	if raw, ok := members[relyingPartyIDMember]; ok {
		if err := json.Unmarshal(raw, &options.RelyingPartyID); err != nil {
			return RequestOptions{}, fmt.Errorf("%w: %s.%s: %v", ErrMalformedOptions, publicKeyMember, relyingPartyIDMember, err)
		}
	}
	if raw, ok := members[userVerificationMember]; ok {
		if err := json.Unmarshal(raw, &options.UserVerification); err != nil {
			return RequestOptions{}, fmt.Errorf("%w: %s.%s: %v", ErrMalformedOptions, publicKeyMember, userVerificationMember, err)
		}
	}

	if raw, ok := members[allowCredentialsMember]; ok && string(raw) != "null" {
		var descriptors []wireDescriptor
		if err := json.Unmarshal(raw, &descriptors); err != nil {
			return RequestOptions{}, fmt.Errorf("%w: %s.%s: %v", ErrMalformedOptions, publicKeyMember, allowCredentialsMember, err)
		}
		options.AllowCredentials = make([]CredentialDescriptor, 0, len(descriptors))
		for index, descriptor := range descriptors {
			field := fmt.Sprintf("%s.%s[%d].id", publicKeyMember, allowCredentialsMember, index)
			id, err := decodeField(field, descriptor.ID)
			if err != nil {
				return RequestOptions{}, err
			}
			options.AllowCredentials = append(options.AllowCredentials, CredentialDescriptor{
				Type:       descriptor.Type,
				ID:         id,
				Transports: descriptor.Transports,
			})
		}
	}

	delete(members, challengeMember)
	delete(members, allowCredentialsMember)
	options.Metadata = members

	return options, nil
}

func publicKeyMembers(body []byte) (map[string]json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOptions, err)
	}
	rawPublicKey, ok := envelope[publicKeyMember]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedOptions, publicKeyMember)
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(rawPublicKey, &members); err != nil || members == nil {
		return nil, fmt.Errorf("%w: %s is not an object", ErrMalformedOptions, publicKeyMember)
	}
	return members, nil
}

func decodeStringMember(members map[string]json.RawMessage, name string) ([]byte, error) {
	raw, ok := members[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s.%s", ErrMalformedOptions, publicKeyMember, name)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("%w: %s.%s must be a string", ErrMalformedOptions, publicKeyMember, name)
	}
	return decodeField(publicKeyMember+"."+name, text)
}
