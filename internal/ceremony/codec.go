package ceremony

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// binaryEncoding is the standard base64 alphabet with '+' and '/' replaced by
// '-' and '_' and the trailing '=' padding dropped. Strict decoding rejects
// non-zero trailing bits so every accepted text has exactly one byte form.
var binaryEncoding = base64.RawURLEncoding.Strict()

// EncodeBinary converts a binary ceremony field to its transport text form.
// The output never contains '+', '/' or '='.
func EncodeBinary(value []byte) string {
	return binaryEncoding.EncodeToString(value)
}

// DecodeBinary is the inverse of EncodeBinary. Inputs whose length is not a
// multiple of four are accepted; characters outside the URL-safe alphabet and
// impossible lengths yield a *DecodeError.
func DecodeBinary(text string) ([]byte, error) {
	return decodeField("", text)
}

func decodeField(field, text string) ([]byte, error) {
	// The base64 package skips CR and LF; transport text must not contain them.
	if index := strings.IndexAny(text, "\r\n"); index >= 0 {
		return nil, &DecodeError{Field: field, Offset: index, Err: fmt.Errorf("line break at offset %d", index)}
	}
	decoded, err := binaryEncoding.DecodeString(text)
	if err != nil {
		decodeErr := &DecodeError{Field: field, Offset: -1, Err: err}
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) {
			decodeErr.Offset = int(corrupt)
		}
		return nil, decodeErr
	}
	return decoded, nil
}
