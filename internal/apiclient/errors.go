package apiclient

import (
	"errors"
	"fmt"
)

// ProtocolError reports a non-success HTTP status. The server's response text
// is the error message.
type ProtocolError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
}

// IsProtocolError reports whether err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var protocolErr *ProtocolError
	return errors.As(err, &protocolErr)
}
