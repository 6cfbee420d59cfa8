package viam

import "fmt"

// ConnectError means the session could not be established, either because
// the app was unreachable or the credentials were rejected
type ConnectError struct {
	APIKeyID string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to Viam with api key id %q: %v", e.APIKeyID, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
