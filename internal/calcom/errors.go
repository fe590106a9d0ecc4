package calcom

import (
	"errors"
	"fmt"
)

// Kind classifies a failed remote call so callers can branch behavior
// instead of matching on message text.
type Kind string

const (
	// KindNetwork covers transport failures: DNS, refused connections,
	// timeouts. No HTTP response was received.
	KindNetwork Kind = "NETWORK_FAILURE"
	// KindRemoteRejection covers 4xx responses: validation, auth, not-found.
	KindRemoteRejection Kind = "REMOTE_REJECTION"
	// KindRemoteFault covers 5xx responses.
	KindRemoteFault Kind = "REMOTE_FAULT"
)

type APIError struct {
	Kind       Kind
	StatusCode int // 0 for network failures
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("calcom: %s (status=%d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("calcom: %s", e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func networkErr(err error) *APIError {
	return &APIError{Kind: KindNetwork, Message: err.Error(), Err: err}
}

func statusErr(status int, message string) *APIError {
	kind := KindRemoteRejection
	if status >= 500 {
		kind = KindRemoteFault
	}
	if message == "" {
		message = fmt.Sprintf("remote returned status %d", status)
	}
	return &APIError{Kind: kind, StatusCode: status, Message: message}
}

// KindOf extracts the failure kind from any error returned by the client.
// Unrecognized errors report as network failures.
func KindOf(err error) Kind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindNetwork
}
