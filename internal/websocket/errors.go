package websocket

import "errors"

var (
	// ErrNotFound is returned when a connection id is unknown
	ErrNotFound = errors.New("stream not found")

	// ErrSubscriptionNotFound is returned when unsubscribing from a project the connection is not subscribed to
	ErrSubscriptionNotFound = errors.New("project subscription not found")

	// ErrUnauthenticated is returned when the connection has no bound user
	ErrUnauthenticated = errors.New("stream not initialized")

	// ErrForbidden is returned on identity mismatch or failed membership check
	ErrForbidden = errors.New("forbidden")

	// ErrBadRequest is returned for malformed input
	ErrBadRequest = errors.New("bad request")

	// ErrAlreadyAuthenticated is returned when a bound connection tries to initialize again
	ErrAlreadyAuthenticated = errors.New("stream already initialized")

	ErrClientDisconnected = errors.New("client disconnected")
	ErrHubStopped         = errors.New("hub stopped")
)

// SessionError is a token rejection whose Reason may be shown to the client
type SessionError struct {
	Reason string
}

func (e *SessionError) Error() string {
	return e.Reason
}

// initializeErrorText is the client-facing text for a failed initialize.
// Anything unrecognized is reported generically.
func initializeErrorText(err error) string {
	var sessionErr *SessionError
	switch {
	case errors.As(err, &sessionErr):
		return sessionErr.Reason
	case errors.Is(err, ErrAlreadyAuthenticated):
		return "Stream already initialized"
	case errors.Is(err, ErrNotFound):
		return "Stream not found"
	case errors.Is(err, ErrBadRequest):
		return "Missing authorization"
	default:
		return "Authorization failed"
	}
}
