package secretcache

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a FetchError.
type ErrorKind string

const (
	// KindNotFound means the remote store returned no payload field.
	KindNotFound ErrorKind = "not_found"
	// KindInvalidJSON means the payload is not a JSON object.
	KindInvalidJSON ErrorKind = "invalid_json"
	// KindRemote means the remote store rejected or failed the call.
	KindRemote ErrorKind = "remote"
	// KindInvalidID means the identifier was empty.
	KindInvalidID ErrorKind = "invalid_id"
)

// Sentinels for errors.Is matching against a FetchError's kind.
var (
	ErrNotFound    = errors.New("secret payload not found")
	ErrInvalidJSON = errors.New("invalid JSON payload")
	ErrRemote      = errors.New("remote store error")
	ErrInvalidID   = errors.New("invalid secret identifier")
)

// FetchError is the only error surfaced by the cache's public operations.
// It carries the identifier and, for remote failures, the remote code and
// message verbatim. It never carries payload content.
type FetchError struct {
	SecretID string
	Kind     ErrorKind
	Code     string
	Message  string
	Err      error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("fetch secret %q: remote response has no payload field", e.SecretID)
	case KindInvalidJSON:
		return fmt.Sprintf("fetch secret %q: invalid JSON payload: %s", e.SecretID, e.Message)
	case KindRemote:
		if e.Code != "" {
			return fmt.Sprintf("fetch secret %q: remote error %s: %s", e.SecretID, e.Code, e.Message)
		}
		return fmt.Sprintf("fetch secret %q: remote error: %s", e.SecretID, e.Message)
	case KindInvalidID:
		return "fetch secret: identifier cannot be empty"
	default:
		return fmt.Sprintf("fetch secret %q: %s", e.SecretID, e.Message)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels so callers can write
// errors.Is(err, secretcache.ErrNotFound).
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidJSON:
		return e.Kind == KindInvalidJSON
	case ErrRemote:
		return e.Kind == KindRemote
	case ErrInvalidID:
		return e.Kind == KindInvalidID
	}
	return false
}

// remoteFetchError converts a remote failure into a FetchError, keeping the
// remote code and message when the store reported a *RemoteError.
func remoteFetchError(id string, err error) *FetchError {
	fe := &FetchError{SecretID: id, Kind: KindRemote, Message: err.Error(), Err: err}
	var re *RemoteError
	if errors.As(err, &re) {
		fe.Code = re.Code
		fe.Message = re.Message
	}
	return fe
}
