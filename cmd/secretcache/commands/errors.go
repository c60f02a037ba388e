package commands

import (
	"errors"

	dserrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/pkg/secretcache"
)

// fetchUserError adds a suggestion to cache errors. The message is the
// FetchError's own, which never carries payload content.
func fetchUserError(err error) error {
	var fe *secretcache.FetchError
	if !errors.As(err, &fe) {
		return err
	}

	var suggestion string
	switch fe.Kind {
	case secretcache.KindNotFound:
		suggestion = "The secret exists but has no value. Check that a current version was stored"
	case secretcache.KindInvalidJSON:
		suggestion = "secretcache only caches secrets whose value is a JSON object"
	case secretcache.KindInvalidID:
		suggestion = "Pass the secret name or ARN as the first argument"
	case secretcache.KindRemote:
		suggestion = remoteSuggestion(fe.Code)
	}

	return dserrors.UserError{
		Message:    fe.Error(),
		Suggestion: suggestion,
		Err:        err,
	}
}

func remoteSuggestion(code string) string {
	switch code {
	case "ResourceNotFoundException", "ParameterNotFound", "NotFound":
		return "Verify the secret name and that it exists in the configured region or project"
	case "AccessDeniedException", "AccessDenied", "PermissionDenied":
		return "Check that your identity may read the secret and describe its rotation schedule"
	case "ExpiredToken", "ExpiredTokenException", "Unauthenticated":
		return "Refresh your cloud credentials and try again"
	case "DeadlineExceeded":
		return "The remote store did not answer in time. Raise remote.timeout_ms or check connectivity"
	default:
		return "Run 'secretcache doctor' to check configuration and connectivity"
	}
}
