package providers

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/systmms/secretcache/pkg/secretcache"
)

// awsRemoteError converts an AWS SDK error into a RemoteError carrying the
// service error code verbatim, e.g. "ResourceNotFoundException".
func awsRemoteError(err error) *secretcache.RemoteError {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &secretcache.RemoteError{
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
		}
	}
	return transportRemoteError(err)
}

// gcpRemoteError converts a gRPC error into a RemoteError whose code is the
// status code name, e.g. "NotFound" or "PermissionDenied".
func gcpRemoteError(err error) *secretcache.RemoteError {
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return &secretcache.RemoteError{
			Code:    st.Code().String(),
			Message: st.Message(),
		}
	}
	return transportRemoteError(err)
}

// transportRemoteError covers failures that never reached the service.
func transportRemoteError(err error) *secretcache.RemoteError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &secretcache.RemoteError{Code: "DeadlineExceeded", Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return &secretcache.RemoteError{Code: "Canceled", Message: err.Error()}
	}
	return &secretcache.RemoteError{Message: err.Error()}
}
