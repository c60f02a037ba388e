package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// FakeGCPSecretManagerClient is an in-memory Secret Manager client keyed by
// resource name. It satisfies providers.GCPSecretManagerClientAPI.
type FakeGCPSecretManagerClient struct {
	mu sync.Mutex

	// Secrets maps secret resource names to secrets
	Secrets map[string]*secretmanagerpb.Secret
	// Versions maps version resource names to payload data
	Versions map[string][]byte
	// Errors maps resource names to errors to return
	Errors map[string]error

	Closed bool
}

// NewFakeGCPSecretManagerClient creates an empty fake client
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Secrets:  make(map[string]*secretmanagerpb.Secret),
		Versions: make(map[string][]byte),
		Errors:   make(map[string]error),
	}
}

// AddSecretString adds a secret with a latest version and no rotation policy
func (f *FakeGCPSecretManagerClient) AddSecretString(projectID, secretName, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := fmt.Sprintf("projects/%s/secrets/%s", projectID, secretName)
	f.Secrets[name] = &secretmanagerpb.Secret{Name: name}
	f.Versions[name+"/versions/latest"] = []byte(value)
}

// AddRotatingSecret adds a secret whose rotation policy reports nextRotation
func (f *FakeGCPSecretManagerClient) AddRotatingSecret(projectID, secretName, value string, nextRotation time.Time, period time.Duration) {
	f.AddSecretString(projectID, secretName, value)

	f.mu.Lock()
	defer f.mu.Unlock()
	name := fmt.Sprintf("projects/%s/secrets/%s", projectID, secretName)
	f.Secrets[name].Rotation = &secretmanagerpb.Rotation{
		NextRotationTime: timestamppb.New(nextRotation),
		RotationPeriod:   durationpb.New(period),
	}
}

// AddError configures the fake to return an error for a resource name
func (f *FakeGCPSecretManagerClient) AddError(resourceName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[resourceName] = err
}

// AccessSecretVersion implements the Secret Manager AccessSecretVersion call
func (f *FakeGCPSecretManagerClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[req.GetName()]; exists {
		return nil, err
	}
	data, exists := f.Versions[req.GetName()]
	if !exists {
		return nil, GCPNotFoundError(req.GetName())
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: data},
	}, nil
}

// GetSecret implements the Secret Manager GetSecret call
func (f *FakeGCPSecretManagerClient) GetSecret(_ context.Context, req *secretmanagerpb.GetSecretRequest, _ ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[req.GetName()]; exists {
		return nil, err
	}
	secret, exists := f.Secrets[req.GetName()]
	if !exists {
		return nil, GCPNotFoundError(req.GetName())
	}
	return secret, nil
}

// Close marks the client closed
func (f *FakeGCPSecretManagerClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// GCP error helpers

// GCPNotFoundError creates a GCP not found error
func GCPNotFoundError(resourceName string) error {
	return status.Errorf(codes.NotFound, "Secret [%s] not found or has no versions.", resourceName)
}

// GCPPermissionDeniedError creates a GCP permission denied error
func GCPPermissionDeniedError(message string) error {
	return status.Error(codes.PermissionDenied, message)
}

// GCPUnauthenticatedError creates a GCP unauthenticated error
func GCPUnauthenticatedError(message string) error {
	return status.Error(codes.Unauthenticated, message)
}
