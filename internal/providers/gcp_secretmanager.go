package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	dserrors "github.com/systmms/secretcache/internal/errors"
	"github.com/systmms/secretcache/pkg/secretcache"
)

// TypeGCPSecretManager is the remote.type value for Google Secret Manager.
const TypeGCPSecretManager = "gcp-secretmanager"

// validationProbeSecret is looked up by Validate. A NotFound answer proves
// the credentials were accepted.
const validationProbeSecret = "secretcache-validation-probe"

// GCPSecretManagerClientAPI is the subset of the Secret Manager client the
// adapter uses. *secretmanager.Client satisfies it.
type GCPSecretManagerClientAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	Close() error
}

// GCPSecretManagerProvider reads secrets and rotation schedules from Google
// Cloud Secret Manager.
type GCPSecretManagerProvider struct {
	client GCPSecretManagerClientAPI
	config GCPSecretManagerConfig
}

// GCPSecretManagerConfig holds GCP Secret Manager-specific configuration
type GCPSecretManagerConfig struct {
	ProjectID             string
	ServiceAccountKeyPath string
	ImpersonateAccount    string
	Location              string // "global" or a region for regional secrets
	Version               string
}

// GCPProviderOption is a functional option for the GCP adapter.
type GCPProviderOption func(*GCPSecretManagerProvider)

// WithGCPClient sets a custom Secret Manager client (for testing)
func WithGCPClient(client GCPSecretManagerClientAPI) GCPProviderOption {
	return func(p *GCPSecretManagerProvider) {
		p.client = client
	}
}

// NewGCPSecretManagerProvider creates a new GCP Secret Manager provider.
// Recognized options: project_id, service_account_key_path,
// impersonate_service_account, location, version.
func NewGCPSecretManagerProvider(configMap map[string]interface{}, opts ...GCPProviderOption) (*GCPSecretManagerProvider, error) {
	config := GCPSecretManagerConfig{
		ProjectID:             stringOption(configMap, "project_id"),
		ServiceAccountKeyPath: stringOption(configMap, "service_account_key_path"),
		ImpersonateAccount:    stringOption(configMap, "impersonate_service_account"),
		Location:              stringOption(configMap, "location"),
		Version:               stringOption(configMap, "version"),
	}
	if config.Location == "" {
		config.Location = "global"
	}
	if config.Version == "" {
		config.Version = "latest"
	}

	if config.ProjectID == "" {
		config.ProjectID = getGCPProjectID()
		if config.ProjectID == "" {
			return nil, dserrors.ConfigError{
				Field:      "remote.project_id",
				Message:    "project_id is required for GCP Secret Manager",
				Suggestion: "Set project_id in config or GOOGLE_CLOUD_PROJECT environment variable",
			}
		}
	}

	p := &GCPSecretManagerProvider{config: config}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeoutOption(configMap))
		defer cancel()

		client, err := createGCPSecretManagerClient(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		p.client = client
	}

	return p, nil
}

// NewGCPSecretManagerProviderFactory adapts NewGCPSecretManagerProvider to
// the registry.
func NewGCPSecretManagerProviderFactory(config map[string]interface{}) (RemoteStore, error) {
	return NewGCPSecretManagerProvider(config)
}

func createGCPSecretManagerClient(ctx context.Context, config GCPSecretManagerConfig) (*secretmanager.Client, error) {
	var clientOptions []option.ClientOption

	if config.ServiceAccountKeyPath != "" {
		keyPath := config.ServiceAccountKeyPath
		if strings.HasPrefix(keyPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			keyPath = filepath.Join(home, keyPath[2:])
		}
		clientOptions = append(clientOptions, option.WithCredentialsFile(keyPath))
	}

	if config.ImpersonateAccount != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: config.ImpersonateAccount,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create impersonated credentials: %w", err)
		}
		clientOptions = append(clientOptions, option.WithTokenSource(ts))
	}

	if config.Location != "global" {
		clientOptions = append(clientOptions,
			option.WithEndpoint(fmt.Sprintf("secretmanager.%s.rep.googleapis.com:443", config.Location)))
	}

	return secretmanager.NewClient(ctx, clientOptions...)
}

// getGCPProjectID attempts to get the GCP project ID from the environment
func getGCPProjectID() string {
	for _, name := range []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "GCP_PROJECT"} {
		if projectID := os.Getenv(name); projectID != "" {
			return projectID
		}
	}
	return ""
}

// Name returns the provider type
func (p *GCPSecretManagerProvider) Name() string {
	return TypeGCPSecretManager
}

// secretResourceName builds the resource name of a secret. Identifiers that
// are already resource names are used as-is.
func (p *GCPSecretManagerProvider) secretResourceName(id string) string {
	if strings.HasPrefix(id, "projects/") {
		if i := strings.Index(id, "/versions/"); i != -1 {
			return id[:i]
		}
		return id
	}
	if p.config.Location != "global" {
		return fmt.Sprintf("projects/%s/locations/%s/secrets/%s", p.config.ProjectID, p.config.Location, id)
	}
	return fmt.Sprintf("projects/%s/secrets/%s", p.config.ProjectID, id)
}

func (p *GCPSecretManagerProvider) versionResourceName(id string) string {
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/versions/") {
		return id
	}
	return p.secretResourceName(id) + "/versions/" + p.config.Version
}

// FetchSecretValue accesses the configured version (latest by default).
func (p *GCPSecretManagerProvider) FetchSecretValue(ctx context.Context, id string) (secretcache.RemoteSecret, error) {
	result, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: p.versionResourceName(id),
	})
	if err != nil {
		return secretcache.RemoteSecret{}, gcpRemoteError(err)
	}

	if result.GetPayload() == nil || result.GetPayload().GetData() == nil {
		return secretcache.RemoteSecret{}, nil
	}
	return secretcache.RemoteSecret{Payload: result.GetPayload().GetData(), Found: true}, nil
}

// DescribeSecret reads the secret's rotation policy. A secret with a
// rotation period or next rotation time is reported as rotating.
func (p *GCPSecretManagerProvider) DescribeSecret(ctx context.Context, id string) (secretcache.RemoteDescription, error) {
	result, err := p.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{
		Name: p.secretResourceName(id),
	})
	if err != nil {
		return secretcache.RemoteDescription{}, gcpRemoteError(err)
	}

	rotation := result.GetRotation()
	if rotation == nil {
		return secretcache.RemoteDescription{}, nil
	}

	desc := secretcache.RemoteDescription{
		RotationEnabled: rotation.GetRotationPeriod() != nil || rotation.GetNextRotationTime() != nil,
	}
	if ts := rotation.GetNextRotationTime(); ts != nil {
		next := ts.AsTime().UTC()
		desc.NextRotation = &next
	}
	return desc, nil
}

// Validate checks that credentials are accepted by probing for a secret
// that normally does not exist.
func (p *GCPSecretManagerProvider) Validate(ctx context.Context) error {
	_, err := p.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{
		Name: p.secretResourceName(validationProbeSecret),
	})
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return dserrors.UserError{
		Message:    "Failed to connect to GCP Secret Manager",
		Details:    gcpRemoteError(err).Error(),
		Suggestion: getGCPErrorSuggestion(err),
		Err:        err,
	}
}

// Close releases the underlying gRPC connection.
func (p *GCPSecretManagerProvider) Close() error {
	return p.client.Close()
}

// getGCPErrorSuggestion provides helpful suggestions based on GCP errors
func getGCPErrorSuggestion(err error) string {
	switch status.Code(err) {
	case codes.PermissionDenied:
		return "Check IAM permissions: secretmanager.secrets.get, secretmanager.versions.access"
	case codes.Unauthenticated:
		return "Check authentication: set GOOGLE_APPLICATION_CREDENTIALS or run 'gcloud auth application-default login'"
	case codes.InvalidArgument:
		return "Check the project_id and location settings"
	case codes.ResourceExhausted:
		return "Request was throttled. Try again shortly"
	case codes.Unavailable, codes.DeadlineExceeded:
		return "Check network connectivity to secretmanager.googleapis.com"
	default:
		return "Run 'gcloud secrets list' to check access to the project"
	}
}
