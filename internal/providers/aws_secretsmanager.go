package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/systmms/secretcache/pkg/secretcache"
)

// TypeAWSSecretsManager is the remote.type value for AWS Secrets Manager.
const TypeAWSSecretsManager = "aws-secretsmanager"

// SecretsManagerClientAPI defines the Secrets Manager operations the adapter
// uses. This allows for mocking in tests.
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
}

// AWSSecretsManagerProvider reads secrets and rotation schedules from AWS
// Secrets Manager.
type AWSSecretsManagerProvider struct {
	client       SecretsManagerClientAPI
	identity     STSClientAPI
	settings     awsSettings
	versionStage string
}

// ProviderOption is a functional option for configuring the Secrets Manager
// adapter.
type ProviderOption func(*AWSSecretsManagerProvider)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) ProviderOption {
	return func(p *AWSSecretsManagerProvider) {
		p.client = client
	}
}

// WithSecretsManagerIdentityClient sets the STS client used by Validate.
func WithSecretsManagerIdentityClient(client STSClientAPI) ProviderOption {
	return func(p *AWSSecretsManagerProvider) {
		p.identity = client
	}
}

// NewAWSSecretsManagerProvider creates a Secrets Manager adapter. Options
// recognized in providerConfig: region, profile, endpoint, access_key_id,
// secret_access_key, session_token, assume_role, external_id,
// role_session_name, version_stage.
func NewAWSSecretsManagerProvider(providerConfig map[string]interface{}, opts ...ProviderOption) (*AWSSecretsManagerProvider, error) {
	p := &AWSSecretsManagerProvider{
		settings:     parseAWSSettings(providerConfig),
		versionStage: stringOption(providerConfig, "version_stage"),
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeoutOption(providerConfig))
		defer cancel()

		cfg, err := loadAWSConfig(ctx, p.settings)
		if err != nil {
			return nil, err
		}

		var clientOpts []func(*secretsmanager.Options)
		if p.settings.Endpoint != "" {
			endpoint := p.settings.Endpoint
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
		if p.identity == nil {
			p.identity = newSTSClient(cfg, p.settings.Endpoint)
		}
	}

	return p, nil
}

// NewAWSSecretsManagerProviderFactory adapts NewAWSSecretsManagerProvider to
// the registry.
func NewAWSSecretsManagerProviderFactory(config map[string]interface{}) (RemoteStore, error) {
	return NewAWSSecretsManagerProvider(config)
}

// Name returns the provider type
func (p *AWSSecretsManagerProvider) Name() string {
	return TypeAWSSecretsManager
}

// FetchSecretValue retrieves the current version of a secret. Text secrets
// are returned as-is; binary secrets are returned as their raw bytes.
func (p *AWSSecretsManagerProvider) FetchSecretValue(ctx context.Context, id string) (secretcache.RemoteSecret, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	}
	if p.versionStage != "" {
		input.VersionStage = aws.String(p.versionStage)
	}

	result, err := p.client.GetSecretValue(ctx, input)
	if err != nil {
		return secretcache.RemoteSecret{}, awsRemoteError(err)
	}

	switch {
	case result.SecretString != nil:
		return secretcache.RemoteSecret{Payload: []byte(*result.SecretString), Found: true}, nil
	case result.SecretBinary != nil:
		return secretcache.RemoteSecret{Payload: result.SecretBinary, Found: true}, nil
	default:
		return secretcache.RemoteSecret{}, nil
	}
}

// DescribeSecret returns the rotation schedule of a secret.
func (p *AWSSecretsManagerProvider) DescribeSecret(ctx context.Context, id string) (secretcache.RemoteDescription, error) {
	result, err := p.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return secretcache.RemoteDescription{}, awsRemoteError(err)
	}
	return describeRotation(result), nil
}

// Validate checks that AWS credentials are configured and accepted
func (p *AWSSecretsManagerProvider) Validate(ctx context.Context) error {
	return validateAWSIdentity(ctx, p.identity, TypeAWSSecretsManager)
}

// describeRotation maps a DescribeSecret result to a rotation schedule. When
// AWS omits NextRotationDate for a rotating secret, it is derived from the
// last rotation and the rotation interval.
func describeRotation(result *secretsmanager.DescribeSecretOutput) secretcache.RemoteDescription {
	desc := secretcache.RemoteDescription{
		RotationEnabled: aws.ToBool(result.RotationEnabled),
		LastRotated:     copyTime(result.LastRotatedDate),
		NextRotation:    copyTime(result.NextRotationDate),
	}

	if desc.NextRotation == nil && desc.RotationEnabled && desc.LastRotated != nil &&
		result.RotationRules != nil && result.RotationRules.AutomaticallyAfterDays != nil {
		days := int(*result.RotationRules.AutomaticallyAfterDays)
		if days > 0 {
			next := desc.LastRotated.AddDate(0, 0, days)
			desc.NextRotation = &next
		}
	}
	return desc
}

func copyTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

// String implements fmt.Stringer for diagnostics.
func (p *AWSSecretsManagerProvider) String() string {
	return fmt.Sprintf("%s(region=%s)", TypeAWSSecretsManager, p.settings.Region)
}
