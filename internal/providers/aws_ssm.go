package providers

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/secretcache/pkg/secretcache"
)

// TypeAWSSSM is the remote.type value for SSM Parameter Store.
const TypeAWSSSM = "aws-ssm"

// SSMClientAPI defines the interface for AWS SSM Parameter Store operations
// This allows for mocking in tests
type SSMClientAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error)
}

// AWSSSMProvider reads parameters from AWS Systems Manager Parameter Store.
// Parameter Store has no rotation schedule, so every parameter is reported
// as not rotating and cached with the default TTL.
type AWSSSMProvider struct {
	client   SSMClientAPI
	identity STSClientAPI
	config   SSMConfig
}

// SSMConfig holds AWS SSM-specific configuration
type SSMConfig struct {
	WithDecryption  bool
	ParameterPrefix string
}

// SSMProviderOption is a functional option for configuring SSM providers
type SSMProviderOption func(*AWSSSMProvider)

// WithSSMClient sets a custom SSM client (for testing)
func WithSSMClient(client SSMClientAPI) SSMProviderOption {
	return func(p *AWSSSMProvider) {
		p.client = client
	}
}

// WithSSMIdentityClient sets the STS client used by Validate.
func WithSSMIdentityClient(client STSClientAPI) SSMProviderOption {
	return func(p *AWSSSMProvider) {
		p.identity = client
	}
}

// NewAWSSSMProvider creates a new AWS SSM Parameter Store provider. Besides
// the shared AWS options it recognizes with_decryption (default true) and
// parameter_prefix.
func NewAWSSSMProvider(configMap map[string]interface{}, opts ...SSMProviderOption) (*AWSSSMProvider, error) {
	p := &AWSSSMProvider{
		config: SSMConfig{
			// Default to decrypting SecureString parameters
			WithDecryption:  boolOption(configMap, "with_decryption", true),
			ParameterPrefix: stringOption(configMap, "parameter_prefix"),
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		settings := parseAWSSettings(configMap)

		ctx, cancel := context.WithTimeout(context.Background(), timeoutOption(configMap))
		defer cancel()

		cfg, err := loadAWSConfig(ctx, settings)
		if err != nil {
			return nil, err
		}
		p.client = ssm.NewFromConfig(cfg, func(o *ssm.Options) {
			if settings.Endpoint != "" {
				o.BaseEndpoint = aws.String(settings.Endpoint)
			}
		})
		if p.identity == nil {
			p.identity = newSTSClient(cfg, settings.Endpoint)
		}
	}

	return p, nil
}

// NewAWSSSMProviderFactory adapts NewAWSSSMProvider to the registry.
func NewAWSSSMProviderFactory(config map[string]interface{}) (RemoteStore, error) {
	return NewAWSSSMProvider(config)
}

// Name returns the provider type
func (p *AWSSSMProvider) Name() string {
	return TypeAWSSSM
}

func (p *AWSSSMProvider) parameterName(id string) string {
	return p.config.ParameterPrefix + id
}

// FetchSecretValue fetches a parameter value.
func (p *AWSSSMProvider) FetchSecretValue(ctx context.Context, id string) (secretcache.RemoteSecret, error) {
	result, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(p.parameterName(id)),
		WithDecryption: aws.Bool(p.config.WithDecryption),
	})
	if err != nil {
		return secretcache.RemoteSecret{}, awsRemoteError(err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return secretcache.RemoteSecret{}, nil
	}
	return secretcache.RemoteSecret{Payload: []byte(*result.Parameter.Value), Found: true}, nil
}

// DescribeSecret confirms the parameter exists. Parameter Store never
// reports a rotation schedule.
func (p *AWSSSMProvider) DescribeSecret(ctx context.Context, id string) (secretcache.RemoteDescription, error) {
	name := p.parameterName(id)
	result, err := p.client.DescribeParameters(ctx, &ssm.DescribeParametersInput{
		ParameterFilters: []types.ParameterStringFilter{
			{
				Key:    aws.String("Name"),
				Option: aws.String("Equals"),
				Values: []string{name},
			},
		},
	})
	if err != nil {
		return secretcache.RemoteDescription{}, awsRemoteError(err)
	}
	if len(result.Parameters) == 0 {
		return secretcache.RemoteDescription{}, &secretcache.RemoteError{
			Code:    "ParameterNotFound",
			Message: "parameter " + name + " does not exist",
		}
	}

	return secretcache.RemoteDescription{RotationEnabled: false}, nil
}

// Validate checks that AWS credentials are configured and accepted
func (p *AWSSSMProvider) Validate(ctx context.Context) error {
	return validateAWSIdentity(ctx, p.identity, TypeAWSSSM)
}
