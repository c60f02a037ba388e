package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// FakeSecretsManagerClient is an in-memory Secrets Manager client. It
// satisfies providers.SecretsManagerClientAPI.
type FakeSecretsManagerClient struct {
	mu sync.Mutex

	// Secrets maps secret names to their data
	Secrets map[string]*SecretData
	// Errors maps secret names to errors returned by every call
	Errors map[string]error
	// DescribeErrors maps secret names to errors returned by DescribeSecret only
	DescribeErrors map[string]error

	GetSecretValueCalls int
	DescribeSecretCalls int
	// LastGetInput is the most recent GetSecretValue input
	LastGetInput *secretsmanager.GetSecretValueInput
}

// SecretData holds the data for a fake secret
type SecretData struct {
	SecretString     *string
	SecretBinary     []byte
	VersionId        *string
	RotationEnabled  *bool
	RotationRules    *types.RotationRulesType
	NextRotationDate *time.Time
	LastRotatedDate  *time.Time
}

// NewFakeSecretsManagerClient creates an empty fake Secrets Manager client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets:        make(map[string]*SecretData),
		Errors:         make(map[string]error),
		DescribeErrors: make(map[string]error),
	}
}

// AddSecret adds a secret to the fake client
func (f *FakeSecretsManagerClient) AddSecret(name string, data *SecretData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[name] = data
}

// AddSecretString adds a text secret without rotation
func (f *FakeSecretsManagerClient) AddSecretString(name, value string) {
	f.AddSecret(name, &SecretData{
		SecretString: aws.String(value),
		VersionId:    aws.String("v1"),
	})
}

// AddSecretBinary adds a binary secret without rotation
func (f *FakeSecretsManagerClient) AddSecretBinary(name string, value []byte) {
	f.AddSecret(name, &SecretData{
		SecretBinary: value,
		VersionId:    aws.String("v1"),
	})
}

// AddRotatingSecret adds a text secret with rotation enabled
func (f *FakeSecretsManagerClient) AddRotatingSecret(name, value string, lastRotated, nextRotation time.Time) {
	f.AddSecret(name, &SecretData{
		SecretString:     aws.String(value),
		VersionId:        aws.String("v1"),
		RotationEnabled:  aws.Bool(true),
		LastRotatedDate:  &lastRotated,
		NextRotationDate: &nextRotation,
	})
}

// AddError configures the fake to fail every call for a secret
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetSecretValue implements the Secrets Manager GetSecretValue operation
func (f *FakeSecretsManagerClient) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.GetSecretValueCalls++
	f.LastGetInput = params
	secretName := aws.ToString(params.SecretId)

	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}
	data, exists := f.Secrets[secretName]
	if !exists {
		return nil, secretNotFound(secretName)
	}

	return &secretsmanager.GetSecretValueOutput{
		ARN:          aws.String(secretARN(secretName)),
		Name:         params.SecretId,
		SecretString: data.SecretString,
		SecretBinary: data.SecretBinary,
		VersionId:    data.VersionId,
	}, nil
}

// DescribeSecret implements the Secrets Manager DescribeSecret operation
func (f *FakeSecretsManagerClient) DescribeSecret(_ context.Context, params *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.DescribeSecretCalls++
	secretName := aws.ToString(params.SecretId)

	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}
	if err, exists := f.DescribeErrors[secretName]; exists {
		return nil, err
	}
	data, exists := f.Secrets[secretName]
	if !exists {
		return nil, secretNotFound(secretName)
	}

	return &secretsmanager.DescribeSecretOutput{
		ARN:              aws.String(secretARN(secretName)),
		Name:             params.SecretId,
		RotationEnabled:  data.RotationEnabled,
		RotationRules:    data.RotationRules,
		NextRotationDate: data.NextRotationDate,
		LastRotatedDate:  data.LastRotatedDate,
	}, nil
}

func secretARN(name string) string {
	return fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", name)
}

func secretNotFound(name string) error {
	return &types.ResourceNotFoundException{
		Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", name)),
	}
}

// AWSAPIError returns a generic API error with the given code, as
// the SDK reports service errors that have no modeled type.
func AWSAPIError(code string) error {
	return &smithy.GenericAPIError{
		Code:    code,
		Message: "User is not authorized to perform this operation",
		Fault:   smithy.FaultClient,
	}
}

// FakeSSMClient is an in-memory SSM Parameter Store client. It satisfies
// providers.SSMClientAPI.
type FakeSSMClient struct {
	mu sync.Mutex

	// Parameters maps parameter names to their values
	Parameters map[string]*ParameterData
	// Errors maps parameter names to errors to return
	Errors map[string]error

	// LastGetInput is the most recent GetParameter input
	LastGetInput *ssm.GetParameterInput
}

// ParameterData holds the data for a fake SSM parameter
type ParameterData struct {
	Type  ssmtypes.ParameterType
	Value *string
}

// NewFakeSSMClient creates an empty fake SSM client
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]*ParameterData),
		Errors:     make(map[string]error),
	}
}

// AddStringParameter adds a String parameter
func (f *FakeSSMClient) AddStringParameter(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Parameters[name] = &ParameterData{Type: ssmtypes.ParameterTypeString, Value: aws.String(value)}
}

// AddSecureStringParameter adds a SecureString parameter
func (f *FakeSSMClient) AddSecureStringParameter(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Parameters[name] = &ParameterData{Type: ssmtypes.ParameterTypeSecureString, Value: aws.String(value)}
}

// AddError configures the fake to return an error for a specific parameter
func (f *FakeSSMClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetParameter implements the SSM GetParameter operation
func (f *FakeSSMClient) GetParameter(_ context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.LastGetInput = params
	paramName := aws.ToString(params.Name)

	if err, exists := f.Errors[paramName]; exists {
		return nil, err
	}
	data, exists := f.Parameters[paramName]
	if !exists {
		return nil, &ssmtypes.ParameterNotFound{
			Message: aws.String(fmt.Sprintf("Parameter %s not found", paramName)),
		}
	}

	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:  aws.String(paramName),
			Type:  data.Type,
			Value: data.Value,
		},
	}, nil
}

// DescribeParameters implements the SSM DescribeParameters operation for
// Name filters.
func (f *FakeSSMClient) DescribeParameters(_ context.Context, params *ssm.DescribeParametersInput, _ ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := &ssm.DescribeParametersOutput{Parameters: []ssmtypes.ParameterMetadata{}}
	for _, filter := range params.ParameterFilters {
		if aws.ToString(filter.Key) != "Name" {
			continue
		}
		for _, name := range filter.Values {
			if err, exists := f.Errors[name]; exists {
				return nil, err
			}
			if data, exists := f.Parameters[name]; exists {
				out.Parameters = append(out.Parameters, ssmtypes.ParameterMetadata{
					Name: aws.String(name),
					Type: data.Type,
				})
			}
		}
	}
	return out, nil
}

// FakeSTSClient answers GetCallerIdentity. It satisfies providers.STSClientAPI.
type FakeSTSClient struct {
	Arn string
	Err error
}

// GetCallerIdentity implements the STS GetCallerIdentity operation
func (f *FakeSTSClient) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	out := &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}
	if f.Arn != "" {
		out.Arn = aws.String(f.Arn)
	}
	return out, nil
}
