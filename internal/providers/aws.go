package providers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const defaultAWSRegion = "us-east-1"

// awsSettings holds the connection options shared by the AWS adapters.
type awsSettings struct {
	Region          string
	Profile         string
	Endpoint        string // LocalStack or VPC endpoint
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	AssumeRole      string
	ExternalID      string
	RoleSessionName string
}

func parseAWSSettings(config map[string]interface{}) awsSettings {
	s := awsSettings{
		Region:          stringOption(config, "region"),
		Profile:         stringOption(config, "profile"),
		Endpoint:        stringOption(config, "endpoint"),
		AccessKeyID:     stringOption(config, "access_key_id"),
		SecretAccessKey: stringOption(config, "secret_access_key"),
		SessionToken:    stringOption(config, "session_token"),
		AssumeRole:      stringOption(config, "assume_role"),
		ExternalID:      stringOption(config, "external_id"),
		RoleSessionName: stringOption(config, "role_session_name"),
	}
	if s.Region == "" {
		s.Region = defaultAWSRegion
	}
	if s.RoleSessionName == "" {
		s.RoleSessionName = "secretcache"
	}
	return s
}

// loadAWSConfig resolves credentials the way the AWS CLI does, then layers
// static credentials and role assumption on top when configured.
func loadAWSConfig(ctx context.Context, s awsSettings) (aws.Config, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	configOpts = append(configOpts, awsconfig.WithRegion(s.Region))

	if s.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(s.Profile))
	}

	// Static credentials are meant for LocalStack and tests
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, s.SessionToken),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if s.AssumeRole != "" {
		stsClient := sts.NewFromConfig(cfg, func(o *sts.Options) {
			if s.Endpoint != "" {
				o.BaseEndpoint = aws.String(s.Endpoint)
			}
		})
		roleProvider := stscreds.NewAssumeRoleProvider(stsClient, s.AssumeRole, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = s.RoleSessionName
			if s.ExternalID != "" {
				o.ExternalID = aws.String(s.ExternalID)
			}
		})
		cfg.Credentials = aws.NewCredentialsCache(roleProvider)
	}

	return cfg, nil
}
