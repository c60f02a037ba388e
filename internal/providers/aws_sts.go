package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	dserrors "github.com/systmms/secretcache/internal/errors"
)

// STSClientAPI is the subset of STS used to validate AWS credentials.
type STSClientAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

func newSTSClient(cfg aws.Config, endpoint string) *sts.Client {
	return sts.NewFromConfig(cfg, func(o *sts.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// validateAWSIdentity confirms the resolved credentials are accepted by AWS.
func validateAWSIdentity(ctx context.Context, client STSClientAPI, providerType string) error {
	if client == nil {
		return nil
	}

	result, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return dserrors.UserError{
			Message:    fmt.Sprintf("AWS credentials for %s could not be validated", providerType),
			Details:    awsRemoteError(err).Error(),
			Suggestion: getSTSErrorSuggestion(err),
			Err:        err,
		}
	}
	if result.Arn == nil {
		return fmt.Errorf("AWS returned an empty caller identity")
	}
	return nil
}

func getSTSErrorSuggestion(err error) string {
	code := awsRemoteError(err).Code
	errStr := err.Error()

	switch {
	case code == "ExpiredToken" || strings.Contains(errStr, "ExpiredToken"):
		return "Your session has expired. Refresh credentials with 'aws sso login' or re-export them"
	case code == "AccessDenied" || strings.Contains(errStr, "is not authorized to perform: sts:AssumeRole"):
		return "Check the assume_role ARN and that its trust policy allows your principal"
	case strings.Contains(errStr, "no EC2 IMDS role found"), strings.Contains(errStr, "failed to retrieve credentials"):
		return "No AWS credentials found. Configure a profile, environment variables, or an instance role"
	default:
		return "Run 'aws sts get-caller-identity' to check your AWS credentials"
	}
}
