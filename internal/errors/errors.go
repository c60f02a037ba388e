package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ProviderError enhances provider-specific errors with context
func ProviderError(provider string, operation string, err error) error {
	// Check for common provider errors and add helpful context
	suggestion := getProviderSuggestion(provider, err)

	return UserError{
		Message:    fmt.Sprintf("%s provider error during %s", provider, operation),
		Suggestion: suggestion,
		Err:        err,
	}
}

// getProviderSuggestion returns helpful suggestions based on provider and error
func getProviderSuggestion(provider string, err error) string {
	errStr := err.Error()

	switch provider {
	case "aws-secretsmanager":
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for secretsmanager:GetSecretValue and secretsmanager:DescribeSecret"
		}
		if strings.Contains(errStr, "ResourceNotFoundException") {
			return "Verify the secret name and region. List secrets with: 'aws secretsmanager list-secrets'"
		}
		if strings.Contains(errStr, "ThrottlingException") {
			return "AWS rate limit exceeded. Lower the request rate or raise cache.ttl_seconds"
		}
		if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}

	case "aws-ssm":
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for ssm:GetParameter, ssm:DescribeParameters and kms:Decrypt"
		}
		if strings.Contains(errStr, "ParameterNotFound") {
			return "Verify the parameter name, parameter_prefix and region"
		}
		if strings.Contains(errStr, "credentials") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}

	case "gcp-secretmanager":
		if strings.Contains(errStr, "PermissionDenied") {
			return "Check IAM permissions: secretmanager.secrets.get, secretmanager.versions.access"
		}
		if strings.Contains(errStr, "NotFound") {
			return "Verify the secret name and project ID. Check that the secret exists"
		}
		if strings.Contains(errStr, "Unauthenticated") || strings.Contains(errStr, "credentials") {
			return "Set GOOGLE_APPLICATION_CREDENTIALS or run 'gcloud auth application-default login'"
		}

	case "redis":
		if strings.Contains(errStr, "NOAUTH") || strings.Contains(errStr, "WRONGPASS") {
			return "Set backend.password_env to the variable holding the Redis password"
		}

	case "postgres", "mysql":
		if strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "doesn't exist") {
			return "Create the cache table or set backend.create_table: true"
		}
		if strings.Contains(errStr, "authentication failed") || strings.Contains(errStr, "Access denied") {
			return "Check the user and password in backend.dsn_env"
		}

	case "file":
		if strings.Contains(errStr, "permission denied") {
			return "Make backend.dir writable by the current user, or point it at another directory"
		}

	case "keyring":
		if strings.Contains(errStr, "not found") {
			return "Run 'secretcache keygen --keyring' to create a key in the OS keyring"
		}
		return "Check that an OS keyring (Keychain, Secret Service, Credential Manager) is available"
	}

	// Generic suggestions
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and provider configuration"
	}

	return ""
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Already a user-friendly error
	if _, ok := err.(UserError); ok {
		return err
	}
	if _, ok := err.(ConfigError); ok {
		return err
	}

	// Simplify common technical errors
	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "json:") {
		return ConfigError{
			Message:    "Invalid JSON format",
			Suggestion: "Validate your JSON at https://jsonlint.com/",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}