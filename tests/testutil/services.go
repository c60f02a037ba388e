package testutil

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Environment variables naming externally started test services. The
// integration tests skip when they are unset, e.g. on developer machines
// without docker compose running.
const (
	EnvLocalStackEndpoint = "SECRETCACHE_TEST_LOCALSTACK_ENDPOINT"
	EnvRedisAddr          = "SECRETCACHE_TEST_REDIS_ADDR"
)

// ServiceEnv describes the services available to integration tests.
type ServiceEnv struct {
	t                  *testing.T
	localStackEndpoint string
	redisAddr          string
}

// RequireServices skips the test in short mode or when any of the named
// services ("localstack", "redis") is not configured.
func RequireServices(t *testing.T, services ...string) *ServiceEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := &ServiceEnv{
		t:                  t,
		localStackEndpoint: os.Getenv(EnvLocalStackEndpoint),
		redisAddr:          os.Getenv(EnvRedisAddr),
	}

	for _, service := range services {
		switch service {
		case "localstack":
			if env.localStackEndpoint == "" {
				t.Skipf("%s not set, skipping integration test", EnvLocalStackEndpoint)
			}
		case "redis":
			if env.redisAddr == "" {
				t.Skipf("%s not set, skipping integration test", EnvRedisAddr)
			}
		default:
			t.Fatalf("unknown test service: %s", service)
		}
	}
	return env
}

// LocalStackConfig returns remote options for the aws-secretsmanager adapter.
// LocalStack accepts any static credentials.
func (e *ServiceEnv) LocalStackConfig() map[string]interface{} {
	return map[string]interface{}{
		"region":            "us-east-1",
		"endpoint":          e.localStackEndpoint,
		"access_key_id":     "test",
		"secret_access_key": "test",
	}
}

// RedisConfig returns backend options for the redis backend.
func (e *ServiceEnv) RedisConfig(prefix string) map[string]interface{} {
	return map[string]interface{}{
		"addr":       e.redisAddr,
		"key_prefix": prefix,
	}
}

// SecretsManager returns a client for seeding LocalStack.
func (e *ServiceEnv) SecretsManager() *LocalStackClient {
	e.t.Helper()

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		e.t.Fatalf("Failed to load AWS config: %v", err)
	}

	endpoint := e.localStackEndpoint
	return &LocalStackClient{
		t: e.t,
		client: secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		}),
	}
}

// LocalStackClient seeds and removes Secrets Manager secrets.
type LocalStackClient struct {
	t      *testing.T
	client *secretsmanager.Client
}

// CreateSecret stores data as a JSON secret and deletes it when the test ends.
func (c *LocalStackClient) CreateSecret(name string, data map[string]interface{}) {
	c.t.Helper()

	body, err := json.Marshal(data)
	if err != nil {
		c.t.Fatalf("Failed to encode secret %s: %v", name, err)
	}
	c.CreateSecretString(name, string(body))
}

// CreateSecretString stores a raw secret string and deletes it when the test
// ends.
func (c *LocalStackClient) CreateSecretString(name, value string) {
	c.t.Helper()

	ctx := context.Background()
	_, err := c.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(value),
	})
	if err != nil {
		c.t.Fatalf("Failed to create secret %s: %v", name, err)
	}

	c.t.Cleanup(func() {
		_, _ = c.client.DeleteSecret(context.Background(), &secretsmanager.DeleteSecretInput{
			SecretId:                   aws.String(name),
			ForceDeleteWithoutRecovery: aws.Bool(true),
		})
	})
}

// UpdateSecret replaces the current value of an existing secret.
func (c *LocalStackClient) UpdateSecret(name string, data map[string]interface{}) {
	c.t.Helper()

	body, err := json.Marshal(data)
	if err != nil {
		c.t.Fatalf("Failed to encode secret %s: %v", name, err)
	}
	_, err = c.client.PutSecretValue(context.Background(), &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(string(body)),
	})
	if err != nil {
		c.t.Fatalf("Failed to update secret %s: %v", name, err)
	}
}
