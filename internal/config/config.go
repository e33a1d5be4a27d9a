package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Config holds all configuration for the labstack server.
// Loaded once at process start and treated as immutable afterwards.
type Config struct {
	Port     int
	LogLevel string

	// AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Lab VM provisioning
	AMI             string // machine image with docker preinstalled
	InstanceType    string // fixed instance size for all labs
	SubnetID        string // public subnet
	SecurityGroupID string
	KeyName         string // optional ssh key pair

	// Lab defaults
	DefaultTTLMinutes int
	TemplatesFile     string // overrides the embedded template definitions

	// Record store selection: Postgres when DatabaseURL is set, else Redis
	// when RedisURL is set, else SQLite under DataDir.
	DatabaseURL string
	RedisURL    string
	DataDir     string

	// NATS lifecycle events (disabled when empty)
	NATSURL string

	// Background reconciliation sweep; 0 disables it and status is only
	// refreshed on demand.
	SweepInterval time.Duration

	// AWS Secrets Manager — if set, secrets are fetched at startup using IAM
	// credentials. The secret should be a JSON object with keys matching env
	// var names. Env vars take precedence over secret values.
	SecretsARN string
}

// Load reads configuration from environment variables with sensible defaults.
// If LABSTACK_SECRETS_ARN is set, secrets are fetched from AWS Secrets Manager
// first, then environment variables are applied on top (env vars take precedence).
func Load() (*Config, error) {
	if arn := os.Getenv("LABSTACK_SECRETS_ARN"); arn != "" {
		if err := loadSecretsManager(arn); err != nil {
			return nil, fmt.Errorf("failed to load secrets from %s: %w", arn, err)
		}
	}

	cfg := &Config{
		Port:     8080,
		LogLevel: envOrDefault("LABSTACK_LOG_LEVEL", "info"),

		Region:          envOrDefault("LABSTACK_REGION", envOrDefault("AWS_REGION", "ap-south-1")),
		AccessKeyID:     os.Getenv("LABSTACK_AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("LABSTACK_AWS_SECRET_ACCESS_KEY"),

		AMI:             os.Getenv("LABSTACK_AMI"),
		InstanceType:    envOrDefault("LABSTACK_INSTANCE_TYPE", "t2.micro"),
		SubnetID:        os.Getenv("LABSTACK_SUBNET_ID"),
		SecurityGroupID: os.Getenv("LABSTACK_SECURITY_GROUP_ID"),
		KeyName:         os.Getenv("LABSTACK_KEY_NAME"),

		DefaultTTLMinutes: envOrDefaultInt("LABSTACK_DEFAULT_TTL_MINUTES", 30),
		TemplatesFile:     os.Getenv("LABSTACK_TEMPLATES_FILE"),

		DatabaseURL: envOrDefault("LABSTACK_DATABASE_URL", os.Getenv("DATABASE_URL")),
		RedisURL:    os.Getenv("LABSTACK_REDIS_URL"),
		DataDir:     envOrDefault("LABSTACK_DATA_DIR", "/data/labstack"),

		NATSURL: os.Getenv("LABSTACK_NATS_URL"),

		SweepInterval: time.Duration(envOrDefaultInt("LABSTACK_SWEEP_INTERVAL_SEC", 0)) * time.Second,

		SecretsARN: os.Getenv("LABSTACK_SECRETS_ARN"),
	}

	if portStr := os.Getenv("LABSTACK_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid LABSTACK_PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if cfg.DefaultTTLMinutes < 0 {
		return nil, fmt.Errorf("invalid LABSTACK_DEFAULT_TTL_MINUTES %d: must not be negative", cfg.DefaultTTLMinutes)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// loadSecretsManager fetches a JSON secret from AWS Secrets Manager and sets
// any values as environment variables (only if not already set, so explicit
// env vars always win). Uses the default AWS credential chain (IAM instance
// profile on EC2, or ~/.aws/credentials locally).
func loadSecretsManager(arn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Extract region from ARN: arn:aws:secretsmanager:REGION:ACCOUNT:secret:NAME
	var opts []func(*awsconfig.LoadOptions) error
	if parts := strings.Split(arn, ":"); len(parts) >= 4 && parts[3] != "" {
		opts = append(opts, awsconfig.WithRegion(parts[3]))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &arn,
	})
	if err != nil {
		return fmt.Errorf("GetSecretValue: %w", err)
	}

	if result.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", arn)
	}

	var secrets map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &secrets); err != nil {
		return fmt.Errorf("parse secret JSON: %w", err)
	}

	applied := 0
	for key, value := range secrets {
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
			applied++
		}
	}

	log.Printf("config: loaded %d secrets from Secrets Manager (%d keys in secret, env overrides take precedence)", applied, len(secrets))
	return nil
}
