package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
)

const (
	SecretsEnv = "env"
	SecretsSSM = "ssm"
)

// ErrSecretNotFound is returned when a store has no value for the requested key.
var ErrSecretNotFound = errors.New("secret not found")

// SecretsConfig selects where secrets such as the database password come from.
type SecretsConfig struct {
	Provider string        `mapstructure:"provider"`  // "env" or "ssm"
	Prefix   string        `mapstructure:"prefix"`    // parameter name prefix for ssm, e.g. "/algosync/"
	EnvFiles []string      `mapstructure:"env_files"` // dotenv files read by the env provider
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SecretStore resolves named secrets.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// NewSecretStore builds the store selected by cfg.Provider.
func NewSecretStore(ctx context.Context, cfg SecretsConfig) (SecretStore, error) {
	switch cfg.Provider {
	case SecretsSSM:
		return NewSSMStore(ctx, cfg.Prefix, cfg.Timeout)
	case SecretsEnv, "":
		return NewEnvStore(cfg.EnvFiles...)
	default:
		return nil, fmt.Errorf("unknown secrets provider: %s", cfg.Provider)
	}
}

// EnvStore reads secrets from the process environment, falling back to dotenv files.
type EnvStore struct {
	values map[string]string
}

func NewEnvStore(files ...string) (*EnvStore, error) {
	values := map[string]string{}
	if len(files) > 0 {
		read, err := godotenv.Read(files...)
		if err != nil {
			return nil, fmt.Errorf("read env files: %w", err)
		}
		values = read
	}
	return &EnvStore{values: values}, nil
}

// Get looks the key up as given and upper-cased (db_pass, then DB_PASS).
func (s *EnvStore) Get(_ context.Context, key string) (string, error) {
	for _, k := range []string{key, strings.ToUpper(key)} {
		if v, ok := os.LookupEnv(k); ok {
			return v, nil
		}
		if v, ok := s.values[k]; ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
}

// SSMStore reads decrypted values from AWS Systems Manager Parameter Store.
type SSMStore struct {
	client  *ssm.Client
	prefix  string
	timeout time.Duration
}

func NewSSMStore(ctx context.Context, prefix string, timeout time.Duration) (*SSMStore, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SSMStore{
		client:  ssm.NewFromConfig(cfg),
		prefix:  prefix,
		timeout: timeout,
	}, nil
}

func (s *SSMStore) Get(ctx context.Context, key string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	name := s.prefix + key
	decrypt := true
	result, err := s.client.GetParameter(ctxWithTimeout, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}

	return *result.Parameter.Value, nil
}
