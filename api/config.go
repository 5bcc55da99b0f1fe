// Package api implements the signed-request engine for the Mopinion Data API.
//
// It exchanges an account's key pair for a session signing key once per
// client, signs every call with HMAC-SHA256, restricts calls to the fixed
// endpoint grammar and walks paginated collections one page at a time.
package api

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/mopinion/mopinion-go/types"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.mopinion.com"

// DefaultRegion is the AWS region used for SSM lookups when none is set.
const DefaultRegion = "eu-west-1"

// Config holds configuration for a Client.
//
// Example configuration (HCL):
//
//	base_url    = "https://api.mopinion.com"
//	public_key  = "..."
//	ssm_prefix  = "/mopinion/production"
//	version     = "2.0.0"
//	verbosity   = "full"
//	timeout     = "30s"
//	max_retries = 3
type Config struct {
	// BaseURL is the API endpoint.
	// Default: DefaultBaseURL
	BaseURL string `hcl:"base_url,optional"`

	// PublicKey and PrivateKey are the account's API key pair.
	PublicKey  string `hcl:"public_key,optional"`
	PrivateKey string `hcl:"private_key,optional"`

	// SSMPrefix, when set and a key is missing, names the Parameter Store
	// path holding public_key and private_key.
	SSMPrefix string `hcl:"ssm_prefix,optional"`

	// AWSRegion is used for the SSM lookup.
	// Default: DefaultRegion
	AWSRegion string `hcl:"aws_region,optional"`

	// Version, Verbosity and ContentNegotiation are the client-wide defaults
	// for request arguments a call leaves empty.
	Version            string `hcl:"version,optional"`
	Verbosity          string `hcl:"verbosity,optional"`
	ContentNegotiation string `hcl:"content_negotiation,optional"`

	// Timeout per HTTP attempt, as a Go duration string.
	// Default: 30s
	Timeout string `hcl:"timeout,optional"`

	// MaxRetries after a network error. Negative disables retries.
	// Default: 3
	MaxRetries int `hcl:"max_retries,optional"`

	// Transport overrides the default HTTPTransport.
	Transport Transport

	// Logger receives debug output. Default: a null logger.
	Logger hclog.Logger
}

// Credentials returns the configured key pair.
func (c Config) Credentials() types.Credentials {
	return types.Credentials{PublicKey: c.PublicKey, PrivateKey: c.PrivateKey}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(validateBaseURL)),
		validation.Field(&c.PublicKey, validation.Required),
		validation.Field(&c.PrivateKey, validation.Required),
		validation.Field(&c.Timeout, validation.By(validateDuration)),
		validation.Field(&c.MaxRetries, validation.Min(-1)),
	)
}

func validateBaseURL(value any) error {
	s, _ := value.(string)

	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https scheme, got: %q", u.Scheme)
	}

	return nil
}

func validateDuration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	if d <= 0 {
		return fmt.Errorf("must be positive")
	}

	return nil
}

func (c Config) timeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}

	return d
}

// LoadConfig loads configuration from an optional HCL file, then from
// environment variables, then fills missing keys from SSM when SSMPrefix is
// set:
//   - MOPINION_BASE_URL: API endpoint (default: https://api.mopinion.com)
//   - MOPINION_PUBLIC_KEY, MOPINION_PRIVATE_KEY: API key pair
//   - MOPINION_SSM_PREFIX: Parameter Store path holding the key pair
//   - MOPINION_API_VERSION, MOPINION_VERBOSITY: request defaults
func LoadConfig(ctx context.Context, path string) (Config, error) {
	var cfg Config

	if path != "" {
		if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load configuration from %s: %w", path, err)
		}
	}

	cfg.BaseURL = getEnvOrDefault("MOPINION_BASE_URL", cfg.BaseURL)
	cfg.PublicKey = getEnvOrDefault("MOPINION_PUBLIC_KEY", cfg.PublicKey)
	cfg.PrivateKey = getEnvOrDefault("MOPINION_PRIVATE_KEY", cfg.PrivateKey)
	cfg.SSMPrefix = getEnvOrDefault("MOPINION_SSM_PREFIX", cfg.SSMPrefix)
	cfg.Version = getEnvOrDefault("MOPINION_API_VERSION", cfg.Version)
	cfg.Verbosity = getEnvOrDefault("MOPINION_VERBOSITY", cfg.Verbosity)

	if v := os.Getenv("MOPINION_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MOPINION_MAX_RETRIES: %w", err)
		}
		cfg.MaxRetries = n
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.SSMPrefix != "" && (cfg.PublicKey == "" || cfg.PrivateKey == "") {
		awsCfg, err := NewAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return Config{}, fmt.Errorf("failed to load AWS config: %w", err)
		}

		creds, err := LoadCredentialsFromSSM(ctx, ssm.NewFromConfig(awsCfg), cfg.SSMPrefix)
		if err != nil {
			return Config{}, err
		}

		cfg.PublicKey = creds.PublicKey
		cfg.PrivateKey = creds.PrivateKey
	}

	return cfg, nil
}

// SSMGetParameterAPI is the subset of the SSM client used for credentials.
type SSMGetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadCredentialsFromSSM loads an API key pair from AWS SSM Parameter Store.
// It fetches (with decryption):
//   - {prefix}/public_key
//   - {prefix}/private_key
func LoadCredentialsFromSSM(ctx context.Context, client SSMGetParameterAPI, prefix string) (types.Credentials, error) {
	prefix = strings.TrimSuffix(prefix, "/")

	publicKey, err := getParameter(ctx, client, prefix+"/public_key")
	if err != nil {
		return types.Credentials{}, fmt.Errorf("failed to get public key from SSM: %w", err)
	}

	privateKey, err := getParameter(ctx, client, prefix+"/private_key")
	if err != nil {
		return types.Credentials{}, fmt.Errorf("failed to get private key from SSM: %w", err)
	}

	return types.Credentials{PublicKey: publicKey, PrivateKey: privateKey}, nil
}

func getParameter(ctx context.Context, client SSMGetParameterAPI, name string) (string, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}

	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("parameter %s is empty", name)
	}

	return aws.ToString(out.Parameter.Value), nil
}

// NewAWSConfig loads the default AWS configuration for region.
func NewAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	if region == "" {
		region = getEnvOrDefault("AWS_REGION", DefaultRegion)
	}

	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultValue
}
