package minio

import "errors"

// Config holds connection settings for an S3-compatible object store.
type Config struct {
	// Endpoint is the host[:port] of the S3 API, without scheme.
	// Example: "s3.amazonaws.com", "localhost:9000"
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string

	// SessionToken is optional, for temporary credentials.
	SessionToken string

	// UseSSL selects https.
	UseSSL bool

	// Bucket holds both the pipeline inputs and its published artifacts.
	Bucket string

	Region string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEndpoint sets the S3 endpoint.
func WithEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithCredentials sets static access credentials.
func WithCredentials(accessKeyID, secretAccessKey string) ConfigOption {
	return func(c *Config) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
	}
}

// WithBucket sets the bucket name.
func WithBucket(bucket string) ConfigOption {
	return func(c *Config) {
		c.Bucket = bucket
	}
}

// WithRegion sets the bucket region.
func WithRegion(region string) ConfigOption {
	return func(c *Config) {
		c.Region = region
	}
}

// WithSSL toggles https.
func WithSSL(useSSL bool) ConfigOption {
	return func(c *Config) {
		c.UseSSL = useSSL
	}
}

// DefaultConfig returns a Config pointing at AWS S3 over https.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "s3.amazonaws.com",
		UseSSL:   true,
		Region:   "eu-west-1",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio config: Endpoint is required")
	}
	if c.Bucket == "" {
		return errors.New("minio config: Bucket is required")
	}
	return nil
}
