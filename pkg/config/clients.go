package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"
)

// newTableServiceClient builds an Azure Table service client from a storage
// connection string. The SDK parses the string locally; no network traffic
// happens until the first operation.
func newTableServiceClient(connectionString string) (*aztables.ServiceClient, error) {
	client, err := aztables.NewServiceClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create table service client: %w", err)
	}
	return client, nil
}

// newBlobServiceClient builds an Azure Blob service client from a storage
// connection string.
func newBlobServiceClient(connectionString string) (*azblob.Client, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob service client: %w", err)
	}
	return client, nil
}

// s3ConnectionOptions is the parsed form of an S3 connection string.
type s3ConnectionOptions struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// parseS3ConnectionString parses a semicolon-separated key=value connection
// string, e.g. "region=eu-west-1;bucket=grains;endpoint=http://localhost:9000".
func parseS3ConnectionString(connectionString string) (*s3ConnectionOptions, error) {
	values := make(map[string]any)

	for _, part := range strings.Split(connectionString, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, found := strings.Cut(part, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("malformed segment %q (expected key=value)", part)
		}
		values[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	var opts s3ConnectionOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(values); err != nil {
		return nil, fmt.Errorf("failed to decode S3 connection options: %w", err)
	}

	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	return &opts, nil
}

// newS3Client builds an S3 client from parsed connection options.
func newS3Client(ctx context.Context, opts *s3ConnectionOptions) (*awss3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	// Custom endpoint support for MinIO, Localstack, etc.
	if opts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck
				return aws.Endpoint{
					URL:               opts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Retry transient errors (502, 503, timeouts) more aggressively than the
	// AWS default of 3 attempts
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility
		if opts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return client, nil
}
