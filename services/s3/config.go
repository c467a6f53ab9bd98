package s3

import (
	"context"

	"github.com/DGISsoft/prodreport/env"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// awsOptions turns the S3 settings into SDK load options. Without an endpoint
// the SDK resolves AWS itself; without an access key it falls back to the
// default credential chain (instance role, shared profile).
func awsOptions(cfg env.S3Config) []func(*config.LoadOptions) error {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.Endpoint))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	return opts
}

func loadAWSConfig(ctx context.Context, cfg env.S3Config) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx, awsOptions(cfg)...)
}
