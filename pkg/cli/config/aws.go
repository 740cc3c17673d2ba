package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// AWS holds AWS SDK configuration
type AWS struct {
	Region string
}

// Flags returns CLI flags for AWS configuration
func (c *AWS) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "aws-region",
			Usage:       "AWS region for CodeBuild and KMS (defaults to the SDK resolution chain)",
			Destination: &c.Region,
			Sources:     cli.EnvVars("GITBRIDGE_AWS_REGION"),
		},
	}
}

// Load resolves the AWS SDK configuration
func (c *AWS) Load(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, goerr.Wrap(err, "failed to load AWS config", goerr.V("region", c.Region))
	}
	return cfg, nil
}
