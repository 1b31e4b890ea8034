package helpers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// AWSOptions configures the shared AWS client config. Empty keys fall back
// to the default credential chain.
type AWSOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // optional, e.g. localstack
}

// LoadAWSConfig resolves region and credentials for the SES and SQS clients.
func LoadAWSConfig(ctx context.Context, o AWSOptions) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKeyID != "" && o.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	if o.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(o.Endpoint)
	}
	return cfg, nil
}

func NewSESClient(cfg aws.Config) *sesv2.Client { return sesv2.NewFromConfig(cfg) }

func NewSQSClient(cfg aws.Config) *sqs.Client { return sqs.NewFromConfig(cfg) }
