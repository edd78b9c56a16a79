package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AWSClients holds the AWS clients used by the photo pipeline. A client is nil
// when its feature is disabled.
type AWSClients struct {
	S3          *s3.Client
	Rekognition *rekognition.Client
}

// NewAWSClients loads credentials from the environment or shared config and builds
// the clients the configuration enables.
func NewAWSClients(ctx context.Context, cfg *Config) (*AWSClients, error) {
	clients := &AWSClients{}
	if cfg.PhotoBucket == "" && !cfg.RekognitionEnabled {
		return clients, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, err
	}
	return newAWSClients(awsCfg, cfg), nil
}

func newAWSClients(awsCfg aws.Config, cfg *Config) *AWSClients {
	clients := &AWSClients{}
	if cfg.PhotoBucket != "" {
		clients.S3 = s3.NewFromConfig(awsCfg)
	}
	if cfg.RekognitionEnabled {
		clients.Rekognition = rekognition.NewFromConfig(awsCfg)
	}
	return clients
}
