// Package aws builds the SDK session shared by the S3 and SQS clients.
package aws

import (
	"fmt"

	"commonthread/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

const (
	emptyAWSSessionToken         = ""
	errFailedCreateAWSSessionFmt = "failed to create AWS session: %w"
)

// NewSession uses static credentials when configured and the default
// provider chain otherwise, which is what a Lambda execution role needs.
func NewSession(cfg *config.AWSConfig) (*session.Session, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}

	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			emptyAWSSessionToken,
		)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf(errFailedCreateAWSSessionFmt, err)
	}
	return sess, nil
}
