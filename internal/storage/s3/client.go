// Package s3 presigns object uploads and downloads for story media and
// profile pictures.
package s3

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

const (
	defaultS3Region                = "us-east-1"
	headerContentType              = "Content-Type"
	fieldKey                       = "key"
	errFailedPresignUploadFmt      = "failed to generate presigned upload URL: %w"
	errFailedPresignDownloadFmt    = "failed to generate presigned download URL: %w"
	errFailedDeleteObjectFmt       = "failed to delete object: %w"
	errFailedCreateBucketFmt       = "failed to create bucket: %w"
	errFailedWaitBucketExistsFmt   = "failed to wait for bucket to exist: %w"
	errUnsupportedPresignOpFmt     = "unsupported presign operation %q"
	errPresignBucketAndKeyRequired = "bucket and key are required"
)

type Operation string

const (
	OpUpload   Operation = "upload"
	OpDownload Operation = "download"
)

type PresignInput struct {
	Bucket      string
	Key         string
	Op          Operation
	ContentType string
	Expiration  time.Duration
}

// Presigned is what a client needs to perform the transfer itself. Fields
// lists headers the upload must carry for the signature to hold.
type Presigned struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Fields    map[string]string `json:"fields,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type Client struct {
	svc *s3.S3
	now func() time.Time
}

func NewClient(sess *session.Session) *Client {
	return &Client{svc: s3.New(sess), now: time.Now}
}

func (c *Client) Presign(ctx context.Context, in PresignInput) (*Presigned, error) {
	if in.Bucket == "" || in.Key == "" {
		return nil, fmt.Errorf(errPresignBucketAndKeyRequired)
	}

	switch in.Op {
	case OpUpload:
		put := &s3.PutObjectInput{
			Bucket: aws.String(in.Bucket),
			Key:    aws.String(in.Key),
		}
		if in.ContentType != "" {
			put.ContentType = aws.String(in.ContentType)
		}
		req, _ := c.svc.PutObjectRequest(put)
		req.SetContext(ctx)

		url, err := req.Presign(in.Expiration)
		if err != nil {
			return nil, fmt.Errorf(errFailedPresignUploadFmt, err)
		}

		out := &Presigned{
			URL:       url,
			Method:    http.MethodPut,
			Fields:    map[string]string{fieldKey: in.Key},
			ExpiresAt: c.now().Add(in.Expiration),
		}
		if in.ContentType != "" {
			out.Fields[headerContentType] = in.ContentType
		}
		return out, nil

	case OpDownload:
		req, _ := c.svc.GetObjectRequest(&s3.GetObjectInput{
			Bucket: aws.String(in.Bucket),
			Key:    aws.String(in.Key),
		})
		req.SetContext(ctx)

		url, err := req.Presign(in.Expiration)
		if err != nil {
			return nil, fmt.Errorf(errFailedPresignDownloadFmt, err)
		}
		return &Presigned{URL: url, Method: http.MethodGet, ExpiresAt: c.now().Add(in.Expiration)}, nil

	default:
		return nil, fmt.Errorf(errUnsupportedPresignOpFmt, in.Op)
	}
}

func (c *Client) DeleteObject(ctx context.Context, bucketName, objectKey string) error {
	_, err := c.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	})

	if err != nil {
		return fmt.Errorf(errFailedDeleteObjectFmt, err)
	}

	return nil
}

// EnsureBucket creates bucketName unless it already exists.
func (c *Client) EnsureBucket(ctx context.Context, bucketName, region string) error {
	if _, err := c.svc.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)}); err == nil {
		return nil
	}

	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}

	if region != defaultS3Region {
		input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(region),
		}
	}

	_, err := c.svc.CreateBucketWithContext(ctx, input)
	if err != nil {
		return fmt.Errorf(errFailedCreateBucketFmt, err)
	}

	if err := c.svc.WaitUntilBucketExistsWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucketName),
	}); err != nil {
		return fmt.Errorf(errFailedWaitBucketExistsFmt, err)
	}

	return nil
}

// NewObjectKey returns a fresh key under prefix keeping filename's extension.
func NewObjectKey(prefix, filename string) string {
	return BuildObjectKey(prefix, uuid.NewString()+path.Ext(filename))
}

func BuildObjectKey(folderPath, filename string) string {
	if folderPath == "" {
		return filename
	}

	if folderPath[len(folderPath)-1] != '/' {
		folderPath += "/"
	}

	return folderPath + filename
}
