package handler

import (
	"context"

	"commonthread/internal/storage/s3"

	"github.com/labstack/echo/v4"
)

// downloadURL presigns key for reading. Missing keys and presign failures
// yield "", so a broken bucket degrades media links instead of the response.
func downloadURL(c echo.Context, presigner Presigner, bucket string, key *string) string {
	if key == nil || *key == "" {
		return ""
	}

	p, err := presigner.Presign(c.Request().Context(), s3.PresignInput{
		Bucket:     bucket,
		Key:        *key,
		Op:         s3.OpDownload,
		Expiration: mediaURLExpiration,
	})
	if err != nil {
		c.Logger().Errorf(logPresignFailedFmt, bucket, *key, err)
		return ""
	}
	return p.URL
}

func uploadURL(ctx context.Context, presigner Presigner, bucket, key, contentType string) (*s3.Presigned, error) {
	return presigner.Presign(ctx, s3.PresignInput{
		Bucket:      bucket,
		Key:         key,
		Op:          s3.OpUpload,
		ContentType: contentType,
		Expiration:  uploadURLExpiration,
	})
}
