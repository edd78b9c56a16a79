package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// PhotoArchive stores uploaded food photos and returns where they can be fetched.
type PhotoArchive interface {
	Store(ctx context.Context, userID string, image []byte, mimeType string) (string, error)
}

// S3PutObjectAPI is the part of the S3 client the archive needs.
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3PhotoArchive keeps food photos under food-photos/<user>/ in a bucket.
type S3PhotoArchive struct {
	client S3PutObjectAPI
	bucket string
}

// NewS3PhotoArchive creates a new S3PhotoArchive instance
func NewS3PhotoArchive(client S3PutObjectAPI, bucket string) *S3PhotoArchive {
	return &S3PhotoArchive{client: client, bucket: bucket}
}

// Store uploads the photo and returns its public URL.
func (a *S3PhotoArchive) Store(ctx context.Context, userID string, image []byte, mimeType string) (string, error) {
	ext := ".jpg"
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	key := fmt.Sprintf("food-photos/%s/%s%s", userID, uuid.New().String(), ext)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(image),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", a.bucket, key), nil
}
