package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Client wraps the S3-protocol store (Cloudflare R2 in production, MinIO in
// development). Every method is a single blocking call with no internal
// retries; retry policy belongs to the caller.
type Client struct {
	s3Client  *s3.Client
	bucket    string
	cdnURL    string
	presigner *s3.PresignClient
}

func NewClient(ctx context.Context, region, bucket, accessKey, secretKey, endpoint, cdnURL string) (*Client, error) {
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("no storage credentials provided")
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		s3Client:  s3Client,
		bucket:    bucket,
		cdnURL:    strings.TrimSuffix(cdnURL, "/"),
		presigner: s3.NewPresignClient(s3Client),
	}, nil
}

// PublicURL builds the CDN-facing URL for a stored key. With no CDN base
// configured the bare key is returned.
func (c *Client) PublicURL(key string) string {
	if c.cdnURL == "" {
		return key
	}
	return c.cdnURL + "/" + key
}

func (c *Client) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	return err
}

// PresignPutObject generates a one-shot direct-upload URL so large bodies
// never travel through the application server.
func (c *Client) PresignPutObject(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	request, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", err
	}
	return request.URL, nil
}

// PresignGetObject generates a time-limited download URL. A non-empty
// downloadName forces attachment disposition.
func (c *Client) PresignGetObject(ctx context.Context, key, downloadName string, expires time.Duration) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	if downloadName != "" {
		disposition := fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(downloadName, `"`, "%22"))
		input.ResponseContentDisposition = aws.String(disposition)
	}

	request, err := c.presigner.PresignGetObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", err
	}
	return request.URL, nil
}

// CreateMultipartUpload initiates a multipart session and returns the upload ID.
func (c *Client) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	result, err := c.s3Client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(result.UploadId), nil
}

// UploadPart transmits one part through the server and returns its eTag.
func (c *Client) UploadPart(ctx context.Context, key, uploadID string, partNumber int32, data []byte) (string, error) {
	result, err := c.s3Client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(result.ETag), nil
}

// PresignUploadPart generates a URL for the client to PUT one part directly
// to the store.
func (c *Client) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32, expires time.Duration) (string, error) {
	request, err := c.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", err
	}
	return request.URL, nil
}

// CompleteMultipartUpload stitches the named parts into one object.
func (c *Client) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []PartInfo) error {
	completedParts := make([]s3Types.CompletedPart, len(parts))
	for i, part := range parts {
		completedParts[i] = s3Types.CompletedPart{
			ETag:       aws.String(part.ETag),
			PartNumber: aws.Int32(int32(part.PartNumber)),
		}
	}

	_, err := c.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &s3Types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	})
	return err
}

// AbortMultipartUpload releases bytes already stored for unfinished parts.
func (c *Client) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	_, err := c.s3Client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	return err
}

// PartInfo names one completed part for the completion call.
type PartInfo struct {
	ETag       string
	PartNumber int
}
