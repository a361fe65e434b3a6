package sinks

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/briefly/internal/client/config"
	"github.com/dmitrijs2005/briefly/internal/filex"
	"github.com/dmitrijs2005/briefly/internal/netx"
	"github.com/google/uuid"
)

// S3Sink uploads files to an S3-compatible bucket through presigned URLs
// and returns a presigned GET link valid for the configured TTL.
type S3Sink struct {
	cfg     config.S3Config
	presign *s3.PresignClient
	http    *http.Client
}

// NewS3Sink builds the presign client from static credentials. Endpoint,
// when set, points the client at a non-AWS backend such as MinIO.
func NewS3Sink(ctx context.Context, cfg config.S3Config, httpClient *http.Client) (*S3Sink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 15 * time.Minute
	}
	return &S3Sink{cfg: cfg, presign: s3.NewPresignClient(client), http: httpClient}, nil
}

func (s *S3Sink) objectKey(name string) string {
	return path.Join(s.cfg.Prefix, time.Now().UTC().Format("2006/01/02"), uuid.NewString(), filex.SafeName(name, "download"))
}

func (s *S3Sink) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := s.objectKey(name)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	put, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.cfg.LinkTTL))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}

	if err := netx.UploadToPresignedURL(ctx, s.http, put.URL, contentType, data); err != nil {
		return "", err
	}

	get, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.LinkTTL))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return get.URL, nil
}
