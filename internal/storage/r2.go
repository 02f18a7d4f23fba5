package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const r2Prefix = "images/products/"

type R2Options struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	// PublicURL is the bucket's public origin, or a format string with
	// one %s for the object key.
	PublicURL string
}

// R2 stores images in a Cloudflare R2 bucket through the S3 API.
type R2 struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewR2(ctx context.Context, o R2Options) (*R2, error) {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
		},
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithHTTPClient(&http.Client{Transport: tr}),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.AccessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		so.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", o.AccountID))
	})
	return &R2{client: client, bucket: o.Bucket, publicURL: o.PublicURL}, nil
}

func (r *R2) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	objectKey := r2Prefix + key
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", objectKey, err)
	}
	return r.objectURL(objectKey), nil
}

func (r *R2) objectURL(key string) string {
	if strings.Contains(r.publicURL, "%s") {
		return CleanURL(fmt.Sprintf(r.publicURL, key))
	}
	return CleanURL(strings.TrimRight(r.publicURL, "/") + "/" + key)
}
