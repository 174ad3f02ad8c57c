package utils

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Settings locates the bucket that archives rendered protocols.
type R2Settings struct {
	Bucket          string
	AccountID       string
	PublicURL       string // e.g. https://files.example.com
	AccessKeyID     string
	SecretAccessKey string
}

// ArtifactStore uploads protocol PDFs to Cloudflare R2. The client is built
// on first use.
type ArtifactStore struct {
	settings R2Settings

	initOnce sync.Once
	initErr  error
	client   *s3.Client
}

func NewArtifactStore(s R2Settings) *ArtifactStore {
	return &ArtifactStore{settings: s}
}

func (s *ArtifactStore) init(ctx context.Context) error {
	s.initOnce.Do(func() {
		if s.settings.Bucket == "" || s.settings.AccountID == "" || s.settings.PublicURL == "" {
			s.initErr = fmt.Errorf("missing required R2 settings")
			return
		}

		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion("auto"), // Important for R2
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				s.settings.AccessKeyID,
				s.settings.SecretAccessKey,
				"",
			)),
		)
		if err != nil {
			s.initErr = fmt.Errorf("failed to load R2 config: %w", err)
			return
		}

		endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.settings.AccountID)
		s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	})
	return s.initErr
}

// Upload stores the PDF under key and returns its public URL.
func (s *ArtifactStore) Upload(ctx context.Context, pdf []byte, key string) (string, error) {
	if err := s.init(ctx); err != nil {
		return "", err
	}

	key = path.Base(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.settings.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return s.PublicURL(key), nil
}

// Delete removes the object a public URL points to.
func (s *ArtifactStore) Delete(ctx context.Context, fileURL string) error {
	if err := s.init(ctx); err != nil {
		return err
	}

	key, err := ObjectKey(fileURL)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.settings.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete R2 object: %w", err)
	}
	return nil
}

func (s *ArtifactStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(s.settings.PublicURL, "/"), url.PathEscape(key))
}

// ObjectKey extracts the object key from a public artifact URL.
func ObjectKey(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file URL: %w", err)
	}
	key := path.Base(u.Path)
	if key == "/" || key == "." {
		return "", fmt.Errorf("invalid file URL: no object key in %q", fileURL)
	}
	return key, nil
}
