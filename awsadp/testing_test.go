package awsadp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// TestingConfig provides configuration for testing with minio
type TestingConfig struct {
	Endpoint        string // e.g., "http://localhost:9000"
	AccessKeyID     string // e.g., "minioadmin"
	SecretAccessKey string // e.g., "minioadmin"
	Bucket          string // e.g., "aipkit-test"
	Region          string // e.g., "us-east-1" (minio default)
}

// DefaultTestingConfig returns default configuration for local minio testing
func DefaultTestingConfig() TestingConfig {
	return TestingConfig{
		Endpoint:        getEnv("MINIO_ENDPOINT", "http://localhost:9000"),
		AccessKeyID:     getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretAccessKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		Bucket:          getEnv("MINIO_BUCKET", "aipkit-test"),
		Region:          getEnv("MINIO_REGION", "us-east-1"),
	}
}

// NewS3ClientForTesting creates an S3 client configured for minio testing
func NewS3ClientForTesting(ctx context.Context, cfg TestingConfig) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (not needed for minio)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with custom endpoint resolver for minio
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // Required for minio
	})

	return client, nil
}

// newS3ClientForIntegration connects to minio, ensures the test bucket and
// returns a random prefix whose objects are removed when the test ends.
func newS3ClientForIntegration(t *testing.T) (*s3.Client, string, string) {
	t.Helper()
	if testing.Short() || os.Getenv("SKIP_INTEGRATION_TESTS") == "true" {
		t.Skip("Integration tests are disabled")
	}

	ctx := context.Background()
	cfg := DefaultTestingConfig()
	client, err := NewS3ClientForTesting(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create S3 client: %v", err)
	}
	if err := EnsureBucketExists(ctx, client, cfg.Bucket); err != nil {
		t.Skipf("minio is not available: %v", err)
	}

	prefix, err := generateRandomPrefix()
	if err != nil {
		t.Fatalf("Failed to generate random prefix: %v", err)
	}
	t.Cleanup(func() {
		if err := CleanupTestObjects(context.Background(), client, cfg.Bucket, prefix); err != nil {
			t.Logf("Warning: Failed to cleanup test objects: %v", err)
		}
	})
	return client, cfg.Bucket, prefix
}

// EnsureBucketExists creates the test bucket if it doesn't exist
func EnsureBucketExists(ctx context.Context, client *s3.Client, bucket string) error {
	// Check if bucket exists
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil // Bucket already exists
	}

	// Create bucket
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	return nil
}

// CleanupTestObjects removes all objects with the given prefix (for test cleanup)
func CleanupTestObjects(ctx context.Context, client *s3.Client, bucket, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects for cleanup: %w", err)
		}
		for _, obj := range page.Contents {
			_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("failed to delete object %s: %w", aws.ToString(obj.Key), err)
			}
		}
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func generateRandomPrefix() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "test-" + hex.EncodeToString(bytes), nil
}
