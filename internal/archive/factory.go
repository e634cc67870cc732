package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"obslog/internal/config"
	"obslog/internal/logbook"
)

// Static credentials for S3-compatible stores are read from these variables.
// Without them the default AWS credential chain is used.
const (
	EnvS3AccessKeyID     = "OBSLOG_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "OBSLOG_S3_SECRET_ACCESS_KEY"
)

// NewArchiveFromConfig creates a DocumentArchive based on the archive config type.
func NewArchiveFromConfig(ctx context.Context, cfg config.ArchiveConfig) (logbook.DocumentArchive, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryArchive(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("fs_root required for filesystem archive")
		}
		return NewFileSystemArchive(cfg.FSRoot)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3_bucket required for s3 archive")
		}
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3Archive(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}

func newS3Client(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if id, secret := os.Getenv(EnvS3AccessKeyID), os.Getenv(EnvS3SecretAccessKey); id != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(id, secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
