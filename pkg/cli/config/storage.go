package config

import (
	"context"

	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/m-mizutani/gitbridge/pkg/infra/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Storage backends
const (
	StorageS3  = "s3"
	StorageGCS = "gcs"
)

// Storage holds object storage configuration
type Storage struct {
	Backend     string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Insecure  bool
}

// Flags returns CLI flags for object storage configuration
func (c *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       "Object storage backend (s3, gcs)",
			Value:       StorageS3,
			Destination: &c.Backend,
			Sources:     cli.EnvVars("GITBRIDGE_STORAGE_BACKEND"),
		},
		&cli.StringFlag{
			Name:        "s3-endpoint",
			Usage:       "S3 compatible endpoint",
			Value:       "s3.amazonaws.com",
			Destination: &c.S3Endpoint,
			Sources:     cli.EnvVars("GITBRIDGE_S3_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:        "s3-region",
			Usage:       "S3 region",
			Destination: &c.S3Region,
			Sources:     cli.EnvVars("GITBRIDGE_S3_REGION", "AWS_REGION"),
		},
		&cli.StringFlag{
			Name:        "s3-access-key",
			Usage:       "S3 access key (instance credentials are used when empty)",
			Destination: &c.S3AccessKey,
			Sources:     cli.EnvVars("GITBRIDGE_S3_ACCESS_KEY"),
		},
		&cli.StringFlag{
			Name:        "s3-secret-key",
			Usage:       "S3 secret key",
			Destination: &c.S3SecretKey,
			Sources:     cli.EnvVars("GITBRIDGE_S3_SECRET_KEY"),
		},
		&cli.BoolFlag{
			Name:        "s3-insecure",
			Usage:       "Connect to the S3 endpoint over plain HTTP",
			Destination: &c.S3Insecure,
			Sources:     cli.EnvVars("GITBRIDGE_S3_INSECURE"),
		},
	}
}

// NewStore builds the configured object storage. The returned function releases it.
func (c *Storage) NewStore(ctx context.Context) (interfaces.ObjectStorage, func(), error) {
	switch c.Backend {
	case StorageS3:
		store, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  c.S3Endpoint,
			Region:    c.S3Region,
			AccessKey: c.S3AccessKey,
			SecretKey: types.Secret(c.S3SecretKey),
			UseSSL:    !c.S3Insecure,
		})
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create S3 store")
		}
		return store, func() {}, nil

	case StorageGCS:
		store, err := storage.NewGCSStore(ctx)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create GCS store")
		}
		return store, func() { _ = store.Close() }, nil

	default:
		return nil, nil, goerr.Wrap(types.ErrInvalidConfig, "unknown storage backend", goerr.V("backend", c.Backend))
	}
}
