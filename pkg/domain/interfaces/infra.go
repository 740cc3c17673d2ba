package interfaces

import (
	"context"

	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
)

// BuildExecutor starts builds and reports their state
type BuildExecutor interface {
	// StartBuild submits a build of the given project with parameter overrides
	StartBuild(ctx context.Context, project string, params []model.BuildParameter) (model.BuildHandle, error)

	// GetBuild returns the current state of a build
	GetBuild(ctx context.Context, handle model.BuildHandle) (*model.BuildState, error)
}

// ObjectStorage stores objects in a bucket
type ObjectStorage interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Encryptor encrypts small secrets with a managed key
type Encryptor interface {
	// Encrypt uses the client's default region when region is empty
	Encrypt(ctx context.Context, keyID, region string, plaintext []byte) ([]byte, error)
}

// ArchiveFetcher downloads a code archive described by an ArchiveSpec
type ArchiveFetcher interface {
	Fetch(ctx context.Context, spec *model.ArchiveSpec) ([]byte, error)
}

// TokenIssuer exchanges client credentials for a bearer token
type TokenIssuer interface {
	IssueToken(ctx context.Context, clientID string, clientSecret types.Secret) (string, error)
}
