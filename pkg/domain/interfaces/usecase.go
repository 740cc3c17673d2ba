package interfaces

import (
	"context"

	"github.com/m-mizutani/gitbridge/pkg/domain/model"
)

// GitPullUseCase turns a webhook into a build and waits for it
type GitPullUseCase interface {
	// Trigger authenticates the event, derives provenance and starts a build
	Trigger(ctx context.Context, event *model.InboundEvent) (*model.Dispatch, error)

	// Complete waits for a started build and returns its revision when it succeeded
	Complete(ctx context.Context, dispatch *model.Dispatch) (*model.RevisionResult, error)
}

// ArchiveUseCase fetches and republishes a normalized code archive
type ArchiveUseCase interface {
	Normalize(ctx context.Context, event *model.InboundEvent) (string, error)
}

// KeyPairUseCase provisions the deploy key pair
type KeyPairUseCase interface {
	Provision(ctx context.Context, req *model.KeyRequest) (string, error)
}
