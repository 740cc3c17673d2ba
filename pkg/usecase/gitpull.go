package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type gitPullUseCase struct {
	auth       *Authenticator
	dispatcher *Dispatcher
	poller     *Poller
	excludeGit bool
}

// GitPullOption configures the git pull use case
type GitPullOption func(*gitPullUseCase)

// WithExcludeGit asks the build to drop the .git directory from its output
func WithExcludeGit(exclude bool) GitPullOption {
	return func(uc *gitPullUseCase) {
		uc.excludeGit = exclude
	}
}

// WithPollerOptions configures completion polling
func WithPollerOptions(opts ...PollerOption) GitPullOption {
	return func(uc *gitPullUseCase) {
		for _, opt := range opts {
			opt(uc.poller)
		}
	}
}

// NewGitPull creates a new instance of GitPullUseCase
func NewGitPull(executor interfaces.BuildExecutor, project string, opts ...GitPullOption) *gitPullUseCase {
	uc := &gitPullUseCase{
		auth:       NewAuthenticator(),
		dispatcher: NewDispatcher(executor, project),
		poller:     NewPoller(executor),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Trigger authenticates the event, derives provenance and starts a build
func (uc *gitPullUseCase) Trigger(ctx context.Context, event *model.InboundEvent) (*model.Dispatch, error) {
	if err := uc.auth.Authenticate(ctx, event); err != nil {
		return nil, err
	}

	triple, err := DeriveTriple(ctx, event.Payload())
	if err != nil {
		return nil, err
	}

	buildCtx := &model.BuildContext{
		KeyBucket:    event.Context.KeyBucket,
		OutputBucket: event.Context.OutputBucket,
		KeyObject:    model.KeyObject,
		ExcludeGit:   uc.excludeGit,
	}

	handle, err := uc.dispatcher.Dispatch(ctx, triple, buildCtx)
	if err != nil {
		return nil, err
	}

	return &model.Dispatch{Handle: handle, Triple: *triple}, nil
}

// Complete waits for the build. Timeouts, build failures and missing exported
// variables are logged and yield a nil result without error.
func (uc *gitPullUseCase) Complete(ctx context.Context, dispatch *model.Dispatch) (*model.RevisionResult, error) {
	logger := ctxlog.From(ctx).With(
		"build_id", dispatch.Handle,
		"repository", dispatch.Triple.RepositoryName,
		"ref", dispatch.Triple.Ref,
	)

	// Polling ends only by outcome or attempt budget, not by caller cancellation
	completion, err := uc.poller.Await(context.WithoutCancel(ctx), dispatch.Handle)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to await build completion")
	}

	switch completion.Outcome {
	case model.OutcomeSucceeded:
		logger.Info("Build succeeded",
			"revision", completion.Revision.Revision,
			"attempts", completion.Attempts,
		)
		return completion.Revision, nil
	case model.OutcomeBuildFailed:
		logger.Warn("Build failed", "status", completion.Status, "attempts", completion.Attempts)
	case model.OutcomeTimedOut:
		logger.Warn("Build did not finish in time", "status", completion.Status, "attempts", completion.Attempts)
	case model.OutcomeExtractionFailed:
		logger.Error("Build succeeded without commit variables",
			"expected", []string{VarCommitID, VarCommitMessage},
		)
	}
	return nil, nil
}

// Process runs Trigger and Complete in sequence
func (uc *gitPullUseCase) Process(ctx context.Context, event *model.InboundEvent) (*model.RevisionResult, error) {
	dispatch, err := uc.Trigger(ctx, event)
	if err != nil {
		return nil, err
	}
	return uc.Complete(ctx, dispatch)
}
