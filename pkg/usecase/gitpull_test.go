package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/m-mizutani/gitbridge/pkg/usecase"
)

const githubPush = `{
	"ref": "refs/heads/main",
	"repository": {"full_name": "org/repo", "ssh_url": "git@github.com:org/repo.git"}
}`

func TestGitPull_Process(t *testing.T) {
	executor := &MockBuildExecutor{
		states: []*model.BuildState{
			pending(),
			succeeded(
				model.ExportedVariable{Name: "GIT_COMMIT_ID", Value: "abc123"},
				model.ExportedVariable{Name: "GIT_COMMIT_MSG", Value: "fix bug"},
			),
		},
	}
	uc := usecase.NewGitPull(executor, "git-pull",
		usecase.WithExcludeGit(true),
		usecase.WithPollerOptions(usecase.WithSleep(noSleep)),
	)

	event := newEvent(githubPush, map[string]string{"X-Git-Token": "secret"}, model.EventContext{
		KeyBucket:    "keys",
		OutputBucket: "out",
		APISecrets:   []types.Secret{"secret"},
	})

	result, err := uc.Process(context.Background(), event)
	gt.NoError(t, err)
	gt.V(t, result).NotNil()
	gt.Equal(t, result.Revision, "Git Commit Id:abc123")

	params := paramMap(executor.lastParams)
	gt.Equal(t, params["KeyBucket"], "keys")
	gt.Equal(t, params["outputbucket"], "out")
	gt.Equal(t, params["exclude_git"], "True")
	gt.Equal(t, params["Branch"], "main")
}

func TestGitPull_AuthenticationFailsBeforeDispatch(t *testing.T) {
	executor := &MockBuildExecutor{}
	uc := usecase.NewGitPull(executor, "git-pull")

	event := newEvent(githubPush, map[string]string{"X-Git-Token": "wrong"}, model.EventContext{
		APISecrets: []types.Secret{"secret"},
	})

	_, err := uc.Trigger(context.Background(), event)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, types.ErrAuthentication))
	gt.Equal(t, executor.startCalls, 0)
}

func TestGitPull_DerivationFailsBeforeDispatch(t *testing.T) {
	executor := &MockBuildExecutor{}
	uc := usecase.NewGitPull(executor, "git-pull")

	event := newEvent(`{"ref": "refs/heads/main"}`, map[string]string{"X-Git-Token": "secret"}, model.EventContext{
		APISecrets: []types.Secret{"secret"},
	})

	_, err := uc.Trigger(context.Background(), event)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, types.ErrDerivation))
	gt.Equal(t, executor.startCalls, 0)
}

func TestGitPull_NonFatalOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		states []*model.BuildState
	}{
		{name: "Build failed", states: []*model.BuildState{{Status: model.BuildStatusFailed}}},
		{name: "Timed out", states: []*model.BuildState{pending()}},
		{name: "Missing variables", states: []*model.BuildState{succeeded()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := &MockBuildExecutor{states: tt.states}
			uc := usecase.NewGitPull(executor, "git-pull",
				usecase.WithPollerOptions(usecase.WithSleep(noSleep), usecase.WithMaxAttempts(5)),
			)

			result, err := uc.Complete(context.Background(), &model.Dispatch{Handle: "build-1"})
			gt.NoError(t, err)
			gt.V(t, result).Nil()
		})
	}
}

func TestGitPull_CompleteIgnoresCancellation(t *testing.T) {
	executor := &MockBuildExecutor{
		states: []*model.BuildState{
			succeeded(
				model.ExportedVariable{Name: "GIT_COMMIT_ID", Value: "abc123"},
				model.ExportedVariable{Name: "GIT_COMMIT_MSG", Value: "msg"},
			),
		},
	}
	uc := usecase.NewGitPull(executor, "git-pull", usecase.WithPollerOptions(usecase.WithSleep(noSleep)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := uc.Complete(ctx, &model.Dispatch{Handle: "build-1"})
	gt.NoError(t, err)
	gt.V(t, result).NotNil()
}
