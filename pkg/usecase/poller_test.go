package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/usecase"
)

func pending() *model.BuildState {
	return &model.BuildState{Status: model.BuildStatusInProgress}
}

func succeeded(vars ...model.ExportedVariable) *model.BuildState {
	return &model.BuildState{Status: model.BuildStatusSucceeded, ExportedVariables: vars}
}

func TestPoller_Succeeded(t *testing.T) {
	executor := &MockBuildExecutor{
		states: []*model.BuildState{
			pending(), pending(), pending(),
			succeeded(
				model.ExportedVariable{Name: "GIT_COMMIT_ID", Value: "abc123"},
				model.ExportedVariable{Name: "GIT_COMMIT_MSG", Value: "fix bug"},
				model.ExportedVariable{Name: "GIT_COMMIT_ID", Value: "ignored"},
			),
		},
	}

	var slept []time.Duration
	poller := usecase.NewPoller(executor,
		usecase.WithInterval(time.Second),
		usecase.WithSleep(func(d time.Duration) { slept = append(slept, d) }),
	)

	completion, err := poller.Await(context.Background(), "build-1")
	gt.NoError(t, err)
	gt.Equal(t, completion.Outcome, model.OutcomeSucceeded)
	gt.Equal(t, completion.Attempts, 4)
	gt.Equal(t, len(slept), 4)
	gt.Equal(t, slept[0], time.Second)

	gt.V(t, completion.Revision).NotNil()
	gt.Equal(t, completion.Revision.Revision, "Git Commit Id:abc123")
	gt.Equal(t, completion.Revision.RevisionSummary, "Git Commit Message:fix bug")
	gt.Equal(t, completion.Revision.ChangeIdentifier, "abc123")
	gt.Equal(t, completion.Revision.OutputVariables["commit_id"], "abc123")
	gt.Equal(t, completion.Revision.OutputVariables["commit_message"], "fix bug")
}

func TestPoller_TimedOut(t *testing.T) {
	executor := &MockBuildExecutor{states: []*model.BuildState{pending()}}
	poller := usecase.NewPoller(executor, usecase.WithSleep(noSleep))

	completion, err := poller.Await(context.Background(), "build-1")
	gt.NoError(t, err)
	gt.Equal(t, completion.Outcome, model.OutcomeTimedOut)
	gt.Equal(t, completion.Attempts, 60)
	gt.Equal(t, executor.getCalls, 60)
	gt.V(t, completion.Revision).Nil()
}

func TestPoller_FailedStopsImmediately(t *testing.T) {
	for _, status := range []model.BuildStatus{
		model.BuildStatusFailed,
		model.BuildStatusFault,
		model.BuildStatusStopped,
		model.BuildStatusTimedOut,
	} {
		t.Run(string(status), func(t *testing.T) {
			executor := &MockBuildExecutor{
				states: []*model.BuildState{
					pending(),
					{
						Status:            status,
						ExportedVariables: []model.ExportedVariable{{Name: "GIT_COMMIT_ID", Value: "abc"}},
					},
					succeeded(),
				},
			}
			poller := usecase.NewPoller(executor, usecase.WithSleep(noSleep))

			completion, err := poller.Await(context.Background(), "build-1")
			gt.NoError(t, err)
			gt.Equal(t, completion.Outcome, model.OutcomeBuildFailed)
			gt.Equal(t, completion.Status, status)
			gt.Equal(t, executor.getCalls, 2)
			gt.V(t, completion.Revision).Nil()
		})
	}
}

func TestPoller_ExtractionFailed(t *testing.T) {
	executor := &MockBuildExecutor{
		states: []*model.BuildState{
			succeeded(model.ExportedVariable{Name: "GIT_COMMIT_ID", Value: "abc123"}),
		},
	}
	poller := usecase.NewPoller(executor, usecase.WithSleep(noSleep))

	completion, err := poller.Await(context.Background(), "build-1")
	gt.NoError(t, err)
	gt.Equal(t, completion.Outcome, model.OutcomeExtractionFailed)
	gt.V(t, completion.Revision).Nil()
}

func TestPoller_QueryError(t *testing.T) {
	executor := &MockBuildExecutor{getBuildErr: errors.New("access denied")}
	poller := usecase.NewPoller(executor, usecase.WithSleep(noSleep), usecase.WithMaxAttempts(3))

	_, err := poller.Await(context.Background(), "build-1")
	gt.Error(t, err)
	gt.Equal(t, executor.getCalls, 1)
}

func TestBuildStatus_Phase(t *testing.T) {
	gt.Equal(t, model.BuildStatus("SUCCEEDED").Phase(), model.BuildPhaseSucceeded)
	gt.Equal(t, model.BuildStatus("FAULT").Phase(), model.BuildPhaseFailed)
	gt.Equal(t, model.BuildStatus("IN_PROGRESS").Phase(), model.BuildPhasePending)
	gt.Equal(t, model.BuildStatus("SOMETHING_NEW").Phase(), model.BuildPhasePending)
}
