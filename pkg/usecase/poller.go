package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// Exported build variables carrying commit provenance
const (
	VarCommitID      = "GIT_COMMIT_ID"
	VarCommitMessage = "GIT_COMMIT_MSG"
)

const (
	DefaultPollMaxAttempts = 60
	DefaultPollInterval    = 5 * time.Second
)

// Poller waits for a build to reach a terminal status
type Poller struct {
	executor    interfaces.BuildExecutor
	maxAttempts int
	interval    time.Duration
	sleep       func(time.Duration)
}

// PollerOption configures a Poller
type PollerOption func(*Poller)

// WithMaxAttempts sets the number of status queries before giving up
func WithMaxAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithInterval sets the wait before each status query
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithSleep replaces time.Sleep, mainly for tests
func WithSleep(sleep func(time.Duration)) PollerOption {
	return func(p *Poller) {
		p.sleep = sleep
	}
}

// NewPoller creates a Poller
func NewPoller(executor interfaces.BuildExecutor, opts ...PollerOption) *Poller {
	p := &Poller{
		executor:    executor,
		maxAttempts: DefaultPollMaxAttempts,
		interval:    DefaultPollInterval,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Await polls the build until it succeeds, fails or the attempt budget runs out.
// Only a failing status query is returned as an error; every other outcome is
// reported through Completion.
func (p *Poller) Await(ctx context.Context, handle model.BuildHandle) (*model.Completion, error) {
	logger := ctxlog.From(ctx).With("build_id", handle)
	var status model.BuildStatus

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		p.sleep(p.interval)

		state, err := p.executor.GetBuild(ctx, handle)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query build status",
				goerr.V("build_id", handle),
				goerr.V("attempt", attempt),
			)
		}
		status = state.Status
		logger.Debug("Build status", "attempt", attempt, "status", status)

		switch status.Phase() {
		case model.BuildPhaseFailed:
			return &model.Completion{
				Outcome:  model.OutcomeBuildFailed,
				Status:   status,
				Attempts: attempt,
			}, nil

		case model.BuildPhaseSucceeded:
			revision := ExtractRevision(state)
			if revision == nil {
				return &model.Completion{
					Outcome:  model.OutcomeExtractionFailed,
					Status:   status,
					Attempts: attempt,
				}, nil
			}
			return &model.Completion{
				Outcome:  model.OutcomeSucceeded,
				Status:   status,
				Attempts: attempt,
				Revision: revision,
			}, nil
		}
	}

	return &model.Completion{
		Outcome:  model.OutcomeTimedOut,
		Status:   status,
		Attempts: p.maxAttempts,
	}, nil
}

// ExtractRevision builds a RevisionResult from exported variables, or returns
// nil when either the commit ID or the commit message is missing.
func ExtractRevision(state *model.BuildState) *model.RevisionResult {
	commitID, ok := state.LookupVariable(VarCommitID)
	if !ok {
		return nil
	}
	message, ok := state.LookupVariable(VarCommitMessage)
	if !ok {
		return nil
	}

	return &model.RevisionResult{
		Revision:         "Git Commit Id:" + commitID,
		ChangeIdentifier: commitID,
		RevisionSummary:  "Git Commit Message:" + message,
		OutputVariables: map[string]string{
			"commit_id":      commitID,
			"commit_message": message,
		},
	}
}
