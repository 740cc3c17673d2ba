package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatcher submits a provenance triple to the build executor
type Dispatcher struct {
	executor interfaces.BuildExecutor
	project  string
}

// NewDispatcher creates a Dispatcher for the given build project
func NewDispatcher(executor interfaces.BuildExecutor, project string) *Dispatcher {
	return &Dispatcher{
		executor: executor,
		project:  project,
	}
}

// BuildParameters returns the named parameters sent to the executor
func BuildParameters(triple *model.ProvenanceTriple, buildCtx *model.BuildContext) []model.BuildParameter {
	keyObject := buildCtx.KeyObject
	if keyObject == "" {
		keyObject = model.KeyObject
	}

	excludeGit := "False"
	if buildCtx.ExcludeGit {
		excludeGit = "True"
	}

	outputKey := strings.ReplaceAll(triple.RepositoryName+"_"+triple.Ref, "/", "_") + ".zip"
	outputPath := fmt.Sprintf("%s/%s/", triple.RepositoryName, triple.Ref)

	return []model.BuildParameter{
		{Name: "GitUrl", Value: triple.CloneURL},
		{Name: "Branch", Value: triple.Ref},
		{Name: "KeyBucket", Value: buildCtx.KeyBucket},
		{Name: "KeyObject", Value: keyObject},
		{Name: "outputbucket", Value: buildCtx.OutputBucket},
		{Name: "outputbucketkey", Value: outputKey},
		{Name: "outputbucketpath", Value: outputPath},
		{Name: "exclude_git", Value: excludeGit},
	}
}

// Dispatch starts a build. Failures are returned immediately without retry.
func (d *Dispatcher) Dispatch(ctx context.Context, triple *model.ProvenanceTriple, buildCtx *model.BuildContext) (model.BuildHandle, error) {
	if err := triple.Validate(); err != nil {
		return "", goerr.Wrap(types.ErrDerivation, err.Error())
	}

	handle, err := d.executor.StartBuild(ctx, d.project, BuildParameters(triple, buildCtx))
	if err != nil {
		return "", goerr.Wrap(types.ErrDispatch, err.Error(),
			goerr.V("project", d.project),
			goerr.V("repository", triple.RepositoryName),
			goerr.V("ref", triple.Ref),
		)
	}

	ctxlog.From(ctx).Info("Build started",
		"build_id", handle,
		"project", d.project,
		"repository", triple.RepositoryName,
		"ref", triple.Ref,
	)
	return handle, nil
}
