package codebuild

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"
	cbtypes "github.com/aws/aws-sdk-go-v2/service/codebuild/types"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
)

// API is the subset of the CodeBuild client used here
type API interface {
	StartBuild(ctx context.Context, params *codebuild.StartBuildInput, optFns ...func(*codebuild.Options)) (*codebuild.StartBuildOutput, error)
	BatchGetBuilds(ctx context.Context, params *codebuild.BatchGetBuildsInput, optFns ...func(*codebuild.Options)) (*codebuild.BatchGetBuildsOutput, error)
}

// Client implements BuildExecutor with AWS CodeBuild
type Client struct {
	api API
}

// New creates a CodeBuild backed build executor
func New(cfg aws.Config) *Client {
	return &Client{api: codebuild.NewFromConfig(cfg)}
}

// NewWithAPI creates a build executor on top of an existing API client
func NewWithAPI(api API) *Client {
	return &Client{api: api}
}

// StartBuild starts a build with plaintext environment variable overrides
func (c *Client) StartBuild(ctx context.Context, project string, params []model.BuildParameter) (model.BuildHandle, error) {
	overrides := make([]cbtypes.EnvironmentVariable, 0, len(params))
	for _, p := range params {
		overrides = append(overrides, cbtypes.EnvironmentVariable{
			Name:  aws.String(p.Name),
			Value: aws.String(p.Value),
			Type:  cbtypes.EnvironmentVariableTypePlaintext,
		})
	}

	out, err := c.api.StartBuild(ctx, &codebuild.StartBuildInput{
		ProjectName:                  aws.String(project),
		EnvironmentVariablesOverride: overrides,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start build of %s: %w", project, err)
	}
	if out.Build == nil || out.Build.Id == nil {
		return "", fmt.Errorf("start build of %s returned no build ID", project)
	}

	return model.BuildHandle(*out.Build.Id), nil
}

// GetBuild returns the status and exported variables of a build
func (c *Client) GetBuild(ctx context.Context, handle model.BuildHandle) (*model.BuildState, error) {
	out, err := c.api.BatchGetBuilds(ctx, &codebuild.BatchGetBuildsInput{
		Ids: []string{string(handle)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get build %s: %w", handle, err)
	}
	if len(out.Builds) == 0 {
		return nil, fmt.Errorf("build %s not found", handle)
	}

	build := out.Builds[0]
	state := &model.BuildState{
		Status: model.BuildStatus(build.BuildStatus),
	}
	for _, v := range build.ExportedEnvironmentVariables {
		state.ExportedVariables = append(state.ExportedVariables, model.ExportedVariable{
			Name:  aws.ToString(v.Name),
			Value: aws.ToString(v.Value),
		})
	}
	return state, nil
}
