package config

import (
	"time"

	"github.com/m-mizutani/gitbridge/pkg/domain/types"
	"github.com/m-mizutani/gitbridge/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Build holds build executor and polling configuration
type Build struct {
	Project         string
	KeyBucket       string
	OutputBucket    string
	PublicKey       string
	ExcludeGit      bool
	PollMaxAttempts int
	PollInterval    time.Duration
}

// Flags returns CLI flags for build configuration
func (c *Build) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "codebuild-project",
			Usage:       "CodeBuild project that clones and packages the repository",
			Destination: &c.Project,
			Sources:     cli.EnvVars("GITBRIDGE_CODEBUILD_PROJECT", "GitPullCodeBuild"),
		},
		&cli.StringFlag{
			Name:        "key-bucket",
			Usage:       "Bucket holding the encrypted deploy key",
			Destination: &c.KeyBucket,
			Sources:     cli.EnvVars("GITBRIDGE_KEY_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "output-bucket",
			Usage:       "Bucket receiving build and archive output",
			Destination: &c.OutputBucket,
			Sources:     cli.EnvVars("GITBRIDGE_OUTPUT_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "public-key",
			Usage:       "Deploy public key registered on the git host",
			Destination: &c.PublicKey,
			Sources:     cli.EnvVars("GITBRIDGE_PUBLIC_KEY"),
		},
		&cli.BoolFlag{
			Name:        "exclude-git",
			Usage:       "Exclude the .git directory from the build output",
			Destination: &c.ExcludeGit,
			Sources:     cli.EnvVars("GITBRIDGE_EXCLUDE_GIT", "ExcludeGit"),
		},
		&cli.IntFlag{
			Name:        "poll-max-attempts",
			Usage:       "Maximum number of build status queries",
			Value:       usecase.DefaultPollMaxAttempts,
			Destination: &c.PollMaxAttempts,
			Sources:     cli.EnvVars("GITBRIDGE_POLL_MAX_ATTEMPTS"),
		},
		&cli.DurationFlag{
			Name:        "poll-interval",
			Usage:       "Wait between build status queries",
			Value:       usecase.DefaultPollInterval,
			Destination: &c.PollInterval,
			Sources:     cli.EnvVars("GITBRIDGE_POLL_INTERVAL"),
		},
	}
}

// Validate checks the settings needed to dispatch builds
func (c *Build) Validate() error {
	if c.Project == "" {
		return goerr.Wrap(types.ErrInvalidConfig, "codebuild-project is required")
	}
	if c.PollMaxAttempts < 1 {
		return goerr.Wrap(types.ErrInvalidConfig, "poll-max-attempts must be positive",
			goerr.V("poll_max_attempts", c.PollMaxAttempts))
	}
	if c.PollInterval < 0 {
		return goerr.Wrap(types.ErrInvalidConfig, "poll-interval must not be negative",
			goerr.V("poll_interval", c.PollInterval))
	}
	return nil
}

// GitPullOptions returns the use case options derived from the configuration
func (c *Build) GitPullOptions() []usecase.GitPullOption {
	return []usecase.GitPullOption{
		usecase.WithExcludeGit(c.ExcludeGit),
		usecase.WithPollerOptions(
			usecase.WithMaxAttempts(c.PollMaxAttempts),
			usecase.WithInterval(c.PollInterval),
		),
	}
}
