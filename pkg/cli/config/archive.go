package config

import (
	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/infra/archive"
	"github.com/m-mizutani/gitbridge/pkg/infra/bitbucket"
	"github.com/m-mizutani/gitbridge/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Archive holds archive normalizer configuration
type Archive struct {
	GitToken          string
	OAuthKey          string
	OAuthSecret       string
	BitbucketTokenURL string
	ScratchDir        string
	Cleanup           bool
	SkipTLSVerify     bool
}

// Flags returns CLI flags for archive configuration
func (c *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "git-token",
			Usage:       "Access token for GitHub, GitLab and TFS archive downloads",
			Destination: &c.GitToken,
			Sources:     cli.EnvVars("GITBRIDGE_GIT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "oauth-key",
			Usage:       "Bitbucket OAuth consumer key",
			Destination: &c.OAuthKey,
			Sources:     cli.EnvVars("GITBRIDGE_OAUTH_KEY"),
		},
		&cli.StringFlag{
			Name:        "oauth-secret",
			Usage:       "Bitbucket OAuth consumer secret",
			Destination: &c.OAuthSecret,
			Sources:     cli.EnvVars("GITBRIDGE_OAUTH_SECRET"),
		},
		&cli.StringFlag{
			Name:        "bitbucket-token-url",
			Usage:       "Bitbucket OAuth2 token endpoint",
			Value:       bitbucket.DefaultTokenURL,
			Destination: &c.BitbucketTokenURL,
			Sources:     cli.EnvVars("GITBRIDGE_BITBUCKET_TOKEN_URL"),
		},
		&cli.StringFlag{
			Name:        "scratch-dir",
			Usage:       "Working directory for archive extraction (purged on every run)",
			Destination: &c.ScratchDir,
			Sources:     cli.EnvVars("GITBRIDGE_SCRATCH_DIR"),
		},
		&cli.BoolFlag{
			Name:        "cleanup",
			Usage:       "Remove the scratch directory after each run",
			Destination: &c.Cleanup,
			Sources:     cli.EnvVars("GITBRIDGE_CLEANUP"),
		},
		&cli.BoolFlag{
			Name:        "skip-tls-verify",
			Usage:       "Skip TLS verification when fetching archives from self-hosted servers",
			Destination: &c.SkipTLSVerify,
			Sources:     cli.EnvVars("GITBRIDGE_SKIP_TLS_VERIFY"),
		},
	}
}

// Fetcher returns the archive HTTP fetcher
func (c *Archive) Fetcher() interfaces.ArchiveFetcher {
	return archive.NewClient(archive.WithInsecureSkipVerify(c.SkipTLSVerify))
}

// ArchiveOptions returns the use case options derived from the configuration
func (c *Archive) ArchiveOptions() []usecase.ArchiveOption {
	opts := []usecase.ArchiveOption{
		usecase.WithCleanup(c.Cleanup),
		usecase.WithTokenIssuer(bitbucket.NewTokenIssuer(bitbucket.WithTokenURL(c.BitbucketTokenURL))),
	}
	if c.ScratchDir != "" {
		opts = append(opts, usecase.WithScratchDir(c.ScratchDir))
	}
	return opts
}
