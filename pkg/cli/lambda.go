package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/cli/config"
	"github.com/m-mizutani/gitbridge/pkg/controller/lambda"
	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/infra/codebuild"
	"github.com/m-mizutani/gitbridge/pkg/infra/kms"
	"github.com/m-mizutani/gitbridge/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdLambda() *cli.Command {
	var (
		function   string
		authCfg    config.Auth
		buildCfg   config.Build
		awsCfg     config.AWS
		storageCfg config.Storage
		archiveCfg config.Archive
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "function",
			Aliases:     []string{"f"},
			Usage:       "Function to serve (gitpull, archive, keygen)",
			Required:    true,
			Destination: &function,
			Sources:     cli.EnvVars("GITBRIDGE_FUNCTION"),
		},
	}
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, buildCfg.Flags()...)
	flags = append(flags, awsCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)

	return &cli.Command{
		Name:  "lambda",
		Usage: "Serve AWS Lambda invocations",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)
			logger.Info("Starting lambda function", slog.String("function", function))

			awsConfig, err := awsCfg.Load(ctx)
			if err != nil {
				return err
			}

			var (
				gitPullUC interfaces.GitPullUseCase
				archiveUC interfaces.ArchiveUseCase
				keyPairUC interfaces.KeyPairUseCase
			)

			switch function {
			case lambda.FunctionGitPull:
				if err := buildCfg.Validate(); err != nil {
					return err
				}
				gitPullUC = usecase.NewGitPull(codebuild.New(awsConfig), buildCfg.Project, buildCfg.GitPullOptions()...)

			case lambda.FunctionArchive:
				store, closeStore, err := storageCfg.NewStore(ctx)
				if err != nil {
					return err
				}
				defer closeStore()
				archiveUC = usecase.NewArchive(archiveCfg.Fetcher(), store, archiveCfg.ArchiveOptions()...)

			case lambda.FunctionKeygen:
				store, closeStore, err := storageCfg.NewStore(ctx)
				if err != nil {
					return err
				}
				defer closeStore()
				keyPairUC = usecase.NewKeyPair(kms.New(awsConfig), store)

			default:
				return goerr.New("unknown lambda function", goerr.V("function", function))
			}

			handler := lambda.NewHandler(
				config.EventContext(&authCfg, &buildCfg, &archiveCfg),
				gitPullUC,
				archiveUC,
				keyPairUC,
			)
			return lambda.Start(function, handler)
		},
	}
}
