package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/cli/config"
	controller "github.com/m-mizutani/gitbridge/pkg/controller/http"
	"github.com/m-mizutani/gitbridge/pkg/infra/codebuild"
	"github.com/m-mizutani/gitbridge/pkg/usecase"
	"github.com/m-mizutani/gitbridge/pkg/utils/async"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg  config.Server
		authCfg    config.Auth
		buildCfg   config.Build
		awsCfg     config.AWS
		storageCfg config.Storage
		archiveCfg config.Archive
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, buildCfg.Flags()...)
	flags = append(flags, awsCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if _, err := usecase.ParseAllowedIPs(authCfg.AllowedIPs); err != nil {
				return err
			}
			if err := buildCfg.Validate(); err != nil {
				return err
			}

			logger.Info("Starting gitbridge server",
				slog.String("addr", serverCfg.Addr),
				slog.String("codebuild_project", buildCfg.Project),
				slog.String("storage_backend", storageCfg.Backend),
				slog.Bool("async_completion", serverCfg.AsyncCompletion),
			)

			awsConfig, err := awsCfg.Load(ctx)
			if err != nil {
				return err
			}

			store, closeStore, err := storageCfg.NewStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			// Create use cases
			gitPullUC := usecase.NewGitPull(
				codebuild.New(awsConfig),
				buildCfg.Project,
				buildCfg.GitPullOptions()...,
			)
			archiveUC := usecase.NewArchive(
				archiveCfg.Fetcher(),
				store,
				archiveCfg.ArchiveOptions()...,
			)

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				gitPullUC,
				archiveUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithEventContext(config.EventContext(&authCfg, &buildCfg, &archiveCfg)),
				controller.WithTrustProxyHeaders(serverCfg.TrustProxyHeaders),
				controller.WithAsyncCompletion(serverCfg.AsyncCompletion),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := async.Wait(shutdownCtx); err != nil {
				logger.Warn("Background build polling did not finish", slog.Any("error", err))
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
