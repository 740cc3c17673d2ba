package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitbridge/pkg/cli/config"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
	"github.com/m-mizutani/gitbridge/pkg/infra/kms"
	"github.com/m-mizutani/gitbridge/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdKeygen() *cli.Command {
	var (
		keyID      string
		keyBucket  string
		awsCfg     config.AWS
		storageCfg config.Storage
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "kms-key",
			Usage:       "KMS key ID or alias used to encrypt the private key",
			Required:    true,
			Destination: &keyID,
			Sources:     cli.EnvVars("GITBRIDGE_KMS_KEY"),
		},
		&cli.StringFlag{
			Name:        "key-bucket",
			Usage:       "Bucket receiving the encrypted private key",
			Required:    true,
			Destination: &keyBucket,
			Sources:     cli.EnvVars("GITBRIDGE_KEY_BUCKET"),
		},
	}
	flags = append(flags, awsCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)

	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate the deploy key pair and print the public key",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			awsConfig, err := awsCfg.Load(ctx)
			if err != nil {
				return err
			}

			store, closeStore, err := storageCfg.NewStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			uc := usecase.NewKeyPair(kms.New(awsConfig), store)
			publicKey, err := uc.Provision(ctx, &model.KeyRequest{
				Type:      model.KeyRequestCreate,
				KeyID:     keyID,
				KeyBucket: keyBucket,
			})
			if err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Deploy key provisioned",
				slog.String("key_bucket", keyBucket),
				slog.String("key_object", model.KeyObject),
			)
			fmt.Println(publicKey)
			return nil
		},
	}
}
