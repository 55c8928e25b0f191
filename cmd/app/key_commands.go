package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/tenantvault/cmd/app/commands"
	"github.com/allisson/tenantvault/internal/app"
	"github.com/allisson/tenantvault/internal/config"
	cryptoService "github.com/allisson/tenantvault/internal/crypto/service"
)

func routingKeyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "routing-key",
		Aliases:  []string{"r"},
		Required: true,
		Usage:    "Tenant routing key (subdomain label)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-root-secret",
			Usage: "Generate a new process root secret, optionally protected by KMS",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-provider",
					Value: "",
					Usage: "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateRootSecret(
					ctx,
					cryptoService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "rotate-tenant-key",
			Usage: "Create and activate the next data key version of a tenant",
			Flags: []cli.Flag{routingKeyFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				resolver, err := container.Resolver()
				if err != nil {
					return err
				}

				keys, err := container.KeyHierarchyUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateTenantKey(
					ctx,
					resolver,
					keys,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("routing-key"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-tenant-keys",
			Usage: "List the data key versions of a tenant",
			Flags: []cli.Flag{routingKeyFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				resolver, err := container.Resolver()
				if err != nil {
					return err
				}

				keys, err := container.KeyHierarchyUseCase()
				if err != nil {
					return err
				}

				return commands.RunListTenantKeys(
					ctx,
					resolver,
					keys,
					commands.DefaultIO().Writer,
					cmd.String("routing-key"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "reseal-credentials",
			Usage: "Re-seal a tenant's credentials under its active key version",
			Flags: []cli.Flag{
				routingKeyFlag(),
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   100,
					Usage:   "Number of credentials to process per batch",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				resolver, err := container.Resolver()
				if err != nil {
					return err
				}

				credentials, err := container.CredentialUseCase()
				if err != nil {
					return err
				}

				return commands.RunResealCredentials(
					ctx,
					resolver,
					credentials,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("routing-key"),
					int(cmd.Int("batch-size")),
				)
			},
		},
	}
}
