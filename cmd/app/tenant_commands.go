package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/tenantvault/cmd/app/commands"
	"github.com/allisson/tenantvault/internal/app"
	"github.com/allisson/tenantvault/internal/config"
)

func getTenantCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-tenant",
			Usage: "Provision a tenant and its first data key version",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Human-readable tenant name",
				},
				routingKeyFlag(),
				&cli.StringFlag{
					Name:    "plan",
					Aliases: []string{"p"},
					Value:   "free",
					Usage:   "Plan: free, basic, premium or enterprise",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				tenantUseCase, err := container.TenantUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateTenant(
					ctx,
					tenantUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("routing-key"),
					cmd.String("plan"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "create-admin-tenant",
			Usage: "Provision the platform-admin tenant (routing key \"admin\")",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "name",
					Aliases: []string{"n"},
					Value:   "Platform Admin",
					Usage:   "Human-readable tenant name",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				tenantUseCase, err := container.TenantUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateAdminTenant(
					ctx,
					tenantUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "deactivate-tenant",
			Usage: "Deactivate a tenant; its requests are rejected from then on",
			Flags: []cli.Flag{routingKeyFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				tenantUseCase, err := container.TenantUseCase()
				if err != nil {
					return err
				}

				return commands.RunDeactivateTenant(
					ctx,
					tenantUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("routing-key"),
					cmd.String("format"),
				)
			},
		},
	}
}
