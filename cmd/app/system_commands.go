package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/tenantvault/cmd/app/commands"
	"github.com/allisson/tenantvault/internal/app"
	"github.com/allisson/tenantvault/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "down",
					Usage: "Roll back this many migrations instead of applying pending ones",
					Value: 0,
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(
					container.Logger(),
					cfg.DBDriver,
					cfg.DBConnectionString,
					int(cmd.Int("down")),
				)
			},
		},
		{
			Name:  "audit-dispatcher",
			Usage: "Deliver pending audit outbox events until interrupted",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				dispatcher, err := container.AuditDispatcher()
				if err != nil {
					return err
				}

				return commands.RunAuditDispatcher(ctx, dispatcher, container.Logger(), cfg.AuditSink)
			},
		},
	}
}
