package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	appMigrations "github.com/quantumlab/labtrack/internal/app/migrations"
	appRepos "github.com/quantumlab/labtrack/internal/app/repositories"
	"github.com/quantumlab/labtrack/internal/bootstrap"
	"github.com/quantumlab/labtrack/internal/pkg/logger"
	"github.com/quantumlab/labtrack/internal/seed"
	"github.com/quantumlab/labtrack/internal/server"
)

// @title LabTrack API
// @version 1.0
// @description Lab experiment management: assignments, files, reports, notifications, audit log and messaging.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:5000
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization, as "Bearer <token>"

func main() {
	root := &cli.Command{
		Name:  "labtrack",
		Usage: "Lab experiment management API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   filepath.Join("configs", "config.yaml"),
				Usage:   "path to the YAML configuration file",
				Sources: cli.EnvVars("LABTRACK_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			createAdminCommand(),
		},
		Action: runServer,
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		logger.Error().Err(err).Msg("labtrack exited with an error")
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API (default)",
		Action: runServer,
	}
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	srv, err := server.NewServer(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("Application finished gracefully.")
	return nil
}

func migrateCommand() *cli.Command {
	step := func(apply func(*appMigrations.Migrator, context.Context) error) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(cmd.String("config"))
			if err != nil {
				return err
			}
			pool, err := bootstrap.ConnectDatabase(ctx, cfg, lgr)
			if err != nil {
				return err
			}
			defer pool.Close()
			return apply(appMigrations.NewMigrator(pool, lgr), ctx)
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{Name: "up", Usage: "Apply all pending migrations", Action: step((*appMigrations.Migrator).Up)},
			{Name: "down", Usage: "Roll back the latest migration", Action: step((*appMigrations.Migrator).Down)},
			{Name: "status", Usage: "Show applied migrations", Action: step((*appMigrations.Migrator).Status)},
		},
	}
}

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create an administrator account if the email is not taken",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Value: "Administrator"},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("LABTRACK_ADMIN_PASSWORD")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(cmd.String("config"))
			if err != nil {
				return err
			}
			pool, err := bootstrap.ConnectDatabase(ctx, cfg, lgr)
			if err != nil {
				return err
			}
			defer pool.Close()

			admin := seed.Admin{Name: cmd.String("name"), Email: cmd.String("email"), Password: cmd.String("password")}
			created, err := seed.EnsureAdmin(ctx, appRepos.NewUserRepository(pool), admin, lgr)
			if err != nil {
				return err
			}
			if !created {
				return errors.New("an account with that email already exists")
			}
			fmt.Fprintf(cmd.Root().Writer, "created admin %s\n", admin.Email)
			return nil
		},
	}
}
