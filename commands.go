package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cppla/careping/app"
	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/config"
	"github.com/cppla/careping/models"
	"github.com/cppla/careping/repository"
	"github.com/cppla/careping/routes"
	"github.com/cppla/careping/utils"
)

type rootOptions struct {
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "careping",
		Short:         "Check-in reminders and supervision between paired users",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := opts.ConfigPath
			if path == "" {
				path = os.Getenv("CONFIG_FILE")
			}
			if path == "" {
				path = config.DefaultPath
			}
			cfg, err := config.LoadFrom(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			config.Set(cfg)
			return utils.InitLogger(cfg)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = utils.Logger.Sync()
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (json or yaml)")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newPollCommand())
	cmd.AddCommand(newReconcileCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newUserCommand())
	return cmd
}

// build connects the stores and wires the engine.
func build(ctx context.Context) (*app.App, *redis.Client, error) {
	cfg := config.Get()
	db := config.InitDatabase()
	if err := config.Migrate(db, models.All()...); err != nil {
		return nil, nil, err
	}
	rdb, err := utils.NewRedis(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	transport, err := app.NewTransport(cfg, utils.Logger)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return app.New(cfg, db, rdb, clock.NewReal(cfg.Location()), transport, utils.Logger), rdb, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background schedulers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if cfg.JWTSecret == "" {
				return errors.New("JWTSecret must be configured to serve")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, rdb, err := build(ctx)
			if err != nil {
				return err
			}
			defer rdb.Close()

			// catch up on unbinds that came due while the process was down
			if err := a.Unbinds.Reconcile(ctx); err != nil {
				utils.Logger.Warn("startup reconcile failed", zap.Error(err))
			}
			sched, err := a.Scheduler()
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			r := routes.SetupRouter(cfg, routes.Deps{CheckIns: a.CheckIns, Relations: a.Relations, Users: a.Users})
			utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
			return utils.GraceServer(ctx, ":"+cfg.AppPort, r)
		},
	}
}

func newPollCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one reminder tick and one unbind tick, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), config.Get().TickTimeout())
			defer cancel()
			a, rdb, err := build(ctx)
			if err != nil {
				return err
			}
			defer rdb.Close()

			res, remindErr := a.Reminder.Poll(ctx, a.Clock.Now())
			scanErr := a.Unbinds.Scan(ctx)
			queued, lenErr := a.Queue.Len(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "reminded=%d missed=%d unbind_queue=%d\n", res.Reminded, res.Missed, queued)
			return multierr.Combine(remindErr, scanErr, lenErr)
		},
	}
}

func newReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Re-enqueue UNBINDING relations missing from the delay queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), config.Get().TickTimeout())
			defer cancel()
			a, rdb, err := build(ctx)
			if err != nil {
				return err
			}
			defer rdb.Close()
			n, err := a.Relations.Reconcile(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "restored=%d\n", n)
			return err
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Migrate(config.InitDatabase(), models.All()...)
		},
	}
}

func newUserCommand() *cobra.Command {
	var nickname string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "user <username>",
		Short: "Create a user and print a bearer token for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db := config.InitDatabase()
			if err := config.Migrate(db, models.All()...); err != nil {
				return err
			}
			u := &models.User{Username: args[0], Nickname: nickname}
			if err := repository.NewUserRepository(db).Create(cmd.Context(), u); err != nil {
				return err
			}
			token, err := utils.GenerateToken(u.ID, u.Username, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id=%d token=%s\n", u.ID, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	return cmd
}
