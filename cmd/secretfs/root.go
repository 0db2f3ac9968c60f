package main

import (
	"context"
	"fmt"

	"github.com/hairyhenderson/go-secretfs/internal/config"
	"github.com/hairyhenderson/go-secretfs/internal/daemon"
	"github.com/hairyhenderson/go-secretfs/internal/tracing"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds the state shared by every command, set up before the command
// runs.
type app struct {
	v        *viper.Viper
	cfg      *config.Config
	log      *logrus.Logger
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "secretfs [flags] MOUNTPOINT",
		Short: "Mount a read-only, memory-only filesystem of secrets",
		Long: `secretfs collects secrets from the environment and from remote sources,
and serves them as read-only files from memory at MOUNTPOINT until it is
interrupted.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Mountpoint == "" {
				return fmt.Errorf("no mount point given: pass MOUNTPOINT or set %s", config.MountpointEnv)
			}

			return daemon.New(a.cfg, a.log).Run(cmd.Context())
		},
	}

	config.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(newListCmd(a), newReadCmd(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.BindFlags(cmd, a.v); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	a.cfg = config.Load(a.v, args)

	log, err := config.NewLogger(cmd.ErrOrStderr(), a.cfg.LogLevel, a.cfg.LogFormat)
	if err != nil {
		return err
	}

	a.log = log

	if a.cfg.Tracing {
		shutdown, err := tracing.Init(context.WithoutCancel(cmd.Context()), cmd.Root().Name(), log)
		if err != nil {
			return fmt.Errorf("init trace exporter: %w", err)
		}

		a.shutdown = shutdown
	}

	return nil
}

func (a *app) close(ctx context.Context) error {
	if a.shutdown == nil {
		return nil
	}

	return a.shutdown(ctx)
}
