package main

import (
	"context"
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/krailo/ghsync/syncer"
)

const watchHelp = `Run the background refresh loop until interrupted.`

func (cmd *watchCommand) Name() string      { return "watch" }
func (cmd *watchCommand) Args() string      { return "" }
func (cmd *watchCommand) ShortHelp() string { return watchHelp }
func (cmd *watchCommand) LongHelp() string  { return watchHelp }
func (cmd *watchCommand) Hidden() bool      { return false }

func (cmd *watchCommand) Register(fs *flag.FlagSet) {}

type watchCommand struct{}

func (cmd *watchCommand) Run(ctx context.Context, args []string) error {
	return runCommand(ctx, cmd.handleWatch)
}

func (cmd *watchCommand) handleWatch(ctx context.Context, s *syncer.Syncer) error {
	logrus.Infof("watching %s/%s every %s", cfg.Owner, cfg.Repo, cfg.Interval())
	s.Run(ctx)
	return nil
}
