package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/krailo/ghsync/syncer"
)

const refreshHelp = `Force a refresh of every cached partition.`

func (cmd *refreshCommand) Name() string      { return "refresh" }
func (cmd *refreshCommand) Args() string      { return "" }
func (cmd *refreshCommand) ShortHelp() string { return refreshHelp }
func (cmd *refreshCommand) LongHelp() string  { return refreshHelp }
func (cmd *refreshCommand) Hidden() bool      { return false }

func (cmd *refreshCommand) Register(fs *flag.FlagSet) {}

type refreshCommand struct{}

func (cmd *refreshCommand) Run(ctx context.Context, args []string) error {
	return runCommand(ctx, cmd.handleRefresh)
}

func (cmd *refreshCommand) handleRefresh(ctx context.Context, s *syncer.Syncer) error {
	rebuilt := s.RefreshAll(ctx, true)
	for _, key := range rebuilt {
		fmt.Printf("refreshed %s: %d items\n", key, s.Provider(key).Len())
	}
	return nil
}
