package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/krailo/ghsync/store"
	"github.com/krailo/ghsync/syncer"
)

const (
	closeHelp  = `Close an issue or pull request by number.`
	reopenHelp = `Reopen a closed issue or pull request by number.`
)

func (cmd *closeCommand) Name() string      { return "close" }
func (cmd *closeCommand) Args() string      { return "NUMBER" }
func (cmd *closeCommand) ShortHelp() string { return closeHelp }
func (cmd *closeCommand) LongHelp() string  { return closeHelp }
func (cmd *closeCommand) Hidden() bool      { return false }

func (cmd *closeCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.reason, "reason", "", "state reason (completed, not_planned)")
	fs.BoolVar(&cmd.wait, "wait", false, "poll until the API reports the new state")
}

type closeCommand struct {
	reason string
	wait   bool
}

func (cmd *closeCommand) Run(ctx context.Context, args []string) error {
	return runCommand(ctx, func(ctx context.Context, s *syncer.Syncer) error {
		return changeState(ctx, s, args, "closed", cmd.reason, cmd.wait)
	})
}

func (cmd *reopenCommand) Name() string      { return "reopen" }
func (cmd *reopenCommand) Args() string      { return "NUMBER" }
func (cmd *reopenCommand) ShortHelp() string { return reopenHelp }
func (cmd *reopenCommand) LongHelp() string  { return reopenHelp }
func (cmd *reopenCommand) Hidden() bool      { return false }

func (cmd *reopenCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.wait, "wait", false, "poll until the API reports the new state")
}

type reopenCommand struct {
	wait bool
}

func (cmd *reopenCommand) Run(ctx context.Context, args []string) error {
	return runCommand(ctx, func(ctx context.Context, s *syncer.Syncer) error {
		return changeState(ctx, s, args, "open", "", cmd.wait)
	})
}

func changeState(ctx context.Context, s *syncer.Syncer, args []string, state, reason string, wait bool) error {
	if len(args) < 1 {
		return errors.New("pass an issue or pull request number")
	}
	number, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid number %q", args[0])
	}

	s.RefreshAll(ctx, false)

	id := findByNumber(s, number)
	if id == 0 {
		return fmt.Errorf("no entity with number %d", number)
	}
	if err := s.UpdateEntityState(ctx, id, state, reason); err != nil {
		return err
	}
	fmt.Printf("#%d is now %s\n", number, state)

	if wait && !s.WaitForEntityState(ctx, number, state, 5) {
		return fmt.Errorf("#%d did not report %s in time", number, state)
	}
	return nil
}

// findByNumber maps a user-facing number to the entity id the
// materialized sets are keyed by.
func findByNumber(s *syncer.Syncer, number int) int64 {
	for _, key := range store.Keys() {
		for _, node := range s.Provider(key).Roots() {
			if node.Entity.Number == number {
				return node.Entity.ID
			}
		}
	}
	return 0
}
