package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/krailo/ghsync/store"
	"github.com/krailo/ghsync/syncer"
	"github.com/krailo/ghsync/tree"
)

const listHelp = `List cached issues and pull requests for the configured repository.`

func (cmd *listCommand) Name() string      { return "list" }
func (cmd *listCommand) Args() string      { return "[OPTIONS]" }
func (cmd *listCommand) ShortHelp() string { return listHelp }
func (cmd *listCommand) LongHelp() string  { return listHelp }
func (cmd *listCommand) Hidden() bool      { return false }

func (cmd *listCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.kind, "type", "all", "entity type to list (issues, pulls, all)")
	fs.StringVar(&cmd.state, "state", "open", "entity state to list (open, closed, all)")
}

type listCommand struct {
	kind  string
	state string
}

func (cmd *listCommand) Run(ctx context.Context, args []string) error {
	return runCommand(ctx, cmd.handleList)
}

func (cmd *listCommand) handleList(ctx context.Context, s *syncer.Syncer) error {
	s.RefreshAll(ctx, false)

	for _, key := range store.Keys() {
		if !cmd.wants(key) {
			continue
		}
		p := s.Provider(key)
		fmt.Printf("%s (%d)\n", key, p.Len())
		for _, node := range p.Roots() {
			printNode(node)
		}
	}
	return nil
}

func (cmd *listCommand) wants(key store.Key) bool {
	switch cmd.kind {
	case "issues":
		if key.Kind != store.KindIssue {
			return false
		}
	case "pulls":
		if key.Kind != store.KindPull {
			return false
		}
	}
	switch cmd.state {
	case "open":
		return key.State == store.StateOpen
	case "closed":
		return key.State == store.StateClosed
	}
	return true
}

func printNode(node *tree.Node) {
	e := node.Entity
	glyph := "o"
	if e.State == "closed" {
		glyph = "x"
		if e.StateReason == "not_planned" {
			glyph = "-"
		}
	}
	fmt.Printf("  %s #%-5d %s (%d comments)\n", glyph, e.Number, e.Title, len(node.Comments))
}
