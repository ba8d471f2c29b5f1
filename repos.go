package main

import (
	"context"
	"flag"
	"fmt"
)

const reposHelp = `List the repositories configured for switching.`

func (cmd *reposCommand) Name() string      { return "repos" }
func (cmd *reposCommand) Args() string      { return "" }
func (cmd *reposCommand) ShortHelp() string { return reposHelp }
func (cmd *reposCommand) LongHelp() string  { return reposHelp }
func (cmd *reposCommand) Hidden() bool      { return false }

func (cmd *reposCommand) Register(fs *flag.FlagSet) {}

type reposCommand struct{}

func (cmd *reposCommand) Run(ctx context.Context, args []string) error {
	active := fmt.Sprintf("%s/%s", cfg.Owner, cfg.Repo)
	seen := false
	for _, r := range cfg.Repos {
		marker := " "
		if r == active {
			marker = "*"
			seen = true
		}
		fmt.Printf("%s %s\n", marker, r)
	}
	if !seen {
		fmt.Printf("* %s\n", active)
	}
	return nil
}
