package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/genuinetools/pkg/cli"
	"github.com/sirupsen/logrus"

	"github.com/krailo/ghsync/config"
	"github.com/krailo/ghsync/syncer"
	"github.com/krailo/ghsync/version"
)

var (
	configPath string
	token      string
	owner      string
	repo       string
	perPage    int
	maxItems   int
	debug      bool

	cfg *config.Config
)

func main() {
	p := cli.NewProgram()
	p.Name = "ghsync"
	p.Description = "A background sync layer for GitHub issues and pull requests"

	p.GitCommit = version.GITCOMMIT
	p.Version = version.VERSION

	p.FlagSet = flag.NewFlagSet("global", flag.ExitOnError)
	p.FlagSet.StringVar(&configPath, "config", "", "config file (default ~/.ghsync.toml)")
	p.FlagSet.StringVar(&token, "token", "", "GitHub API token (or env var GITHUB_TOKEN)")
	p.FlagSet.StringVar(&owner, "owner", "", "repository owner (or env var GITHUB_OWNER)")
	p.FlagSet.StringVar(&repo, "repo", "", "repository name (or env var GITHUB_REPO)")
	p.FlagSet.IntVar(&perPage, "per-page", 0, "list page size (1-100)")
	p.FlagSet.IntVar(&maxItems, "max-items", 0, "cap on items per partition (1-1000)")

	p.FlagSet.BoolVar(&debug, "debug", false, "enable debug logging")
	p.FlagSet.BoolVar(&debug, "d", false, "enable debug logging")

	p.Before = func(ctx context.Context) error {
		if debug {
			logrus.SetLevel(logrus.DebugLevel)
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if token != "" {
			cfg.Token = token
		}
		if owner != "" {
			cfg.Owner = owner
		}
		if repo != "" {
			cfg.Repo = repo
		}
		if perPage > 0 {
			cfg.ItemsPerPage = perPage
		}
		if maxItems > 0 {
			cfg.MaxRecentItems = maxItems
		}
		cfg.Clamp()

		return cfg.Validate()
	}

	p.Commands = []cli.Command{
		&listCommand{},
		&refreshCommand{},
		&watchCommand{},
		&closeCommand{},
		&reopenCommand{},
		&reposCommand{},
	}

	p.Run()
}

// runCommand builds a syncer and hands it to the subcommand, wiring
// ^C and SIGTERM to context cancellation.
func runCommand(ctx context.Context, fn func(context.Context, *syncer.Syncer) error) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	signal.Notify(signals, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for sig := range signals {
			logrus.Infof("Received %s, exiting.", sig.String())
			cancel()
		}
	}()

	return fn(ctx, syncer.New(ctx, cfg))
}
