// Command cr-companion tracks the opponent's elixir, deck and card cycle
// from an external detector feed and serves tactical state to the overlay.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/crtools/cr-companion/internal/config"
	"github.com/crtools/cr-companion/internal/version"
)

var cli struct {
	Config  string           `short:"c" help:"Path to config file (default ~/.cr-companion/config.toml)."`
	Debug   bool             `short:"d" help:"Enable debug logging."`
	Version kong.VersionFlag `short:"v" help:"Print version and exit."`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Run the companion, reading detector output from stdin."`
	History HistoryCmd `cmd:"" help:"Show recent match history."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("cr-companion"),
		kong.Description("Opponent elixir and deck-cycle tracker."),
		kong.Vars{"version": version.Version},
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		ctx.Exit(1)
	}

	if cli.Debug || cfg.App.DebugMode {
		logger.SetLevel(log.DebugLevel)
	}

	ctx.FatalIfErrorf(ctx.Run(&runContext{config: cfg, logger: logger}))
}

type runContext struct {
	config *config.Config
	logger *log.Logger
}

func loadConfig() (*config.Config, error) {
	if cli.Config != "" {
		return config.LoadFile(cli.Config)
	}
	return config.Load()
}
