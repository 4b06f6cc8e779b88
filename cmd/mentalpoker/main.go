// Command mentalpoker serves referees and plays heads-up mental poker hands.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/luca-patrignani/mental-poker-channel/config"
)

// version is set by ldflags during build
var version = "dev"

type Globals struct {
	Config   string           `short:"c" default:"mentalpoker.hcl" help:"Path to HCL configuration file" type:"path"`
	LogLevel string           `short:"l" help:"Log level (overrides config)"`
	Version  kong.VersionFlag `short:"v" help:"Show version"`
}

type CLI struct {
	Globals

	Serve    ServeCmd    `cmd:"" help:"Run a referee server"`
	Simulate SimulateCmd `cmd:"" help:"Play hands between two bots"`
	Play     PlayCmd     `cmd:"" help:"Play a hand interactively"`
}

// app is what every command runs with.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("mentalpoker"),
		kong.Description("Two player mental poker over a referee channel"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)
	a, err := newApp(cli.Globals)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		ctx.Exit(1)
	}
	ctx.FatalIfErrorf(ctx.Run(a))
}

func newApp(g Globals) (*app, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", g.Config, err)
	}
	level, _ := cfg.Level()
	return &app{cfg: cfg, logger: newLogger(level)}, nil
}

func newLogger(level slog.Level) *slog.Logger {
	l := pterm.DefaultLogger.WithLevel(ptermLevel(level))
	return slog.New(pterm.NewSlogHandler(l))
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		return pterm.LogLevelWarn
	}
	return pterm.LogLevelError
}

func banner() {
	_ = pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("M", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("ental ", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("P", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("oker", pterm.FgDarkGray.ToStyle()),
	).Render()
}
