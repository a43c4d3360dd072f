package main

import (
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Serve   ServeCmd         `cmd:"" default:"withargs" help:"Run the table server"`
	Watch   WatchCmd         `cmd:"" help:"Watch or play a table in the terminal"`
	Token   TokenCmd         `cmd:"" help:"Issue a signed player token"`
	Eval    EvalCmd          `cmd:"" help:"Evaluate and compare hands"`
}

func main() {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdemd"),
		kong.Description("Multi-table Texas Hold'em cash game server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
