package main

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/holdemtables/internal/tui"
)

// WatchCmd opens the terminal client on one table.
type WatchCmd struct {
	Table    string `arg:"" help:"Table ID"`
	Server   string `short:"s" default:"http://localhost:8080" env:"HOLDEMD_SERVER" help:"Server URL"`
	Token    string `short:"t" env:"HOLDEMD_TOKEN" required:"" help:"Player token"`
	ReadOnly bool   `help:"Only watch, never send actions"`
	Debug    bool   `help:"Log connection errors to stderr"`
}

func (c *WatchCmd) Run() error {
	logger := log.New(os.Stderr)
	if c.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := tui.Dial(ctx, c.Server, c.Table, c.Token, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	var sender tui.Sender = client
	if c.ReadOnly {
		sender = nil
	}
	model := tui.NewModel(sender, client.Messages())
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
