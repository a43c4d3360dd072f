package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/holdemtables/poker"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	handStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))
)

// EvalCmd ranks hole cards against a full board.
type EvalCmd struct {
	Hands []string `arg:"" help:"Hole cards per player, e.g. AcKd QhJs"`
	Board string   `short:"b" required:"" help:"Five board cards, e.g. Td7s8h2c3d"`
}

func (c *EvalCmd) Run() error {
	return evaluate(os.Stdout, c.Hands, c.Board)
}

type evaluated struct {
	hole  []poker.Card
	score poker.Score
}

func evaluate(w io.Writer, hands []string, boardText string) error {
	board, err := poker.ParseCards(boardText)
	if err != nil {
		return fmt.Errorf("board: %w", err)
	}
	if len(board) != 5 {
		return errors.New("board must have exactly five cards")
	}
	if len(hands) == 0 {
		return errors.New("at least one hand is required")
	}

	results := make([]evaluated, 0, len(hands))
	for _, h := range hands {
		hole, err := poker.ParseCards(h)
		if err != nil {
			return fmt.Errorf("hand %q: %w", h, err)
		}
		if len(hole) != 2 {
			return fmt.Errorf("hand %q: need two cards", h)
		}
		score, err := poker.Evaluate(slices.Concat(hole, board)...)
		if err != nil {
			return fmt.Errorf("hand %q: %w", h, err)
		}
		results = append(results, evaluated{hole: hole, score: score})
	}

	best := results[0].score
	for _, r := range results[1:] {
		if r.score.Compare(best) > 0 {
			best = r.score
		}
	}

	fmt.Fprintln(w, headerStyle.Render("Board: "+poker.FormatCards(board)))
	for _, r := range results {
		line := fmt.Sprintf("%s  %s", handStyle.Render(poker.FormatCards(r.hole)), categoryStyle.Render(r.score.String()))
		if r.score.Compare(best) == 0 {
			line += "  " + winStyle.Render("wins")
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	return nil
}
