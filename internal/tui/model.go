// Package tui is a terminal client for watching and playing one table over
// the websocket stream.
package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/server"
	"github.com/lox/holdemtables/internal/table"
	"github.com/lox/holdemtables/poker"
)

const sidebarWidth = 36

// Sender writes requests to the table. *Client implements it.
type Sender interface {
	Send(typ server.MessageType, data any) (string, error)
}

type serverMsg struct{ msg *server.Message }

type disconnectedMsg struct{}

// Model is the bubbletea model for one table.
type Model struct {
	sender   Sender
	messages <-chan *server.Message

	viewport viewport.Model
	input    textinput.Model
	lines    []string
	snapshot *table.Snapshot

	width, height int
	connected     bool
	quitting      bool
}

// NewModel builds a model reading from messages and writing to sender. A
// nil sender makes the model read-only.
func NewModel(sender Sender, messages <-chan *server.Message) *Model {
	ti := textinput.New()
	ti.Placeholder = "fold, check, call, bet N, raise N, allin, leave, sitout, sitin, quit"
	ti.CharLimit = 64
	ti.Focus()

	vp := viewport.New(80, 20)

	return &Model{
		sender:    sender,
		messages:  messages,
		viewport:  vp,
		input:     ti,
		connected: true,
	}
}

// Init starts reading from the stream.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitFor(m.messages))
}

func waitFor(ch <-chan *server.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return disconnectedMsg{}
		}
		return serverMsg{msg: msg}
	}
}

// Update handles terminal and stream messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = max(20, msg.Width-sidebarWidth-4)
		m.viewport.Height = max(5, msg.Height-7)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "quit" || line == "q" {
				m.quitting = true
				return m, tea.Quit
			}
			if line != "" {
				m.submit(line)
			}
			return m, nil
		}

	case serverMsg:
		m.handle(msg.msg)
		cmds = append(cmds, waitFor(m.messages))

	case disconnectedMsg:
		m.connected = false
		m.logLine(ErrorStyle.Render("Disconnected from server"))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) submit(line string) {
	if m.sender == nil {
		m.logLine(WarningStyle.Render("Read-only stream"))
		return
	}
	if !m.connected {
		m.logLine(ErrorStyle.Render("Not connected"))
		return
	}
	typ, data, err := ParseCommand(line)
	if err != nil {
		m.logLine(ErrorStyle.Render(err.Error()))
		return
	}
	if req, ok := data.(server.ActionRequest); ok && m.snapshot != nil && m.snapshot.HandID != "" {
		req.Hand, req.Street = m.snapshot.HandID, m.snapshot.Street
		data = req
	}
	if _, err := m.sender.Send(typ, data); err != nil {
		m.logLine(ErrorStyle.Render("Send failed: " + err.Error()))
		return
	}
	m.logLine(InfoStyle.Render("> " + line))
}

func (m *Model) handle(msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeSnapshot:
		var s table.Snapshot
		if err := json.Unmarshal(msg.Data, &s); err != nil {
			m.logLine(ErrorStyle.Render("Bad snapshot: " + err.Error()))
			return
		}
		for _, e := range s.Events {
			if line := describeEvent(e, &s); line != "" {
				m.logLine(line)
			}
		}
		m.snapshot = &s
		m.refresh()
	case server.MessageTypeError:
		var e server.ErrorData
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			m.logLine(ErrorStyle.Render("Error"))
			return
		}
		m.logLine(ErrorStyle.Render(fmt.Sprintf("%s: %s", e.Code, e.Message)))
	}
}

func (m *Model) logLine(line string) {
	m.lines = append(m.lines, line)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// Lines returns the log lines written so far.
func (m *Model) Lines() []string { return m.lines }

// View renders the log, the table sidebar and the input line.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	title := "holdem"
	if m.snapshot != nil {
		title = fmt.Sprintf("%s  %d/%d", tableName(m.snapshot), m.snapshot.SmallBlind, m.snapshot.BigBlind)
	}
	header := HeaderStyle.Render(title)

	log := paneStyle.Width(m.viewport.Width).Render(m.viewport.View())
	side := paneStyle.Width(sidebarWidth).Height(m.viewport.Height).Render(m.renderSidebar())
	body := lipgloss.JoinHorizontal(lipgloss.Top, log, side)

	footer := m.renderActionBar()
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer, m.input.View())
}

func (m *Model) renderSidebar() string {
	s := m.snapshot
	if s == nil {
		return InfoStyle.Render("Waiting for table...")
	}
	var b strings.Builder
	if s.HandNumber > 0 {
		fmt.Fprintf(&b, "Hand #%d  %s\n", s.HandNumber, StreetStyle.Render(s.Street))
	} else {
		fmt.Fprintf(&b, "%s\n", StreetStyle.Render(s.Street))
	}
	fmt.Fprintf(&b, "Board: %s\n", RenderCards(s.Board))
	fmt.Fprintf(&b, "Pot:   %d\n\n", s.Pot)

	for _, seat := range s.Seats {
		b.WriteString(renderSeat(s, seat))
		b.WriteByte('\n')
	}
	if s.Deadline != nil && s.ToAct >= 0 {
		left := time.Until(*s.Deadline).Round(time.Second)
		label := "to act"
		if s.InTimebank {
			label = "timebank"
		}
		fmt.Fprintf(&b, "\n%s: %s", label, max(left, 0))
	}
	return b.String()
}

func renderSeat(s *table.Snapshot, seat table.SeatView) string {
	if seat.State == table.SeatEmpty {
		return InfoStyle.Render(fmt.Sprintf("%d  (empty)", seat.Seat+1))
	}
	marker := " "
	if seat.Seat == s.Button {
		marker = "D"
	}
	name := seatName(seat)
	if seat.Seat == s.ViewerSeat {
		name += "*"
	}
	line := fmt.Sprintf("%d%s %-10s %6d", seat.Seat+1, marker, name, seat.Stack)
	if seat.Bet > 0 {
		line += fmt.Sprintf(" [%d]", seat.Bet)
	}
	switch {
	case len(seat.Hole) > 0:
		line += " " + RenderCards(seat.Hole)
	case seat.HiddenHole > 0:
		line += " " + strings.Repeat("## ", seat.HiddenHole)[:3*seat.HiddenHole-1]
	}
	switch {
	case seat.Seat == s.ToAct:
		return ActingStyle.Render(line)
	case seat.Folded, seat.State == table.SeatSittingOut:
		return FoldedStyle.Render(line)
	case seat.AllIn:
		return WarningStyle.Render(line + " all-in")
	}
	return line
}

func (m *Model) renderActionBar() string {
	s := m.snapshot
	if s == nil || s.ActionBar == nil {
		if !m.connected {
			return ErrorStyle.Render("disconnected")
		}
		return InfoStyle.Render("q to quit")
	}
	return ActionsStyle.Render(FormatActionBar(*s.ActionBar))
}

// FormatActionBar lists the commands available for bar.
func FormatActionBar(bar game.ActionBar) string {
	parts := []string{"fold"}
	if bar.CanCheck {
		parts = append(parts, "check")
	} else if bar.CallAmount > 0 {
		parts = append(parts, fmt.Sprintf("call %d", bar.CallAmount))
	}
	switch {
	case bar.MinBet > 0:
		parts = append(parts, fmt.Sprintf("bet %d-%d", bar.MinBet, bar.MaxTotal))
	case bar.CanRaise:
		parts = append(parts, fmt.Sprintf("raise %d-%d", bar.MinRaiseTo, bar.MaxTotal))
	}
	if bar.MaxTotal > 0 {
		parts = append(parts, fmt.Sprintf("allin %d", bar.MaxTotal))
	}
	return "Your action: " + strings.Join(parts, " | ")
}

// RenderCards colours cards by suit.
func RenderCards(cards []poker.Card) string {
	if len(cards) == 0 {
		return InfoStyle.Render("-")
	}
	out := make([]string, len(cards))
	for i, c := range cards {
		text := c.Rank().String() + c.Suit().Symbol()
		if c.Suit().IsRed() {
			out[i] = RedCardStyle.Render(text)
		} else {
			out[i] = BlackCardStyle.Render(text)
		}
	}
	return strings.Join(out, " ")
}

var errUsage = errors.New("usage: fold | check | call | bet N | raise N | allin | leave | sitout | sitin")

// ParseCommand turns an input line into a stream request.
func ParseCommand(line string) (server.MessageType, any, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return "", nil, errUsage
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "leave":
		return server.MessageTypeLeave, struct{}{}, nil
	case "sitout", "sit_out":
		return server.MessageTypeSitOut, struct{}{}, nil
	case "sitin", "sit_in":
		return server.MessageTypeSitIn, struct{}{}, nil
	case "f":
		cmd = "fold"
	case "k", "x":
		cmd = "check"
	case "c":
		cmd = "call"
	case "b":
		cmd = "bet"
	case "r":
		cmd = "raise"
	case "a", "shove":
		cmd = "allin"
	}

	kind, err := game.ParseActionKind(cmd)
	if err != nil {
		return "", nil, errUsage
	}
	req := server.ActionRequest{Kind: kind.String()}
	switch kind {
	case game.Bet, game.Raise:
		if len(args) != 1 {
			return "", nil, fmt.Errorf("%s needs an amount", kind)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return "", nil, fmt.Errorf("invalid amount %q", args[0])
		}
		req.Amount = n
	default:
		if len(args) != 0 {
			return "", nil, fmt.Errorf("%s takes no amount", kind)
		}
	}
	return server.MessageTypeAction, req, nil
}

// describeEvent renders one table event as a log line. Events with nothing
// worth showing return "".
func describeEvent(e table.Event, s *table.Snapshot) string {
	who := playerLabel(s, e.Seat, e.PlayerID)
	switch e.Type {
	case table.EventSeated:
		return SuccessStyle.Render(fmt.Sprintf("%s sits in seat %d with %d", who, e.Seat+1, e.Amount))
	case table.EventLeft:
		return fmt.Sprintf("%s leaves with %d", who, e.Amount)
	case table.EventRebuy:
		return fmt.Sprintf("%s adds %d", who, e.Amount)
	case table.EventSitOut:
		return InfoStyle.Render(who + " sits out")
	case table.EventSitIn:
		return InfoStyle.Render(who + " is back")
	case table.EventHandStarted:
		return HeaderStyle.Render(fmt.Sprintf("Hand %s", shortID(e.HandID)))
	case table.EventStreet:
		return StreetStyle.Render(fmt.Sprintf("*** %s *** %s", strings.ToUpper(e.Street.String()), RenderCards(e.Board)))
	case table.EventTimebank:
		return WarningStyle.Render(who + " is using their timebank")
	case table.EventHandAborted:
		msg := "Hand aborted"
		if e.Error != "" {
			msg += ": " + e.Error
		}
		return ErrorStyle.Render(msg)
	case table.EventAction:
		if e.Action == nil {
			return ""
		}
		return describeAction(who, *e.Action)
	case table.EventHandEnded:
		if e.Result == nil {
			return ""
		}
		return describeResult(s, e.Result)
	}
	return ""
}

func describeAction(who string, a game.LogEntry) string {
	var text string
	switch a.Kind {
	case game.PostSmallBlind:
		text = fmt.Sprintf("%s posts small blind %d", who, a.Amount)
	case game.PostBigBlind:
		text = fmt.Sprintf("%s posts big blind %d", who, a.Amount)
	case game.Fold:
		text = who + " folds"
	case game.Check:
		text = who + " checks"
	case game.Call:
		text = fmt.Sprintf("%s calls %d", who, a.Amount)
	case game.Bet:
		text = fmt.Sprintf("%s bets %d", who, a.Total)
	case game.Raise:
		text = fmt.Sprintf("%s raises to %d", who, a.Total)
	default:
		text = fmt.Sprintf("%s %s %d", who, a.Kind, a.Amount)
	}
	if a.AllIn {
		text += " and is all-in"
	}
	if a.Auto {
		text += " (timeout)"
	}
	return text
}

func describeResult(s *table.Snapshot, res *game.Result) string {
	var lines []string
	for _, sh := range res.Shown {
		lines = append(lines, fmt.Sprintf("%s shows %s (%s)", playerLabel(s, sh.Seat, ""), RenderCards(sh.Hole), sh.Rank))
	}
	for _, p := range res.Payouts {
		if p.Seat == game.RakeSeat {
			continue
		}
		if p.Reason == game.ReasonReturn {
			lines = append(lines, InfoStyle.Render(fmt.Sprintf("%s takes back %d uncalled", playerLabel(s, p.Seat, ""), p.Amount)))
			continue
		}
		lines = append(lines, SuccessStyle.Render(fmt.Sprintf("%s wins %d", playerLabel(s, p.Seat, ""), p.Amount)))
	}
	if res.Rake > 0 {
		lines = append(lines, InfoStyle.Render(fmt.Sprintf("rake %d", res.Rake)))
	}
	return strings.Join(lines, "\n")
}

func playerLabel(s *table.Snapshot, seat int, playerID string) string {
	if s != nil && seat >= 0 && seat < len(s.Seats) {
		if v := s.Seats[seat]; v.State != table.SeatEmpty && (playerID == "" || v.PlayerID == playerID) {
			return seatName(v)
		}
	}
	if playerID != "" {
		return playerID
	}
	return fmt.Sprintf("seat %d", seat+1)
}

func seatName(v table.SeatView) string {
	if v.Name != "" {
		return v.Name
	}
	return v.PlayerID
}

func tableName(s *table.Snapshot) string {
	if s.Name != "" {
		return s.Name
	}
	return s.TableID
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
