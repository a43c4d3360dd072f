package tui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/server"
	"github.com/lox/holdemtables/internal/table"
	"github.com/lox/holdemtables/poker"
)

type sent struct {
	typ  server.MessageType
	data any
}

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) Send(typ server.MessageType, data any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sent{typ, data})
	return "1", nil
}

func snapshotMessage(t *testing.T, s table.Snapshot) serverMsg {
	t.Helper()
	msg, err := server.NewMessage(server.MessageTypeSnapshot, s)
	require.NoError(t, err)
	return serverMsg{msg: msg}
}

func testSnapshot() table.Snapshot {
	return table.Snapshot{
		TableID:    "main",
		SmallBlind: 10,
		BigBlind:   20,
		HandID:     "01HANDID",
		HandNumber: 1,
		Street:     "preflop",
		Button:     0,
		ToAct:      0,
		ViewerSeat: 0,
		Pot:        30,
		Seats: []table.SeatView{
			{Seat: 0, PlayerID: "alice", Name: "Alice", State: table.SeatOccupied, Stack: 990, Bet: 10, InHand: true, Hole: poker.MustParseCards("Ah Kd")},
			{Seat: 1, PlayerID: "bob", State: table.SeatOccupied, Stack: 980, Bet: 20, InHand: true, HiddenHole: 2},
			{Seat: 2, State: table.SeatEmpty},
		},
		Events: []table.Event{
			{Type: table.EventHandStarted, HandID: "01HANDID"},
			{Type: table.EventAction, Seat: 0, PlayerID: "alice", Action: &game.LogEntry{Kind: game.PostSmallBlind, Amount: 10, Total: 10}},
			{Type: table.EventAction, Seat: 1, PlayerID: "bob", Action: &game.LogEntry{Kind: game.PostBigBlind, Amount: 20, Total: 20}},
		},
		ActionBar: &game.ActionBar{CallAmount: 10, MinRaiseTo: 40, MaxTotal: 1000, CanRaise: true},
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		typ  server.MessageType
		data any
	}{
		{"fold", server.MessageTypeAction, server.ActionRequest{Kind: "fold"}},
		{"f", server.MessageTypeAction, server.ActionRequest{Kind: "fold"}},
		{"x", server.MessageTypeAction, server.ActionRequest{Kind: "check"}},
		{"Call", server.MessageTypeAction, server.ActionRequest{Kind: "call"}},
		{"bet 40", server.MessageTypeAction, server.ActionRequest{Kind: "bet", Amount: 40}},
		{"r 120", server.MessageTypeAction, server.ActionRequest{Kind: "raise", Amount: 120}},
		{"all-in", server.MessageTypeAction, server.ActionRequest{Kind: "allin"}},
		{"shove", server.MessageTypeAction, server.ActionRequest{Kind: "allin"}},
		{"leave", server.MessageTypeLeave, struct{}{}},
		{"sitout", server.MessageTypeSitOut, struct{}{}},
		{"sit_in", server.MessageTypeSitIn, struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			typ, data, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, typ)
			assert.Equal(t, tt.data, data)
		})
	}

	for _, bad := range []string{"", "dance", "bet", "bet many", "raise -5", "fold 10", "post_big_blind"} {
		_, _, err := ParseCommand(bad)
		assert.Error(t, err, bad)
	}
}

func TestModelRendersSnapshot(t *testing.T) {
	m := NewModel(&fakeSender{}, nil)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.Update(snapshotMessage(t, testSnapshot()))

	require.NotNil(t, m.snapshot)
	lines := strings.Join(m.Lines(), "\n")
	assert.Contains(t, lines, "Alice posts small blind 10")
	assert.Contains(t, lines, "bob posts big blind 20")

	view := m.View()
	assert.Contains(t, view, "main  10/20")
	assert.Contains(t, view, "Hand #1")
	assert.Contains(t, view, "Alice*")
	assert.Contains(t, view, "## ##")
	assert.Contains(t, view, "(empty)")
	assert.Contains(t, view, "call 10")
	assert.Contains(t, view, "raise 40-1000")
}

func TestModelSendsActionsForCurrentHand(t *testing.T) {
	sender := &fakeSender{}
	m := NewModel(sender, nil)
	m.Update(snapshotMessage(t, testSnapshot()))

	m.input.SetValue("raise 60")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, server.MessageTypeAction, sender.sent[0].typ)
	assert.Equal(t, server.ActionRequest{Hand: "01HANDID", Street: "preflop", Kind: "raise", Amount: 60}, sender.sent[0].data)
	assert.Empty(t, m.input.Value())

	m.input.SetValue("bet")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, sender.sent, 1)
	assert.Contains(t, m.Lines()[len(m.Lines())-1], "bet needs an amount")

	sender.err = errors.New("broken pipe")
	m.input.SetValue("fold")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.Lines()[len(m.Lines())-1], "broken pipe")
}

func TestModelShowsErrorsAndDisconnect(t *testing.T) {
	m := NewModel(nil, nil)
	msg, err := server.NewMessage(server.MessageTypeError, server.ErrorData{Code: "not_your_turn", Message: "not your turn"})
	require.NoError(t, err)
	m.Update(serverMsg{msg: msg})
	assert.Contains(t, m.Lines()[0], "not_your_turn: not your turn")

	m.input.SetValue("fold")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.Lines()[1], "Read-only")

	m.Update(disconnectedMsg{})
	assert.False(t, m.connected)
	assert.Contains(t, m.View(), "disconnected")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestDescribeHandEnded(t *testing.T) {
	s := testSnapshot()
	line := describeEvent(table.Event{
		Type: table.EventHandEnded,
		Result: &game.Result{
			Shown: []game.ShownHand{{Seat: 0, Hole: poker.MustParseCards("Ah Kd"), Rank: "pair of aces"}},
			Payouts: []game.Payout{
				{Seat: 0, Amount: 57, Reason: game.ReasonWin},
				{Seat: game.RakeSeat, Amount: 3},
			},
			Rake: 3,
		},
	}, &s)
	assert.Contains(t, line, "Alice shows")
	assert.Contains(t, line, "pair of aces")
	assert.Contains(t, line, "Alice wins 57")
	assert.Contains(t, line, "rake 3")
	assert.NotContains(t, line, "seat 0 wins")

	assert.Equal(t, "Alice raises to 60 and is all-in (timeout)",
		describeAction("Alice", game.LogEntry{Kind: game.Raise, Amount: 50, Total: 60, AllIn: true, Auto: true}))
	assert.Empty(t, describeEvent(table.Event{Type: table.EventAction}, &s))
}

func TestClientDialsTableStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan server.Message, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tables/main/ws" || r.URL.Query().Get("token") != "alice" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		msg, _ := server.NewMessage(server.MessageTypeSnapshot, table.Snapshot{TableID: "main", Street: table.StreetWaiting})
		_ = conn.WriteJSON(msg)
		var in server.Message
		if err := conn.ReadJSON(&in); err == nil {
			received <- in
		}
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger := log.New(io.Discard)

	_, err := Dial(ctx, srv.URL, "main", "mallory", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	c, err := Dial(ctx, srv.URL, "main", "alice", logger)
	require.NoError(t, err)

	first := <-c.Messages()
	require.Equal(t, server.MessageTypeSnapshot, first.Type)
	var s table.Snapshot
	require.NoError(t, json.Unmarshal(first.Data, &s))
	assert.Equal(t, "main", s.TableID)

	id, err := c.Send(server.MessageTypeAction, server.ActionRequest{Kind: "check"})
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	select {
	case in := <-received:
		assert.Equal(t, "1", in.RequestID)
		assert.Equal(t, server.MessageTypeAction, in.Type)
	case <-ctx.Done():
		t.Fatal("server never received the action")
	}

	require.NoError(t, c.Close())
	for range c.Messages() {
	}

	_, err = Dial(ctx, "ftp://example.com", "main", "alice", logger)
	require.Error(t, err)
}
