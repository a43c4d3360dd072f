package phh

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/table"
	"github.com/lox/holdemtables/poker"
)

func TestFormatAction(t *testing.T) {
	tests := []struct {
		name  string
		entry game.LogEntry
		want  string
		emit  bool
	}{
		{"fold", game.LogEntry{Kind: game.Fold}, "p1 f", true},
		{"check", game.LogEntry{Kind: game.Check}, "p1 cc", true},
		{"call", game.LogEntry{Kind: game.Call, Amount: 50, Total: 50}, "p1 cc", true},
		{"bet", game.LogEntry{Kind: game.Bet, Amount: 40, Total: 40}, "p1 cbr 40", true},
		{"raise", game.LogEntry{Kind: game.Raise, Amount: 100, Total: 120}, "p1 cbr 120", true},
		{"all-in raise", game.LogEntry{Kind: game.Raise, Amount: 350, Total: 350, AllIn: true}, "p1 cbr 350", true},
		{"small blind", game.LogEntry{Kind: game.PostSmallBlind, Amount: 5, Total: 5}, "", false},
		{"big blind", game.LogEntry{Kind: game.PostBigBlind, Amount: 10, Total: 10}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatAction(1, tt.entry)
			assert.Equal(t, tt.emit, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func headsUpSummary() *table.HandSummary {
	entry := func(st game.Street, seat int, kind game.ActionKind, amount, total int) game.LogEntry {
		return game.LogEntry{Street: st, Seat: seat, Kind: kind, Amount: amount, Total: total}
	}
	return &table.HandSummary{
		TableID:    "t1",
		TableName:  "Main",
		HandID:     "hand-1",
		Number:     7,
		SmallBlind: 10,
		BigBlind:   20,
		Button:     3,
		SmallSeat:  3,
		BigSeat:    0,
		Seats:      6,
		Players: []table.HandPlayer{
			{Seat: 0, PlayerID: "bob", Name: "Bob", Hole: poker.MustParseCards("Ac Ad"), Start: 1000, End: 1058},
			{Seat: 3, PlayerID: "alice", Hole: poker.MustParseCards("Qh Qs"), Start: 1000, End: 940},
		},
		Actions: []game.LogEntry{
			entry(game.Preflop, 3, game.PostSmallBlind, 10, 10),
			entry(game.Preflop, 0, game.PostBigBlind, 20, 20),
			entry(game.Preflop, 3, game.Call, 10, 20),
			entry(game.Preflop, 0, game.Check, 0, 20),
			entry(game.Flop, 0, game.Bet, 40, 40),
			entry(game.Flop, 3, game.Call, 40, 40),
			entry(game.Turn, 0, game.Check, 0, 0),
			entry(game.Turn, 3, game.Check, 0, 0),
			entry(game.River, 0, game.Check, 0, 0),
			entry(game.River, 3, game.Check, 0, 0),
		},
		Board: poker.MustParseCards("As Kd 7c 4h 2s"),
		Result: &game.Result{
			Rake:     2,
			Showdown: true,
			Payouts: []game.Payout{
				{Pot: 0, Seat: 0, Amount: 118, Reason: game.ReasonWin},
				{Pot: 0, Seat: game.RakeSeat, Amount: 2, Reason: game.ReasonRake},
			},
			Shown: []game.ShownHand{
				{Seat: 3, Hole: poker.MustParseCards("Qh Qs")},
				{Seat: 0, Hole: poker.MustParseCards("Ac Ad")},
			},
		},
		Started: time.Date(2025, time.March, 4, 5, 6, 7, 0, time.UTC),
	}
}

func TestFromSummaryOrdersFromSmallBlind(t *testing.T) {
	hh := FromSummary(headsUpSummary())

	assert.Equal(t, []string{"alice", "Bob"}, hh.Players)
	assert.Equal(t, []int{4, 1}, hh.Seats)
	assert.Equal(t, []int{10, 20}, hh.BlindsOrStraddles)
	assert.Equal(t, []int{0, 0}, hh.Antes)
	assert.Equal(t, []int{1000, 1000}, hh.StartingStacks)
	assert.Equal(t, []int{940, 1058}, hh.FinishingStacks)
	assert.Equal(t, []int{0, 118}, hh.Winnings)
	assert.Equal(t, 2, hh.Rake)
	assert.Equal(t, 20, hh.MinBet)
	assert.Equal(t, []string{
		"d dh p1 QhQs",
		"d dh p2 AcAd",
		"p1 cc",
		"p2 cc",
		"d db AsKd7c",
		"p2 cbr 40",
		"p1 cc",
		"d db 4h",
		"p2 cc",
		"p1 cc",
		"d db 2s",
		"p2 cc",
		"p1 cc",
		"p1 sm QhQs",
		"p2 sm AcAd",
	}, hh.Actions)
	assert.Equal(t, "05:06:07", hh.Time)
	assert.Equal(t, 2025, hh.Year)
}

func TestFromSummaryRunsOutBoardAfterAllIn(t *testing.T) {
	sum := headsUpSummary()
	sum.Actions = []game.LogEntry{
		{Street: game.Preflop, Seat: 3, Kind: game.PostSmallBlind, Amount: 10, Total: 10},
		{Street: game.Preflop, Seat: 0, Kind: game.PostBigBlind, Amount: 20, Total: 20},
		{Street: game.Preflop, Seat: 3, Kind: game.Raise, Amount: 990, Total: 1000, AllIn: true},
		{Street: game.Preflop, Seat: 0, Kind: game.Call, Amount: 980, Total: 1000, AllIn: true},
	}
	sum.Result.Shown = nil

	hh := FromSummary(sum)
	assert.Equal(t, []string{
		"d dh p1 QhQs",
		"d dh p2 AcAd",
		"p1 cbr 1000",
		"p2 cc",
		"d db AsKd7c",
		"d db 4h",
		"d db 2s",
	}, hh.Actions)
}

func TestEncodeHandHistory(t *testing.T) {
	hand := &HandHistory{
		Variant:           "NT",
		Table:             "default",
		SeatCount:         3,
		Seats:             []int{1, 2, 3},
		Antes:             []int{0, 0, 0},
		BlindsOrStraddles: []int{1, 2, 0},
		MinBet:            2,
		StartingStacks:    []int{200, 200, 200},
		Actions:           []string{"d dh p1 AhKh", "p1 f"},
		HandID:            "hand-00042",
		Year:              2025,
		HandNumber:        42,
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, hand))

	want := "" +
		"variant = \"NT\"\n" +
		"table = \"default\"\n" +
		"seat_count = 3\n" +
		"seats = [1, 2, 3]\n" +
		"antes = [0, 0, 0]\n" +
		"blinds_or_straddles = [1, 2, 0]\n" +
		"min_bet = 2\n" +
		"starting_stacks = [200, 200, 200]\n" +
		"actions = [\"d dh p1 AhKh\", \"p1 f\"]\n" +
		"hand = \"hand-00042\"\n" +
		"year = 2025\n" +
		"_hand_number = 42\n"
	assert.Equal(t, want, buf.String())

	require.Error(t, Encode(&buf, nil))
}

func TestRecorderWritesPaidHands(t *testing.T) {
	r, err := NewRecorder(t.TempDir(), nil)
	require.NoError(t, err)

	sum := headsUpSummary()
	u := table.Update{Snapshot: table.Snapshot{
		TableID: "t1",
		Events: []table.Event{
			{Type: table.EventAction, HandID: "hand-1"},
			{Type: table.EventHandEnded, HandID: "hand-1", Summary: sum},
		},
	}}
	require.NoError(t, r.Publish(context.Background(), u))

	data, err := os.ReadFile(r.Path(sum))
	require.NoError(t, err)

	var hh HandHistory
	_, err = toml.Decode(string(data), &hh)
	require.NoError(t, err)
	assert.Equal(t, "hand-1", hh.HandID)
	assert.Equal(t, "t1", hh.TableID)
	assert.Equal(t, 7, hh.HandNumber)
	assert.Equal(t, FromSummary(sum).Actions, hh.Actions)
	assert.Contains(t, r.Path(sum), "000007-hand-1.phh")
}
