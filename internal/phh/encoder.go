package phh

import (
	"bytes"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"github.com/lox/holdemtables/internal/game"
)

// Encode writes the hand history to w in PHH TOML format.
func Encode(w io.Writer, hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("phh: hand history is nil")
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// EncodeToBytes encodes and returns the result as bytes.
func EncodeToBytes(hand *HandHistory) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, hand); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatAction converts a log entry for player pN to a PHH action. Blind
// posts return false; they are carried by blinds_or_straddles.
func FormatAction(player int, e game.LogEntry) (string, bool) {
	p := fmt.Sprintf("p%d", player)
	switch e.Kind {
	case game.Fold:
		return p + " f", true
	case game.Check, game.Call:
		return p + " cc", true
	case game.Bet, game.Raise, game.AllIn:
		if e.Total <= 0 {
			return "", false
		}
		return fmt.Sprintf("%s cbr %d", p, e.Total), true
	case game.PostSmallBlind, game.PostBigBlind:
		return "", false
	}
	return fmt.Sprintf("# %s %s %d", p, e.Kind, e.Total), true
}
