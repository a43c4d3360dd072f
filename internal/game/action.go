package game

import (
	"fmt"
	"strings"
)

// Street represents the betting round.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	switch s {
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case Showdown:
		return "showdown"
	default:
		return "unknown"
	}
}

func (s Street) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Street) UnmarshalText(b []byte) error {
	for st := Preflop; st <= Showdown; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown street %q", b)
}

// ActionKind enumerates what can appear in the action log. Players submit
// Fold, Check, Call, Bet, Raise and AllIn; blinds are posted by the engine.
// AllIn is classified on entry into Call, Bet or Raise with the AllIn flag set.
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
	AllIn
	PostSmallBlind
	PostBigBlind
)

var actionNames = [...]string{"fold", "check", "call", "bet", "raise", "allin", "post_small_blind", "post_big_blind"}

func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[k]
}

// ParseActionKind accepts the lowercase names produced by String plus
// "all-in" and "all_in".
func ParseActionKind(s string) (ActionKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "all-in", "all_in":
		return AllIn, nil
	}
	for i, n := range actionNames[:PostSmallBlind] {
		if n == name {
			return ActionKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

func (k ActionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText also accepts the blind kinds so logs round-trip.
func (k *ActionKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "post_small_blind":
		*k = PostSmallBlind
		return nil
	case "post_big_blind":
		*k = PostBigBlind
		return nil
	}
	parsed, err := ParseActionKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Action is a player's decision. Amount is only read for Bet and Raise and is
// the seat's total for the street after the action.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount int        `json:"amount,omitempty"`
}

func (a Action) String() string {
	if a.Kind == Bet || a.Kind == Raise {
		return fmt.Sprintf("%s %d", a.Kind, a.Amount)
	}
	return a.Kind.String()
}

// LegalAction describes one option available to the acting seat. Min and Max
// are street totals for Bet, Raise and AllIn and the chips to add for Call.
type LegalAction struct {
	Kind ActionKind `json:"kind"`
	Min  int        `json:"min,omitempty"`
	Max  int        `json:"max,omitempty"`
}

// ActionBar condenses the legal actions into the fields a client needs to
// render its controls.
type ActionBar struct {
	CallAmount int  `json:"call_amount"`
	MinBet     int  `json:"min_bet"`
	MinRaiseTo int  `json:"min_raise_to"`
	MaxTotal   int  `json:"max_total"`
	CanCheck   bool `json:"can_check"`
	CanRaise   bool `json:"can_raise"`
}

// NewActionBar folds a legal action list into an ActionBar.
func NewActionBar(legal []LegalAction) ActionBar {
	var bar ActionBar
	for _, la := range legal {
		switch la.Kind {
		case Check:
			bar.CanCheck = true
		case Call:
			bar.CallAmount = la.Min
		case Bet:
			bar.MinBet = la.Min
			bar.MaxTotal = la.Max
		case Raise:
			bar.CanRaise = true
			bar.MinRaiseTo = la.Min
			bar.MaxTotal = la.Max
		case AllIn:
			if la.Max > bar.MaxTotal {
				bar.MaxTotal = la.Max
			}
		}
	}
	return bar
}
