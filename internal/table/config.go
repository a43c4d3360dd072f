package table

import (
	"errors"
	"fmt"
	"time"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/store"
)

// Defaults applied to zero fields by WithDefaults.
const (
	DefaultSeats         = 6
	DefaultMinBuyInBB    = 50
	DefaultMaxBuyInBB    = 200
	DefaultTurnTimeout   = 20 * time.Second
	DefaultTimebank      = 60 * time.Second
	DefaultNextHandDelay = 3 * time.Second
	MaxSeats             = 10
)

// Config describes a cash game table.
type Config struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Seats is the number of seats, 2 to 10.
	Seats      int `json:"seats"`
	SmallBlind int `json:"small_blind"`
	BigBlind   int `json:"big_blind"`
	// MinBuyIn and MaxBuyIn bound the chips a seat may bring to the table.
	// Zero means 50 and 200 big blinds.
	MinBuyIn        int           `json:"min_buy_in"`
	MaxBuyIn        int           `json:"max_buy_in"`
	RakeBasisPoints int           `json:"rake_bps"`
	RakeCap         int           `json:"rake_cap"`
	TurnTimeout     time.Duration `json:"turn_timeout"`
	Timebank        time.Duration `json:"timebank"`
	// NextHandDelay is the pause between a hand being paid and the next deal.
	NextHandDelay time.Duration `json:"next_hand_delay"`
}

// WithDefaults fills zero fields.
func (c Config) WithDefaults() Config {
	if c.Seats == 0 {
		c.Seats = DefaultSeats
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.MinBuyIn == 0 {
		c.MinBuyIn = c.BigBlind * DefaultMinBuyInBB
	}
	if c.MaxBuyIn == 0 {
		c.MaxBuyIn = c.BigBlind * DefaultMaxBuyInBB
	}
	if c.TurnTimeout == 0 {
		c.TurnTimeout = DefaultTurnTimeout
	}
	if c.Timebank == 0 {
		c.Timebank = DefaultTimebank
	}
	if c.NextHandDelay == 0 {
		c.NextHandDelay = DefaultNextHandDelay
	}
	return c
}

// Validate checks the table configuration.
func (c Config) Validate() error {
	if err := c.Game().Validate(); err != nil {
		return err
	}
	switch {
	case c.ID == "":
		return errors.New("table id is required")
	case c.Seats < 2 || c.Seats > MaxSeats:
		return fmt.Errorf("seats must be between 2 and %d", MaxSeats)
	case c.MinBuyIn < c.BigBlind:
		return errors.New("minimum buy-in must be at least the big blind")
	case c.MaxBuyIn < c.MinBuyIn:
		return errors.New("maximum buy-in is below the minimum")
	case c.TurnTimeout <= 0:
		return errors.New("turn timeout must be positive")
	case c.Timebank < 0 || c.NextHandDelay < 0:
		return errors.New("durations must not be negative")
	}
	return nil
}

// Game returns the per-hand stakes.
func (c Config) Game() game.Config {
	return game.Config{
		SmallBlind:      c.SmallBlind,
		BigBlind:        c.BigBlind,
		RakeBasisPoints: c.RakeBasisPoints,
		RakeCap:         c.RakeCap,
	}
}

// Record converts the configuration for storage.
func (c Config) Record() store.TableRecord {
	return store.TableRecord{
		ID:              c.ID,
		Name:            c.Name,
		Seats:           c.Seats,
		SmallBlind:      c.SmallBlind,
		BigBlind:        c.BigBlind,
		MinBuyIn:        c.MinBuyIn,
		MaxBuyIn:        c.MaxBuyIn,
		RakeBasisPoints: c.RakeBasisPoints,
		RakeCap:         c.RakeCap,
		TurnTimeout:     c.TurnTimeout,
		Timebank:        c.Timebank,
		NextHandDelay:   c.NextHandDelay,
		Button:          -1,
		Status:          store.TableOpen,
	}
}

// ConfigFromRecord is the inverse of Record.
func ConfigFromRecord(r store.TableRecord) Config {
	return Config{
		ID:              r.ID,
		Name:            r.Name,
		Seats:           r.Seats,
		SmallBlind:      r.SmallBlind,
		BigBlind:        r.BigBlind,
		MinBuyIn:        r.MinBuyIn,
		MaxBuyIn:        r.MaxBuyIn,
		RakeBasisPoints: r.RakeBasisPoints,
		RakeCap:         r.RakeCap,
		TurnTimeout:     r.TurnTimeout,
		Timebank:        r.Timebank,
		NextHandDelay:   r.NextHandDelay,
	}
}
