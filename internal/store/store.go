// Package store persists tables, seats, hand histories and player balances.
//
// Two implementations are provided: Memory for tests and single-process
// development, and Gorm for sqlite, MySQL and PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("store: not found")
	ErrExists              = errors.New("store: already exists")
	ErrInsufficientBalance = errors.New("store: insufficient balance")
)

// Table status values.
const (
	TableOpen   = "open"
	TableClosed = "closed"
)

// Hand status values, mirroring game.Status.
const (
	HandRunning = "running"
	HandPaid    = "paid"
	HandAborted = "aborted"
)

// TableRecord is the persisted configuration and rotation state of a table.
type TableRecord struct {
	ID              string        `gorm:"primaryKey;size:64" json:"id"`
	Name            string        `gorm:"size:128" json:"name"`
	Seats           int           `json:"seats"`
	SmallBlind      int           `json:"small_blind"`
	BigBlind        int           `json:"big_blind"`
	MinBuyIn        int           `json:"min_buy_in"`
	MaxBuyIn        int           `json:"max_buy_in"`
	RakeBasisPoints int           `json:"rake_bps"`
	RakeCap         int           `json:"rake_cap"`
	TurnTimeout     time.Duration `json:"turn_timeout"`
	Timebank        time.Duration `json:"timebank"`
	NextHandDelay   time.Duration `json:"next_hand_delay"`
	Button          int           `json:"button"`
	HandCount       int           `json:"hand_count"`
	Status          string        `gorm:"size:16;index" json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (TableRecord) TableName() string { return "poker_tables" }

// SeatRecord is an occupied seat. Empty seats have no record.
type SeatRecord struct {
	TableID    string    `gorm:"primaryKey;size:64" json:"table_id"`
	Seat       int       `gorm:"column:seat_index;primaryKey;autoIncrement:false" json:"seat"`
	PlayerID   string    `gorm:"size:128;index" json:"player_id"`
	Name       string    `gorm:"size:128" json:"name"`
	Stack      int       `json:"stack"`
	SittingOut bool      `json:"sitting_out"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SeatRecord) TableName() string { return "poker_seats" }

// HandRecord is one hand played at a table.
type HandRecord struct {
	ID         string     `gorm:"primaryKey;size:64" json:"id"`
	TableID    string     `gorm:"size:64;index" json:"table_id"`
	Number     int        `json:"number"`
	Button     int        `json:"button"`
	SmallBlind int        `json:"small_blind"`
	BigBlind   int        `json:"big_blind"`
	Board      string     `gorm:"size:32" json:"board"`
	Pot        int        `json:"pot"`
	Rake       int        `json:"rake"`
	Status     string     `gorm:"size:16" json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`

	Actions []ActionRecord `gorm:"foreignKey:HandID" json:"actions,omitempty"`
	Payouts []PayoutRecord `gorm:"foreignKey:HandID" json:"payouts,omitempty"`
}

func (HandRecord) TableName() string { return "poker_hands" }

// ActionRecord is an entry of a hand's action log.
type ActionRecord struct {
	ID     uint      `gorm:"primaryKey" json:"-"`
	HandID string    `gorm:"size:64;index" json:"hand_id"`
	Seq    int       `json:"seq"`
	Street string    `gorm:"size:16" json:"street"`
	Seat   int       `json:"seat"`
	Kind   string    `gorm:"size:24" json:"kind"`
	Amount int       `json:"amount"`
	Total  int       `json:"total"`
	AllIn  bool      `json:"all_in"`
	Auto   bool      `json:"auto"`
	At     time.Time `json:"at"`
}

func (ActionRecord) TableName() string { return "poker_hand_actions" }

// PayoutRecord is a payout of a finished hand. Rake is recorded with seat -1.
type PayoutRecord struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	HandID string `gorm:"size:64;index" json:"hand_id"`
	Pot    int    `json:"pot"`
	Seat   int    `json:"seat"`
	Amount int    `json:"amount"`
	Reason string `gorm:"size:16" json:"reason"`
}

func (PayoutRecord) TableName() string { return "poker_payouts" }

// Account holds the chips a player has off the tables.
type Account struct {
	PlayerID  string    `gorm:"primaryKey;size:128" json:"player_id"`
	Balance   int       `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Account) TableName() string { return "poker_accounts" }

// Store is the persistence boundary of the table runtime. Every method is an
// atomic read-modify-write.
type Store interface {
	CreateTable(ctx context.Context, t TableRecord) error
	Table(ctx context.Context, id string) (TableRecord, error)
	Tables(ctx context.Context) ([]TableRecord, error)
	// SetButton records the button seat and the number of hands dealt.
	SetButton(ctx context.Context, tableID string, button, handCount int) error
	SetTableStatus(ctx context.Context, tableID, status string) error

	Seats(ctx context.Context, tableID string) ([]SeatRecord, error)
	SaveSeat(ctx context.Context, s SeatRecord) error
	// BuyIn debits amount from the player's account and writes the seat.
	BuyIn(ctx context.Context, s SeatRecord, amount int) error
	// CashOut credits the seat's stack to the player's account and frees the
	// seat.
	CashOut(ctx context.Context, tableID string, seat int) (int, error)

	StartHand(ctx context.Context, h HandRecord) error
	AppendActions(ctx context.Context, actions []ActionRecord) error
	// FinishHand closes the hand and writes its payouts and the resulting
	// seat stacks together.
	FinishHand(ctx context.Context, h HandRecord, payouts []PayoutRecord, seats []SeatRecord) error
	// Hand returns a hand with its actions and payouts.
	Hand(ctx context.Context, id string) (HandRecord, error)

	// OpenAccount creates the account with initial chips if it does not
	// exist, and returns the balance.
	OpenAccount(ctx context.Context, playerID string, initial int) (int, error)
	Balance(ctx context.Context, playerID string) (int, error)
	Credit(ctx context.Context, playerID string, amount int) (int, error)
	Debit(ctx context.Context, playerID string, amount int) (int, error)

	Close() error
}
