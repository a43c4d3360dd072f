package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/table"
	"github.com/lox/holdemtables/poker"
)

// DefaultResultsQueue receives one message per paid hand.
const DefaultResultsQueue = "holdem.hand.results"

// AMQPChannel is the part of *amqp.Channel used for publishing.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// HandResult is the message published when a hand is paid.
type HandResult struct {
	TableID    string           `json:"table_id"`
	HandID     string           `json:"hand_id"`
	HandNumber int              `json:"hand_number"`
	Board      []poker.Card     `json:"board"`
	Players    map[int]string   `json:"players"`
	Pots       []game.Pot       `json:"pots"`
	Payouts    []game.Payout    `json:"payouts"`
	Rake       int              `json:"rake"`
	Shown      []game.ShownHand `json:"shown,omitempty"`
	EndedAt    time.Time        `json:"ended_at"`
}

// AMQP sends hand results to a durable queue as persistent JSON messages.
// Other updates are ignored.
type AMQP struct {
	ch    AMQPChannel
	queue string
	close func() error
}

// NewAMQP publishes on an open channel. The queue must already exist.
func NewAMQP(ch AMQPChannel, queue string) *AMQP {
	if queue == "" {
		queue = DefaultResultsQueue
	}
	return &AMQP{ch: ch, queue: queue, close: func() error { return nil }}
}

// DialAMQP connects to the broker and declares the durable results queue.
func DialAMQP(url, queue string) (*AMQP, error) {
	if queue == "" {
		queue = DefaultResultsQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", queue, err)
	}
	a := NewAMQP(ch, queue)
	a.close = func() error {
		return errors.Join(ch.Close(), conn.Close())
	}
	return a, nil
}

func (a *AMQP) Publish(ctx context.Context, u table.Update) error {
	s := u.Snapshot
	for _, e := range s.Events {
		if e.Type != table.EventHandEnded || e.Result == nil {
			continue
		}
		msg := HandResult{
			TableID:    s.TableID,
			HandID:     e.HandID,
			HandNumber: s.HandNumber,
			Board:      e.Result.Board,
			Players:    map[int]string{},
			Pots:       e.Result.Pots,
			Payouts:    e.Result.Payouts,
			Rake:       e.Result.Rake,
			Shown:      e.Result.Shown,
			EndedAt:    e.At.UTC(),
		}
		for _, seat := range s.Seats {
			if seat.PlayerID != "" {
				msg.Players[seat.Seat] = seat.PlayerID
			}
		}
		body, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode hand result: %w", err)
		}
		err = a.ch.PublishWithContext(ctx, "", a.queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.HandID,
			Timestamp:    msg.EndedAt,
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("amqp publish %s: %w", e.HandID, err)
		}
	}
	return nil
}

// Close closes the channel and connection opened by DialAMQP.
func (a *AMQP) Close() error { return a.close() }
