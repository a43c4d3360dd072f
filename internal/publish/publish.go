// Package publish fans table updates out to external channels.
package publish

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/lox/holdemtables/internal/table"
)

// Multi publishes to every publisher in order and joins their errors. One
// failing publisher does not stop the others.
type Multi []table.Publisher

func (m Multi) Publish(ctx context.Context, u table.Update) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes every event to a logger at debug level.
type Log struct {
	Logger *log.Logger
}

func (l Log) Publish(_ context.Context, u table.Update) error {
	s := u.Snapshot
	for _, e := range s.Events {
		kv := []any{"table", s.TableID, "event", e.Type, "seat", e.Seat}
		if e.HandID != "" {
			kv = append(kv, "hand", e.HandID)
		}
		if e.Action != nil {
			kv = append(kv, "action", e.Action.String())
		}
		if e.Amount != 0 {
			kv = append(kv, "amount", e.Amount)
		}
		if e.Result != nil {
			kv = append(kv, "winners", e.Result.Winners(), "rake", e.Result.Rake)
		}
		l.Logger.Debug("Table event", kv...)
	}
	return nil
}
