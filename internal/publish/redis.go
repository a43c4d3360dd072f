package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lox/holdemtables/internal/table"
)

// RedisClient is the part of *redis.Client used for publishing.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis publishes the public snapshot to holdem:table:<id> and each seated
// player's private view to holdem:table:<id>:user:<player>.
type Redis struct {
	client RedisClient
	prefix string
}

// NewRedis returns a publisher using channels under prefix. An empty prefix
// means "holdem".
func NewRedis(client RedisClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "holdem"
	}
	return &Redis{client: client, prefix: prefix}
}

// TableChannel returns the public channel for a table.
func (r *Redis) TableChannel(tableID string) string {
	return fmt.Sprintf("%s:table:%s", r.prefix, tableID)
}

// PlayerChannel returns the private channel for a player at a table.
func (r *Redis) PlayerChannel(tableID, playerID string) string {
	return fmt.Sprintf("%s:table:%s:user:%s", r.prefix, tableID, playerID)
}

func (r *Redis) Publish(ctx context.Context, u table.Update) error {
	id := u.Snapshot.TableID
	var errs []error
	if err := r.send(ctx, r.TableChannel(id), u.For("")); err != nil {
		errs = append(errs, err)
	}
	for _, player := range u.Recipients() {
		if err := r.send(ctx, r.PlayerChannel(id, player), u.For(player)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Redis) send(ctx context.Context, channel string, s table.Snapshot) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}
