package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/lox/holdemtables/internal/auth"
)

// TokenCmd signs a token accepted by the jwt auth mode.
type TokenCmd struct {
	Player string        `arg:"" help:"Player ID (token subject)"`
	Name   string        `short:"n" help:"Display name"`
	Secret string        `env:"HOLDEMD_JWT_SECRET" required:"" help:"Signing secret"`
	TTL    time.Duration `default:"24h" help:"Lifetime, 0 for no expiry"`
}

func (c *TokenCmd) Run() error {
	if c.Player == "" {
		return errors.New("player id is required")
	}
	token, err := auth.NewJWTValidator(c.Secret).Sign(auth.Identity{PlayerID: c.Player, Name: c.Name}, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
