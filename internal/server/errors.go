package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lox/holdemtables/internal/auth"
	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/store"
	"github.com/lox/holdemtables/internal/table"
)

var errMissingToken = errors.New("missing bearer token")

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
	}

	var ae *game.ActionError
	if errors.As(err, &ae) {
		switch {
		case errors.Is(err, game.ErrNotYourTurn):
			return http.StatusConflict, "not_your_turn"
		case errors.Is(err, game.ErrStaleAction):
			return http.StatusConflict, "stale_action"
		case errors.Is(err, game.ErrHandComplete):
			return http.StatusConflict, "no_hand"
		default:
			return http.StatusUnprocessableEntity, "illegal_action"
		}
	}

	switch {
	case errors.Is(err, errMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrUnavailable):
		return http.StatusServiceUnavailable, "auth_unavailable"
	case errors.Is(err, table.ErrUnknownTable), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, table.ErrNotSeated):
		return http.StatusNotFound, "not_seated"
	case errors.Is(err, table.ErrSeatTaken):
		return http.StatusConflict, "seat_taken"
	case errors.Is(err, table.ErrTableFull):
		return http.StatusConflict, "table_full"
	case errors.Is(err, table.ErrAlreadySeated):
		return http.StatusConflict, "already_seated"
	case errors.Is(err, table.ErrInHand):
		return http.StatusConflict, "in_hand"
	case errors.Is(err, store.ErrExists):
		return http.StatusConflict, "exists"
	case errors.Is(err, table.ErrBuyInOutOfRange):
		return http.StatusBadRequest, "buy_in_out_of_range"
	case errors.Is(err, table.ErrInvalidSeat), errors.Is(err, table.ErrInvalidAmount), errors.Is(err, table.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, store.ErrInsufficientBalance):
		return http.StatusPaymentRequired, "insufficient_balance"
	case errors.Is(err, table.ErrTableClosed):
		return http.StatusGone, "table_closed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, code := classify(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	} else {
		s.logger.Debug("Request rejected", "method", c.Request().Method, "path", c.Path(), "status", status, "error", err)
	}
	if err := c.JSON(status, ErrorData{Code: code, Message: msg}); err != nil {
		s.logger.Warn("Failed to write error response", "error", err)
	}
}
