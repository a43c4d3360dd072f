// Package server exposes the tables over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lox/holdemtables/internal/auth"
	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/statistics"
	"github.com/lox/holdemtables/internal/store"
	"github.com/lox/holdemtables/internal/table"
)

const identityKey = "identity"

// Options configures a Server.
type Options struct {
	Manager   *table.Manager
	Store     store.Store
	Validator auth.Validator
	Hub       *Hub
	Logger    *log.Logger

	// Stats serves per-table player results when set.
	Stats *statistics.Tracker

	// StartingBalance funds an account the first time its player joins a
	// table. Zero leaves new accounts empty.
	StartingBalance int

	// RequestTimeout bounds each table command. Defaults to 5s.
	RequestTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	e       *echo.Echo
	tables  *table.Manager
	store   store.Store
	auth    auth.Validator
	hub     *Hub
	stats   *statistics.Tracker
	logger  *log.Logger
	balance int
	timeout time.Duration
}

// New creates a server and registers its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Validator == nil {
		opts.Validator = auth.NewNoopValidator()
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(opts.Logger)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	s := &Server{
		e:       echo.New(),
		tables:  opts.Manager,
		store:   opts.Store,
		auth:    opts.Validator,
		hub:     opts.Hub,
		stats:   opts.Stats,
		logger:  opts.Logger.WithPrefix("server"),
		balance: opts.StartingBalance,
		timeout: opts.RequestTimeout,
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.HTTPErrorHandler = s.handleError
	s.e.Use(middleware.Recover())
	s.e.Use(s.requestLog)

	s.e.GET("/health", s.health)

	v1 := s.e.Group("/v1", s.authenticate)
	v1.GET("/account", s.account)
	v1.GET("/tables", s.listTables)
	v1.POST("/tables", s.createTable)
	v1.GET("/tables/:id", s.snapshot)
	v1.POST("/tables/:id/join", s.join)
	v1.POST("/tables/:id/leave", s.leave)
	v1.POST("/tables/:id/rebuy", s.rebuy)
	v1.POST("/tables/:id/sitout", s.sitOut)
	v1.POST("/tables/:id/sitin", s.sitIn)
	v1.POST("/tables/:id/action", s.act)
	v1.GET("/tables/:id/ws", s.watch)
	v1.GET("/tables/:id/stats", s.tableStats)
	v1.GET("/hands/:id", s.hand)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.e }

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting HTTP server", "addr", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.e.Shutdown(ctx)
}

func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.logger.Debug("Request", "method", c.Request().Method, "path", c.Path(), "status", c.Response().Status, "duration", time.Since(start))
		return err
	}
}

// authenticate resolves the bearer token, or the token query parameter for
// websocket clients, to an identity.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
			raw, ok := strings.CutPrefix(h, "Bearer ")
			if !ok {
				return errMissingToken
			}
			token = raw
		}
		if token == "" {
			return errMissingToken
		}
		id, err := s.auth.Validate(c.Request().Context(), token)
		if err != nil {
			return err
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

func identity(c echo.Context) *auth.Identity {
	id, _ := c.Get(identityKey).(*auth.Identity)
	return id
}

func (s *Server) health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) account(c echo.Context) error {
	id := identity(c)
	balance, err := s.store.Balance(c.Request().Context(), id.PlayerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"player_id": id.PlayerID, "balance": balance})
}

func (s *Server) listTables(c echo.Context) error {
	recs, err := s.store.Tables(c.Request().Context())
	if err != nil {
		return err
	}
	running := make(map[string]bool)
	for _, id := range s.tables.Tables() {
		running[id] = true
	}
	out := make([]TableInfo, 0, len(recs))
	for _, r := range recs {
		if r.Status == store.TableClosed {
			continue
		}
		out = append(out, TableInfo{
			ID:         r.ID,
			Name:       r.Name,
			Seats:      r.Seats,
			SmallBlind: r.SmallBlind,
			BigBlind:   r.BigBlind,
			MinBuyIn:   r.MinBuyIn,
			MaxBuyIn:   r.MaxBuyIn,
			Running:    running[r.ID],
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createTable(c echo.Context) error {
	var cfg table.Config
	if err := c.Bind(&cfg); err != nil {
		return err
	}
	t, err := s.tables.Create(c.Request().Context(), cfg)
	if err != nil {
		return err
	}
	s.logger.Info("Table created by player", "table", t.ID(), "player", identity(c).PlayerID)
	return c.JSON(http.StatusCreated, t.Config())
}

// with runs fn against the table named in the path.
func (s *Server) with(c echo.Context, fn func(ctx context.Context, t *table.Table) error) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()
	return s.tables.With(ctx, c.Param("id"), func(t *table.Table) error {
		return fn(ctx, t)
	})
}

func (s *Server) snapshot(c echo.Context) error {
	var snap table.Snapshot
	err := s.with(c, func(ctx context.Context, t *table.Table) error {
		var err error
		snap, err = t.Snapshot(ctx, identity(c).PlayerID)
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) join(c echo.Context) error {
	var req JoinRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	id := identity(c)
	if _, err := s.store.OpenAccount(c.Request().Context(), id.PlayerID, s.balance); err != nil {
		return err
	}

	seat := -1
	if req.Seat != nil {
		seat = *req.Seat
	}
	name := req.Name
	if name == "" {
		name = id.Name
	}
	err := s.with(c, func(ctx context.Context, t *table.Table) error {
		var err error
		seat, err = t.Join(ctx, table.JoinRequest{PlayerID: id.PlayerID, Name: name, Seat: seat, BuyIn: req.BuyIn})
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"table_id": c.Param("id"), "seat": seat, "stack": req.BuyIn})
}

func (s *Server) leave(c echo.Context) error {
	var res table.LeaveResult
	err := s.with(c, func(ctx context.Context, t *table.Table) error {
		var err error
		res, err = t.Leave(ctx, identity(c).PlayerID)
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) rebuy(c echo.Context) error {
	var req RebuyRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	var added int
	err := s.with(c, func(ctx context.Context, t *table.Table) error {
		var err error
		added, err = t.Rebuy(ctx, identity(c).PlayerID, req.Amount)
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"added": added})
}

func (s *Server) sitOut(c echo.Context) error {
	if err := s.with(c, func(ctx context.Context, t *table.Table) error {
		return t.SitOut(ctx, identity(c).PlayerID)
	}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) sitIn(c echo.Context) error {
	if err := s.with(c, func(ctx context.Context, t *table.Table) error {
		return t.SitIn(ctx, identity(c).PlayerID)
	}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) act(c echo.Context) error {
	var req ActionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	a, err := req.action()
	if err != nil {
		return err
	}
	if err := s.with(c, func(ctx context.Context, t *table.Table) error {
		return t.Act(ctx, identity(c).PlayerID, table.ActionRef{Hand: req.Hand, Street: req.Street}, a)
	}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (r ActionRequest) action() (game.Action, error) {
	kind, err := game.ParseActionKind(r.Kind)
	if err != nil {
		return game.Action{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return game.Action{Kind: kind, Amount: r.Amount}, nil
}

func (s *Server) hand(c echo.Context) error {
	h, err := s.store.Hand(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h)
}

func (s *Server) tableStats(c echo.Context) error {
	if s.stats == nil {
		return echo.ErrNotFound
	}
	id := c.Param("id")
	if player := c.QueryParam("player"); player != "" {
		sum, ok := s.stats.Player(id, player)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "no hands recorded for "+player)
		}
		return c.JSON(http.StatusOK, sum)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"table_id": id,
		"players":  s.stats.Table(id),
	})
}

// watch streams the caller's view of a table. Seated players may also send
// action, leave and sit messages over the same connection.
func (s *Server) watch(c echo.Context) error {
	id := identity(c)
	t, err := s.tables.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	initial := func(ctx context.Context) (table.Snapshot, error) {
		return t.Snapshot(ctx, id.PlayerID)
	}
	handle := func(ctx context.Context, msg *Message) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.tables.With(ctx, t.ID(), func(t *table.Table) error {
			return s.handleMessage(ctx, t, id, msg)
		})
	}
	s.hub.Serve(c.Response(), c.Request(), t.ID(), id.PlayerID, initial, handle)
	return nil
}

func (s *Server) handleMessage(ctx context.Context, t *table.Table, id *auth.Identity, msg *Message) error {
	switch msg.Type {
	case MessageTypeAction:
		var req ActionRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid action: "+err.Error())
		}
		a, err := req.action()
		if err != nil {
			return err
		}
		return t.Act(ctx, id.PlayerID, table.ActionRef{Hand: req.Hand, Street: req.Street}, a)
	case MessageTypeLeave:
		_, err := t.Leave(ctx, id.PlayerID)
		return err
	case MessageTypeSitOut:
		return t.SitOut(ctx, id.PlayerID)
	case MessageTypeSitIn:
		return t.SitIn(ctx, id.PlayerID)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "unknown message type: "+string(msg.Type))
}
