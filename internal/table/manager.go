package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtables/internal/gameid"
	"github.com/lox/holdemtables/internal/randutil"
	"github.com/lox/holdemtables/internal/store"
)

var (
	// ErrUnknownTable is returned for a table id that is neither running nor
	// stored.
	ErrUnknownTable = errors.New("unknown table")

	// ErrInvalidConfig wraps a table configuration that failed validation.
	ErrInvalidConfig = errors.New("invalid table config")
)

// ManagerOptions configures a Manager. They are shared by every table it
// runs.
type ManagerOptions struct {
	Store     store.Store
	Publisher Publisher
	Logger    *log.Logger
	Clock     quartz.Clock
	RNG       randutil.Source
}

type runtime struct {
	table  *Table
	cancel context.CancelFunc
}

// Manager owns the running tables. Tables are started on demand from the
// store and released when their last player leaves.
type Manager struct {
	opts   ManagerOptions
	logger *log.Logger

	ctx context.Context
	g   *errgroup.Group

	mu     sync.Mutex
	tables map[string]*runtime
}

// NewManager creates a manager whose tables run until ctx is cancelled.
func NewManager(ctx context.Context, opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	g, gctx := errgroup.WithContext(ctx)
	return &Manager{
		opts:   opts,
		logger: opts.Logger.WithPrefix("tables"),
		ctx:    gctx,
		g:      g,
		tables: make(map[string]*runtime),
	}
}

// Create stores a new table and starts it. An empty id is generated.
func (m *Manager) Create(ctx context.Context, cfg Config) (*Table, error) {
	if cfg.ID == "" {
		cfg.ID = gameid.Generate()
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := m.opts.Store.CreateTable(ctx, cfg.Record()); err != nil {
		return nil, err
	}
	m.logger.Info("Table created", "table", cfg.ID, "blinds", fmt.Sprintf("%d/%d", cfg.SmallBlind, cfg.BigBlind), "seats", cfg.Seats)
	return m.Get(ctx, cfg.ID)
}

// Ensure creates the table if it is not stored yet and returns it running.
// Used for tables declared in configuration.
func (m *Manager) Ensure(ctx context.Context, cfg Config) (*Table, error) {
	err := m.opts.Store.CreateTable(ctx, cfg.WithDefaults().Record())
	if err != nil && !errors.Is(err, store.ErrExists) {
		return nil, err
	}
	return m.Get(ctx, cfg.ID)
}

// Get returns the running table, starting it from the store if needed.
func (m *Manager) Get(ctx context.Context, id string) (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rt, ok := m.tables[id]; ok {
		return rt.table, nil
	}
	if err := m.ctx.Err(); err != nil {
		return nil, ErrTableClosed
	}

	rec, err := m.opts.Store.Table(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, id)
	}
	if err != nil {
		return nil, err
	}
	if rec.Status == store.TableClosed {
		return nil, fmt.Errorf("%w: %s", ErrTableClosed, id)
	}
	seats, err := m.opts.Store.Seats(ctx, id)
	if err != nil {
		return nil, err
	}

	t, err := New(Options{
		Config:    ConfigFromRecord(rec),
		Store:     m.opts.Store,
		Publisher: m.opts.Publisher,
		Logger:    m.opts.Logger.WithPrefix("table"),
		Clock:     m.opts.Clock,
		RNG:       m.opts.RNG,
		Seats:     seats,
		Button:    rec.Button,
		HandCount: rec.HandCount,
		OnEmpty:   m.release,
	})
	if err != nil {
		return nil, err
	}

	tctx, cancel := context.WithCancel(m.ctx)
	m.tables[id] = &runtime{table: t, cancel: cancel}
	m.g.Go(func() error { return t.Run(tctx) })
	m.logger.Debug("Table started", "table", id, "players", len(seats))
	return t, nil
}

// With calls fn with the running table, retrying on a fresh runtime if the
// table was released while the call was in flight.
func (m *Manager) With(ctx context.Context, id string, fn func(*Table) error) error {
	const attempts = 3
	var err error
	for range attempts {
		var t *Table
		if t, err = m.Get(ctx, id); err != nil {
			return err
		}
		if err = fn(t); !errors.Is(err, ErrTableClosed) {
			return err
		}
		<-t.Done()
	}
	return err
}

// Tables lists the ids of running tables.
func (m *Manager) Tables() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tables))
	for id := range m.tables {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close stops a table and marks it closed in the store. Seated players keep
// their seats and chips.
func (m *Manager) Close(ctx context.Context, id string) error {
	if err := m.opts.Store.SetTableStatus(ctx, id, store.TableClosed); err != nil {
		return err
	}
	m.mu.Lock()
	rt, ok := m.tables[id]
	delete(m.tables, id)
	m.mu.Unlock()
	if ok {
		rt.cancel()
		<-rt.table.Done()
	}
	return nil
}

// Wait blocks until every table has stopped.
func (m *Manager) Wait() error {
	return m.g.Wait()
}

func (m *Manager) release(t *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tables[t.ID()]
	if !ok || rt.table != t {
		return
	}
	delete(m.tables, t.ID())
	rt.cancel()
	m.logger.Debug("Table released", "table", t.ID())
}
