package table

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/randutil"
	"github.com/lox/holdemtables/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Memory, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st := store.NewMemory()
	for _, id := range []string{"alice", "bob"} {
		_, err := st.OpenAccount(ctx, id, 10000)
		require.NoError(t, err)
	}
	m := NewManager(ctx, ManagerOptions{
		Store:  st,
		Logger: log.New(io.Discard),
		Clock:  quartz.NewMock(t),
		RNG:    randutil.Seeded(3),
	})
	t.Cleanup(func() {
		cancel()
		require.NoError(t, m.Wait())
	})
	return m, st, ctx
}

func TestManagerCreateAndGet(t *testing.T) {
	m, _, ctx := newTestManager(t)

	tbl, err := m.Create(ctx, Config{ID: "main", SmallBlind: 1, BigBlind: 2})
	require.NoError(t, err)
	assert.Equal(t, "main", tbl.ID())
	assert.Equal(t, 100, tbl.Config().MinBuyIn)
	assert.Equal(t, 400, tbl.Config().MaxBuyIn)

	_, err = m.Create(ctx, Config{ID: "main", SmallBlind: 1, BigBlind: 2})
	require.ErrorIs(t, err, store.ErrExists)

	_, err = m.Create(ctx, Config{ID: "bad", SmallBlind: 2, BigBlind: 2})
	require.ErrorIs(t, err, ErrInvalidConfig)

	got, err := m.Get(ctx, "main")
	require.NoError(t, err)
	assert.Same(t, tbl, got)

	_, err = m.Get(ctx, "nope")
	require.ErrorIs(t, err, ErrUnknownTable)

	anon, err := m.Create(ctx, Config{SmallBlind: 5, BigBlind: 10})
	require.NoError(t, err)
	assert.Len(t, anon.ID(), 26)
	assert.ElementsMatch(t, []string{"main", anon.ID()}, m.Tables())
}

func TestManagerReleasesEmptyTableAndRecreates(t *testing.T) {
	m, st, ctx := newTestManager(t)
	_, err := m.Create(ctx, Config{ID: "main", SmallBlind: 10, BigBlind: 20})
	require.NoError(t, err)

	join := func(player string) {
		t.Helper()
		require.NoError(t, m.With(ctx, "main", func(tbl *Table) error {
			_, err := tbl.Join(ctx, JoinRequest{PlayerID: player, Seat: -1, BuyIn: 1000})
			return err
		}))
	}

	join("alice")
	first, err := m.Get(ctx, "main")
	require.NoError(t, err)

	_, err = first.Leave(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, m.Tables(), "empty table is released")
	<-first.Done()

	join("alice")
	join("bob")
	second, err := m.Get(ctx, "main")
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	s, err := second.Snapshot(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "preflop", s.Street)
	assert.Equal(t, 1, s.ViewerSeat)

	seats, err := st.Seats(ctx, "main")
	require.NoError(t, err)
	assert.Len(t, seats, 2)
}

func TestManagerWithRetriesReleasedTable(t *testing.T) {
	m, _, ctx := newTestManager(t)
	_, err := m.Create(ctx, Config{ID: "main", SmallBlind: 10, BigBlind: 20})
	require.NoError(t, err)

	calls := 0
	err = m.With(ctx, "main", func(tbl *Table) error {
		calls++
		if calls == 1 {
			m.release(tbl)
			return ErrTableClosed
		}
		_, err := tbl.Snapshot(ctx, "")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestManagerClose(t *testing.T) {
	m, st, ctx := newTestManager(t)
	_, err := m.Create(ctx, Config{ID: "main", SmallBlind: 10, BigBlind: 20})
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx, "main"))
	assert.Empty(t, m.Tables())

	_, err = m.Get(ctx, "main")
	require.ErrorIs(t, err, ErrTableClosed)

	rec, err := st.Table(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, store.TableClosed, rec.Status)
}
