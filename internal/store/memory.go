package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

type seatKey struct {
	table string
	seat  int
}

// Memory is a Store held in process memory. Values are copied in and out.
type Memory struct {
	mu       sync.Mutex
	now      func() time.Time
	tables   map[string]TableRecord
	seats    map[seatKey]SeatRecord
	hands    map[string]HandRecord
	accounts map[string]Account
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		now:      time.Now,
		tables:   make(map[string]TableRecord),
		seats:    make(map[seatKey]SeatRecord),
		hands:    make(map[string]HandRecord),
		accounts: make(map[string]Account),
	}
}

func (m *Memory) CreateTable(_ context.Context, t TableRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[t.ID]; ok {
		return fmt.Errorf("table %s: %w", t.ID, ErrExists)
	}
	t.CreatedAt, t.UpdatedAt = m.now(), m.now()
	m.tables[t.ID] = t
	return nil
}

func (m *Memory) Table(_ context.Context, id string) (TableRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return TableRecord{}, fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *Memory) Tables(_ context.Context) ([]TableRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TableRecord, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SetButton(_ context.Context, tableID string, button, handCount int) error {
	return m.updateTable(tableID, func(t *TableRecord) {
		t.Button = button
		t.HandCount = handCount
	})
}

func (m *Memory) SetTableStatus(_ context.Context, tableID, status string) error {
	return m.updateTable(tableID, func(t *TableRecord) { t.Status = status })
}

func (m *Memory) updateTable(id string, fn func(*TableRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	fn(&t)
	t.UpdatedAt = m.now()
	m.tables[id] = t
	return nil
}

func (m *Memory) Seats(_ context.Context, tableID string) ([]SeatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SeatRecord
	for k, s := range m.seats {
		if k.table == tableID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out, nil
}

func (m *Memory) SaveSeat(_ context.Context, s SeatRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putSeat(s)
	return nil
}

func (m *Memory) putSeat(s SeatRecord) {
	s.UpdatedAt = m.now()
	m.seats[seatKey{s.TableID, s.Seat}] = s
}

func (m *Memory) BuyIn(_ context.Context, s SeatRecord, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.debit(s.PlayerID, amount); err != nil {
		return err
	}
	m.putSeat(s)
	return nil
}

func (m *Memory) CashOut(_ context.Context, tableID string, seat int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := seatKey{tableID, seat}
	s, ok := m.seats[k]
	if !ok {
		return 0, fmt.Errorf("seat %d at %s: %w", seat, tableID, ErrNotFound)
	}
	m.credit(s.PlayerID, s.Stack)
	delete(m.seats, k)
	return s.Stack, nil
}

func (m *Memory) StartHand(_ context.Context, h HandRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hands[h.ID]; ok {
		return fmt.Errorf("hand %s: %w", h.ID, ErrExists)
	}
	h.Actions = slices.Clone(h.Actions)
	h.Payouts = nil
	m.hands[h.ID] = h
	return nil
}

func (m *Memory) AppendActions(_ context.Context, actions []ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range actions {
		h, ok := m.hands[a.HandID]
		if !ok {
			return fmt.Errorf("hand %s: %w", a.HandID, ErrNotFound)
		}
		h.Actions = append(h.Actions, a)
		m.hands[a.HandID] = h
	}
	return nil
}

func (m *Memory) FinishHand(_ context.Context, h HandRecord, payouts []PayoutRecord, seats []SeatRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.hands[h.ID]
	if !ok {
		return fmt.Errorf("hand %s: %w", h.ID, ErrNotFound)
	}
	h.Actions = prev.Actions
	h.Payouts = slices.Clone(payouts)
	for i := range h.Payouts {
		h.Payouts[i].HandID = h.ID
	}
	m.hands[h.ID] = h
	for _, s := range seats {
		m.putSeat(s)
	}
	return nil
}

func (m *Memory) Hand(_ context.Context, id string) (HandRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hands[id]
	if !ok {
		return HandRecord{}, fmt.Errorf("hand %s: %w", id, ErrNotFound)
	}
	h.Actions = slices.Clone(h.Actions)
	h.Payouts = slices.Clone(h.Payouts)
	return h, nil
}

func (m *Memory) OpenAccount(_ context.Context, playerID string, initial int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[playerID]
	if !ok {
		a = Account{PlayerID: playerID, Balance: initial, CreatedAt: m.now(), UpdatedAt: m.now()}
		m.accounts[playerID] = a
	}
	return a.Balance, nil
}

func (m *Memory) Balance(_ context.Context, playerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[playerID]
	if !ok {
		return 0, fmt.Errorf("account %s: %w", playerID, ErrNotFound)
	}
	return a.Balance, nil
}

func (m *Memory) Credit(_ context.Context, playerID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative credit %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credit(playerID, amount), nil
}

func (m *Memory) credit(playerID string, amount int) int {
	a, ok := m.accounts[playerID]
	if !ok {
		a = Account{PlayerID: playerID, CreatedAt: m.now()}
	}
	a.Balance += amount
	a.UpdatedAt = m.now()
	m.accounts[playerID] = a
	return a.Balance
}

func (m *Memory) Debit(_ context.Context, playerID string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debit(playerID, amount)
}

func (m *Memory) debit(playerID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative debit %d", amount)
	}
	a, ok := m.accounts[playerID]
	if !ok || a.Balance < amount {
		return 0, fmt.Errorf("account %s: %w", playerID, ErrInsufficientBalance)
	}
	a.Balance -= amount
	a.UpdatedAt = m.now()
	m.accounts[playerID] = a
	return a.Balance, nil
}

func (m *Memory) Close() error { return nil }
