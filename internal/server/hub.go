package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/holdemtables/internal/table"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	sendBuffer = 64
)

// ErrSlowConsumer is reported when a subscriber's send buffer is full. The
// subscriber is disconnected.
var ErrSlowConsumer = errors.New("subscriber send buffer full")

// MessageHandler handles a message sent by a websocket client. A returned
// error is sent back to that client.
type MessageHandler func(ctx context.Context, msg *Message) error

// Hub fans table updates out to websocket subscribers. Every subscriber gets
// the snapshot for its own viewer, so hole cards reach only their owner.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu     sync.RWMutex
	tables map[string]map[*subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// Clients authenticate with a token, not cookies.
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger.WithPrefix("hub"),
		tables: make(map[string]map[*subscriber]struct{}),
	}
}

// Publish implements table.Publisher. It never blocks on a subscriber.
func (h *Hub) Publish(_ context.Context, u table.Update) error {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.tables[u.Snapshot.TableID]))
	for s := range h.tables[u.Snapshot.TableID] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		if err := s.sendMessage(MessageTypeSnapshot, u.For(s.viewer)); err != nil {
			h.logger.Warn("Dropping subscriber", "table", s.tableID, "viewer", s.viewer, "error", err)
		}
	}
	return nil
}

// Subscribers returns how many clients watch tableID.
func (h *Hub) Subscribers(tableID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tables[tableID])
}

// Serve upgrades the request and streams updates for tableID as seen by
// viewer until the client goes away. initial supplies the first snapshot.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, tableID, viewer string, initial func(context.Context) (table.Snapshot, error), handle MessageHandler) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Failed to upgrade connection", "error", err)
		return
	}

	s := &subscriber{
		conn:    conn,
		tableID: tableID,
		viewer:  viewer,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		logger:  h.logger.With("table", tableID, "viewer", viewer),
	}
	h.register(s)
	defer h.unregister(s)

	snap, err := initial(r.Context())
	if err != nil {
		_, code := classify(err)
		if msg, merr := NewMessage(MessageTypeError, ErrorData{Code: code, Message: err.Error()}); merr == nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteJSON(msg)
		}
		return
	}
	_ = s.sendMessage(MessageTypeSnapshot, snap)

	go s.writePump()
	s.readPump(r.Context(), handle)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	var subs []*subscriber
	for _, set := range h.tables {
		for s := range set {
			subs = append(subs, s)
		}
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.tables[s.tableID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.tables[s.tableID] = set
	}
	set[s] = struct{}{}
	h.logger.Debug("Client connected", "table", s.tableID, "viewer", s.viewer, "total", len(set))
}

func (h *Hub) unregister(s *subscriber) {
	s.Close()
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.tables[s.tableID]
	delete(set, s)
	if len(set) == 0 {
		delete(h.tables, s.tableID)
	}
	h.logger.Debug("Client disconnected", "table", s.tableID, "viewer", s.viewer, "total", len(set))
}

type subscriber struct {
	conn    *websocket.Conn
	tableID string
	viewer  string
	send    chan []byte
	logger  *log.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *subscriber) sendMessage(typ MessageType, data any) error {
	msg, err := NewMessage(typ, data)
	if err != nil {
		return err
	}
	return s.enqueue(msg)
}

func (s *subscriber) sendError(requestID string, err error) {
	_, code := classify(err)
	msg, merr := NewMessage(MessageTypeError, ErrorData{Code: code, Message: err.Error()})
	if merr != nil {
		return
	}
	msg.RequestID = requestID
	_ = s.enqueue(msg)
}

func (s *subscriber) enqueue(msg *Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case s.send <- b:
		return nil
	default:
		s.Close()
		return ErrSlowConsumer
	}
}

// readPump handles incoming messages until the connection closes.
func (s *subscriber) readPump(ctx context.Context, handle MessageHandler) {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		if handle == nil {
			s.sendError(msg.RequestID, errors.New("read-only stream"))
			continue
		}
		if err := handle(ctx, &msg); err != nil {
			s.sendError(msg.RequestID, err)
			continue
		}
		_ = s.enqueue(&Message{Type: MessageTypeAck, Timestamp: time.Now(), RequestID: msg.RequestID})
	}
}

// writePump handles outgoing messages to the client.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case b := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				s.logger.Debug("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
