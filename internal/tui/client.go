package tui

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/holdemtables/internal/server"
)

// Client is a websocket connection to one table.
type Client struct {
	conn     *websocket.Conn
	logger   *log.Logger
	messages chan *server.Message

	mu  sync.Mutex
	seq int
}

// Dial connects to the table stream at baseURL (http or https).
func Dial(ctx context.Context, baseURL, tableID, token string, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/tables/" + url.PathEscape(tableID) + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connect to %s: %s", tableID, resp.Status)
		}
		return nil, fmt.Errorf("connect to %s: %w", tableID, err)
	}

	c := &Client{
		conn:     conn,
		logger:   logger.WithPrefix("client"),
		messages: make(chan *server.Message, 64),
	}
	go c.readLoop()
	return c, nil
}

// Messages delivers everything the server sends. It is closed when the
// connection ends.
func (c *Client) Messages() <-chan *server.Message { return c.messages }

// Send writes a request and returns its request id.
func (c *Client) Send(typ server.MessageType, data any) (string, error) {
	msg, err := server.NewMessage(typ, data)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	msg.RequestID = strconv.Itoa(c.seq)
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteJSON(msg); err != nil {
		return "", err
	}
	return msg.RequestID, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer close(c.messages)
	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("Connection closed", "error", err)
			}
			return
		}
		c.messages <- &msg
	}
}
