package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"convsync/internal/wire"
	syncerrors "convsync/pkg/errors"
	"convsync/pkg/logger"
)

// Options configures a WebSocket connection.
type Options struct {
	URL          string
	AccessToken  string
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

type outMessage struct {
	messageType int
	data        []byte
}

// Conn is a dialer-side WebSocket connection. Outbound messages go through a
// buffered channel drained by a single write loop; inbound text frames are
// parsed and handed to the FrameHandler one at a time from the read loop.
//
// Reconnect and backoff are deliberately not handled here; the owner decides
// whether to dial again after Run returns.
type Conn struct {
	conn    *websocket.Conn
	send    chan outMessage
	handler FrameHandler
	log     *logger.Logger
	opts    Options

	mu     sync.Mutex
	closed bool
}

// Dial opens the WebSocket connection. The access token travels as a bearer
// header, matching what the server's upgrade handler expects.
func Dial(ctx context.Context, opts Options, handler FrameHandler, log *logger.Logger) (*Conn, error) {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}

	header := http.Header{}
	if opts.AccessToken != "" {
		header.Set("Authorization", "Bearer "+opts.AccessToken)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, header)
	if err != nil {
		return nil, err
	}

	return &Conn{
		conn:    conn,
		send:    make(chan outMessage, opts.SendBuffer),
		handler: handler,
		log:     log,
		opts:    opts,
	}, nil
}

// Run drives the write loop and blocks in the read loop until the connection
// drops or ctx is cancelled.
func (c *Conn) Run(ctx context.Context) error {
	go c.writeLoop(ctx)
	return c.readLoop(ctx)
}

func (c *Conn) readLoop(ctx context.Context) error {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		frame, err := wire.ParseFrame(data)
		if err != nil {
			c.log.Warnf("transport: dropping unparseable frame: %v", err)
			continue
		}
		c.handler(frame)
	}
}

func (c *Conn) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Close()
			return
		case msg, ok := <-c.send:
			if !ok {
				c.Close()
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(msg.messageType, msg.data); err != nil {
				c.log.Errorf("transport: write failed: %v", err)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			_ = c.conn.WriteMessage(websocket.PingMessage, []byte("ping"))
		}
	}
}

// SendFrame queues one JSON command frame.
func (c *Conn) SendFrame(f wire.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.enqueue(outMessage{messageType: websocket.TextMessage, data: data})
}

// SendBinary queues one binary frame (audio chunk).
func (c *Conn) SendBinary(data []byte) error {
	return c.enqueue(outMessage{messageType: websocket.BinaryMessage, data: data})
}

func (c *Conn) enqueue(msg outMessage) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return syncerrors.ErrNotConnected
	}
	c.mu.Unlock()

	select {
	case c.send <- msg:
		return nil
	default:
		return syncerrors.ErrNotConnected
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
