package relayclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/saker-ai/voice-relay/internal/protocol"
	"github.com/saker-ai/voice-relay/internal/transport/codec"
)

// ErrNotConnected is returned when a send happens while no connection is open.
var ErrNotConnected = errors.New("relay connection not ready")

// Client represents a client.
type Client struct {
	cfg       Config
	logger    *zap.Logger
	callbacks Callbacks

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	writeMu sync.Mutex
}

// NewClient creates a client; call Connect to start it.
func NewClient(cfg Config, callbacks Callbacks, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger, callbacks: callbacks}
}

// Connect dials in the background and redials with backoff until ctx ends or Close is called.
func (c *Client) Connect(ctx context.Context) {
	go c.run(ctx)
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close stops the client and drops the connection.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

// SendText submits text for translation.
func (c *Client) SendText(ctx context.Context, text string) error {
	return c.send(ctx, protocol.InboundMessage{
		Text:       text,
		SourceLang: c.cfg.SourceLang,
		TargetLang: c.cfg.TargetLang,
		SenderID:   c.cfg.SenderID,
	})
}

// SendAudio submits recorded speech for recognition and translation.
func (c *Client) SendAudio(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return codec.ErrEmptyPayload
	}
	return c.send(ctx, protocol.InboundMessage{
		AudioData:  codec.EncodeAudio(audio),
		SourceLang: c.cfg.SourceLang,
		TargetLang: c.cfg.TargetLang,
		SenderID:   c.cfg.SenderID,
	})
}

// Send submits a fully specified message.
func (c *Client) Send(ctx context.Context, msg protocol.InboundMessage) error {
	return c.send(ctx, msg)
}

func (c *Client) send(ctx context.Context, msg protocol.InboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) run(ctx context.Context) {
	delay := time.Second
	for {
		if ctx.Err() != nil || c.isClosed() {
			return
		}
		c.logger.Info("relay connecting", zap.String("url", c.cfg.URL))
		if err := c.connectOnce(ctx); err != nil {
			c.reportError(err)
			c.logger.Warn("relay connect failed", zap.Error(err))
			if !sleepContext(ctx, delay) {
				return
			}
			delay = nextBackoff(delay)
			continue
		}
		c.logger.Info("relay connected", zap.String("url", c.cfg.URL))
		if c.callbacks.OnConnected != nil {
			c.callbacks.OnConnected()
		}
		delay = time.Second
		if err := c.readLoop(); err != nil {
			if c.callbacks.OnDisconnected != nil {
				c.callbacks.OnDisconnected(err)
			}
			if c.isClosed() {
				return
			}
			c.reportError(err)
			c.logger.Warn("relay connection lost", zap.Error(err))
			if !sleepContext(ctx, delay) {
				return
			}
			delay = nextBackoff(delay)
		}
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	if c.cfg.URL == "" {
		return errors.New("relay url is empty")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	conn.SetPingHandler(func(appData string) error {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return errors.New("client closed")
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	return nil
}

func (c *Client) readLoop() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.handleTextMessage(data)
	}
}

func (c *Client) handleTextMessage(data []byte) {
	var frame protocol.Envelope
	if err := json.Unmarshal(data, &frame); err != nil {
		c.reportError(err)
		return
	}
	switch frame.Type {
	case protocol.TypeTranslation:
		if frame.Data != nil && c.callbacks.OnTranslation != nil {
			c.callbacks.OnTranslation(*frame.Data)
		}
	case protocol.TypeError:
		if c.callbacks.OnError != nil {
			c.callbacks.OnError(frame.Kind, frame.Message)
		}
	default:
		if c.callbacks.OnProgress != nil {
			c.callbacks.OnProgress(frame)
		}
	}
}

func (c *Client) reportError(err error) {
	if c.callbacks.OnTransportErr != nil {
		c.callbacks.OnTransportErr(err)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	return closed
}

func sleepContext(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(delay time.Duration) time.Duration {
	if delay >= 30*time.Second {
		return 30 * time.Second
	}
	return delay * 2
}
