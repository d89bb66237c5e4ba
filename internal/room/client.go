// Package room is the thin websocket transport to the shared-video room's
// event stream. It decodes chatMsg and changeMedia events for the service
// and sends formatted chat lines back, with a flood guard matching the
// room's server-side chat throttle. Wire-format details beyond that narrow
// contract are not this package's concern.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"github.com/moviebarn/rothbot/internal/bus"
	"github.com/moviebarn/rothbot/internal/config"
)

const (
	readLimit      = 1 << 20 // 1MB
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Client maintains the room connection and dispatches decoded events.
type Client struct {
	cfg     config.RoomConfig
	onChat  bus.ChatHandler
	onMedia bus.MediaHandler

	mu   sync.Mutex // guards conn for writes
	conn *websocket.Conn

	// Rooms throttle chat server-side; pace sends so parts are not dropped.
	sendLimiter *rate.Limiter
}

// New creates a client. onChat runs in its own goroutine per message so a
// slow pipeline (an in-flight generation call) never stalls the read loop;
// onMedia runs inline and must not block.
func New(cfg config.RoomConfig, onChat bus.ChatHandler, onMedia bus.MediaHandler) *Client {
	return &Client{
		cfg:         cfg,
		onChat:      onChat,
		onMedia:     onMedia,
		sendLimiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

// Run connects and consumes the event stream until ctx is cancelled,
// reconnecting with capped exponential backoff on connection loss.
func (c *Client) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		err := c.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("room connection lost", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("room: dial %s: %w", c.cfg.URL, err)
	}
	conn.SetReadLimit(readLimit)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	if err := c.login(ctx); err != nil {
		return err
	}
	slog.Info("room connected", "url", c.cfg.URL, "channel", c.cfg.Channel)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("room: read: %w", err)
		}
		c.handleFrame(data)
	}
}

func (c *Client) login(ctx context.Context) error {
	return c.writeFrame(ctx, EventLogin, loginPayload{
		Channel:  c.cfg.Channel,
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	})
}

func (c *Client) handleFrame(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Debug("room: dropping malformed frame", "error", err)
		return
	}

	switch f.Name {
	case EventChatMsg:
		var p chatPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			slog.Debug("room: dropping malformed chatMsg", "error", err)
			return
		}
		rank := 1
		if p.Meta.Rank != nil {
			rank = *p.Meta.Rank
		}
		msg := bus.ChatMessage{
			Username: p.Username,
			Text:     p.Msg,
			Time:     time.Unix(p.Time, 0),
			Rank:     rank,
		}
		go c.onChat(msg)
	case EventChangeMedia:
		var p bus.MediaChange
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			slog.Debug("room: dropping malformed changeMedia", "error", err)
			return
		}
		c.onMedia(p)
	}
}

// SendChat sends one chat line, waiting out the flood guard first.
func (c *Client) SendChat(ctx context.Context, text string) error {
	if err := c.sendLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("room: send throttled: %w", err)
	}
	return c.writeFrame(ctx, EventChatMsg, sendChatPayload{Msg: text})
}

func (c *Client) writeFrame(ctx context.Context, name string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("room: marshal %s: %w", name, err)
	}
	data, err := json.Marshal(frame{Name: name, Payload: raw})
	if err != nil {
		return fmt.Errorf("room: marshal frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("room: not connected")
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}
