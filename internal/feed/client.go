// Package feed maintains the streaming trade subscription for the
// current target and the bounded buffer of parsed samples.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"solana-token-watch/internal/domain"
	"solana-token-watch/internal/observability"
	"solana-token-watch/internal/storage"
)

// DefaultReconnectDelay is the fixed delay between reconnect attempts.
const DefaultReconnectDelay = 5 * time.Second

// DefaultEndpoint is the pumpportal streaming endpoint.
const DefaultEndpoint = "wss://pumpportal.fun/api/data"

// subscribeMessage is the control frame sent after connecting.
type subscribeMessage struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys"`
}

// tradeFrame is a pushed trade event. Amount fields are pointers so a
// frame missing them is distinguishable from a zero amount.
type tradeFrame struct {
	Mint        string   `json:"mint"`
	TokenAmount *float64 `json:"tokenAmount"`
	SolAmount   *float64 `json:"solAmount"`
	Side        string   `json:"side"`
	Wallet      string   `json:"wallet"`
}

// Client subscribes to trade events for one target and appends parsed
// samples to the buffer. It reconnects forever with a fixed delay and
// stops only when its context is cancelled.
type Client struct {
	endpoint       string
	target         domain.TokenTarget
	buffer         *Buffer
	archive        storage.TradeSampleStore // optional, best-effort
	metrics        *observability.Metrics
	log            logrus.FieldLogger
	reconnectDelay time.Duration
}

// Options configures a feed Client.
type Options struct {
	Endpoint       string
	Target         domain.TokenTarget
	Buffer         *Buffer
	Archive        storage.TradeSampleStore
	Metrics        *observability.Metrics
	Logger         logrus.FieldLogger
	ReconnectDelay time.Duration
}

// NewClient creates a feed client for one epoch's target.
func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	return &Client{
		endpoint:       opts.Endpoint,
		target:         opts.Target,
		buffer:         opts.Buffer,
		archive:        opts.Archive,
		metrics:        opts.Metrics,
		log:            opts.Logger,
		reconnectDelay: opts.ReconnectDelay,
	}
}

// Run maintains the subscription until ctx is cancelled. Connection
// errors, including clean closes, trigger a delayed reconnect; there is
// no retry limit.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				c.log.Debugf("feed: listener for %s cancelled", c.target.Name())
				return ctx.Err()
			}
			c.log.WithError(err).Warnf("feed: connection lost for %s, reconnecting in %s",
				c.target.Name(), c.reconnectDelay)
		}

		c.metrics.FeedReconnect()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

// runOnce dials, subscribes, and receives frames until the connection
// fails or ctx is cancelled.
func (c *Client) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.endpoint, err)
	}
	defer conn.Close()

	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	sub := subscribeMessage{Method: "subscribeTokenTrade", Keys: []string{c.target.Address}}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.log.Infof("feed: subscribed to trades for %s (%s)", c.target.Name(), c.target.Address)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.handleFrame(ctx, message)
	}
}

// handleFrame parses one pushed frame. Malformed frames are dropped and
// counted; frames for other mints are skipped without counting. Never fatal.
func (c *Client) handleFrame(ctx context.Context, message []byte) {
	var frame tradeFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.metrics.TradeDropped()
		c.log.Warnf("feed: unparseable frame for %s: %v", c.target.Name(), err)
		return
	}
	if frame.Mint != c.target.Address {
		return
	}
	if frame.TokenAmount == nil || frame.SolAmount == nil {
		c.metrics.TradeDropped()
		c.log.Debugf("feed: frame for %s missing amount fields", c.target.Name())
		return
	}

	sample := domain.TradeSample{
		TokenAmount: *frame.TokenAmount,
		SolAmount:   *frame.SolAmount,
		Side:        domain.TradeSide(strings.ToLower(frame.Side)),
		Wallet:      frame.Wallet,
		ObservedAt:  time.Now(),
	}
	c.buffer.Append(sample)
	c.metrics.TradeReceived()

	if c.archive != nil {
		if err := c.archive.Archive(ctx, c.target.Address, &sample); err != nil {
			c.log.WithError(err).Debugf("feed: archive failed for %s", c.target.Address)
		}
	}
}
