package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const reconnectDelay = 5 * time.Second

// Client keeps one outbound connection to the feed server and applies
// every message it receives.
type Client struct {
	url            string
	dispatcher     *Dispatcher
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	log            zerolog.Logger
}

func NewClient(url string, dispatcher *Dispatcher, log zerolog.Logger) *Client {
	return &Client{
		url:            url,
		dispatcher:     dispatcher,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: reconnectDelay,
		log:            log.With().Str("feed", url).Logger(),
	}
}

// Run connects and stays connected until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		c.connect(ctx)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Dur("retry_in", c.reconnectDelay).Msg("feed connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) connect(ctx context.Context) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to connect to feed")
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	c.log.Info().Msg("connected to feed")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Error().Err(err).Msg("feed read error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Warn().Err(err).Msg("feed message parse error")
			continue
		}

		if err := c.dispatcher.Apply(ctx, msg); err != nil {
			c.log.Warn().Err(err).Msg("feed message skipped")
		}
	}
}
