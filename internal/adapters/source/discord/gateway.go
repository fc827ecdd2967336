// Package discord is a minimal gateway client: it identifies with a bot
// token, keeps the heartbeat alive, and forwards MESSAGE_CREATE events for
// one channel into the scan pipeline
package discord

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	perr "invitehound/internal/platform/errors"
	"invitehound/internal/platform/logger"
	"invitehound/internal/services/monitor/domain"
)

const (
	defaultGatewayURL  = "wss://gateway.discord.gg/?v=10&encoding=json"
	defaultReadTimeout = 90 * time.Second
	dialTimeout        = 15 * time.Second
)

// Options configures the Client
type Options struct {
	Token     string
	ChannelID string

	// GatewayURL overrides the production gateway, used by tests
	GatewayURL string
	// Intents overrides the default message-content intents
	Intents int
}

// Client holds one gateway session. Run owns the connection for its whole
// lifetime; restarting after a hard failure is the caller's concern
type Client struct {
	opts Options
	log  logger.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn
}

// NewClient creates a gateway client with sane defaults
func NewClient(o Options) *Client {
	if o.GatewayURL == "" {
		o.GatewayURL = defaultGatewayURL
	}
	if o.Intents == 0 {
		o.Intents = defaultIntents
	}
	return &Client{opts: o, log: *logger.Named("discord")}
}

// Kind labels items from this producer
func (c *Client) Kind() domain.SourceKind { return domain.SourceDiscord }

// Run dials the gateway and pumps events into onItem until ctx is cancelled
// or the connection hard-fails. Self-authored messages and messages from
// other channels are dropped before onItem sees them
func (c *Client) Run(ctx context.Context, onItem func(context.Context, domain.SourceItem)) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.opts.GatewayURL, nil)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "discord gateway dial failed")
	}
	c.conn = conn
	defer func() { _ = conn.Close() }()

	// close the socket when ctx dies so the blocking read unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	var (
		lastSeq       atomic.Int64
		seqKnown      atomic.Bool
		selfID        string
		heartbeatStop chan struct{}
	)
	defer func() {
		if heartbeatStop != nil {
			close(heartbeatStop)
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(defaultReadTimeout)); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "discord set read deadline failed")
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "discord gateway read failed")
		}

		var p payload
		if err := json.Unmarshal(raw, &p); err != nil {
			c.log.Debug().Err(err).Msg("discord undecodable frame skipped")
			continue
		}
		if p.S != nil {
			lastSeq.Store(*p.S)
			seqKnown.Store(true)
		}

		switch p.Op {
		case opHello:
			var hello helloData
			if err := json.Unmarshal(p.D, &hello); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeUnknown, "discord hello decode failed")
			}
			interval := time.Duration(hello.HeartbeatIntervalMS) * time.Millisecond
			if interval <= 0 {
				interval = 41 * time.Second
			}
			heartbeatStop = make(chan struct{})
			go c.heartbeatLoop(interval, heartbeatStop, func() (int64, bool) { return lastSeq.Load(), seqKnown.Load() })

			if err := c.writeJSON(payload{Op: opIdentify, D: mustMarshal(identifyData{
				Token:   c.opts.Token,
				Intents: c.opts.Intents,
				Properties: identifyProperties{
					OS:      "linux",
					Browser: "invitehound",
					Device:  "invitehound",
				},
			})}); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeUnavailable, "discord identify failed")
			}

		case opHeartbeat:
			// gateway asked for an immediate beat
			_ = c.sendHeartbeat(lastSeq.Load(), seqKnown.Load())

		case opHeartbeatAck:
			// nothing to track, the read deadline already covers liveness

		case opReconnect:
			return perr.Unavailablef("discord gateway requested reconnect")

		case opInvalidSession:
			return perr.Unavailablef("discord session invalidated")

		case opDispatch:
			switch p.T {
			case "READY":
				var ready readyData
				if err := json.Unmarshal(p.D, &ready); err == nil {
					selfID = ready.User.ID
					c.log.Info().Str("channel", c.opts.ChannelID).Msg("discord gateway ready")
				}
			case "MESSAGE_CREATE":
				var msg messageCreate
				if err := json.Unmarshal(p.D, &msg); err != nil {
					c.log.Debug().Err(err).Msg("discord message decode failed")
					continue
				}
				if msg.ChannelID != c.opts.ChannelID {
					continue
				}
				if selfID != "" && msg.Author.ID == selfID {
					continue
				}
				onItem(ctx, msg.toSourceItem())
			}
		}
	}
}

func (c *Client) heartbeatLoop(interval time.Duration, stop chan struct{}, seq func() (int64, bool)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := c.sendHeartbeat(seq()); err != nil {
				c.log.Debug().Err(err).Msg("discord heartbeat write failed")
				return
			}
		}
	}
}

func (c *Client) sendHeartbeat(seq int64, known bool) error {
	d := json.RawMessage("null")
	if known {
		d = mustMarshal(seq)
	}
	return c.writeJSON(payload{Op: opHeartbeat, D: d})
}

func (c *Client) writeJSON(p payload) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(p)
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// compile-time check against the pipeline port
var _ domain.PushProducerPort = (*Client)(nil)
