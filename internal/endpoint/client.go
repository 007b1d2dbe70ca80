// Package endpoint is a headless Gather participant. It speaks the hub's
// websocket protocol and runs one peerlink.Manager for 1:1 calls and one
// for the meeting mesh.
package endpoint

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
	"github.com/dkeye/Gather/internal/peerlink"
)

var (
	ErrClosed         = errors.New("endpoint closed")
	ErrSendQueueFull  = errors.New("send queue full")
	ErrNoSessionFrame = errors.New("connection closed before session frame")
)

type Options struct {
	Header       http.Header
	QueueSize    int
	WriteTimeout time.Duration
	// AutoAccept answers every receiveCall with acceptCall.
	AutoAccept bool
	// OnEvent sees every inbound frame after the client has handled it.
	OnEvent func(Event)
}

func (o *Options) applyDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
}

// Event is one inbound frame.
type Event struct {
	Type string
	Data []byte
}

func (e Event) Decode(v any) error { return json.Unmarshal(e.Data, v) }

type Client struct {
	opts Options
	ws   *websocket.Conn
	out  chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}

	Calls *peerlink.Manager
	Mesh  *peerlink.Manager

	mu      sync.RWMutex
	id      domain.SessionID
	players map[domain.SessionID]domain.PlayerState
	online  map[string]domain.SessionID
	room    domain.RoomName
}

// Dial connects to the hub at url and returns once the session frame has
// been received.
func Dial(ctx context.Context, url string, factory peerlink.NegotiatorFactory, opts Options) (*Client, error) {
	opts.applyDefaults()
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		opts:    opts,
		ws:      ws,
		out:     make(chan []byte, opts.QueueSize),
		ctx:     cctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		players: make(map[domain.SessionID]domain.PlayerState),
		online:  make(map[string]domain.SessionID),
	}
	c.Calls = peerlink.NewManager("call", factory, relaySignaler{c: c, offer: core.EvOffer, answer: core.EvAnswer, candidate: core.EvICECandidate})
	c.Mesh = peerlink.NewManager("mesh", factory, relaySignaler{c: c, offer: core.EvMeetingOffer, answer: core.EvMeetingAnswer, candidate: core.EvMeetingICECandidate})

	var session core.SessionEvent
	if err := c.awaitSession(ctx, &session); err != nil {
		_ = ws.Close()
		cancel()
		return nil, err
	}
	c.id = session.ID
	c.players[session.ID] = session.Player
	log.Info().Str("module", "endpoint").Str("sid", string(c.id)).Msg("session established")

	go c.writePump()
	go c.readPump()
	return c, nil
}

func (c *Client) awaitSession(ctx context.Context, ev *core.SessionEvent) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(dl)
		defer c.ws.SetReadDeadline(time.Time{})
	}
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return errors.Join(ErrNoSessionFrame, err)
		}
		var env struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &env) == nil && env.Type == core.EvSession {
			return json.Unmarshal(data, ev)
		}
	}
}

func (c *Client) ID() domain.SessionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Players is the last known state of every session, our own included.
func (c *Client) Players() map[domain.SessionID]domain.PlayerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.players)
}

func (c *Client) Online() map[string]domain.SessionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.online)
}

func (c *Client) Room() domain.RoomName {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

// Done is closed once the connection to the hub is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() error {
	c.shutdown()
	return nil
}

func (c *Client) shutdown() {
	c.once.Do(func() {
		c.cancel()
		c.Calls.CloseAll()
		c.Mesh.CloseAll()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = c.ws.Close()
		close(c.done)
		log.Info().Str("module", "endpoint").Str("sid", string(c.id)).Msg("closed")
	})
}

// send queues v for the write pump without blocking.
func (c *Client) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case c.out <- b:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	default:
		return ErrSendQueueFull
	}
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case b := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Warn().Err(err).Str("module", "endpoint").Str("sid", string(c.id)).Msg("write failed")
				go c.shutdown()
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer c.shutdown()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "endpoint").Str("sid", string(c.id)).Msg("read failed")
			}
			return
		}
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Str("module", "endpoint").Msg("undecodable frame")
			continue
		}
		c.handle(env.Type, data)
		if c.opts.OnEvent != nil {
			c.opts.OnEvent(Event{Type: env.Type, Data: data})
		}
	}
}
