// Package orch is the single coordination point of the hub. One goroutine
// drains the event queue and owns every in-memory store, so handlers run
// to completion, broadcasts included, before the next event starts.
package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Gather/internal/app"
	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("orchestrator stopped")

const defaultQueueSize = 256

// ZoneLookup resolves the named zone at a map position, "" outside any zone.
type ZoneLookup interface {
	ZoneAt(x, y float64) string
}

type Options struct {
	Spawner   *core.Spawner
	Zones     ZoneLookup
	AutoZone  bool
	QueueSize int
}

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Metrics  *app.Metrics

	presence *core.Presence
	idents   *core.Identities
	convos   *core.Conversations
	spawner  *core.Spawner
	zones    ZoneLookup
	autoZone bool
	// zoneOf is the map zone each session stands in, independent of room
	// membership.
	zoneOf   map[domain.SessionID]domain.RoomName

	events chan envelope
	done   chan struct{}
}

type envelope struct {
	sid domain.SessionID
	ev  any
}

func New(reg *app.Registry, rooms core.RoomManager, policy app.Policy, metrics *app.Metrics, opts Options) *Orchestrator {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Spawner == nil {
		opts.Spawner = core.NewSpawner(nil, 0, core.DefaultSpawn, nil)
	}
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	if metrics == nil {
		metrics = &app.Metrics{}
	}
	return &Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		Policy:   policy,
		Metrics:  metrics,
		presence: core.NewPresence(),
		idents:   core.NewIdentities(),
		convos:   core.NewConversations(),
		spawner:  opts.Spawner,
		zones:    opts.Zones,
		autoZone: opts.AutoZone && opts.Zones != nil,
		zoneOf:   make(map[domain.SessionID]domain.RoomName),
		events:   make(chan envelope, opts.QueueSize),
		done:     make(chan struct{}),
	}
}

// Run drains the event queue until ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)
	log.Info().Str("module", "orch").Msg("event loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "orch").Msg("event loop stopped")
			return ctx.Err()
		case env := <-o.events:
			o.handle(env)
		}
	}
}

// Submit enqueues ev on behalf of sid. It blocks while the queue is full.
func (o *Orchestrator) Submit(ctx context.Context, sid domain.SessionID, ev any) error {
	select {
	case <-o.done:
		return ErrStopped
	default:
	}
	select {
	case o.events <- envelope{sid: sid, ev: ev}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
}

type connectEvent struct {
	conn   core.SignalConnection
	token  string
	cancel context.CancelFunc
	reply  chan domain.SessionID
}

// Connect admits conn and returns its freshly assigned identity. cancel is
// invoked when the hub wants the transport to drop the session.
func (o *Orchestrator) Connect(ctx context.Context, conn core.SignalConnection, token string, cancel context.CancelFunc) (domain.SessionID, error) {
	ev := connectEvent{conn: conn, token: token, cancel: cancel, reply: make(chan domain.SessionID, 1)}
	if err := o.Submit(ctx, "", ev); err != nil {
		return "", err
	}
	select {
	case sid := <-ev.reply:
		return sid, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-o.done:
		return "", ErrStopped
	}
}

type barrier chan struct{}

// Flush returns once every event submitted before it has been handled.
func (o *Orchestrator) Flush(ctx context.Context) error {
	b := make(barrier)
	if err := o.Submit(ctx, "", b); err != nil {
		return err
	}
	select {
	case <-b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
}

func (o *Orchestrator) handle(env envelope) {
	switch ev := env.ev.(type) {
	case connectEvent:
		ev.reply <- o.admit(ev.conn, ev.token, ev.cancel)
	case barrier:
		close(ev)
	case Disconnect:
		o.disconnect(env.sid)
	default:
		if !o.Registry.Exists(env.sid) {
			log.Debug().Str("module", "orch").Str("sid", string(env.sid)).Msg("event from unknown session")
			return
		}
		o.dispatch(env.sid, ev)
	}
}

func (o *Orchestrator) dispatch(sid domain.SessionID, ev any) {
	switch ev := ev.(type) {
	case RequestPlayers:
		o.sendSnapshot(sid)
	case Move:
		o.move(sid, ev)
	case Register:
		o.register(sid, ev)
	case ChatSend:
		o.chatSend(sid, ev)
	case ChatHistory:
		o.chatHistory(sid, ev)
	case CallInvite:
		o.callInvite(sid, ev)
	case Relay:
		o.relaySignal(sid, ev)
	case RoomJoin:
		o.roomJoin(sid, domain.RoomOrDefault(ev.Room))
	case RoomLeave:
		o.roomLeave(sid, domain.RoomOrDefault(ev.Room))
	default:
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Type("event", ev).Msg("unhandled event")
	}
}

// send encodes v and delivers it to sid. A missing sid is a silent drop.
func (o *Orchestrator) send(sid domain.SessionID, v any) bool {
	frame, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode")
		return false
	}
	return o.deliver(sid, frame)
}

func (o *Orchestrator) deliver(sid domain.SessionID, frame core.Frame) bool {
	conn, ok := o.Registry.Get(sid)
	if !ok {
		return false
	}
	err := conn.TrySend(frame)
	switch {
	case err == nil:
		o.Metrics.FramesSent.Add(1)
		return true
	case errors.Is(err, core.ErrBackpressure):
		o.Metrics.FramesDropped.Add(1)
		o.onBackpressure(sid)
	default:
		log.Debug().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("send failed")
	}
	return false
}

func (o *Orchestrator) onBackpressure(sid domain.SessionID) {
	switch o.Policy.OnBackPressure(sid) {
	case app.KickMember:
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("slow consumer kicked")
		o.Metrics.Kicked.Add(1)
		o.Registry.Cancel(sid)
	case app.DropFrame, app.NoAction:
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Msg("frame dropped")
	}
}

// broadcast encodes v once and delivers it to every session but except.
func (o *Orchestrator) broadcast(except domain.SessionID, v any) {
	frame, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode")
		return
	}
	for _, sid := range o.Registry.IDs() {
		if sid == except {
			continue
		}
		o.deliver(sid, frame)
	}
}

func (o *Orchestrator) reject(sid domain.SessionID, msg string) {
	o.Metrics.Rejected.Add(1)
	log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("reason", msg).Msg("rejected")
	o.send(sid, core.NewError(msg))
}
