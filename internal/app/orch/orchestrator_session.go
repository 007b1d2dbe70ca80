package orch

import (
	"context"

	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) admit(conn core.SignalConnection, token string, cancel context.CancelFunc) domain.SessionID {
	sid := o.Registry.Admit(conn, token, cancel)
	o.Metrics.Admitted.Add(1)

	st := o.presence.Seed(sid, o.spawner.Pick())
	o.send(sid, core.SessionEvent{Type: core.EvSession, ID: sid, Player: st})
	o.sendSnapshot(sid)
	o.send(sid, core.OnlineUsersEvent{Type: core.EvOnlineUsers, Users: o.idents.Table()})
	o.broadcast(sid, core.PlayerEvent{Type: core.EvNewPlayer, Player: st})

	if o.autoZone {
		o.syncZone(sid, st.Position)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).
		Float64("x", st.Position.X).Float64("y", st.Position.Y).Msg("player spawned")
	return sid
}

// disconnect tears down everything sid owned. Repeated calls are no-ops,
// so every other session sees exactly one departure.
func (o *Orchestrator) disconnect(sid domain.SessionID) {
	conn, _ := o.Registry.Get(sid)
	if !o.Registry.Remove(sid) {
		return
	}
	if conn != nil {
		conn.Close()
	}
	o.Metrics.Disconnected.Add(1)
	o.presence.Remove(sid)
	delete(o.zoneOf, sid)

	for _, room := range o.Rooms.RoomsOf(sid) {
		o.roomLeave(sid, room)
	}
	if name, released := o.idents.Unbind(sid); released {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("name", name).Msg("name released")
		o.broadcastOnline()
	}
	o.broadcast(sid, core.DepartedEvent{Type: core.EvPlayerDisconnected, ID: sid})
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("player left")
}
