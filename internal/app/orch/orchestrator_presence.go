package orch

import (
	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) sendSnapshot(sid domain.SessionID) {
	o.send(sid, core.PlayersEvent{Type: core.EvCurrentPlayers, Players: o.presence.Snapshot(sid)})
}

func (o *Orchestrator) move(sid domain.SessionID, ev Move) {
	if err := ev.Transform.Validate(); err != nil {
		o.reject(sid, err.Error())
		return
	}
	st, ok := o.presence.SetTransform(sid, ev.Transform)
	if !ok {
		return
	}
	o.broadcast("", core.PlayerEvent{Type: core.EvPlayerMoved, Player: st})
	if o.autoZone {
		o.syncZone(sid, st.Position)
	}
}

// syncZone joins or leaves mesh rooms as sid walks across map zones. An
// explicit leave sticks until sid crosses a zone boundary again.
func (o *Orchestrator) syncZone(sid domain.SessionID, pos domain.Position) {
	zone := domain.RoomName(o.zones.ZoneAt(pos.X, pos.Y))
	prev := o.zoneOf[sid]
	if zone == prev {
		return
	}
	if prev != "" {
		o.roomLeave(sid, prev)
		delete(o.zoneOf, sid)
	}
	if zone != "" {
		o.zoneOf[sid] = zone
		o.roomJoin(sid, zone)
	}
	log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("from", string(prev)).Str("to", string(zone)).Msg("zone changed")
}

func (o *Orchestrator) register(sid domain.SessionID, ev Register) {
	name, err := domain.NormalizeUsername(ev.Name)
	if err != nil {
		o.reject(sid, err.Error())
		return
	}
	if prev, replaced := o.idents.Bind(name, sid); replaced {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("name", name).Str("previous", string(prev)).Msg("name taken over")
	}
	if st, ok := o.presence.Rename(sid, name); ok {
		o.broadcast("", core.PlayerEvent{Type: core.EvPlayerMoved, Player: st})
	}
	o.broadcastOnline()
}

func (o *Orchestrator) broadcastOnline() {
	o.broadcast("", core.OnlineUsersEvent{Type: core.EvOnlineUsers, Users: o.idents.Table()})
}

// displayName is the bound name, else the player name, else a placeholder.
func (o *Orchestrator) displayName(sid domain.SessionID) string {
	if name, ok := o.idents.NameOf(sid); ok {
		return name
	}
	if st, ok := o.presence.Get(sid); ok && st.Name != "" {
		return st.Name
	}
	return domain.UnknownSenderName(sid)
}
