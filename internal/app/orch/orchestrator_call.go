package orch

import (
	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
	"github.com/rs/zerolog/log"
)

var relayTypes = map[string]bool{
	core.EvAcceptCall:          true,
	core.EvEndCall:             true,
	core.EvOffer:               true,
	core.EvAnswer:              true,
	core.EvICECandidate:        true,
	core.EvMeetingOffer:        true,
	core.EvMeetingAnswer:       true,
	core.EvMeetingICECandidate: true,
}

// IsRelayType reports whether t is forwarded verbatim between sessions.
func IsRelayType(t string) bool { return relayTypes[t] }

func (o *Orchestrator) callInvite(sid domain.SessionID, ev CallInvite) {
	name := ev.CallerName
	if name == "" {
		if st, ok := o.presence.Get(sid); ok {
			name = st.Name
		}
	}
	if name == "" {
		name = domain.DefaultPlayerName(sid)
	}
	o.relay(sid, ev.To, core.CallEvent{Type: core.EvReceiveCall, CallerID: sid, CallerName: name})
}

func (o *Orchestrator) relaySignal(sid domain.SessionID, ev Relay) {
	if !IsRelayType(ev.Type) {
		o.reject(sid, "unknown relay type")
		return
	}
	o.relay(sid, ev.To, core.RelayEvent{Type: ev.Type, From: sid, Payload: ev.Payload})
}

// relay forwards v to the target session. An unknown target is dropped
// without telling the sender.
func (o *Orchestrator) relay(from, to domain.SessionID, v any) {
	if !o.Registry.Exists(to) {
		o.Metrics.RelayMissing.Add(1)
		log.Debug().Str("module", "orch").Str("sid", string(from)).Str("to", string(to)).Msg("relay target missing")
		return
	}
	if o.send(to, v) {
		o.Metrics.Relayed.Add(1)
	}
}
