package endpoint

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
	"github.com/dkeye/Gather/internal/peerlink"
)

func (c *Client) handle(typ string, data []byte) {
	switch typ {
	case core.EvCurrentPlayers:
		var ev core.PlayersEvent
		if c.decode(typ, data, &ev) {
			c.mu.Lock()
			self, ok := c.players[c.id]
			c.players = ev.Players
			if c.players == nil {
				c.players = make(map[domain.SessionID]domain.PlayerState)
			}
			if ok {
				c.players[c.id] = self
			}
			c.mu.Unlock()
		}
	case core.EvNewPlayer, core.EvPlayerMoved:
		var ev core.PlayerEvent
		if c.decode(typ, data, &ev) {
			c.mu.Lock()
			c.players[ev.Player.ID] = ev.Player
			c.mu.Unlock()
		}
	case core.EvPlayerDisconnected:
		var ev core.DepartedEvent
		if c.decode(typ, data, &ev) {
			c.mu.Lock()
			delete(c.players, ev.ID)
			c.mu.Unlock()
			c.Calls.Close(ev.ID)
			c.Mesh.Close(ev.ID)
		}
	case core.EvOnlineUsers:
		var ev core.OnlineUsersEvent
		if c.decode(typ, data, &ev) {
			c.mu.Lock()
			c.online = ev.Users
			c.mu.Unlock()
		}
	case core.EvReceiveCall:
		var ev core.CallEvent
		if c.decode(typ, data, &ev) {
			log.Info().Str("module", "endpoint").Str("sid", string(c.id)).Str("caller", string(ev.CallerID)).Str("caller_name", ev.CallerName).Msg("incoming call")
			if c.opts.AutoAccept {
				_ = c.Accept(ev.CallerID)
			}
		}
	case core.EvAcceptCall:
		var ev core.RelayEvent
		if c.decode(typ, data, &ev) {
			if err := c.Calls.Initiate(c.ctx, ev.From); err != nil {
				_ = c.send(callControl{Type: core.EvEndCall, To: ev.From})
			}
		}
	case core.EvEndCall:
		var ev core.RelayEvent
		if c.decode(typ, data, &ev) {
			c.Calls.Close(ev.From)
		}
	case core.EvOffer, core.EvAnswer, core.EvICECandidate:
		c.negotiate(c.Calls, typ, data, true)
	case core.EvMeetingOffer, core.EvMeetingAnswer, core.EvMeetingICECandidate:
		c.negotiate(c.Mesh, typ, data, false)
	case core.EvMeetingParticipants:
		var ev core.RosterEvent
		if c.decode(typ, data, &ev) {
			c.mu.Lock()
			c.room = ev.Room
			c.mu.Unlock()
			for _, p := range ev.Participants {
				// the failed link is already closed; the peer sees us leave eventually
				_ = c.Mesh.Initiate(c.ctx, p)
			}
		}
	case core.EvMeetingUserLeft:
		var ev core.MeetingMemberEvent
		if c.decode(typ, data, &ev) {
			c.Mesh.Close(ev.UserID)
		}
	case core.EvError:
		var ev core.ErrorEvent
		if c.decode(typ, data, &ev) {
			log.Warn().Str("module", "endpoint").Str("sid", string(c.id)).Str("error", ev.Error).Msg("hub rejected frame")
		}
	}
}

func (c *Client) decode(typ string, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "endpoint").Str("type", typ).Msg("bad frame")
		return false
	}
	return true
}

// negotiate feeds a relayed offer, answer or candidate into m. On a 1:1
// call a media failure hangs up on the partner.
func (c *Client) negotiate(m *peerlink.Manager, typ string, data []byte, hangupOnFailure bool) {
	var ev core.RelayEvent
	if !c.decode(typ, data, &ev) || ev.From == "" {
		return
	}
	var err error
	switch typ {
	case core.EvOffer, core.EvMeetingOffer:
		var sd webrtc.SessionDescription
		if !c.decode(typ, ev.Payload, &sd) {
			return
		}
		err = m.HandleOffer(c.ctx, ev.From, sd)
	case core.EvAnswer, core.EvMeetingAnswer:
		var sd webrtc.SessionDescription
		if !c.decode(typ, ev.Payload, &sd) {
			return
		}
		err = m.HandleAnswer(ev.From, sd)
	default:
		var ci webrtc.ICECandidateInit
		if !c.decode(typ, ev.Payload, &ci) {
			return
		}
		err = m.HandleCandidate(ev.From, ci)
	}
	if err == nil {
		return
	}
	if errors.Is(err, peerlink.ErrMediaUnavailable) && hangupOnFailure {
		_ = c.send(callControl{Type: core.EvEndCall, To: ev.From})
	}
}
