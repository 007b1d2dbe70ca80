package orch

import (
	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomJoin adds sid to the room and hands it the roster it must dial.
// Existing members are only informed; they wait for the joiner's offers.
func (o *Orchestrator) roomJoin(sid domain.SessionID, name domain.RoomName) {
	room := o.Rooms.GetOrCreate(name)
	roster, added := room.AddMember(sid)
	if added {
		for _, member := range roster {
			o.send(member, core.MeetingMemberEvent{Type: core.EvMeetingUserJoined, Room: name, UserID: sid})
		}
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(name)).Int("roster", len(roster)).Msg("joined room")
	}
	o.send(sid, core.RosterEvent{Type: core.EvMeetingParticipants, Room: name, Participants: roster})
}

func (o *Orchestrator) roomLeave(sid domain.SessionID, name domain.RoomName) {
	room, ok := o.Rooms.Get(name)
	if !ok || !room.RemoveMember(sid) {
		return
	}
	for _, member := range room.Members() {
		o.send(member, core.MeetingMemberEvent{Type: core.EvMeetingUserLeft, Room: name, UserID: sid})
	}
	if room.MemberCount() == 0 {
		o.Rooms.StopRoom(name)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(name)).Msg("left room")
}
