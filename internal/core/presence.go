package core

import (
	"maps"

	"github.com/dkeye/Gather/internal/domain"
)

// Presence holds the authoritative PlayerState of every live session.
// It is owned by the orchestrator loop and is not safe for concurrent use.
type Presence struct {
	players map[domain.SessionID]*domain.PlayerState
}

func NewPresence() *Presence {
	return &Presence{players: make(map[domain.SessionID]*domain.PlayerState)}
}

// Seed creates the PlayerState for a freshly admitted session.
func (p *Presence) Seed(sid domain.SessionID, pos domain.Position) domain.PlayerState {
	st := &domain.PlayerState{
		ID:        sid,
		Position:  pos,
		Direction: domain.DirDown,
		Name:      domain.DefaultPlayerName(sid),
	}
	p.players[sid] = st
	return *st
}

func (p *Presence) Get(sid domain.SessionID) (domain.PlayerState, bool) {
	st, ok := p.players[sid]
	if !ok {
		return domain.PlayerState{}, false
	}
	return *st, true
}

// SetTransform overwrites the transform of an existing session. Unknown
// sessions are left alone and reported with ok == false.
func (p *Presence) SetTransform(sid domain.SessionID, t domain.Transform) (domain.PlayerState, bool) {
	st, ok := p.players[sid]
	if !ok {
		return domain.PlayerState{}, false
	}
	st.Apply(t)
	return *st, true
}

func (p *Presence) Rename(sid domain.SessionID, name string) (domain.PlayerState, bool) {
	st, ok := p.players[sid]
	if !ok {
		return domain.PlayerState{}, false
	}
	st.Name = name
	return *st, true
}

// Snapshot returns every session's state except the excluded one.
func (p *Presence) Snapshot(excluding domain.SessionID) map[domain.SessionID]domain.PlayerState {
	out := make(map[domain.SessionID]domain.PlayerState, len(p.players))
	for sid, st := range p.players {
		if sid == excluding {
			continue
		}
		out[sid] = *st
	}
	return out
}

func (p *Presence) Remove(sid domain.SessionID) bool {
	if _, ok := p.players[sid]; !ok {
		return false
	}
	delete(p.players, sid)
	return true
}

func (p *Presence) Count() int { return len(p.players) }

// IDs lists the sessions that currently have a PlayerState.
func (p *Presence) IDs() []domain.SessionID {
	out := make([]domain.SessionID, 0, len(p.players))
	for sid := range maps.Keys(p.players) {
		out = append(out, sid)
	}
	return out
}
