package core

import (
	"slices"
	"sync"

	"github.com/dkeye/Gather/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory participant set.
// Join order is kept so rosters are stable.
type roomImpl struct {
	name    domain.RoomName
	mu      sync.RWMutex
	order   []domain.SessionID
	members map[domain.SessionID]struct{}
}

func NewRoomService(name domain.RoomName) RoomService {
	return &roomImpl{
		name:    name,
		members: make(map[domain.SessionID]struct{}),
	}
}

func (r *roomImpl) Name() domain.RoomName { return r.name }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) Members() []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

func (r *roomImpl) Contains(sid domain.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[sid]
	return ok
}

func (r *roomImpl) AddMember(sid domain.SessionID) ([]domain.SessionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roster := make([]domain.SessionID, 0, len(r.order))
	for _, m := range r.order {
		if m != sid {
			roster = append(roster, m)
		}
	}
	if _, ok := r.members[sid]; ok {
		return roster, false
	}
	r.members[sid] = struct{}{}
	r.order = append(r.order, sid)
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(sid)).Int("roster", len(roster)).Msg("member added")
	return roster, true
}

func (r *roomImpl) RemoveMember(sid domain.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[sid]; !ok {
		return false
	}
	delete(r.members, sid)
	r.order = slices.DeleteFunc(r.order, func(m domain.SessionID) bool { return m == sid })
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(sid)).Msg("member removed")
	return true
}
