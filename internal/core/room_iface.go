package core

import "github.com/dkeye/Gather/internal/domain"

// RoomService is the core-facing API of a mesh room.
// It owns the participant set but never touches transport resources.
type RoomService interface {
	Name() domain.RoomName
	MemberCount() int
	// Members returns participants in join order.
	Members() []domain.SessionID
	Contains(sid domain.SessionID) bool

	// AddMember returns the roster as it was before sid joined (excluding
	// sid) and whether sid was newly added.
	AddMember(sid domain.SessionID) (roster []domain.SessionID, added bool)
	// RemoveMember reports whether sid was a member.
	RemoveMember(sid domain.SessionID) bool
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"member_count"`
}

type RoomManager interface {
	GetOrCreate(name domain.RoomName) RoomService
	Get(name domain.RoomName) (RoomService, bool)
	// RoomsOf lists every room sid currently participates in.
	RoomsOf(sid domain.SessionID) []domain.RoomName
	List() []RoomInfo
	StopRoom(name domain.RoomName)
}
