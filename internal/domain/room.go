package domain

type RoomName string

// DefaultRoom is the meeting zone used when a join names no room.
const DefaultRoom RoomName = "meeting"

// RoomOrDefault maps an empty name to DefaultRoom.
func RoomOrDefault(name string) RoomName {
	if name == "" {
		return DefaultRoom
	}
	return RoomName(name)
}
