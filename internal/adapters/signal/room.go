package signal

import (
	"unicode/utf8"

	"github.com/dkeye/Gather/internal/app/orch"
	"github.com/dkeye/Gather/internal/domain"
)

const maxRoomNameLen = 36

type roomPayload struct {
	Room string `json:"room"`
}

func decodeRoom(data []byte) (string, error) {
	var p roomPayload
	if err := unmarshal(data, &p); err != nil {
		return "", err
	}
	return truncateName(p.Room, maxRoomNameLen), nil
}

// truncateName cuts s to at most n bytes without splitting a rune.
func truncateName(s string, n int) string {
	for i := 0; i < len(s); {
		_, w := utf8.DecodeRuneInString(s[i:])
		if i+w > n {
			return s[:i]
		}
		i += w
	}
	return s
}

func decodeJoinRoom(_ *SignalWSController, _ domain.SessionID, _ *WsSignalConn, _ string, data []byte) (any, error) {
	room, err := decodeRoom(data)
	if err != nil {
		return nil, err
	}
	return orch.RoomJoin{Room: room}, nil
}

func decodeLeaveRoom(_ *SignalWSController, _ domain.SessionID, _ *WsSignalConn, _ string, data []byte) (any, error) {
	room, err := decodeRoom(data)
	if err != nil {
		return nil, err
	}
	return orch.RoomLeave{Room: room}, nil
}
