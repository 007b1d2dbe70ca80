package signal

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/dkeye/Gather/internal/app/orch"
	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
)

// decodeFunc turns one inbound frame into an orchestrator event. A nil
// event with a nil error means the frame was fully handled here.
type decodeFunc func(ctl *SignalWSController, sid domain.SessionID, c *WsSignalConn, typ string, data []byte) (any, error)

var disconnectEvent = orch.Disconnect{}

var dispatch = map[string]decodeFunc{
	"ping":             handlePing,
	"requestPlayers":   decodeRequestPlayers,
	"playerMovement":   decodeMovement,
	"register":         decodeRegister,
	"sendMessage":      decodeSendMessage,
	"getchathistory":   decodeChatHistory,
	"callUser":         decodeCallUser,
	"joinMeetingRoom":  decodeJoinRoom,
	"leaveMeetingRoom": decodeLeaveRoom,

	core.EvAcceptCall:          decodeCallControl,
	core.EvEndCall:             decodeCallControl,
	core.EvOffer:               decodeRelay,
	core.EvAnswer:              decodeRelay,
	core.EvICECandidate:        decodeRelay,
	core.EvMeetingOffer:        decodeRelay,
	core.EvMeetingAnswer:       decodeRelay,
	core.EvMeetingICECandidate: decodeRelay,
}

var errBadPayload = errors.New("bad_payload")

func missing(field string) error {
	return fmt.Errorf("missing field %s", field)
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errBadPayload
	}
	return nil
}
