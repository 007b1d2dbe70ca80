package core

import (
	"github.com/goccy/go-json"

	"github.com/dkeye/Gather/internal/domain"
)

// Outbound event types.
const (
	EvSession             = "session"
	EvCurrentPlayers      = "currentPlayers"
	EvNewPlayer           = "newPlayer"
	EvPlayerMoved         = "playerMoved"
	EvPlayerDisconnected  = "playerDisconnected"
	EvOnlineUsers         = "onlineUsers"
	EvReceiveMessage      = "receive_message"
	EvReceiveMessageSec   = "receive_message_sec"
	EvReceiveCall         = "receiveCall"
	EvMeetingUserJoined   = "meeting-user-joined"
	EvMeetingParticipants = "meeting-existing-participants"
	EvMeetingUserLeft     = "meeting-user-left"
	EvPong                = "pong"
	EvError               = "error"
)

// Relayed event types. Inbound and outbound names are the same.
const (
	EvAcceptCall          = "acceptCall"
	EvEndCall             = "endCall"
	EvOffer               = "offer"
	EvAnswer              = "answer"
	EvICECandidate        = "ice-candidate"
	EvMeetingOffer        = "meeting-offer"
	EvMeetingAnswer       = "meeting-answer"
	EvMeetingICECandidate = "meeting-ice-candidate"
)

type SessionEvent struct {
	Type   string             `json:"type"`
	ID     domain.SessionID   `json:"id"`
	Player domain.PlayerState `json:"player"`
}

type PlayersEvent struct {
	Type    string                                  `json:"type"`
	Players map[domain.SessionID]domain.PlayerState `json:"players"`
}

// PlayerEvent carries newPlayer and playerMoved.
type PlayerEvent struct {
	Type   string             `json:"type"`
	Player domain.PlayerState `json:"player"`
}

type DepartedEvent struct {
	Type string           `json:"type"`
	ID   domain.SessionID `json:"id"`
}

type OnlineUsersEvent struct {
	Type  string                      `json:"type"`
	Users map[string]domain.SessionID `json:"users"`
}

// HistoryEvent delivers a whole conversation. From is set on the
// recipient's copy after a send, With on a history request.
type HistoryEvent struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
	From     domain.SessionID `json:"from,omitempty"`
	With     domain.SessionID `json:"with,omitempty"`
}

type CallEvent struct {
	Type       string           `json:"type"`
	CallerID   domain.SessionID `json:"callerId"`
	CallerName string           `json:"callerName"`
}

// RelayEvent is a forwarded negotiation or call-control message. The
// payload is opaque to the hub.
type RelayEvent struct {
	Type    string           `json:"type"`
	From    domain.SessionID `json:"from"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

type MeetingMemberEvent struct {
	Type   string           `json:"type"`
	Room   domain.RoomName  `json:"room"`
	UserID domain.SessionID `json:"userId"`
}

type RosterEvent struct {
	Type         string             `json:"type"`
	Room         domain.RoomName    `json:"room"`
	Participants []domain.SessionID `json:"participants"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type PongEvent struct {
	Type string `json:"type"`
}

func NewError(msg string) ErrorEvent { return ErrorEvent{Type: EvError, Error: msg} }

// Encode renders an outbound event as a wire frame.
func Encode(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
