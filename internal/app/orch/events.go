package orch

import (
	"github.com/goccy/go-json"

	"github.com/dkeye/Gather/internal/domain"
)

// Inbound events, one per client intent.

type Disconnect struct{}

type RequestPlayers struct{}

type Move struct {
	Transform domain.Transform
}

type Register struct {
	Name string
}

type ChatSend struct {
	To   domain.SessionID
	Body string
	Kind domain.MessageKind
}

type ChatHistory struct {
	With domain.SessionID
}

type CallInvite struct {
	To         domain.SessionID
	CallerName string
}

// Relay is any forwarded call or mesh negotiation message.
type Relay struct {
	Type    string
	To      domain.SessionID
	Payload json.RawMessage
}

type RoomJoin struct {
	Room string
}

type RoomLeave struct {
	Room string
}
