package endpoint

import (
	"github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
)

type callControl struct {
	Type string           `json:"type"`
	To   domain.SessionID `json:"to"`
}

type relayFrame struct {
	Type    string           `json:"type"`
	To      domain.SessionID `json:"to"`
	Payload json.RawMessage  `json:"payload"`
}

// relaySignaler carries a manager's negotiation through the hub under one
// family of type names.
type relaySignaler struct {
	c                        *Client
	offer, answer, candidate string
}

func (s relaySignaler) relay(typ string, to domain.SessionID, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.c.send(relayFrame{Type: typ, To: to, Payload: payload})
}

func (s relaySignaler) SendOffer(peer domain.SessionID, offer webrtc.SessionDescription) error {
	return s.relay(s.offer, peer, offer)
}

func (s relaySignaler) SendAnswer(peer domain.SessionID, answer webrtc.SessionDescription) error {
	return s.relay(s.answer, peer, answer)
}

func (s relaySignaler) SendCandidate(peer domain.SessionID, c webrtc.ICECandidateInit) error {
	return s.relay(s.candidate, peer, c)
}

func (c *Client) Ping() error {
	return c.send(map[string]string{"type": "ping"})
}

func (c *Client) RequestPlayers() error {
	return c.send(map[string]string{"type": "requestPlayers"})
}

func (c *Client) Move(t domain.Transform) error {
	return c.send(struct {
		Type string `json:"type"`
		domain.Transform
	}{"playerMovement", t})
}

func (c *Client) Register(name string) error {
	return c.send(map[string]string{"type": "register", "name": name})
}

// SendChat sends a text message, or a file locator when kind is file.
func (c *Client) SendChat(to domain.SessionID, body string, kind domain.MessageKind) error {
	return c.send(struct {
		Type    string             `json:"type"`
		To      domain.SessionID   `json:"listner"`
		Message string             `json:"message"`
		Kind    domain.MessageKind `json:"kind,omitempty"`
	}{"sendMessage", to, body, kind})
}

func (c *Client) History(with domain.SessionID) error {
	return c.send(struct {
		Type string           `json:"type"`
		With domain.SessionID `json:"with"`
	}{"getchathistory", with})
}

// Call invites target. The target's acceptCall makes us the initiator.
func (c *Client) Call(target domain.SessionID, callerName string) error {
	return c.send(struct {
		Type       string           `json:"type"`
		TargetID   domain.SessionID `json:"targetId"`
		CallerName string           `json:"callerName,omitempty"`
	}{"callUser", target, callerName})
}

func (c *Client) Accept(caller domain.SessionID) error {
	return c.send(callControl{Type: core.EvAcceptCall, To: caller})
}

// Hangup closes the call link and tells the partner.
func (c *Client) Hangup(peer domain.SessionID) error {
	c.Calls.Close(peer)
	return c.send(callControl{Type: core.EvEndCall, To: peer})
}

func (c *Client) JoinRoom(room domain.RoomName) error {
	return c.send(map[string]string{"type": "joinMeetingRoom", "room": string(room)})
}

// LeaveRoom drops every mesh link and leaves the room.
func (c *Client) LeaveRoom(room domain.RoomName) error {
	c.Mesh.CloseAll()
	c.mu.Lock()
	if c.room == room || room == "" {
		c.room = ""
	}
	c.mu.Unlock()
	return c.send(map[string]string{"type": "leaveMeetingRoom", "room": string(room)})
}
