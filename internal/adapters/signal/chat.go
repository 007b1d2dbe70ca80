package signal

import (
	"github.com/dkeye/Gather/internal/app/orch"
	"github.com/dkeye/Gather/internal/domain"
)

func decodeSendMessage(_ *SignalWSController, _ domain.SessionID, _ *WsSignalConn, _ string, data []byte) (any, error) {
	var p struct {
		Listener domain.SessionID   `json:"listner"`
		Message  *string            `json:"message"`
		Kind     domain.MessageKind `json:"kind"`
	}
	if err := unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Listener == "" {
		return nil, missing("listner")
	}
	if p.Message == nil {
		return nil, missing("message")
	}
	return orch.ChatSend{To: p.Listener, Body: *p.Message, Kind: p.Kind}, nil
}

func decodeChatHistory(_ *SignalWSController, _ domain.SessionID, _ *WsSignalConn, _ string, data []byte) (any, error) {
	var p struct {
		With domain.SessionID `json:"with"`
	}
	if err := unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.With == "" {
		return nil, missing("with")
	}
	return orch.ChatHistory{With: p.With}, nil
}
