package signal

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Gather/internal/app/orch"
	"github.com/dkeye/Gather/internal/domain"
)

var ErrInviteRateLimited = errors.New("too many call invites")

func decodeCallUser(ctl *SignalWSController, sid domain.SessionID, _ *WsSignalConn, _ string, data []byte) (any, error) {
	var p struct {
		TargetID   domain.SessionID `json:"targetId"`
		CallerName string           `json:"callerName"`
	}
	if err := unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.TargetID == "" {
		return nil, missing("targetId")
	}
	if !ctl.Invites.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("to", string(p.TargetID)).Msg("call invite throttled")
		return nil, ErrInviteRateLimited
	}
	return orch.CallInvite{To: p.TargetID, CallerName: p.CallerName}, nil
}

func decodeCallControl(_ *SignalWSController, _ domain.SessionID, _ *WsSignalConn, typ string, data []byte) (any, error) {
	var p struct {
		To domain.SessionID `json:"to"`
	}
	if err := unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.To == "" {
		return nil, missing("to")
	}
	return orch.Relay{Type: typ, To: p.To}, nil
}

// decodeRelay accepts the negotiation body under "payload" or under the
// legacy per-type keys "offer", "answer" and "candidate".
func decodeRelay(_ *SignalWSController, _ domain.SessionID, _ *WsSignalConn, typ string, data []byte) (any, error) {
	var p struct {
		To        domain.SessionID `json:"to"`
		Payload   json.RawMessage  `json:"payload"`
		Offer     json.RawMessage  `json:"offer"`
		Answer    json.RawMessage  `json:"answer"`
		Candidate json.RawMessage  `json:"candidate"`
	}
	if err := unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.To == "" {
		return nil, missing("to")
	}
	payload := p.Payload
	for _, alt := range []json.RawMessage{p.Offer, p.Answer, p.Candidate} {
		if len(payload) == 0 {
			payload = alt
		}
	}
	if len(payload) == 0 {
		return nil, missing("payload")
	}
	return orch.Relay{Type: typ, To: p.To, Payload: payload}, nil
}
