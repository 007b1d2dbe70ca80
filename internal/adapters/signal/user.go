package signal

import (
	"github.com/dkeye/Gather/internal/app/orch"
	"github.com/dkeye/Gather/internal/domain"
)

func decodeRequestPlayers(*SignalWSController, domain.SessionID, *WsSignalConn, string, []byte) (any, error) {
	return orch.RequestPlayers{}, nil
}

func decodeMovement(_ *SignalWSController, _ domain.SessionID, _ *WsSignalConn, _ string, data []byte) (any, error) {
	var p struct {
		Position  *domain.Position `json:"position"`
		Direction domain.Direction `json:"direction"`
		Moving    bool             `json:"moving"`
	}
	if err := unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Position == nil {
		return nil, missing("position")
	}
	if p.Direction == "" {
		return nil, missing("direction")
	}
	return orch.Move{Transform: domain.Transform{Position: *p.Position, Direction: p.Direction, Moving: p.Moving}}, nil
}

func decodeRegister(_ *SignalWSController, _ domain.SessionID, _ *WsSignalConn, _ string, data []byte) (any, error) {
	var p struct {
		Name *string `json:"name"`
	}
	if err := unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Name == nil {
		return nil, missing("name")
	}
	return orch.Register{Name: *p.Name}, nil
}
