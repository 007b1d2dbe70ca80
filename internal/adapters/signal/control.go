package signal

import (
	"github.com/dkeye/Gather/internal/core"
	"github.com/dkeye/Gather/internal/domain"
)

func handlePing(ctl *SignalWSController, _ domain.SessionID, c *WsSignalConn, _ string, _ []byte) (any, error) {
	ctl.sendJSON(c, core.PongEvent{Type: core.EvPong})
	return nil, nil
}
