package app

import "sync/atomic"

// Metrics are process-wide hub counters.
type Metrics struct {
	Admitted       atomic.Int64
	Disconnected   atomic.Int64
	FramesSent     atomic.Int64
	FramesDropped  atomic.Int64
	Kicked         atomic.Int64
	MessagesStored atomic.Int64
	Relayed        atomic.Int64
	RelayMissing   atomic.Int64
	Rejected       atomic.Int64
}

type MetricsSnapshot struct {
	Sessions           int   `json:"sessions"`
	Admitted           int64 `json:"admitted"`
	Disconnected       int64 `json:"disconnected"`
	FramesSent         int64 `json:"frames_sent"`
	FramesDropped      int64 `json:"frames_dropped"`
	Kicked             int64 `json:"kicked"`
	MessagesStored     int64 `json:"messages_stored"`
	Relayed            int64 `json:"relayed"`
	RelayTargetMissing int64 `json:"relay_target_missing"`
	Rejected           int64 `json:"rejected"`
}

func (m *Metrics) Snapshot(sessions int) MetricsSnapshot {
	return MetricsSnapshot{
		Sessions:           sessions,
		Admitted:           m.Admitted.Load(),
		Disconnected:       m.Disconnected.Load(),
		FramesSent:         m.FramesSent.Load(),
		FramesDropped:      m.FramesDropped.Load(),
		Kicked:             m.Kicked.Load(),
		MessagesStored:     m.MessagesStored.Load(),
		Relayed:            m.Relayed.Load(),
		RelayTargetMissing: m.RelayMissing.Load(),
		Rejected:           m.Rejected.Load(),
	}
}
