package app

import (
	"strings"

	"github.com/dkeye/Gather/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a session whose send queue is full.
type Policy interface {
	OnBackPressure(sid domain.SessionID) BackpressureAction
}

type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(domain.SessionID) BackpressureAction {
	if p.Action == NoAction {
		return DropFrame
	}
	return p.Action
}

// PolicyFromName maps the configured policy name to a Policy.
// Unknown names fall back to dropping frames.
func PolicyFromName(name string) Policy {
	switch strings.ToLower(name) {
	case "kick":
		return SimplePolicy{Action: KickMember}
	default:
		return SimplePolicy{Action: DropFrame}
	}
}
