package core

import (
	"maps"

	"github.com/dkeye/Gather/internal/domain"
)

// Identities binds chosen display names to the session currently using
// them. The last registration of a name wins.
type Identities struct {
	byName    map[string]domain.SessionID
	bySession map[domain.SessionID]string
}

func NewIdentities() *Identities {
	return &Identities{
		byName:    make(map[string]domain.SessionID),
		bySession: make(map[domain.SessionID]string),
	}
}

// Bind installs name -> sid, evicting any previous holder of the name and
// any previous name of sid. It returns the evicted holder, if any.
func (i *Identities) Bind(name string, sid domain.SessionID) (domain.SessionID, bool) {
	if old, ok := i.bySession[sid]; ok && old != name && i.byName[old] == sid {
		delete(i.byName, old)
	}
	prev, replaced := i.byName[name]
	if replaced && prev != sid {
		delete(i.bySession, prev)
	} else {
		replaced = false
	}
	i.byName[name] = sid
	i.bySession[sid] = name
	return prev, replaced
}

// Unbind drops sid's binding only if sid still holds its name. It reports
// the released name.
func (i *Identities) Unbind(sid domain.SessionID) (string, bool) {
	name, ok := i.bySession[sid]
	if !ok {
		return "", false
	}
	delete(i.bySession, sid)
	if i.byName[name] != sid {
		return "", false
	}
	delete(i.byName, name)
	return name, true
}

func (i *Identities) NameOf(sid domain.SessionID) (string, bool) {
	name, ok := i.bySession[sid]
	return name, ok
}

func (i *Identities) Holder(name string) (domain.SessionID, bool) {
	sid, ok := i.byName[name]
	return sid, ok
}

// Table returns a copy of the full name -> session table.
func (i *Identities) Table() map[string]domain.SessionID {
	return maps.Clone(i.byName)
}
