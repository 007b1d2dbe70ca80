package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/Gather/internal/domain"
)

func TestBindLastRegistrationWins(t *testing.T) {
	ids := NewIdentities()
	ids.Bind("alice", "s1")

	prev, replaced := ids.Bind("alice", "s2")
	assert.True(t, replaced)
	assert.Equal(t, domain.SessionID("s1"), prev)

	holder, ok := ids.Holder("alice")
	assert.True(t, ok)
	assert.Equal(t, domain.SessionID("s2"), holder)

	_, ok = ids.NameOf("s1")
	assert.False(t, ok)
}

func TestUnbindStaleHolderKeepsNewer(t *testing.T) {
	ids := NewIdentities()
	ids.Bind("alice", "s1")
	ids.Bind("alice", "s2")

	_, released := ids.Unbind("s1")
	assert.False(t, released)

	holder, ok := ids.Holder("alice")
	assert.True(t, ok)
	assert.Equal(t, domain.SessionID("s2"), holder)
}

func TestUnbindCurrentHolder(t *testing.T) {
	ids := NewIdentities()
	ids.Bind("alice", "s1")

	name, released := ids.Unbind("s1")
	assert.True(t, released)
	assert.Equal(t, "alice", name)
	assert.Empty(t, ids.Table())
}

func TestRebindSameSessionDropsOldName(t *testing.T) {
	ids := NewIdentities()
	ids.Bind("alice", "s1")
	_, replaced := ids.Bind("alicia", "s1")
	assert.False(t, replaced)

	assert.Equal(t, map[string]domain.SessionID{"alicia": "s1"}, ids.Table())
}

func TestBindSameNameTwiceIsNotAReplacement(t *testing.T) {
	ids := NewIdentities()
	ids.Bind("alice", "s1")
	_, replaced := ids.Bind("alice", "s1")
	assert.False(t, replaced)
	assert.Len(t, ids.Table(), 1)
}

func TestTableIsACopy(t *testing.T) {
	ids := NewIdentities()
	ids.Bind("alice", "s1")
	tbl := ids.Table()
	delete(tbl, "alice")

	_, ok := ids.Holder("alice")
	assert.True(t, ok)
}
