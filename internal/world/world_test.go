package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
tile_size: 32
zones:
  3: kitchen
grid:
  - [0, 0, 0, 0]
  - [0, 1, 0, 2]
  - [0, 0, 3, 0]
`

func TestParseDerivesBounds(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	w, h := m.Bounds()
	assert.Equal(t, 128.0, w)
	assert.Equal(t, 96.0, h)
}

func TestIsBlockedUsesInsetObstacle(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	// obstacle at col 1 row 1 occupies [32,59) x [32,54)
	assert.True(t, m.IsBlocked(40, 40))
	assert.True(t, m.IsBlocked(5, 5))
	assert.False(t, m.IsBlocked(59, 40))
	assert.False(t, m.IsBlocked(40, 54))
	assert.False(t, m.IsBlocked(0, 0))
}

func TestZoneAt(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "meeting", m.ZoneAt(100, 40))
	assert.Equal(t, "kitchen", m.ZoneAt(70, 70))
	assert.Equal(t, "", m.ZoneAt(10, 10))
	assert.Equal(t, "", m.ZoneAt(-10, 5000))
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse([]byte("tile_size: 32\n"))
	assert.ErrorIs(t, err, ErrEmptyGrid)

	_, err = Parse([]byte("zones:\n  1: wall\ngrid:\n  - [0]\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("grid: [oops"))
	assert.Error(t, err)
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.True(t, m.IsBlocked(40, 40))

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestOpenMapHasNoObstacles(t *testing.T) {
	m := Open(0, 0)
	w, h := m.Bounds()
	assert.Equal(t, float64(DefaultWidth), w)
	assert.Equal(t, float64(DefaultHeight), h)
	assert.False(t, m.IsBlocked(300, 300))
	assert.Equal(t, "", m.ZoneAt(300, 300))
}
