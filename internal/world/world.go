// Package world loads the static office map: obstacle tiles the spawner
// must avoid and named zones that map onto mesh rooms.
package world

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dkeye/Gather/internal/domain"
)

const (
	DefaultTileSize = 32
	DefaultWidth    = 1524
	DefaultHeight   = 776

	// PlayerSize is the edge of the square player hitbox.
	PlayerSize = 30

	CellFloor    = 0
	CellObstacle = 1
	CellMeeting  = 2

	// Obstacle tiles are inset on their right and bottom edges.
	obstacleInsetX = 5
	obstacleInsetY = 10
)

var ErrEmptyGrid = errors.New("map grid has no rows")

// File is the on-disk YAML layout.
type File struct {
	TileSize int            `yaml:"tile_size"`
	Width    float64        `yaml:"width"`
	Height   float64        `yaml:"height"`
	Zones    map[int]string `yaml:"zones"`
	Grid     [][]int        `yaml:"grid"`
}

type Map struct {
	tile   float64
	width  float64
	height float64
	grid   [][]int
	zones  map[int]string
}

// Open returns an obstacle-free map of the given size.
func Open(width, height float64) *Map {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Map{
		tile:   DefaultTileSize,
		width:  width,
		height: height,
		zones:  map[int]string{CellMeeting: string(domain.DefaultRoom)},
	}
}

func Load(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Map, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	if len(f.Grid) == 0 {
		return nil, ErrEmptyGrid
	}
	if f.TileSize <= 0 {
		f.TileSize = DefaultTileSize
	}
	m := &Map{
		tile:   float64(f.TileSize),
		width:  f.Width,
		height: f.Height,
		grid:   f.Grid,
		zones:  map[int]string{CellMeeting: string(domain.DefaultRoom)},
	}
	for code, name := range f.Zones {
		if code == CellObstacle || code == CellFloor {
			return nil, fmt.Errorf("parse map: cell code %d cannot be a zone", code)
		}
		m.zones[code] = name
	}
	if m.width <= 0 {
		cols := 0
		for _, row := range f.Grid {
			cols = max(cols, len(row))
		}
		m.width = float64(cols) * m.tile
	}
	if m.height <= 0 {
		m.height = float64(len(f.Grid)) * m.tile
	}
	return m, nil
}

func (m *Map) Bounds() (float64, float64) { return m.width, m.height }

func (m *Map) cell(row, col int) int {
	if row < 0 || row >= len(m.grid) || col < 0 || col >= len(m.grid[row]) {
		return CellFloor
	}
	return m.grid[row][col]
}

// IsBlocked reports whether a player box with its top-left corner at
// (x, y) overlaps any obstacle tile.
func (m *Map) IsBlocked(x, y float64) bool {
	c0 := int(math.Floor((x - m.tile) / m.tile))
	c1 := int(math.Floor((x + PlayerSize) / m.tile))
	r0 := int(math.Floor((y - m.tile) / m.tile))
	r1 := int(math.Floor((y + PlayerSize) / m.tile))
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			if m.cell(r, c) != CellObstacle {
				continue
			}
			bx, by := float64(c)*m.tile, float64(r)*m.tile
			bw, bh := m.tile-obstacleInsetX, m.tile-obstacleInsetY
			if x < bx+bw && x+PlayerSize > bx && y < by+bh && y+PlayerSize > by {
				return true
			}
		}
	}
	return false
}

// ZoneAt names the zone under the point (x, y), or "" outside any zone.
func (m *Map) ZoneAt(x, y float64) string {
	code := m.cell(int(math.Floor(y/m.tile)), int(math.Floor(x/m.tile)))
	return m.zones[code]
}
