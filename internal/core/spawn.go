package core

import (
	"math"
	"math/rand/v2"

	"github.com/dkeye/Gather/internal/domain"
)

const (
	DefaultSpawnAttempts = 100
	spawnMargin          = 30
)

// DefaultSpawn is used once every random candidate has been rejected.
var DefaultSpawn = domain.Position{X: 100, Y: 100}

// CollisionMap is the static obstacle data supplied by the asset layer.
type CollisionMap interface {
	IsBlocked(x, y float64) bool
	Bounds() (width, height float64)
}

// Spawner picks collision-free spawn points.
type Spawner struct {
	world    CollisionMap
	attempts int
	fallback domain.Position
	rnd      *rand.Rand
}

func NewSpawner(world CollisionMap, attempts int, fallback domain.Position, src rand.Source) *Spawner {
	if attempts <= 0 {
		attempts = DefaultSpawnAttempts
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Spawner{world: world, attempts: attempts, fallback: fallback, rnd: rand.New(src)}
}

// Pick tries a bounded number of random candidates inside the playable
// area, keeping the margin from the edges, and falls back to the fixed
// default position.
func (s *Spawner) Pick() domain.Position {
	if s.world == nil {
		return s.fallback
	}
	w, h := s.world.Bounds()
	spanX, spanY := w-2*spawnMargin, h-2*spawnMargin
	if spanX <= 0 || spanY <= 0 {
		return s.fallback
	}
	for range s.attempts {
		x := math.Floor(s.rnd.Float64()*spanX) + spawnMargin
		y := math.Floor(s.rnd.Float64()*spanY) + spawnMargin
		if !s.world.IsBlocked(x, y) {
			return domain.Position{X: x, Y: y}
		}
	}
	return s.fallback
}
