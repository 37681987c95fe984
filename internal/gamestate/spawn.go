package gamestate

import (
	"math/rand/v2"

	"github.com/siohaza/sundown/internal/protocol"
)

// SpawnPoints picks player spawn positions.
type SpawnPoints struct {
	points []protocol.Vector2f
	rng    *rand.Rand
}

func NewSpawnPoints(points []protocol.Vector2f, rng *rand.Rand) *SpawnPoints {
	if len(points) == 0 {
		points = []protocol.Vector2f{{}}
	}
	return &SpawnPoints{points: points, rng: rng}
}

func (s *SpawnPoints) Next() protocol.Vector2f {
	if s.rng == nil || len(s.points) == 1 {
		return s.points[0]
	}
	return s.points[s.rng.IntN(len(s.points))]
}
