// food.go implements food placement for the single-snake board.

package game

import (
	"math/rand"
)

// SpawnFood moves the food to a uniformly chosen free cell.
// If rng is nil, we use deterministic pseudo-random logic seeded from the
// turn and head position. Returns false when no free cell is left.
func SpawnFood(s *Snapshot, rng *rand.Rand) bool {
	occupied := make(map[Point]struct{}, len(s.Body))
	for _, p := range s.Body {
		occupied[p] = struct{}{}
	}

	free := make([]Point, 0, int(s.Width*s.Height)-len(occupied))
	for y := int32(0); y < s.Height; y++ {
		for x := int32(0); x < s.Width; x++ {
			p := Point{X: x, Y: y}
			if _, ok := occupied[p]; !ok {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return false
	}

	var idx int
	if rng != nil {
		idx = rng.Intn(len(free))
	} else {
		var head Point
		if len(s.Body) > 0 {
			head = s.Body[0]
		}
		salt := uint64(uint32(head.X))<<32 | uint64(uint32(head.Y))
		idx = int(deterministicU64Fast(uint64(s.Turn), salt) % uint64(len(free)))
	}
	s.Food = free[idx]
	return true
}

// deterministicU64Fast is a splitmix64 variant for reproducible placement.
func deterministicU64Fast(a, b uint64) uint64 {
	x := a + b
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
