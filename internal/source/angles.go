package source

import "math/rand/v2"

// RandomAngles draws up to n angles from grid. Each draw is uniform over the grid points
// that are still at least minSeparation away from every earlier pick; the result is
// shorter than n when the grid runs out of valid points.
func RandomAngles(rng *rand.Rand, n int, grid []float64, minSeparation float64) []float64 {
	if rng == nil {
		rng = NewRand(DefaultSeed)
	}
	available := make([]bool, len(grid))
	for i := range available {
		available[i] = true
	}
	valid := make([]int, 0, len(grid))
	out := make([]float64, 0, n)
	for len(out) < n {
		valid = valid[:0]
		for i, ok := range available {
			if ok {
				valid = append(valid, i)
			}
		}
		if len(valid) == 0 {
			break
		}
		chosen := grid[valid[rng.IntN(len(valid))]]
		out = append(out, chosen)
		for i, g := range grid {
			d := g - chosen
			if d < 0 {
				d = -d
			}
			if d < minSeparation {
				available[i] = false
			}
		}
	}
	return out
}
