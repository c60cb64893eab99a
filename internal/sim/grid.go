package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/hjmsim/internal/dynamo"
)

// GridTolerance merges grid points closer than this.
const GridTolerance = 1e-10

// ValidateTimes checks that times is a non-empty, strictly increasing
// sequence of finite, non-negative values.
func ValidateTimes(times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("%w: empty", dynamo.ErrInvalidTimes)
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return fmt.Errorf("%w: times[%d] = %v", dynamo.ErrInvalidTimes, i, t)
		}
		if i > 0 && !(t > times[i-1]) {
			return fmt.Errorf("%w: times[%d] = %v does not exceed %v", dynamo.ErrInvalidTimes, i, t, times[i-1])
		}
	}
	return nil
}

// TimeGrid merges the requested times with the multiples of timeStep in
// [0, times[last]) so that no step exceeds timeStep. The grid starts at 0.
// The returned mask is true where a grid point is a requested time.
func TimeGrid(times []float64, timeStep float64) ([]float64, []bool, error) {
	if err := ValidateTimes(times); err != nil {
		return nil, nil, err
	}
	if !(timeStep > 0) || math.IsInf(timeStep, 0) {
		return nil, nil, fmt.Errorf("%w: got %v", dynamo.ErrMissingTimeStep, timeStep)
	}

	type point struct {
		t         float64
		requested bool
	}

	last := times[len(times)-1]
	points := make([]point, 0, len(times)+int(last/timeStep)+2)
	points = append(points, point{t: 0})
	for k := 1; ; k++ {
		t := float64(k) * timeStep
		if t >= last {
			break
		}
		points = append(points, point{t: t})
	}
	for _, t := range times {
		points = append(points, point{t: t, requested: true})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].t < points[j].t })

	grid := make([]float64, 0, len(points))
	mask := make([]bool, 0, len(points))
	for _, p := range points {
		n := len(grid)
		if n > 0 && p.t-grid[n-1] <= GridTolerance {
			if p.requested {
				grid[n-1] = p.t
				mask[n-1] = true
			}
			continue
		}
		grid = append(grid, p.t)
		mask = append(mask, p.requested)
	}

	requested := 0
	for _, m := range mask {
		if m {
			requested++
		}
	}
	if requested != len(times) {
		return nil, nil, fmt.Errorf("%w: times closer than %g", dynamo.ErrInvalidTimes, GridTolerance)
	}
	return grid, mask, nil
}
