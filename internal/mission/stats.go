package mission

import (
	"math"
	"time"
)

// ComputeStats summarises durations. The standard deviation is the sample
// deviation and is zero for fewer than two runs.
func ComputeStats(mission string, durations []time.Duration) Stats {
	s := Stats{Mission: mission, Count: len(durations)}
	if s.Count == 0 {
		return s
	}

	var sum float64
	s.Min, s.Max = durations[0], durations[0]
	for _, d := range durations {
		sum += float64(d)
		s.Min = min(s.Min, d)
		s.Max = max(s.Max, d)
	}
	mean := sum / float64(s.Count)
	s.Mean = time.Duration(math.Round(mean))

	if s.Count > 1 {
		var sq float64
		for _, d := range durations {
			diff := float64(d) - mean
			sq += diff * diff
		}
		s.StdDev = time.Duration(math.Round(math.Sqrt(sq / float64(s.Count-1))))
	}
	return s
}
