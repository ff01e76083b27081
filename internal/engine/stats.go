package engine

import (
	"math"
	"time"
)

// Stats accumulates the latency of accepted requests (Welford's method).
type Stats struct {
	count int
	mean  float64
	m2    float64
	min   time.Duration
	max   time.Duration
}

// LatencySummary is a snapshot of Stats.
type LatencySummary struct {
	Count  int
	Mean   time.Duration
	Max    time.Duration
	Min    time.Duration
	StdDev time.Duration // sample standard deviation, 0 below two samples
}

// Add records one latency.
func (s *Stats) Add(d time.Duration) {
	s.count++
	x := d.Seconds()
	delta := x - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (x - s.mean)

	if s.count == 1 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
}

// Summary returns the current statistics.
func (s *Stats) Summary() LatencySummary {
	sum := LatencySummary{
		Count: s.count,
		Mean:  seconds(s.mean),
		Max:   s.max,
		Min:   s.min,
	}
	if s.count > 1 {
		sum.StdDev = seconds(math.Sqrt(s.m2 / float64(s.count-1)))
	}
	return sum
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
