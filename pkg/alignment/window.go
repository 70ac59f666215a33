package alignment

import (
	"sort"
	"time"
)

type point struct {
	time  time.Time
	value float64
}

// series is a time-ordered sequence of values
type series []point

func (s series) sort() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].time.Before(s[j].time)
	})
}

// nearestMean averages the k entries of s closest to target in absolute time
// distance. s must be sorted ascending. Of two equidistant entries the earlier
// one is taken first. It returns the mean and the number of entries used,
// which is less than k only when s is shorter than k.
func (s series) nearestMean(target time.Time, k int) (float64, int) {
	if len(s) == 0 || k < 1 {
		return 0, 0
	}

	// first entry at or after target
	right := sort.Search(len(s), func(i int) bool {
		return !s[i].time.Before(target)
	})
	left := right - 1

	var sum float64
	n := 0
	for n < k && (left >= 0 || right < len(s)) {
		takeLeft := right >= len(s)
		if !takeLeft && left >= 0 {
			takeLeft = absDuration(target.Sub(s[left].time)) <= absDuration(s[right].time.Sub(target))
		}

		if takeLeft {
			sum += s[left].value
			left--
		} else {
			sum += s[right].value
			right++
		}
		n++
	}

	return sum / float64(n), n
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
