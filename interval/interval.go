package interval

import (
	"fmt"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Interval is a closed range of 1-based positions.  Both endpoints are
// included, so Len() == End-Start+1 and a single position is [pos, pos].
type Interval struct {
	Start int
	End   int
}

// New returns the closed interval [start, end].  It panics if end < start;
// callers handling untrusted input must validate bounds themselves.
func New(start, end int) Interval {
	if end < start {
		log.Panicf("interval: inverted bounds [%d, %d]", start, end)
	}
	return Interval{Start: start, End: end}
}

// Point returns the length-1 interval covering only pos.
func Point(pos int) Interval { return Interval{Start: pos, End: pos} }

func (i Interval) String() string {
	if i.Start == i.End {
		return fmt.Sprintf("%d", i.Start)
	}
	return fmt.Sprintf("%d-%d", i.Start, i.End)
}

// Len returns the number of positions covered.
func (i Interval) Len() int { return i.End - i.Start + 1 }

// Center returns the midpoint of the interval.
func (i Interval) Center() float64 { return float64(i.Start+i.End) / 2 }

// Contains reports whether pos lies within the interval.
func (i Interval) Contains(pos int) bool { return pos >= i.Start && pos <= i.End }

// ContainsInterval reports whether o lies entirely within i.
func (i Interval) ContainsInterval(o Interval) bool {
	return o.Start >= i.Start && o.End <= i.End
}

// Overlaps reports whether the two intervals share at least one position.
func (i Interval) Overlaps(o Interval) bool { return i.Start <= o.End && o.Start <= i.End }

// Intersect returns the common subrange of the two intervals, if any.
func (i Interval) Intersect(o Interval) (Interval, bool) {
	if !i.Overlaps(o) {
		return Interval{}, false
	}
	return Interval{Start: max(i.Start, o.Start), End: min(i.End, o.End)}, true
}

// Union merges two intervals that overlap or are directly adjacent.  Disjoint
// intervals with a gap between them cannot be unioned; use Span for the
// enclosing envelope instead.
func (i Interval) Union(o Interval) (Interval, error) {
	if !i.Overlaps(o) && i.Dist(o) > 1 {
		return Interval{}, errors.Errorf("interval: cannot union disjoint intervals %s and %s", i, o)
	}
	return Interval{Start: min(i.Start, o.Start), End: max(i.End, o.End)}, nil
}

// Dist returns the size of the gap between two intervals: zero when they
// overlap, otherwise the difference between the facing endpoints.  Adjacent
// intervals have distance 1.
func (i Interval) Dist(o Interval) int {
	switch {
	case i.End < o.Start:
		return o.Start - i.End
	case o.End < i.Start:
		return i.Start - o.End
	}
	return 0
}

// Span returns the smallest interval covering every input.  It panics when
// called with no intervals.
func Span(ivs ...Interval) Interval {
	if len(ivs) == 0 {
		log.Panicf("interval: Span of nothing")
	}
	result := ivs[0]
	for _, iv := range ivs[1:] {
		result.Start = min(result.Start, iv.Start)
		result.End = max(result.End, iv.End)
	}
	return result
}

// ErrPosNotMapped is returned by ConvertPos for positions that fall outside
// every source interval.
var ErrPosNotMapped = errors.New("interval: position not covered by mapping")

// ConvertPos maps pos through a pairing of parallel coordinate systems: src[k]
// corresponds to dst[k], src intervals do not overlap, and paired intervals
// have equal lengths.  When reverse is false the two systems run in the same
// direction and offsets are taken from the source interval's start; when
// reverse is true the source runs against the target, so the offset is taken
// from the source interval's end.
func ConvertPos(src, dst []Interval, pos int, reverse bool) (int, error) {
	if len(src) != len(dst) {
		log.Panicf("interval: mapping size mismatch (%d vs %d)", len(src), len(dst))
	}
	for k, s := range src {
		if !s.Contains(pos) {
			continue
		}
		d := dst[k]
		if s.Len() != d.Len() {
			log.Panicf("interval: mapped pair %s -> %s has mismatched lengths", s, d)
		}
		if reverse {
			return d.Start + (s.End - pos), nil
		}
		return d.Start + (pos - s.Start), nil
	}
	return 0, errors.Wrapf(ErrPosNotMapped, "position %d", pos)
}

func min(x, y int) int {
	if x < y {
		return x
	}
	return y
}

func max(x, y int) int {
	if x > y {
		return x
	}
	return y
}
