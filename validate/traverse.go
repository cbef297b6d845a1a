package validate

import (
	"github.com/raonyguimaraes/mavis/annotate"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/interval"
)

// TraverseExonicDistance returns the range of genomic positions reachable by
// moving dist exonic bases from start in the given direction.  Introns of
// each transcript are crossed for free; bases outside a transcript's span
// cost full genomic price.  The naive genomic offset is always a candidate,
// so adding transcripts can only widen the result.
func TraverseExonicDistance(start, dist int, dir breakpoint.Orientation, transcripts []*annotate.Transcript) interval.Interval {
	naive := start + dist - 1
	if dir == breakpoint.OrientLeft {
		naive = start - dist + 1
	}
	lo, hi := naive, naive
	for _, t := range transcripts {
		var pos int
		if dir == breakpoint.OrientLeft {
			pos = traverseLeft(t, start, dist)
		} else {
			pos = traverseRight(t, start, dist)
		}
		lo = minInt(lo, pos)
		hi = maxInt(hi, pos)
	}
	return interval.Interval{Start: lo, End: hi}
}

func traverseLeft(t *annotate.Transcript, start, dist int) int {
	pos := start - dist + 1
	remaining := dist
	if start > t.Pos.End {
		// Genomic bases up to the transcript's end cost full price.
		available := start - t.Pos.End
		if available > remaining {
			return start - remaining + 1
		}
		remaining -= available
	} else if start < t.Pos.Start {
		return start - remaining + 1
	}
	for i := len(t.Exons) - 1; i >= 0 && remaining > 0; i-- {
		ex := t.Exons[i].Pos
		switch {
		case ex.Contains(start):
			available := start - ex.Start + 1
			if available > remaining {
				return start - remaining + 1
			}
			pos = ex.Start
			remaining -= available
		case start < ex.Start:
			// Exon lies beyond the traversal start.
		default:
			available := ex.Len()
			if available > remaining {
				return ex.End - remaining + 1
			}
			pos = ex.Start
			remaining -= available
		}
	}
	if remaining > 0 {
		pos = t.Pos.Start - remaining
	}
	return pos
}

func traverseRight(t *annotate.Transcript, start, dist int) int {
	pos := start + dist - 1
	remaining := dist
	if start < t.Pos.Start {
		available := t.Pos.Start - start
		if available > remaining {
			return start + remaining - 1
		}
		remaining -= available
	} else if start > t.Pos.End {
		return start + remaining - 1
	}
	for i := 0; i < len(t.Exons) && remaining > 0; i++ {
		ex := t.Exons[i].Pos
		switch {
		case ex.Contains(start):
			available := ex.End - start + 1
			if available > remaining {
				return start + remaining - 1
			}
			pos = ex.End
			remaining -= available
		case start < ex.Start:
			available := ex.Len()
			if available > remaining {
				return ex.Start + remaining - 1
			}
			pos = ex.End
			remaining -= available
		default:
			// Exon lies behind the traversal start.
		}
	}
	if remaining > 0 {
		pos = t.Pos.End + remaining
	}
	return pos
}

// ComputeExonicDistance estimates the number of transcribed bases between two
// genomic positions.  Every splicing pattern of every transcript overlapping
// [start, end] contributes a candidate distance.  Candidates whose endpoints
// both land on exonic bases are preferred over those with one intronic
// endpoint, which in turn beat fully intronic ones; the winning class is
// collapsed to its min and max.  With no usable transcript the plain genomic
// distance is returned as a point.
func ComputeExonicDistance(start, end int, transcripts []*annotate.Transcript) interval.Interval {
	span := interval.Interval{Start: start, End: end}
	var exonic, mixed, intronic []int
	for _, t := range transcripts {
		if !t.Pos.Overlaps(span) {
			continue
		}
		for _, pattern := range t.SplicingPatterns() {
			st, err := annotate.NewSplicedTranscript(t, pattern)
			if err != nil {
				continue
			}
			cdnaStart, startShift, err := st.NearestCDNAPos(start, breakpoint.OrientRight, true)
			if err != nil {
				continue
			}
			cdnaEnd, endShift, err := st.NearestCDNAPos(end, breakpoint.OrientLeft, true)
			if err != nil {
				continue
			}
			d := absInt(cdnaEnd-cdnaStart) + absInt(startShift) + absInt(endShift)
			switch {
			case startShift != 0 && endShift != 0:
				intronic = append(intronic, d)
			case startShift != 0 || endShift != 0:
				mixed = append(mixed, d)
			default:
				exonic = append(exonic, d)
			}
		}
	}
	for _, class := range [][]int{exonic, mixed, intronic} {
		if len(class) == 0 {
			continue
		}
		lo, hi := class[0], class[0]
		for _, d := range class[1:] {
			lo = minInt(lo, d)
			hi = maxInt(hi, d)
		}
		return interval.Interval{Start: lo, End: hi}
	}
	return interval.Point(end - start)
}
