package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/encoding/bam"
	"github.com/raonyguimaraes/mavis/interval"
)

// CallEvents resolves the accumulated evidence into event calls, one pass
// per putative event type.  A type that cannot be called is skipped; an
// error wrapping ErrNoEvidence is returned only when no type yields a call,
// carrying the per-type reasons.
func CallEvents(ev *Evidence) ([]*EventCall, error) {
	var calls []*EventCall
	var failures []string
	for _, etype := range ev.PutativeTypes() {
		typeCalls, err := callBySupportingReads(ev, etype)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", etype, err))
			continue
		}
		calls = append(calls, typeCalls...)
	}
	if len(calls) == 0 {
		return nil, errors.Wrapf(ErrNoEvidence, "%s: %s", ev.Pair, strings.Join(failures, "; "))
	}
	return calls, nil
}

// callBySupportingReads resolves one event type from the accumulated reads.
// Every combination of split-read positions meeting the resolution and
// linking thresholds becomes a call.  When no combination qualifies, each
// side that resolves alone is paired with a partner called from the
// flanking pair envelope; when neither side resolves, both breakpoints are
// called from the envelope.
func callBySupportingReads(ev *Evidence, etype breakpoint.SVType) ([]*EventCall, error) {
	pos1 := splitPositions(ev.Split1, ev.Pair.Break1.Orient)
	pos2 := splitPositions(ev.Split2, ev.Pair.Break2.Orient)
	minReads := ev.Opts.MinSplitsReadsResolution
	sameRef := !ev.Pair.Interchromosomal()

	var calls []*EventCall
	var failures []string
	for _, p1 := range sortedPositions(pos1) {
		reads1 := pos1[p1]
		if len(reads1) < minReads {
			continue
		}
		for _, p2 := range sortedPositions(pos2) {
			reads2 := pos2[p2]
			if len(reads2) < minReads {
				continue
			}
			if sameRef && p1 > p2 {
				continue
			}
			if linkingReads(reads1, reads2) < ev.Opts.MinLinkingSplitReads {
				continue
			}
			call, err := NewEventCall(ev,
				pointBreak(ev.Pair.Break1, p1), pointBreak(ev.Pair.Break2, p2),
				etype, breakpoint.CallSplit)
			if err != nil {
				// This position combination does not produce etype.
				continue
			}
			call.Split1 = append([]*sam.Record(nil), reads1...)
			call.Split2 = append([]*sam.Record(nil), reads2...)
			calls = append(calls, call)
		}
	}

	if len(calls) == 0 {
		for _, p1 := range sortedPositions(pos1) {
			reads1 := pos1[p1]
			if len(reads1) < minReads {
				continue
			}
			b1 := pointBreak(ev.Pair.Break1, p1)
			call, err := callByFlankingPairs(ev, etype, &b1, nil)
			if err != nil {
				failures = append(failures, err.Error())
				continue
			}
			call.Method = breakpoint.CallSplit
			call.Split1 = append([]*sam.Record(nil), reads1...)
			calls = append(calls, call)
		}
		for _, p2 := range sortedPositions(pos2) {
			reads2 := pos2[p2]
			if len(reads2) < minReads {
				continue
			}
			b2 := pointBreak(ev.Pair.Break2, p2)
			call, err := callByFlankingPairs(ev, etype, nil, &b2)
			if err != nil {
				failures = append(failures, err.Error())
				continue
			}
			call.Method = breakpoint.CallSplit
			call.Split2 = append([]*sam.Record(nil), reads2...)
			calls = append(calls, call)
		}
	}

	if len(calls) == 0 {
		call, err := callByFlankingPairs(ev, etype, nil, nil)
		if err != nil {
			if len(failures) > 0 {
				return nil, errors.Wrapf(err, "%s", strings.Join(failures, "; "))
			}
			return nil, err
		}
		calls = append(calls, call)
	}

	for _, call := range calls {
		call.PullFlankingSupport(ev.Flanking)
		if ev.CompatibleType != breakpoint.SVUnknown &&
			(etype == breakpoint.SVInsertion || etype == breakpoint.SVDuplication) {
			call.PullCompatibleFlankingSupport(ev.CompatibleFlanking)
		}
	}
	return calls, nil
}

// callByFlankingPairs calls breakpoints from the envelope of the flanking
// pairs consistent with etype.  A non-nil b1Fixed or b2Fixed pins that side
// to an already resolved breakpoint and only the other side is derived.
// The callable region extends from each side's envelope in the direction of
// the breakpoint's orientation, as far as the maximum expected fragment
// size allows once the aligned reads are discounted.
func callByFlankingPairs(ev *Evidence, etype breakpoint.SVType, b1Fixed, b2Fixed *breakpoint.Breakpoint) (*EventCall, error) {
	maxFrag := ev.Opts.MaxExpectedFragmentSize()
	var pos1, pos2 []int
	count := 0
	for _, p := range ev.Flanking {
		// Pairs whose outer span fits a normal fragment cannot support a
		// deletion; pairs spanning more than one cannot support an
		// insertion.
		span := p.Mate.End() - p.Read.Pos
		if etype == breakpoint.SVDeletion && span <= maxFrag {
			continue
		}
		if etype == breakpoint.SVInsertion && span >= maxFrag {
			continue
		}
		count++
		pos1 = append(pos1, p.Read.Pos+1, p.Read.End())
		pos2 = append(pos2, p.Mate.Pos+1, p.Mate.End())
	}
	if count == 0 || count < ev.Opts.MinFlankingPairsResolution {
		return nil, errors.Wrapf(ErrNoEvidence, "%d flanking pairs support calling %s, need %d",
			count, etype, ev.Opts.MinFlankingPairsResolution)
	}
	cover1, cover2 := envelope(pos1), envelope(pos2)
	sameRef := !ev.Pair.Interchromosomal()

	b1 := ev.Pair.Break1
	if b1Fixed != nil {
		b1 = *b1Fixed
	} else {
		if cover1.Len() > maxFrag {
			return nil, errors.Wrapf(ErrIncompatible,
				"flanking pair coverage %s of %s exceeds the maximum expected fragment size %d",
				cover1, b1, maxFrag)
		}
		width := maxFrag - 2*ev.Opts.ReadLength - cover1.Len()
		var start, end int
		switch b1.Orient {
		case breakpoint.OrientLeft:
			start, end = cover1.End, cover1.End+width
			if sameRef {
				if b2Fixed != nil {
					end = minInt(end, b2Fixed.Pos.End-1)
				} else {
					end = minInt(end, cover2.Start-1)
				}
			}
		case breakpoint.OrientRight:
			start, end = maxInt(cover1.Start-width, 1), cover1.Start
		default:
			return nil, errors.Wrapf(ErrIncompatible,
				"cannot call %s by flanking pairs without an orientation", b1)
		}
		if start > end {
			return nil, errors.Wrapf(ErrIncompatible,
				"flanking pairs leave no region to call %s in: [%d, %d]", b1, start, end)
		}
		b1.Pos = interval.Interval{Start: start, End: end}
	}

	b2 := ev.Pair.Break2
	if b2Fixed != nil {
		b2 = *b2Fixed
	} else {
		if cover2.Len() > maxFrag {
			return nil, errors.Wrapf(ErrIncompatible,
				"flanking pair coverage %s of %s exceeds the maximum expected fragment size %d",
				cover2, b2, maxFrag)
		}
		width := maxFrag - 2*ev.Opts.ReadLength - cover2.Len()
		var start, end int
		switch b2.Orient {
		case breakpoint.OrientLeft:
			start, end = cover2.End, cover2.End+width
		case breakpoint.OrientRight:
			start, end = maxInt(cover2.Start-width, 1), cover2.Start
			if sameRef {
				if b1Fixed != nil {
					start = maxInt(start, b1Fixed.Pos.Start+1)
				} else {
					start = maxInt(start, cover1.End+1)
				}
			}
		default:
			return nil, errors.Wrapf(ErrIncompatible,
				"cannot call %s by flanking pairs without an orientation", b2)
		}
		if start > end {
			return nil, errors.Wrapf(ErrIncompatible,
				"flanking pairs leave no region to call %s in: [%d, %d]", b2, start, end)
		}
		b2.Pos = interval.Interval{Start: start, End: end}
	}

	return NewEventCall(ev, b1, b2, etype, breakpoint.CallFlank)
}

// splitBoundary returns the 1-based breakpoint position indicated by a split
// read's soft clip for the given orientation, or false when the read
// carries no clip on the needed side.  With no orientation the longer clip
// decides; an even tie disqualifies the read.
func splitBoundary(rec *sam.Record, orient breakpoint.Orientation) (int, bool) {
	leading := bam.LeadingSoftClip(rec)
	trailing := bam.TrailingSoftClip(rec)
	switch orient {
	case breakpoint.OrientRight:
		if leading == 0 {
			return 0, false
		}
		return rec.Pos + 1, true
	case breakpoint.OrientLeft:
		if trailing == 0 {
			return 0, false
		}
		return rec.End(), true
	}
	switch {
	case leading > trailing:
		return rec.Pos + 1, true
	case trailing > leading:
		return rec.End(), true
	}
	return 0, false
}

func splitPositions(reads []*sam.Record, orient breakpoint.Orientation) map[int][]*sam.Record {
	byPos := make(map[int][]*sam.Record)
	for _, rec := range reads {
		if pos, ok := splitBoundary(rec, orient); ok {
			byPos[pos] = append(byPos[pos], rec)
		}
	}
	return byPos
}

func sortedPositions(byPos map[int][]*sam.Record) []int {
	out := make([]int, 0, len(byPos))
	for pos := range byPos {
		out = append(out, pos)
	}
	sort.Ints(out)
	return out
}

// linkingReads counts the distinct read names present on both sides.
func linkingReads(a, b []*sam.Record) int {
	names := make(map[string]bool, len(a))
	for _, rec := range a {
		names[rec.Name] = true
	}
	n := 0
	for _, rec := range b {
		if names[rec.Name] {
			delete(names, rec.Name)
			n++
		}
	}
	return n
}

func pointBreak(b breakpoint.Breakpoint, pos int) breakpoint.Breakpoint {
	b.Pos = interval.Point(pos)
	return b
}

func envelope(positions []int) interval.Interval {
	lo, hi := positions[0], positions[0]
	for _, p := range positions[1:] {
		lo = minInt(lo, p)
		hi = maxInt(hi, p)
	}
	return interval.Interval{Start: lo, End: hi}
}
