package validate

import (
	"math"
	"sort"

	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/encoding/bam"
	"gonum.org/v1/gonum/stat"
)

// EventCall is a resolved event: a called breakpoint pair, the event type it
// was called as, the resolution method, and the reads backing it.
type EventCall struct {
	Pair      breakpoint.Pair
	EventType breakpoint.SVType
	Method    breakpoint.CallMethod

	// Split1 and Split2 are the split reads pinning each breakpoint, when
	// the call reached split-read resolution on that side.
	Split1, Split2 []*sam.Record

	// Flanking holds the absorbed pairs consistent with the called
	// breakpoints; CompatibleFlanking holds those consistent with the
	// flipped-orientation reading of the event.
	Flanking           []FlankingPair
	CompatibleFlanking []FlankingPair

	// Evidence is the collection the call was resolved from.
	Evidence *Evidence

	absorbed map[flankKey]bool
}

type flankKey struct {
	name             string
	readPos, matePos int
}

// NewEventCall builds a call for the given breakpoints against the evidence
// ev was collected for.  It fails with ErrIncompatible when the breakpoints
// cannot produce etype.
func NewEventCall(ev *Evidence, b1, b2 breakpoint.Breakpoint, etype breakpoint.SVType, method breakpoint.CallMethod) (*EventCall, error) {
	pair, err := breakpoint.NewPair(b1, b2, ev.Pair.OpposingStrands, ev.Pair.Stranded)
	if err != nil {
		return nil, err
	}
	if !breakpoint.ClassifySupports(pair, etype) {
		return nil, errors.Wrapf(ErrIncompatible, "%s does not produce a %s", pair, etype)
	}
	return &EventCall{
		Pair:      pair,
		EventType: etype,
		Method:    method,
		Evidence:  ev,
		absorbed:  make(map[flankKey]bool),
	}, nil
}

// PullFlankingSupport absorbs every candidate pair consistent with the
// called breakpoints and returns the number newly absorbed.  A pair is
// consistent when its reads sit on the called references with the strand
// pattern the event demands, neither read extends past its breakpoint in
// the direction of the orientation, and the implied fragment still fits the
// maximum expected size.  Pairs already absorbed are skipped, so repeated
// pulls only grow the support.
func (c *EventCall) PullFlankingSupport(pairs []FlankingPair) int {
	return c.pull(pairs, c.Pair.Break1, c.Pair.Break2, &c.Flanking)
}

// PullCompatibleFlankingSupport absorbs pairs carrying the signature of the
// compatible event type: the called positions read with flipped
// orientations.
func (c *EventCall) PullCompatibleFlankingSupport(pairs []FlankingPair) int {
	b1, b2 := c.Pair.Break1, c.Pair.Break2
	b1.Orient = b1.Orient.Opposite()
	b2.Orient = b2.Orient.Opposite()
	return c.pull(pairs, b1, b2, &c.CompatibleFlanking)
}

func (c *EventCall) pull(pairs []FlankingPair, b1, b2 breakpoint.Breakpoint, dst *[]FlankingPair) int {
	maxFrag := c.Evidence.Opts.MaxExpectedFragmentSize()
	absorbed := 0
	for _, p := range pairs {
		key := flankKey{name: p.Read.Name, readPos: p.Read.Pos, matePos: p.Mate.Pos}
		if c.absorbed[key] {
			continue
		}
		if p.Read.Ref == nil || p.Mate.Ref == nil {
			continue
		}
		if p.Read.Ref.Name() != b1.RefName || p.Mate.Ref.Name() != b2.RefName {
			continue
		}
		if (bam.IsReverse(p.Read) == bam.IsReverse(p.Mate)) != c.Pair.OpposingStrands {
			continue
		}
		c1, ok := flankContribution(p.Read, b1)
		if !ok {
			continue
		}
		c2, ok := flankContribution(p.Mate, b2)
		if !ok {
			continue
		}
		if c1+c2 > maxFrag {
			continue
		}
		c.absorbed[key] = true
		*dst = append(*dst, p)
		absorbed++
	}
	return absorbed
}

// flankContribution is the number of fragment bases rec accounts for on its
// side of b: the span from the read's outermost aligned base to the far
// edge of the breakpoint.  A negative span means the read crosses the
// breakpoint and cannot flank it.
func flankContribution(rec *sam.Record, b breakpoint.Breakpoint) (int, bool) {
	var n int
	switch b.Orient {
	case breakpoint.OrientLeft:
		n = b.Pos.End - rec.Pos
	case breakpoint.OrientRight:
		n = rec.End() - b.Pos.Start + 1
	default:
		return 0, false
	}
	if n < 0 {
		return 0, false
	}
	return n, true
}

// FlankingMetrics summarizes the fragment sizes of the absorbed flanking
// pairs: their median and the standard deviation about that median.  ok is
// false when no pairs have been absorbed.
func (c *EventCall) FlankingMetrics() (median, stdev float64, ok bool) {
	if len(c.Flanking) == 0 {
		return 0, 0, false
	}
	sizes := make([]float64, len(c.Flanking))
	for i, p := range c.Flanking {
		sizes[i] = c.Evidence.FragmentSize(p.Read, p.Mate).Center()
	}
	sort.Float64s(sizes)
	n := len(sizes)
	if n%2 == 1 {
		median = sizes[n/2]
	} else {
		median = (sizes[n/2-1] + sizes[n/2]) / 2
	}
	stdev = math.Sqrt(stat.MomentAbout(2, sizes, median, nil))
	return median, stdev, true
}

// SupportingReadCount is the total number of reads behind the call: split
// reads on both sides plus both ends of every absorbed flanking pair.
func (c *EventCall) SupportingReadCount() int {
	return len(c.Split1) + len(c.Split2) + 2*len(c.Flanking)
}
