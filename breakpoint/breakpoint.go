package breakpoint

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/interval"
)

// Breakpoint is one end of a structural rearrangement: a reference name, a
// position range expressing call uncertainty, an orientation, and a strand.
// Breakpoints are plain comparable values and may be used as map keys.
type Breakpoint struct {
	RefName string
	Pos     interval.Interval
	Orient  Orientation
	Strand  Strand
}

// New builds a Breakpoint over the closed range [start, end].
func New(refName string, start, end int, orient Orientation, strand Strand) (Breakpoint, error) {
	if start < 1 || end < start {
		return Breakpoint{}, errors.Errorf("breakpoint: invalid position range [%d, %d] on %s", start, end, refName)
	}
	return Breakpoint{
		RefName: refName,
		Pos:     interval.Interval{Start: start, End: end},
		Orient:  orient,
		Strand:  strand,
	}, nil
}

// Point builds a single-position Breakpoint.
func Point(refName string, pos int, orient Orientation, strand Strand) (Breakpoint, error) {
	return New(refName, pos, pos, orient, strand)
}

func (b Breakpoint) String() string {
	return fmt.Sprintf("%s:%s%s%s", b.RefName, b.Pos, b.Orient, b.Strand)
}

// Matches reports whether two breakpoints are compatible: same reference,
// overlapping positions, and orientation/strand agreement under wildcard
// rules.
func (b Breakpoint) Matches(other Breakpoint) bool {
	return b.RefName == other.RefName &&
		b.Pos.Overlaps(other.Pos) &&
		b.Orient.Matches(other.Orient) &&
		b.Strand.Matches(other.Strand)
}

// ErrInvalidRearrangement marks breakpoint combinations that contradict
// themselves: orientations implying one strand relationship paired with the
// opposite opposing-strands flag, or an event type outside the pair's
// classification.
var ErrInvalidRearrangement = errors.New("breakpoint: invalid rearrangement")

// Pair couples the two ends of a candidate rearrangement.  OpposingStrands
// records whether the joined segments come from opposite strands; Stranded
// records whether strand assignments carry evidence (as opposed to being
// conventional placeholders from an unstranded library).
type Pair struct {
	Break1          Breakpoint
	Break2          Breakpoint
	OpposingStrands bool
	Stranded        bool
	// UntemplatedSeq holds sequence inserted at the junction that is absent
	// from the reference; empty means none was determined.
	UntemplatedSeq string
}

// NewPair validates the orientation and strand combination.  Orientation and
// opposing-strands consistency follows from how two segments can physically
// join: equal orientations imply opposing strands, differing orientations
// imply matching strands.  NS orientations and strands are permitted and
// validated only as far as their wildcard semantics allow.
func NewPair(break1, break2 Breakpoint, opposingStrands, stranded bool) (Pair, error) {
	p := Pair{
		Break1:          break1,
		Break2:          break2,
		OpposingStrands: opposingStrands,
		Stranded:        stranded,
	}
	if break1.Orient != OrientNS && break2.Orient != OrientNS {
		if (break1.Orient == break2.Orient) != opposingStrands {
			return Pair{}, errors.Wrapf(ErrInvalidRearrangement,
				"orientations %s/%s with opposing_strands=%v", break1.Orient, break2.Orient, opposingStrands)
		}
	}
	if break1.Strand != StrandNS && break2.Strand != StrandNS {
		if (break1.Strand != break2.Strand) != opposingStrands {
			return Pair{}, errors.Wrapf(ErrInvalidRearrangement,
				"strands %s/%s with opposing_strands=%v", break1.Strand, break2.Strand, opposingStrands)
		}
	}
	return p, nil
}

func (p Pair) String() string {
	return fmt.Sprintf("%s==>%s", p.Break1, p.Break2)
}

// Interchromosomal reports whether the two breakpoints lie on different
// references.
func (p Pair) Interchromosomal() bool { return p.Break1.RefName != p.Break2.RefName }

// Classify returns the event types consistent with the pair's geometry,
// sorted.  NS orientations expand to every concrete combination that
// validates.  A pair whose geometry admits no event type returns
// ErrInvalidRearrangement.
func Classify(p Pair) ([]SVType, error) {
	if p.Interchromosomal() {
		if p.OpposingStrands {
			return []SVType{SVInvertedTranslocation}, nil
		}
		return []SVType{SVTranslocation}, nil
	}
	if p.OpposingStrands {
		for _, o1 := range p.Break1.Orient.Expand() {
			for _, o2 := range p.Break2.Orient.Expand() {
				if o1 == o2 {
					return []SVType{SVInversion}, nil
				}
			}
		}
		return nil, errors.Wrapf(ErrInvalidRearrangement, "pair %s", p)
	}
	seen := make(map[SVType]bool)
	for _, o1 := range p.Break1.Orient.Expand() {
		for _, o2 := range p.Break2.Orient.Expand() {
			switch {
			case o1 == OrientLeft && o2 == OrientRight:
				seen[SVDeletion] = true
				seen[SVInsertion] = true
			case o1 == OrientRight && o2 == OrientLeft:
				seen[SVDuplication] = true
			}
		}
	}
	if len(seen) == 0 {
		return nil, errors.Wrapf(ErrInvalidRearrangement, "pair %s", p)
	}
	types := make([]SVType, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types, nil
}

// ClassifySupports reports whether eventType is among the pair's
// classifications.
func ClassifySupports(p Pair, eventType SVType) bool {
	types, err := Classify(p)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == eventType {
			return true
		}
	}
	return false
}
