package bam

import (
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"

	"github.com/raonyguimaraes/mavis/breakpoint"
)

// CigarQueryLen returns the number of query bases consumed by the cigar,
// counting soft-clipped bases.
func CigarQueryLen(cigar sam.Cigar) int {
	n := 0
	for _, co := range cigar {
		n += co.Len() * co.Type().Consumes().Query
	}
	return n
}

// CigarRefLen returns the number of reference bases consumed by the cigar.
func CigarRefLen(cigar sam.Cigar) int {
	n := 0
	for _, co := range cigar {
		n += co.Len() * co.Type().Consumes().Reference
	}
	return n
}

func isEvent(t sam.CigarOpType) bool {
	return t == sam.CigarInsertion || t == sam.CigarDeletion || t == sam.CigarSkipped
}

// ConvertEventsToSoftClip rewrites alignment events (insertions, deletions,
// skips) larger than maxEventSize into a terminal soft clip, so that a read
// aligned across a structural event is counted as a clipped read instead.
// The event scan starts after minAnchorSize exactly-matching bases have been
// seen. Orientation LEFT clips the tail of the cigar, RIGHT clips the head.
//
// The returned shift is the number of reference bases consumed by the
// removed head ops. It must be added to the alignment position when the
// orientation is RIGHT, and is always zero for LEFT.
//
// Cigars using M ops are rejected. Callers must align with =/X match ops.
func ConvertEventsToSoftClip(cigar sam.Cigar, orient breakpoint.Orientation, maxEventSize, minAnchorSize int) (sam.Cigar, int, error) {
	for _, co := range cigar {
		if co.Type() == sam.CigarMatch {
			return nil, 0, errors.New("cigar contains M ops, separate matches into =/X first")
		}
	}
	switch orient {
	case breakpoint.OrientLeft:
		return convertTrailingEvents(cigar, maxEventSize, minAnchorSize), 0, nil
	case breakpoint.OrientRight:
		reversed := reverseCigar(cigar)
		converted := reverseCigar(convertTrailingEvents(reversed, maxEventSize, minAnchorSize))
		shift := CigarRefLen(cigar) - CigarRefLen(converted)
		return converted, shift, nil
	}
	return nil, 0, errors.Errorf("cannot convert events for orientation %v", orient)
}

// convertTrailingEvents keeps an anchor of minAnchorSize matched bases,
// truncates at the first event run exceeding maxEventSize past the anchor,
// and soft clips the remaining query bases. Events seen while the anchor is
// still accumulating are kept as aligned.
func convertTrailingEvents(cigar sam.Cigar, maxEventSize, minAnchorSize int) sam.Cigar {
	var (
		kept      sam.Cigar
		anchor    int
		eventSize int
		truncated bool
	)
	for _, co := range cigar {
		t := co.Type()
		switch {
		case anchor < minAnchorSize:
			if t == sam.CigarEqual {
				anchor += co.Len()
			}
		case isEvent(t):
			eventSize += co.Len()
			if eventSize > maxEventSize {
				truncated = true
			}
		case t == sam.CigarEqual:
			eventSize = 0
		}
		if truncated {
			break
		}
		kept = append(kept, co)
	}
	if !truncated {
		return cigar
	}
	for len(kept) > 0 && isEvent(kept[len(kept)-1].Type()) {
		kept = kept[:len(kept)-1]
	}
	if clip := CigarQueryLen(cigar) - CigarQueryLen(kept); clip > 0 {
		kept = append(kept, sam.NewCigarOp(sam.CigarSoftClipped, clip))
	}
	return kept
}

func reverseCigar(cigar sam.Cigar) sam.Cigar {
	out := make(sam.Cigar, len(cigar))
	for i, co := range cigar {
		out[len(cigar)-1-i] = co
	}
	return out
}

// MergeIndels rewrites each maximal run of adjacent insertion and deletion
// ops as a single insertion followed by a single deletion, so that an
// alignment wobbling through an indel reports one event.
func MergeIndels(cigar sam.Cigar) sam.Cigar {
	out := make(sam.Cigar, 0, len(cigar))
	for i := 0; i < len(cigar); {
		t := cigar[i].Type()
		if t != sam.CigarInsertion && t != sam.CigarDeletion {
			out = append(out, cigar[i])
			i++
			continue
		}
		ins, del := 0, 0
		for ; i < len(cigar); i++ {
			if t := cigar[i].Type(); t == sam.CigarInsertion {
				ins += cigar[i].Len()
			} else if t == sam.CigarDeletion {
				del += cigar[i].Len()
			} else {
				break
			}
		}
		if ins > 0 {
			out = append(out, sam.NewCigarOp(sam.CigarInsertion, ins))
		}
		if del > 0 {
			out = append(out, sam.NewCigarOp(sam.CigarDeletion, del))
		}
	}
	return out
}

// joinCigar merges adjacent ops of the same type.
func joinCigar(cigar sam.Cigar) sam.Cigar {
	out := make(sam.Cigar, 0, len(cigar))
	for _, co := range cigar {
		if n := len(out); n > 0 && out[n-1].Type() == co.Type() {
			out[n-1] = sam.NewCigarOp(co.Type(), out[n-1].Len()+co.Len())
			continue
		}
		out = append(out, co)
	}
	return out
}

// MergeInternalEvents collapses clusters of indels separated by short match
// stretches into one insertion/deletion pair, treating the intervening
// matched and mismatched bases as part of the event. A run of at least
// innerAnchor exact matches splits clusters. The first and last runs of at
// least outerAnchor exact matches bound the rewritten region, so alignment
// ends are never folded into an event. Regions without an indel pass
// through unchanged.
func MergeInternalEvents(cigar sam.Cigar, innerAnchor, outerAnchor int) sam.Cigar {
	joined := joinCigar(cigar)
	first, last := -1, -1
	for i, co := range joined {
		if co.Type() == sam.CigarEqual && co.Len() >= outerAnchor {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 || first == last {
		return joined
	}
	out := append(sam.Cigar{}, joined[:first+1]...)
	var region sam.Cigar
	flush := func() {
		out = append(out, mergeRegion(region)...)
		region = region[:0]
	}
	for _, co := range joined[first+1 : last] {
		if co.Type() == sam.CigarEqual && co.Len() >= innerAnchor {
			flush()
			out = append(out, co)
			continue
		}
		region = append(region, co)
	}
	flush()
	return append(out, joined[last:]...)
}

// mergeRegion folds a region holding at least one indel into an insertion
// of the region's query length and a deletion of its reference length.
// Event-free regions are returned as they are.
func mergeRegion(region sam.Cigar) sam.Cigar {
	hasEvent := false
	for _, co := range region {
		if isEvent(co.Type()) {
			hasEvent = true
			break
		}
	}
	if !hasEvent {
		return region
	}
	var out sam.Cigar
	if q := CigarQueryLen(region); q > 0 {
		out = append(out, sam.NewCigarOp(sam.CigarInsertion, q))
	}
	if r := CigarRefLen(region); r > 0 {
		out = append(out, sam.NewCigarOp(sam.CigarDeletion, r))
	}
	return out
}
