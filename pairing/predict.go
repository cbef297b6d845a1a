package pairing

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/annotate"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/interval"
)

// PredictTranscriptomeBreakpoint lists the genomic positions a breakpoint
// called against the genome could occupy when read through tx's exon model.
// An exonic position with a further exon in the orientation's direction
// yields two candidates, the position itself and the adjacent exon's
// boundary (the interpretation where the junction is spliced); an exonic
// position at the outermost exon yields the position alone; an intronic
// position yields the neighboring exon boundary in the orientation's
// direction.  Candidates come back sorted by position.  The exon model is
// genomic, so results do not depend on the transcript strand.  A breakpoint
// starting outside the transcript span is an error.
func PredictTranscriptomeBreakpoint(bp breakpoint.Breakpoint, tx *annotate.Transcript) ([]breakpoint.Breakpoint, error) {
	if !tx.Pos.Contains(bp.Pos.Start) {
		return nil, errors.Wrapf(annotate.ErrOutsideTranscript, "%s vs transcript %s", bp, tx.Name)
	}
	var out []breakpoint.Breakpoint
	exons := tx.Exons
	for i, exon := range exons {
		if bp.Pos.Overlaps(exon.Pos) {
			out = append(out, bp)
			switch {
			case bp.Orient == breakpoint.OrientLeft && i > 0:
				out = append(out, boundaryBreakpoint(bp, exons[i-1].Pos.End, breakpoint.OrientLeft))
			case bp.Orient == breakpoint.OrientRight && i < len(exons)-1:
				out = append(out, boundaryBreakpoint(bp, exons[i+1].Pos.Start, breakpoint.OrientRight))
			}
			continue
		}
		if i == 0 {
			continue
		}
		intron := interval.Interval{Start: exons[i-1].Pos.End + 1, End: exon.Pos.Start - 1}
		if intron.Start > intron.End || !bp.Pos.Overlaps(intron) {
			continue
		}
		switch bp.Orient {
		case breakpoint.OrientLeft:
			out = append(out, boundaryBreakpoint(bp, exons[i-1].Pos.End, breakpoint.OrientLeft))
		case breakpoint.OrientRight:
			out = append(out, boundaryBreakpoint(bp, exon.Pos.Start, breakpoint.OrientRight))
		default:
			// Without an orientation the junction could stick to either
			// flanking exon, so the candidate spans the whole intron's
			// boundary pair.
			out = append(out, breakpoint.Breakpoint{
				RefName: bp.RefName,
				Pos:     interval.New(exons[i-1].Pos.End, exon.Pos.Start),
				Orient:  bp.Orient,
				Strand:  bp.Strand,
			})
		}
	}
	if len(out) == 0 {
		return nil, errors.Errorf("pairing: no transcript interpretation of %s on %s", bp, tx.Name)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos.Start != out[j].Pos.Start {
			return out[i].Pos.Start < out[j].Pos.Start
		}
		return out[i].Pos.End < out[j].Pos.End
	})
	return out, nil
}

func boundaryBreakpoint(bp breakpoint.Breakpoint, pos int, orient breakpoint.Orientation) breakpoint.Breakpoint {
	return breakpoint.Breakpoint{
		RefName: bp.RefName,
		Pos:     interval.Point(pos),
		Orient:  orient,
		Strand:  bp.Strand,
	}
}
