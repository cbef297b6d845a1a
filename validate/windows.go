package validate

import (
	"github.com/raonyguimaraes/mavis/annotate"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/interval"
)

// genomeWindow is the reference interval searched for reads supporting b.
// It reaches a full fragment length plus the call error past the uncertain
// side of the breakpoint, but only a read length past the side the
// orientation pins down.
func genomeWindow(b breakpoint.Breakpoint, opts Opts) interval.Interval {
	maxFrag := opts.MaxExpectedFragmentSize()
	start := b.Pos.Start - maxFrag - opts.CallError + 1
	end := b.Pos.End + maxFrag + opts.CallError - 1
	switch b.Orient {
	case breakpoint.OrientLeft:
		end = b.Pos.End + opts.CallError + opts.ReadLength - 1
	case breakpoint.OrientRight:
		start = b.Pos.Start - opts.CallError - opts.ReadLength + 1
	}
	return interval.Interval{Start: maxInt(start, 1), End: maxInt(end, 1)}
}

// genomeInnerWindow is the reference interval a split read must overlap to
// count toward b: one read length plus the call error around the breakpoint.
func genomeInnerWindow(b breakpoint.Breakpoint, opts Opts) interval.Interval {
	start := b.Pos.Start - opts.CallError - opts.ReadLength + 1
	end := b.Pos.End + opts.CallError + opts.ReadLength - 1
	return interval.Interval{Start: maxInt(start, 1), End: end}
}

// transcriptomeWindow widens the genome window so that it spans the same
// number of exonic bases on each side of b, letting flanking mates land
// across spliced-out introns.
func transcriptomeWindow(b breakpoint.Breakpoint, transcripts []*annotate.Transcript, opts Opts) interval.Interval {
	window := genomeWindow(b, opts)
	if len(transcripts) == 0 {
		return window
	}
	tgtLeft := b.Pos.Start - window.Start + 1
	tgtRight := window.End - b.Pos.End + 1
	left := TraverseExonicDistance(b.Pos.Start, tgtLeft, breakpoint.OrientLeft, transcripts)
	right := TraverseExonicDistance(b.Pos.End, tgtRight, breakpoint.OrientRight, transcripts)
	return interval.Span(left, right)
}

// transcriptomeInnerWindow measures the split-read window in exonic bases.
func transcriptomeInnerWindow(b breakpoint.Breakpoint, transcripts []*annotate.Transcript, opts Opts) interval.Interval {
	tgt := opts.CallError + opts.ReadLength - 1
	left := TraverseExonicDistance(b.Pos.Start, tgt, breakpoint.OrientLeft, transcripts)
	right := TraverseExonicDistance(b.Pos.End, tgt, breakpoint.OrientRight, transcripts)
	return interval.Span(left, right)
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}

func maxInt(x, y int) int {
	if x > y {
		return x
	}
	return y
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
