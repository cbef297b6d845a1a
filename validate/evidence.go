// Package validate gathers read evidence for putative structural variant
// breakpoints and resolves them into event calls.
//
// An Evidence value derives fetch windows from a breakpoint pair and the
// library's fragment size distribution, then accumulates split reads and
// flanking read pairs that fall inside those windows.  CallEvents turns the
// accumulated reads into EventCall values, resolving each breakpoint at
// split-read resolution where enough reads agree on an exact position and
// falling back to the flanking pair envelope otherwise.
package validate

import (
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/annotate"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/encoding/bam"
	"github.com/raonyguimaraes/mavis/interval"
)

var (
	// ErrNoEvidence is returned when the accumulated reads cannot support a
	// call at any resolution.
	ErrNoEvidence = errors.New("insufficient evidence to call event")

	// ErrIncompatible is returned when the accumulated reads contradict the
	// event being called.
	ErrIncompatible = errors.New("evidence incompatible with event")
)

// FlankingPair is a read pair whose insert straddles a putative event.  Read
// aligns on the first breakpoint's side and Mate on the second's.
type FlankingPair struct {
	Read *sam.Record
	Mate *sam.Record
}

// Evidence accumulates the read support for one putative breakpoint pair.
type Evidence struct {
	Protocol breakpoint.Protocol
	Pair     breakpoint.Pair
	Opts     Opts

	// OuterWindow1 and OuterWindow2 are the reference intervals fetched for
	// each breakpoint.  InnerWindow1 and InnerWindow2 are the tighter
	// intervals a split read must touch.
	OuterWindow1, OuterWindow2 interval.Interval
	InnerWindow1, InnerWindow2 interval.Interval

	// CompatibleWindow1 and CompatibleWindow2 are set when the pair could
	// also be read as CompatibleType: an insertion looks like a tandem
	// duplication with flipped orientations, and vice versa.
	CompatibleWindow1, CompatibleWindow2 interval.Interval
	CompatibleType                       breakpoint.SVType

	// Transcripts1 and Transcripts2 are the annotated transcripts
	// overlapping each breakpoint.  Both are nil for genome libraries.
	Transcripts1, Transcripts2 []*annotate.Transcript

	Split1, Split2     []*sam.Record
	Flanking           []FlankingPair
	CompatibleFlanking []FlankingPair

	types []breakpoint.SVType
}

// NewGenomeEvidence prepares evidence collection for a pair sequenced under
// the genome protocol.  It fails if the pair does not classify as any event
// type.
func NewGenomeEvidence(pair breakpoint.Pair, opts Opts) (*Evidence, error) {
	ev, err := newEvidence(breakpoint.ProtocolGenome, pair, opts)
	if err != nil {
		return nil, err
	}
	ev.OuterWindow1 = genomeWindow(pair.Break1, opts)
	ev.OuterWindow2 = genomeWindow(pair.Break2, opts)
	ev.InnerWindow1 = genomeInnerWindow(pair.Break1, opts)
	ev.InnerWindow2 = genomeInnerWindow(pair.Break2, opts)
	ev.setCompatibleWindows(func(b breakpoint.Breakpoint, _ []*annotate.Transcript) interval.Interval {
		return genomeWindow(b, opts)
	})
	return ev, nil
}

// NewTranscriptomeEvidence prepares evidence collection for a pair sequenced
// under the transcriptome protocol.  Fetch windows are widened across the
// introns of any transcript in db overlapping a breakpoint, so that evidence
// for an event in spliced data is still collected.
func NewTranscriptomeEvidence(pair breakpoint.Pair, db *annotate.DB, opts Opts) (*Evidence, error) {
	ev, err := newEvidence(breakpoint.ProtocolTranscriptome, pair, opts)
	if err != nil {
		return nil, err
	}
	ev.Transcripts1 = overlappingTranscripts(db, pair.Break1)
	ev.Transcripts2 = overlappingTranscripts(db, pair.Break2)
	ev.OuterWindow1 = transcriptomeWindow(pair.Break1, ev.Transcripts1, opts)
	ev.OuterWindow2 = transcriptomeWindow(pair.Break2, ev.Transcripts2, opts)
	ev.InnerWindow1 = transcriptomeInnerWindow(pair.Break1, ev.Transcripts1, opts)
	ev.InnerWindow2 = transcriptomeInnerWindow(pair.Break2, ev.Transcripts2, opts)
	ev.setCompatibleWindows(func(b breakpoint.Breakpoint, transcripts []*annotate.Transcript) interval.Interval {
		return transcriptomeWindow(b, transcripts, opts)
	})
	return ev, nil
}

func newEvidence(protocol breakpoint.Protocol, pair breakpoint.Pair, opts Opts) (*Evidence, error) {
	types, err := breakpoint.Classify(pair)
	if err != nil {
		return nil, err
	}
	return &Evidence{Protocol: protocol, Pair: pair, Opts: opts, types: types}, nil
}

// PutativeTypes lists the event types the pair's geometry admits, as
// determined at construction.  Callers must not mutate the returned slice.
func (ev *Evidence) PutativeTypes() []breakpoint.SVType {
	return ev.types
}

func (ev *Evidence) hasType(etype breakpoint.SVType) bool {
	for _, t := range ev.types {
		if t == etype {
			return true
		}
	}
	return false
}

// setCompatibleWindows derives the fetch windows for the compatible event
// type.  An insertion whose breakpoints are further apart than either is
// uncertain may instead be a tandem duplication of the intervening
// sequence, and a duplication may be an insertion, so pairs carrying the
// flipped-orientation signature are collected alongside the primary ones.
func (ev *Evidence) setCompatibleWindows(window func(breakpoint.Breakpoint, []*annotate.Transcript) interval.Interval) {
	b1, b2 := ev.Pair.Break1, ev.Pair.Break2
	switch {
	case ev.hasType(breakpoint.SVInsertion):
		span := interval.Span(b1.Pos, b2.Pos)
		if span.Len() <= b1.Pos.Len() || span.Len() <= b2.Pos.Len() {
			return
		}
		ev.CompatibleType = breakpoint.SVDuplication
	case ev.hasType(breakpoint.SVDuplication):
		ev.CompatibleType = breakpoint.SVInsertion
	default:
		return
	}
	b1.Orient = b1.Orient.Opposite()
	b2.Orient = b2.Orient.Opposite()
	ev.CompatibleWindow1 = window(b1, ev.Transcripts1)
	ev.CompatibleWindow2 = window(b2, ev.Transcripts2)
}

// overlappingTranscripts returns the annotated transcripts crossing b,
// dropping those on a strand incompatible with a stranded breakpoint.
func overlappingTranscripts(db *annotate.DB, b breakpoint.Breakpoint) []*annotate.Transcript {
	var out []*annotate.Transcript
	for _, t := range db.OverlappingTranscripts(b.RefName, b.Pos) {
		if !t.Strand.Matches(b.Strand) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// AddSplitRead offers rec as split-read evidence for the first or second
// breakpoint.  The read must be a mapped primary alignment of sufficient
// mapping quality, carry a soft clip on the side the breakpoint's
// orientation demands, and overlap the side's inner window.  It reports
// whether the read was accepted.
func (ev *Evidence) AddSplitRead(rec *sam.Record, firstBreakpoint bool) bool {
	b, window := ev.Pair.Break2, ev.InnerWindow2
	if firstBreakpoint {
		b, window = ev.Pair.Break1, ev.InnerWindow1
	}
	if rec.Ref == nil || rec.Ref.Name() != b.RefName {
		return false
	}
	if bam.IsUnmapped(rec) || !bam.IsPrimary(rec) {
		return false
	}
	if int(rec.MapQ) < ev.Opts.MinMappingQuality {
		return false
	}
	if _, ok := splitBoundary(rec, b.Orient); !ok {
		return false
	}
	if rec.Pos+1 > window.End || rec.End() < window.Start {
		return false
	}
	if firstBreakpoint {
		ev.Split1 = append(ev.Split1, rec)
	} else {
		ev.Split2 = append(ev.Split2, rec)
	}
	return true
}

// AddFlankingPair offers a read pair as flanking evidence.  The reads must
// be mapped primary alignments of sufficient mapping quality whose relative
// strands agree with the pair's opposing-strands flag, with one read
// covering each breakpoint's outer window.  The pair is reordered to match
// the breakpoints if needed.  It reports whether the pair was accepted.
func (ev *Evidence) AddFlankingPair(read, mate *sam.Record) bool {
	return ev.addFlank(read, mate, ev.OuterWindow1, ev.OuterWindow2, &ev.Flanking)
}

// AddCompatibleFlankingPair offers a read pair as evidence for the
// compatible event type's windows.  It reports whether the pair was
// accepted.
func (ev *Evidence) AddCompatibleFlankingPair(read, mate *sam.Record) bool {
	if ev.CompatibleType == breakpoint.SVUnknown {
		return false
	}
	return ev.addFlank(read, mate, ev.CompatibleWindow1, ev.CompatibleWindow2, &ev.CompatibleFlanking)
}

func (ev *Evidence) addFlank(read, mate *sam.Record, w1, w2 interval.Interval, dst *[]FlankingPair) bool {
	if read == nil || mate == nil || read.Name != mate.Name {
		return false
	}
	for _, rec := range []*sam.Record{read, mate} {
		if bam.IsUnmapped(rec) || !bam.IsPrimary(rec) {
			return false
		}
		if int(rec.MapQ) < ev.Opts.MinMappingQuality {
			return false
		}
	}
	if (bam.IsReverse(read) == bam.IsReverse(mate)) != ev.Pair.OpposingStrands {
		return false
	}
	if !coversWindow(read, ev.Pair.Break1.RefName, w1) || !coversWindow(mate, ev.Pair.Break2.RefName, w2) {
		read, mate = mate, read
		if !coversWindow(read, ev.Pair.Break1.RefName, w1) || !coversWindow(mate, ev.Pair.Break2.RefName, w2) {
			return false
		}
	}
	*dst = append(*dst, FlankingPair{Read: read, Mate: mate})
	return true
}

func coversWindow(rec *sam.Record, refName string, w interval.Interval) bool {
	if rec.Ref == nil || rec.Ref.Name() != refName {
		return false
	}
	return rec.Pos+1 <= w.End && rec.End() >= w.Start
}

// FragmentSize estimates the sequenced fragment length implied by a read
// pair.  Genome libraries take the template length reported by the aligner.
// Transcriptome libraries measure the distance in transcribed bases between
// the pair's outermost aligned positions, over the transcripts overlapping
// either breakpoint, since the fragment may span spliced-out introns.
func (ev *Evidence) FragmentSize(read, mate *sam.Record) interval.Interval {
	if ev.Protocol != breakpoint.ProtocolTranscriptome || mate == nil {
		return interval.Point(absInt(read.TempLen))
	}
	if read.Pos > mate.Pos {
		read, mate = mate, read
	}
	return ComputeExonicDistance(read.Pos+1, mate.End(), unionTranscripts(ev.Transcripts1, ev.Transcripts2))
}

func unionTranscripts(a, b []*annotate.Transcript) []*annotate.Transcript {
	out := append([]*annotate.Transcript(nil), a...)
	seen := make(map[*annotate.Transcript]bool, len(a))
	for _, t := range a {
		seen[t] = true
	}
	for _, t := range b {
		if !seen[t] {
			out = append(out, t)
		}
	}
	return out
}
