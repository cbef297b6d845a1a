package annotate

import (
	"sort"

	"github.com/raonyguimaraes/mavis/breakpoint"
)

// SpliceType labels how a splicing pattern differs from the reference
// splicing of its transcript.
type SpliceType int8

const (
	SpliceNormal SpliceType = iota
	SpliceRetainedIntron
	SpliceSkippedExon
	SpliceRetainedMultipleIntrons
	SpliceSkippedMultipleExons
	SpliceComplex
)

var spliceTypeNames = [...]string{
	"normal",
	"retained intron",
	"skipped exon",
	"retained multiple introns",
	"skipped multiple exons",
	"complex",
}

func (s SpliceType) String() string { return spliceTypeNames[s] }

// SplicingPattern is one way of splicing a transcript: an even-length list of
// genomic splice site positions, ascending.  Consecutive site pairs bound the
// genomic regions removed by splicing.  An empty pattern splices nothing, as
// for a single-exon transcript or one whose splice sites are all abrogated.
type SplicingPattern struct {
	Sites []int
	Type  SpliceType
}

// SplicingPatterns enumerates the splicing patterns the transcript supports
// given which of its splice sites are intact.  With every site intact there
// is exactly one pattern, the reference splicing.  Abrogated sites force the
// spliceosome to skip ahead: each donor run is paired against the following
// acceptor run, multiplying out the alternatives.  Runs that cannot be paired
// (a trailing donor with no acceptor after it) are dropped and the regions
// they would have spliced are retained.
func (t *Transcript) SplicingPatterns() []SplicingPattern {
	if len(t.Exons) < 2 {
		return []SplicingPattern{{Type: SpliceNormal}}
	}
	reverse := t.Strand == breakpoint.StrandNeg

	type site struct {
		pos    int
		intact bool
		donor  bool
	}
	// All splice sites in genomic order.  Donor and acceptor roles flip on
	// the reverse strand.
	first, last := t.Exons[0], t.Exons[len(t.Exons)-1]
	sites := make([]site, 0, 2*len(t.Exons)-2)
	sites = append(sites, site{first.Pos.End, first.EndIntact, !reverse})
	for _, e := range t.Exons[1 : len(t.Exons)-1] {
		sites = append(sites, site{e.Pos.Start, e.StartIntact, reverse})
		sites = append(sites, site{e.Pos.End, e.EndIntact, !reverse})
	}
	sites = append(sites, site{last.Pos.Start, last.StartIntact, reverse})

	original := make([]int, len(sites))
	for i, s := range sites {
		original[i] = s.pos
	}

	usable := make([]site, 0, len(sites))
	for _, s := range sites {
		if s.intact {
			usable = append(usable, s)
		}
	}
	if reverse {
		// Work in transcription order.
		for i, j := 0, len(usable)-1; i < j; i, j = i+1, j-1 {
			usable[i], usable[j] = usable[j], usable[i]
		}
	}

	run := func(start int, donor bool) []int {
		var out []int
		for _, s := range usable[start:] {
			if s.donor != donor {
				break
			}
			out = append(out, s.pos)
		}
		return out
	}

	patterns := [][]int{nil}
	// An acceptor before any donor cannot pair with anything upstream.
	i := len(run(0, false))
	for i < len(usable) {
		donors := run(i, true)
		acceptors := run(i+len(donors), false)
		type pair struct{ d, a int }
		pairs := make([]pair, 0, len(donors)*len(acceptors))
		for _, d := range donors {
			for _, a := range acceptors {
				pairs = append(pairs, pair{d, a})
			}
		}
		sort.Slice(pairs, func(x, y int) bool {
			if pairs[x].d != pairs[y].d {
				return pairs[x].d < pairs[y].d
			}
			return pairs[x].a < pairs[y].a
		})
		var next [][]int
		for _, p := range pairs {
			for _, base := range patterns {
				ext := make([]int, len(base), len(base)+2)
				copy(ext, base)
				next = append(next, append(ext, p.d, p.a))
			}
		}
		if len(next) > 0 {
			patterns = next
		}
		i += len(donors) + len(acceptors)
	}

	out := make([]SplicingPattern, len(patterns))
	for k, p := range patterns {
		typ := classifySites(p, original)
		if reverse {
			for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
				p[i], p[j] = p[j], p[i]
			}
		}
		out[k] = SplicingPattern{Sites: p, Type: typ}
	}
	return out
}

// classifySites labels a pattern by comparing the regions it splices out
// against the transcript's reference splice sites.  originalSites holds every
// reference boundary position, abrogated or not, so consecutive pairs bound
// the reference introns.
func classifySites(sites, originalSites []int) SpliceType {
	ss := append([]int(nil), sites...)
	os := append([]int(nil), originalSites...)
	sort.Ints(ss)
	sort.Ints(os)

	// Reference sites strictly inside a spliced-out region come in pairs,
	// one exon's worth per pair.
	skipped := 0
	for i := 0; i+1 < len(ss); i += 2 {
		interior := 0
		for _, p := range os {
			if p > ss[i] && p < ss[i+1] {
				interior++
			}
		}
		skipped += interior / 2
	}

	// A reference intron not contained in any spliced-out region stays in
	// the product.
	retained := 0
	for i := 0; i+1 < len(os); i += 2 {
		covered := false
		for j := 0; j+1 < len(ss); j += 2 {
			if ss[j] <= os[i] && os[i+1] <= ss[j+1] {
				covered = true
				break
			}
		}
		if !covered {
			retained++
		}
	}

	switch {
	case skipped == 0 && retained == 0:
		return SpliceNormal
	case skipped == 0 && retained == 1:
		return SpliceRetainedIntron
	case skipped == 0:
		return SpliceRetainedMultipleIntrons
	case retained == 0 && skipped == 1:
		return SpliceSkippedExon
	case retained == 0:
		return SpliceSkippedMultipleExons
	}
	return SpliceComplex
}
