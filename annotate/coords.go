package annotate

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/encoding/fasta"
	"github.com/raonyguimaraes/mavis/interval"
)

// ErrNoStrand is returned when an operation needs a stranded transcript but
// the transcript's strand is not specified.
var ErrNoStrand = errors.New("annotate: transcript strand not specified")

// ErrOutsideTranscript is returned by coordinate conversions for positions
// beyond the spliced transcript's range.
var ErrOutsideTranscript = errors.New("annotate: position outside the spliced transcript")

// SplicedTranscript is the product of applying one splicing pattern to a
// transcript: the retained genomic blocks and their cDNA image, supporting
// conversion between the two coordinate systems.  cDNA positions count from 1
// at the 5' end of the product, so for a reverse strand transcript cDNA
// position 1 sits at the highest retained genomic position.
type SplicedTranscript struct {
	Unspliced *Transcript
	Pattern   SplicingPattern

	blocks []interval.Interval // genomic, ascending
	cdna   []interval.Interval // parallel to blocks
	length int
}

// NewSplicedTranscript applies a splicing pattern to a transcript.  The
// pattern's sites split the transcript span into retained blocks: together
// with the span's endpoints they pair up into the block boundaries.  The
// transcript must be on a known strand.
func NewSplicedTranscript(t *Transcript, pattern SplicingPattern) (*SplicedTranscript, error) {
	if t.Strand != breakpoint.StrandPos && t.Strand != breakpoint.StrandNeg {
		return nil, errors.Wrapf(ErrNoStrand, "transcript %s", t.Name)
	}
	if len(pattern.Sites)%2 != 0 {
		return nil, errors.Errorf("transcript %s: splicing pattern has %d sites, want an even count",
			t.Name, len(pattern.Sites))
	}
	pos := make([]int, 0, len(pattern.Sites)+2)
	pos = append(pos, pattern.Sites...)
	pos = append(pos, t.Pos.Start, t.Pos.End)
	sort.Ints(pos)

	st := &SplicedTranscript{Unspliced: t, Pattern: pattern}
	st.blocks = make([]interval.Interval, 0, len(pos)/2)
	for i := 0; i+1 < len(pos); i += 2 {
		st.blocks = append(st.blocks, interval.New(pos[i], pos[i+1]))
	}
	st.cdna = make([]interval.Interval, len(st.blocks))
	l := 1
	if st.reverse() {
		for i := len(st.blocks) - 1; i >= 0; i-- {
			n := st.blocks[i].Len()
			st.cdna[i] = interval.New(l, l+n-1)
			l += n
		}
	} else {
		for i, b := range st.blocks {
			n := b.Len()
			st.cdna[i] = interval.New(l, l+n-1)
			l += n
		}
	}
	st.length = l - 1
	return st, nil
}

func (st *SplicedTranscript) reverse() bool {
	return st.Unspliced.Strand == breakpoint.StrandNeg
}

// Length returns the number of bases in the spliced product.
func (st *SplicedTranscript) Length() int { return st.length }

// Blocks returns the retained genomic blocks, ascending.
func (st *SplicedTranscript) Blocks() []interval.Interval { return st.blocks }

// CDNAPos converts a genomic position to its cDNA position.  Positions that
// fall between blocks are not mapped; use NearestCDNAPos for those.
func (st *SplicedTranscript) CDNAPos(pos int) (int, error) {
	return interval.ConvertPos(st.blocks, st.cdna, pos, st.reverse())
}

// GenomicPos converts a cDNA position back to its genomic position.
func (st *SplicedTranscript) GenomicPos(cdnaPos int) (int, error) {
	return interval.ConvertPos(st.cdna, st.blocks, cdnaPos, st.reverse())
}

// NearestCDNAPos converts a genomic position to the nearest cDNA position.
// Exonic positions convert exactly with a zero shift.  Positions between
// blocks snap to a flanking block boundary: the nearer one, or the one on the
// side given by stick (OrientLeft snaps to the lower block, OrientRight to
// the higher; ties go low).  The shift is the genomic distance from the
// chosen boundary to pos, signed along the direction of transcription.
// Positions outside every block snap to the outermost boundary when
// allowOutside is set and fail with ErrOutsideTranscript otherwise.
func (st *SplicedTranscript) NearestCDNAPos(pos int, stick breakpoint.Orientation, allowOutside bool) (int, int, error) {
	for _, b := range st.blocks {
		if b.Contains(pos) {
			cdna, err := st.CDNAPos(pos)
			return cdna, 0, err
		}
	}
	shiftFrom := func(boundary int) int {
		if st.reverse() {
			return boundary - pos
		}
		return pos - boundary
	}
	for i := 0; i+1 < len(st.blocks); i++ {
		b1, b2 := st.blocks[i], st.blocks[i+1]
		if pos <= b1.End || pos >= b2.Start {
			continue
		}
		boundary := b1.End
		if stick == breakpoint.OrientRight || (stick != breakpoint.OrientLeft && b2.Start-pos < pos-b1.End) {
			boundary = b2.Start
		}
		cdna, err := st.CDNAPos(boundary)
		return cdna, shiftFrom(boundary), err
	}
	if allowOutside {
		boundary := st.blocks[0].Start
		if pos > st.blocks[len(st.blocks)-1].End {
			boundary = st.blocks[len(st.blocks)-1].End
		}
		cdna, err := st.CDNAPos(boundary)
		return cdna, shiftFrom(boundary), err
	}
	return 0, 0, errors.Wrapf(ErrOutsideTranscript, "position %d", pos)
}

// SplicedSeq extracts the spliced sequence from the reference genome.  The
// result is uppercased and reverse complemented for reverse strand
// transcripts, so it always reads 5' to 3'.
func (st *SplicedTranscript) SplicedSeq(fa fasta.Fasta) (string, error) {
	var sb strings.Builder
	sb.Grow(st.length)
	for _, b := range st.blocks {
		s, err := fa.Get(st.Unspliced.RefName, uint64(b.Start-1), uint64(b.End))
		if err != nil {
			return "", errors.Wrapf(err, "transcript %s", st.Unspliced.Name)
		}
		sb.WriteString(strings.ToUpper(s))
	}
	if st.reverse() {
		return reverseComplement(sb.String())
	}
	return sb.String(), nil
}

var complementBases = map[byte]byte{
	'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C', 'N': 'N',
	'R': 'Y', 'Y': 'R', 'S': 'S', 'W': 'W', 'K': 'M', 'M': 'K',
	'B': 'V', 'V': 'B', 'D': 'H', 'H': 'D',
}

func reverseComplement(seq string) (string, error) {
	var revcomp strings.Builder
	revcomp.Grow(len(seq))
	for i := len(seq) - 1; i >= 0; i-- {
		c, ok := complementBases[seq[i]]
		if !ok {
			return "", errors.Errorf("unrecognized nucleotide %q in sequence", seq[i])
		}
		revcomp.WriteByte(c)
	}
	return revcomp.String(), nil
}
