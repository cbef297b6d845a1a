package svtools

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
)

// candidate is one input row reduced to the standard vocabulary, before
// ambiguity expansion.  Positions are 1-based inclusive ranges; NS
// orientations and strands stand for "not reported".
type candidate struct {
	row                int
	refName1, refName2 string
	start1, end1       int
	start2, end2       int
	orient1, orient2   breakpoint.Orientation
	strand1, strand2   breakpoint.Strand
	// eventTypes nil means the caller attached no usable label and the
	// pair's own classification decides.
	eventTypes []breakpoint.SVType
	// opposing lists the strand relationships to try; nil means unknown,
	// so both.
	opposing []bool
}

// Convert reads the output of one structural variant caller and
// standardizes it into breakpoint records tagged with the tool name.
// Converted records carry the input call method and the given protocol;
// files already in the standard pair format pass through with only the
// tool tag rewritten.  Duplicate records collapse to the first occurrence.
func Convert(ctx context.Context, path string, tool Tool, protocol breakpoint.Protocol, stranded bool) ([]breakpoint.Record, error) {
	recs, err := convertPath(ctx, path, tool, protocol, stranded)
	if err != nil {
		return nil, errors.Wrapf(err, "convert %s output %s", tool, path)
	}
	for i := range recs {
		recs[i].Tools = []string{tool.String()}
	}
	return collapseRecords(recs), nil
}

func convertPath(ctx context.Context, path string, tool Tool, protocol breakpoint.Protocol, stranded bool) ([]breakpoint.Record, error) {
	if tool == ToolMavis {
		return breakpoint.ReadRecordsPath(ctx, path)
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	cands, err := readCandidates(r, tool, stranded)
	if err != nil {
		_ = in.Close(ctx)
		return nil, err
	}
	if err := in.Close(ctx); err != nil {
		return nil, errors.Wrap(err, "close")
	}
	var recs []breakpoint.Record
	for _, c := range cands {
		rowRecs, err := expandCandidate(c, protocol, stranded)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", c.row)
		}
		recs = append(recs, rowRecs...)
	}
	return recs, nil
}

func readCandidates(in io.Reader, tool Tool, stranded bool) ([]candidate, error) {
	switch tool {
	case ToolManta, ToolDelly, ToolPindel:
		return readVCF(in)
	case ToolChimerascan:
		return readChimerascan(in)
	case ToolDefuse:
		return readDefuse(in)
	case ToolTransAbyss:
		return readTransAbyss(in, stranded)
	}
	return nil, errors.Errorf("svtools: no converter for %s", tool)
}

// expandCandidate emits one record per combination of expanded
// orientations, strands, opposing-strand flags, and event types that forms
// a consistent pair.  Strand expansion applies only for stranded libraries;
// unstranded ones keep the wildcard.
func expandCandidate(c candidate, protocol breakpoint.Protocol, stranded bool) ([]breakpoint.Record, error) {
	strands1 := []breakpoint.Strand{c.strand1}
	strands2 := []breakpoint.Strand{c.strand2}
	if stranded {
		strands1 = c.strand1.Expand()
		strands2 = c.strand2.Expand()
	}
	opposing := c.opposing
	if opposing == nil {
		opposing = []bool{true, false}
	}
	var recs []breakpoint.Record
	var firstErr error
	for _, o1 := range c.orient1.Expand() {
		for _, o2 := range c.orient2.Expand() {
			for _, s1 := range strands1 {
				for _, s2 := range strands2 {
					b1, err := breakpoint.New(c.refName1, c.start1, c.end1, o1, s1)
					if err != nil {
						if firstErr == nil {
							firstErr = err
						}
						continue
					}
					b2, err := breakpoint.New(c.refName2, c.start2, c.end2, o2, s2)
					if err != nil {
						if firstErr == nil {
							firstErr = err
						}
						continue
					}
					for _, opp := range opposing {
						pair, err := breakpoint.NewPair(b1, b2, opp, stranded)
						if err != nil {
							continue
						}
						types := c.eventTypes
						if types == nil {
							if types, err = breakpoint.Classify(pair); err != nil {
								continue
							}
						}
						for _, et := range types {
							if !breakpoint.ClassifySupports(pair, et) {
								continue
							}
							recs = append(recs, breakpoint.Record{
								Pair:      pair,
								EventType: et,
								Method:    breakpoint.CallInput,
								Protocol:  protocol,
							})
						}
					}
				}
			}
		}
	}
	if len(recs) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, errors.New("svtools: no consistent breakpoint pair")
	}
	return recs, nil
}

type hashKey = [highwayhash.Size]uint8

// collapseRecords drops records identical to an earlier one, preserving
// first-seen order.
func collapseRecords(recs []breakpoint.Record) []breakpoint.Record {
	var zeroSeed = hashKey{}
	var buf []uint8
	seen := make(map[hashKey]bool, len(recs))
	out := recs[:0]
	for _, rec := range recs {
		buf = appendRecordKey(buf[:0], rec)
		h := highwayhash.Sum(buf, zeroSeed[:])
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, rec)
	}
	return out
}

func appendRecordKey(buf []uint8, rec breakpoint.Record) []uint8 {
	appendBreakpoint := func(b breakpoint.Breakpoint) {
		buf = append(buf, b.RefName...)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, int64(b.Pos.Start), 10)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, int64(b.Pos.End), 10)
		buf = append(buf, 0, uint8(b.Orient), uint8(b.Strand))
	}
	appendFlag := func(v bool) {
		if v {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	appendBreakpoint(rec.Break1)
	appendBreakpoint(rec.Break2)
	appendFlag(rec.OpposingStrands)
	appendFlag(rec.Stranded)
	buf = append(buf, uint8(rec.EventType))
	buf = append(buf, rec.UntemplatedSeq...)
	return buf
}

// peekHeader splits off the first line, strips the comment marker some
// callers prefix their header with, and returns a reader replaying the
// stream with the fixed header.
func peekHeader(in io.Reader) (string, io.Reader, error) {
	br := bufio.NewReader(in)
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", nil, err
	}
	line = strings.TrimPrefix(line, "#")
	return line, io.MultiReader(strings.NewReader(line), br), nil
}

type chimerascanRow struct {
	Chrom5p  string `tsv:"chrom5p"`
	Start5p  int    `tsv:"start5p"`
	End5p    int    `tsv:"end5p"`
	Chrom3p  string `tsv:"chrom3p"`
	Start3p  int    `tsv:"start3p"`
	End3p    int    `tsv:"end3p"`
	Strand5p string `tsv:"strand5p"`
	Strand3p string `tsv:"strand3p"`
}

// readChimerascan converts fusion calls in the bedpe output.  The breakend
// of each segment is the one its strand points transcription away from, so
// position and orientation both follow from the strand columns, and the
// strand relationship of the ends is fixed rather than expanded.
func readChimerascan(in io.Reader) ([]candidate, error) {
	_, in, err := peekHeader(in)
	if err != nil {
		return nil, err
	}
	r := tsv.NewReader(in)
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	var out []candidate
	for line := 2; ; line++ {
		var row chimerascanRow
		if err := r.Read(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		c := candidate{
			row:      line,
			refName1: row.Chrom5p,
			refName2: row.Chrom3p,
			opposing: []bool{row.Strand5p != row.Strand3p},
		}
		if row.Strand5p == "+" {
			c.start1, c.end1, c.orient1 = row.End5p, row.End5p, breakpoint.OrientLeft
		} else {
			c.start1, c.end1, c.orient1 = row.Start5p, row.Start5p, breakpoint.OrientRight
		}
		if row.Strand3p == "+" {
			c.start2, c.end2, c.orient2 = row.Start3p, row.Start3p, breakpoint.OrientRight
		} else {
			c.start2, c.end2, c.orient2 = row.End3p, row.End3p, breakpoint.OrientLeft
		}
		out = append(out, c)
	}
	return out, nil
}

type defuseRow struct {
	Chrom1  string `tsv:"gene_chromosome1"`
	Chrom2  string `tsv:"gene_chromosome2"`
	Pos1    int    `tsv:"genomic_break_pos1"`
	Pos2    int    `tsv:"genomic_break_pos2"`
	Strand1 string `tsv:"genomic_strand1"`
	Strand2 string `tsv:"genomic_strand2"`
}

// readDefuse converts fusion predictions from the results table.  Only the
// genomic break columns matter; the genomic strand gives the orientation
// the same way chimerascan's does, but the strand relationship stays open.
func readDefuse(in io.Reader) ([]candidate, error) {
	_, in, err := peekHeader(in)
	if err != nil {
		return nil, err
	}
	r := tsv.NewReader(in)
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	var out []candidate
	for line := 2; ; line++ {
		var row defuseRow
		if err := r.Read(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		c := candidate{
			row:      line,
			refName1: row.Chrom1,
			refName2: row.Chrom2,
			start1:   row.Pos1,
			end1:     row.Pos1,
			start2:   row.Pos2,
			end2:     row.Pos2,
			orient1:  breakpoint.OrientRight,
			orient2:  breakpoint.OrientRight,
		}
		if row.Strand1 == "+" {
			c.orient1 = breakpoint.OrientLeft
		}
		if row.Strand2 == "+" {
			c.orient2 = breakpoint.OrientLeft
		}
		out = append(out, c)
	}
	return out, nil
}

var transAbyssBreakpointRe = regexp.MustCompile(`^([^:|]+):(\d+)\|([^:|]+):(\d+)$`)

// readTransAbyss converts either flavor of output: the fusion/rearrangement
// table, recognized by its breakpoint column, or the indel table.  Reported
// contig strands describe the assembled contig, not the genome, so strand
// values flip on the way in and apply only for stranded libraries.
func readTransAbyss(in io.Reader, stranded bool) ([]candidate, error) {
	header, in, err := peekHeader(in)
	if err != nil {
		return nil, err
	}
	fusion := false
	for _, col := range strings.Split(strings.TrimRight(header, "\r\n"), "\t") {
		if col == "breakpoint" {
			fusion = true
			break
		}
	}
	if fusion {
		return readTransAbyssFusion(in, stranded)
	}
	return readTransAbyssIndel(in, stranded)
}

// transAbyssTypes resolves the event label.  LSR and translocation rows
// stay untyped: the former is a catch-all, and the latter is used for any
// interchromosomal contig.
func transAbyssTypes(label string) ([]breakpoint.SVType, error) {
	if label == "LSR" || label == "translocation" {
		return nil, nil
	}
	return EventTypes(label)
}

type transAbyssFusionRow struct {
	EventType    string `tsv:"rearrangement"`
	Breakpoint   string `tsv:"breakpoint"`
	Orientations string `tsv:"orientations"`
	Strands      string `tsv:"strands"`
}

func readTransAbyssFusion(in io.Reader, stranded bool) ([]candidate, error) {
	r := tsv.NewReader(in)
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	var out []candidate
	for line := 2; ; line++ {
		var row transAbyssFusionRow
		if err := r.Read(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		c, err := transAbyssFusionCandidate(row, stranded)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		c.row = line
		out = append(out, c)
	}
	return out, nil
}

func transAbyssFusionCandidate(row transAbyssFusionRow, stranded bool) (candidate, error) {
	var c candidate
	var err error
	if c.eventTypes, err = transAbyssTypes(row.EventType); err != nil {
		return candidate{}, err
	}
	m := transAbyssBreakpointRe.FindStringSubmatch(row.Breakpoint)
	if m == nil {
		return candidate{}, errors.Errorf("svtools: cannot parse breakpoint %q", row.Breakpoint)
	}
	c.refName1, c.refName2 = m[1], m[3]
	if c.start1, err = strconv.Atoi(m[2]); err != nil {
		return candidate{}, errors.Errorf("svtools: cannot parse breakpoint %q", row.Breakpoint)
	}
	if c.start2, err = strconv.Atoi(m[4]); err != nil {
		return candidate{}, errors.Errorf("svtools: cannot parse breakpoint %q", row.Breakpoint)
	}
	c.end1, c.end2 = c.start1, c.start2
	orients := strings.Split(row.Orientations, ",")
	if len(orients) != 2 {
		return candidate{}, errors.Errorf("svtools: cannot parse orientations %q", row.Orientations)
	}
	if c.orient1, err = breakpoint.ParseOrientation(orients[0]); err != nil {
		return candidate{}, err
	}
	if c.orient2, err = breakpoint.ParseOrientation(orients[1]); err != nil {
		return candidate{}, err
	}
	if stranded {
		strands := strings.Split(row.Strands, ",")
		if len(strands) != 2 {
			return candidate{}, errors.Errorf("svtools: cannot parse strands %q", row.Strands)
		}
		s1, err := breakpoint.ParseStrand(strands[0])
		if err != nil {
			return candidate{}, err
		}
		s2, err := breakpoint.ParseStrand(strands[1])
		if err != nil {
			return candidate{}, err
		}
		c.strand1, c.strand2 = s1.Opposite(), s2.Opposite()
	}
	return c, nil
}

type transAbyssIndelRow struct {
	EventType string `tsv:"type"`
	Chrom     string `tsv:"chr"`
	Start     int    `tsv:"chr_start"`
	End       int    `tsv:"chr_end"`
	CtgStrand string `tsv:"ctg_strand"`
}

func readTransAbyssIndel(in io.Reader, stranded bool) ([]candidate, error) {
	r := tsv.NewReader(in)
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	var out []candidate
	for line := 2; ; line++ {
		var row transAbyssIndelRow
		if err := r.Read(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		c := candidate{
			row:      line,
			refName1: row.Chrom,
			refName2: row.Chrom,
			start1:   row.Start,
			end1:     row.Start,
			// The reported range is the deleted or duplicated bases;
			// the second breakend sits one past it.
			start2: row.End + 1,
			end2:   row.End + 1,
		}
		var err error
		if c.eventTypes, err = transAbyssTypes(row.EventType); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if stranded {
			s, err := breakpoint.ParseStrand(row.CtgStrand)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			c.strand1 = s.Opposite()
			c.strand2 = c.strand1
		}
		out = append(out, c)
	}
	return out, nil
}
