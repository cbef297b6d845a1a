package annotate

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/interval"
)

// gtfRecord is one line of a GTF annotation file.
type gtfRecord struct {
	Chrom   string
	Source  string
	Feature string
	Start   int
	Stop    int
	Score   string // may be "."
	Strand  string
	Frame   string
	Attrs   string
}

func readGTF(ctx context.Context, path string) (genes, transcripts, exons, cds []gtfRecord, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	var inr io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(inr, in.Name()); u != nil {
		inr = u
	}
	scanner := tsv.NewReader(bufio.NewReaderSize(inr, 64<<10))
	scanner.Comment = '#'
	scanner.LazyQuotes = true
	var line gtfRecord
	for {
		if err := scanner.Read(&line); err != nil {
			if err != io.EOF {
				return nil, nil, nil, nil, errors.Wrapf(err, "read %s", path)
			}
			break
		}
		switch line.Feature {
		case "gene":
			genes = append(genes, line)
		case "transcript":
			transcripts = append(transcripts, line)
		case "exon":
			exons = append(exons, line)
		case "CDS":
			cds = append(cds, line)
		}
	}
	if err := in.Close(ctx); err != nil {
		return nil, nil, nil, nil, err
	}
	return genes, transcripts, exons, cds, nil
}

// parseAttrs fills dst with the key/value pairs of a GTF attribute column,
// e.g. `gene_id "ENSG1"; gene_name "KRAS";`.  dst is cleared first so one map
// can be reused across lines.
func parseAttrs(dst map[string]string, s string) {
	for k := range dst {
		delete(dst, k)
	}
	for _, field := range strings.Split(s, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		pair := strings.SplitN(field, " ", 2)
		if len(pair) != 2 {
			continue
		}
		dst[pair[0]] = strings.Trim(pair[1], "\"")
	}
}

func parseGTFStrand(s string) breakpoint.Strand {
	switch s {
	case "+":
		return breakpoint.StrandPos
	case "-":
		return breakpoint.StrandNeg
	}
	return breakpoint.StrandNS
}

// LoadGTF reads a GTF annotation file into a frozen DB.  Gene, transcript and
// exon features are required to appear with genes before their transcripts
// and transcripts before their exons, the order GTF files are conventionally
// written in.  CDS features, when present, set the transcript's cDNA coding
// range.  Genes are interned under their gene_name attribute when it is
// unique, falling back to gene_id; transcripts under transcript_id.
func LoadGTF(ctx context.Context, path string) (*DB, error) {
	gtfGenes, gtfTranscripts, gtfExons, gtfCDS, err := readGTF(ctx, path)
	if err != nil {
		return nil, err
	}

	db := NewDB()
	fields := map[string]string{}
	byGeneID := map[string]*Gene{}
	for _, line := range gtfGenes {
		parseAttrs(fields, line.Attrs)
		geneID := fields["gene_id"]
		if geneID == "" {
			return nil, errors.Errorf("%s: gene feature at %s:%d-%d has no gene_id",
				path, line.Chrom, line.Start, line.Stop)
		}
		name := fields["gene_name"]
		var aliases []string
		if name == "" || db.GeneByName(name) != nil {
			name = geneID
		} else if name != geneID {
			aliases = []string{geneID}
		}
		g, err := db.AddGene(name, line.Chrom, line.Start, line.Stop, parseGTFStrand(line.Strand), aliases...)
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		byGeneID[geneID] = g
	}

	type transcriptMeta struct {
		id   string
		gene *Gene
		best bool
	}
	var metas []transcriptMeta
	exonsByTranscript := map[string][]interval.Interval{}
	for _, line := range gtfTranscripts {
		parseAttrs(fields, line.Attrs)
		gene, ok := byGeneID[fields["gene_id"]]
		if !ok {
			return nil, errors.Errorf("%s: transcript %s references unknown gene %s",
				path, fields["transcript_id"], fields["gene_id"])
		}
		best := false
		if v := fields["is_best_transcript"]; v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				best = b
			}
		}
		metas = append(metas, transcriptMeta{id: fields["transcript_id"], gene: gene, best: best})
	}
	for _, line := range gtfExons {
		parseAttrs(fields, line.Attrs)
		tid := fields["transcript_id"]
		exonsByTranscript[tid] = append(exonsByTranscript[tid], interval.New(line.Start, line.Stop))
	}
	cdsByTranscript := map[string]interval.Interval{}
	for _, line := range gtfCDS {
		parseAttrs(fields, line.Attrs)
		tid := fields["transcript_id"]
		r := interval.New(line.Start, line.Stop)
		if prev, ok := cdsByTranscript[tid]; ok {
			r = interval.Span(prev, r)
		}
		cdsByTranscript[tid] = r
	}

	for _, meta := range metas {
		ranges := exonsByTranscript[meta.id]
		if len(ranges) == 0 {
			return nil, errors.Errorf("%s: transcript %s has no exons", path, meta.id)
		}
		exons := make([]Exon, len(ranges))
		for i, r := range ranges {
			exons[i] = NewExon(r.Start, r.End)
		}
		t, err := db.AddTranscript(meta.gene, meta.id, exons)
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		t.Best = meta.best
		if cdsSpan, ok := cdsByTranscript[meta.id]; ok {
			if err := setCodingRange(t, cdsSpan); err != nil {
				return nil, errors.Wrapf(err, "%s: transcript %s", path, meta.id)
			}
		}
	}

	db.Freeze()
	return db, nil
}

// setCodingRange converts the genomic CDS envelope to cDNA coordinates under
// the transcript's reference splicing.  Transcripts without a known strand
// keep no coding range.
func setCodingRange(t *Transcript, cdsSpan interval.Interval) error {
	if t.Strand != breakpoint.StrandPos && t.Strand != breakpoint.StrandNeg {
		return nil
	}
	st, err := NewSplicedTranscript(t, t.SplicingPatterns()[0])
	if err != nil {
		return err
	}
	c1, err := st.CDNAPos(cdsSpan.Start)
	if err != nil {
		return err
	}
	c2, err := st.CDNAPos(cdsSpan.End)
	if err != nil {
		return err
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	t.Coding = interval.New(c1, c2)
	t.HasCoding = true
	return nil
}
