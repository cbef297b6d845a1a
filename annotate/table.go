package annotate

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
)

// tableRow mirrors one line of the flat transcript table.
type tableRow struct {
	GeneID          string `tsv:"gene_id"`
	Chrom           string `tsv:"chromosome"`
	GeneStart       int    `tsv:"gene_start"`
	GeneEnd         int    `tsv:"gene_end"`
	Strand          string `tsv:"strand"`
	TranscriptID    string `tsv:"transcript_id"`
	TranscriptStart int    `tsv:"transcript_start"`
	TranscriptEnd   int    `tsv:"transcript_end"`
	ExonRanges      string `tsv:"genomic_exon_ranges"`
	Best            string `tsv:"best_transcript"`
	Aliases         string `tsv:"aliases"`
}

// parseExonRanges parses a "start-end;start-end" list into exons with intact
// splice sites.
func parseExonRanges(s string) ([]Exon, error) {
	var exons []Exon
	for _, rng := range strings.Split(s, ";") {
		if rng = strings.TrimSpace(rng); rng == "" {
			continue
		}
		dash := strings.IndexByte(rng, '-')
		if dash <= 0 {
			return nil, errors.Errorf("annotate: invalid exon range %q", rng)
		}
		start, err1 := strconv.Atoi(rng[:dash])
		end, err2 := strconv.Atoi(rng[dash+1:])
		if err1 != nil || err2 != nil || start < 1 || end < start {
			return nil, errors.Errorf("annotate: invalid exon range %q", rng)
		}
		exons = append(exons, NewExon(start, end))
	}
	if len(exons) == 0 {
		return nil, errors.New("annotate: transcript has no exons")
	}
	return exons, nil
}

func splitAliases(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ";") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Load reads the flat transcript table into a frozen DB.  The table carries
// one transcript per row under a header row naming every column; column
// order is free and extra columns are ignored.  Gene columns repeat on each
// row of a gene and must agree between rows, and the declared transcript
// span must match the envelope of its exons.
func Load(r io.Reader) (*DB, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true

	db := NewDB()
	type geneDef struct {
		gene *Gene
		line int
		row  tableRow
	}
	genes := map[string]geneDef{}
	var row tableRow
	for line := 2; ; line++ {
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "transcript table line %d", line)
		}
		def, ok := genes[row.GeneID]
		if !ok {
			strand, err := breakpoint.ParseStrand(row.Strand)
			if err != nil {
				return nil, errors.Wrapf(err, "transcript table line %d", line)
			}
			g, err := db.AddGene(row.GeneID, row.Chrom, row.GeneStart, row.GeneEnd, strand, splitAliases(row.Aliases)...)
			if err != nil {
				return nil, errors.Wrapf(err, "transcript table line %d", line)
			}
			def = geneDef{gene: g, line: line, row: row}
			genes[row.GeneID] = def
		} else if row.Chrom != def.row.Chrom || row.GeneStart != def.row.GeneStart ||
			row.GeneEnd != def.row.GeneEnd || row.Strand != def.row.Strand ||
			row.Aliases != def.row.Aliases {
			return nil, errors.Errorf("transcript table line %d: gene %s conflicts with line %d",
				line, row.GeneID, def.line)
		}
		exons, err := parseExonRanges(row.ExonRanges)
		if err != nil {
			return nil, errors.Wrapf(err, "transcript table line %d", line)
		}
		t, err := db.AddTranscript(def.gene, row.TranscriptID, exons)
		if err != nil {
			return nil, errors.Wrapf(err, "transcript table line %d", line)
		}
		if t.Pos.Start != row.TranscriptStart || t.Pos.End != row.TranscriptEnd {
			return nil, errors.Errorf("transcript table line %d: transcript %s span %d-%d does not match its exons %s",
				line, row.TranscriptID, row.TranscriptStart, row.TranscriptEnd, t.Pos)
		}
		if row.Best != "" {
			best, err := strconv.ParseBool(row.Best)
			if err != nil {
				return nil, errors.Errorf("transcript table line %d: invalid best_transcript %q", line, row.Best)
			}
			t.Best = best
		}
	}
	db.Freeze()
	return db, nil
}

// LoadPath reads a flat transcript table from path, transparently
// decompressing by extension.
func LoadPath(ctx context.Context, path string) (*DB, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	db, err := Load(r)
	if err != nil {
		_ = in.Close(ctx)
		return nil, errors.Wrapf(err, "%s", path)
	}
	if err := in.Close(ctx); err != nil {
		return nil, errors.Wrapf(err, "close %s", path)
	}
	return db, nil
}
