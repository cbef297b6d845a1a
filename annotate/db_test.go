package annotate

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"sort"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/interval"
)

func TestDBInternAndLookup(t *testing.T) {
	db := NewDB()
	g, err := db.AddGene("KRAS", "12", 25000, 26000, breakpoint.StrandNeg, "ENSG00000133703")
	expect.NoError(t, err)
	tr, err := db.AddTranscript(g, "KRAS-201", []Exon{NewExon(25100, 25200), NewExon(25400, 25500)})
	expect.NoError(t, err)

	expect.EQ(t, db.NumGenes(), 1)
	expect.EQ(t, db.NumTranscripts(), 1)
	expect.True(t, db.GeneByName("KRAS") == g)
	expect.True(t, db.GeneByName("missing") == nil)
	expect.True(t, db.TranscriptByName("KRAS-201") == tr)
	expect.EQ(t, tr.RefName, "12")
	expect.EQ(t, tr.Strand, breakpoint.StrandNeg)
	expect.EQ(t, tr.Pos, interval.Interval{Start: 25100, End: 25500})
	expect.EQ(t, db.GeneTranscripts(g), []*Transcript{tr})
	expect.True(t, db.Gene(tr.Gene) == g)

	// Exon numbering follows transcription order.
	expect.EQ(t, tr.ExonNumber(0), 2)
	expect.EQ(t, tr.ExonNumber(1), 1)
}

func TestDBValidation(t *testing.T) {
	db := NewDB()
	g, err := db.AddGene("A", "1", 100, 900, breakpoint.StrandPos)
	expect.NoError(t, err)

	_, err = db.AddGene("A", "2", 1, 10, breakpoint.StrandPos)
	expect.HasSubstr(t, err.Error(), "duplicate gene name")
	_, err = db.AddGene("B", "1", 0, 10, breakpoint.StrandPos)
	expect.HasSubstr(t, err.Error(), "invalid range")
	_, err = db.AddGene("C", "1", 10, 5, breakpoint.StrandPos)
	expect.HasSubstr(t, err.Error(), "invalid range")

	_, err = db.AddTranscript(g, "A-1", nil)
	expect.HasSubstr(t, err.Error(), "at least one exon")
	_, err = db.AddTranscript(g, "A-1", []Exon{NewExon(100, 250), NewExon(200, 300)})
	expect.HasSubstr(t, err.Error(), "overlap")

	_, err = db.AddTranscript(g, "A-1", []Exon{NewExon(100, 200)})
	expect.NoError(t, err)
	_, err = db.AddTranscript(g, "A-1", []Exon{NewExon(100, 200)})
	expect.HasSubstr(t, err.Error(), "duplicate transcript name")
}

func TestTranscriptWidensGene(t *testing.T) {
	db := NewDB()
	g, err := db.AddGene("A", "1", 500, 600, breakpoint.StrandPos)
	expect.NoError(t, err)
	_, err = db.AddTranscript(g, "A-1", []Exon{NewExon(400, 450), NewExon(550, 700)})
	expect.NoError(t, err)
	expect.EQ(t, g.Pos, interval.Interval{Start: 400, End: 700})
}

func geneNames(genes []*Gene) []string {
	names := make([]string, len(genes))
	for i, g := range genes {
		names[i] = g.Name
	}
	sort.Strings(names)
	return names
}

func TestOverlapQueries(t *testing.T) {
	db := NewDB()
	a, err := db.AddGene("A", "1", 100, 500, breakpoint.StrandPos)
	expect.NoError(t, err)
	_, err = db.AddTranscript(a, "A-1", []Exon{NewExon(100, 200), NewExon(400, 500)})
	expect.NoError(t, err)
	b, err := db.AddGene("B", "1", 450, 900, breakpoint.StrandNeg)
	expect.NoError(t, err)
	_, err = db.AddTranscript(b, "B-1", []Exon{NewExon(700, 800)})
	expect.NoError(t, err)
	_, err = db.AddGene("C", "2", 100, 500, breakpoint.StrandPos)
	expect.NoError(t, err)
	db.Freeze()

	expect.EQ(t, geneNames(db.OverlappingGenes("1", interval.New(480, 490))), []string{"A", "B"})
	expect.EQ(t, geneNames(db.OverlappingGenes("1", interval.New(850, 950))), []string{"B"})
	expect.EQ(t, len(db.OverlappingGenes("1", interval.New(901, 950))), 0)
	expect.EQ(t, geneNames(db.OverlappingGenes("2", interval.New(1, 100))), []string{"C"})
	expect.EQ(t, len(db.OverlappingGenes("3", interval.New(1, 100))), 0)

	// Gene B overlaps position 500 but its only transcript does not.
	trs := db.OverlappingTranscripts("1", interval.New(480, 500))
	expect.EQ(t, len(trs), 1)
	expect.EQ(t, trs[0].Name, "A-1")
}

const testGTF = `##format: gtf
1	test	gene	100	900	.	+	.	gene_id "ENSG01"; gene_name "ALPHA";
1	test	transcript	100	600	.	+	.	gene_id "ENSG01"; transcript_id "ALPHA-1"; is_best_transcript "true";
1	test	exon	100	200	.	+	.	gene_id "ENSG01"; transcript_id "ALPHA-1";
1	test	exon	300	400	.	+	.	gene_id "ENSG01"; transcript_id "ALPHA-1";
1	test	exon	500	600	.	+	.	gene_id "ENSG01"; transcript_id "ALPHA-1";
1	test	CDS	150	200	.	+	.	gene_id "ENSG01"; transcript_id "ALPHA-1";
1	test	CDS	300	349	.	+	.	gene_id "ENSG01"; transcript_id "ALPHA-1";
2	test	gene	1100	1400	.	-	.	gene_id "ENSG02"; gene_name "BETA";
2	test	transcript	1100	1400	.	-	.	gene_id "ENSG02"; transcript_id "BETA-1";
2	test	exon	1100	1200	.	-	.	gene_id "ENSG02"; transcript_id "BETA-1";
2	test	exon	1300	1400	.	-	.	gene_id "ENSG02"; transcript_id "BETA-1";
3	test	gene	500	600	.	+	.	gene_id "ENSG03"; gene_name "ALPHA";
`

func TestLoadGTF(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "annotations.gtf")
	expect.NoError(t, ioutil.WriteFile(path, []byte(testGTF), 0644))

	db, err := LoadGTF(context.Background(), path)
	expect.NoError(t, err)
	expect.EQ(t, db.NumGenes(), 3)
	expect.EQ(t, db.NumTranscripts(), 2)

	alpha := db.GeneByName("ALPHA")
	expect.NotNil(t, alpha)
	expect.EQ(t, alpha.RefName, "1")
	expect.EQ(t, alpha.Strand, breakpoint.StrandPos)
	expect.EQ(t, alpha.Aliases, []string{"ENSG01"})

	// The second ALPHA collides on gene_name and falls back to gene_id.
	expect.NotNil(t, db.GeneByName("ENSG03"))

	tr := db.TranscriptByName("ALPHA-1")
	expect.NotNil(t, tr)
	expect.True(t, tr.Best)
	expect.EQ(t, len(tr.Exons), 3)
	expect.True(t, tr.HasCoding)
	expect.EQ(t, tr.Coding, interval.Interval{Start: 51, End: 151})

	beta := db.TranscriptByName("BETA-1")
	expect.NotNil(t, beta)
	expect.EQ(t, beta.Strand, breakpoint.StrandNeg)
	expect.False(t, beta.Best)
	expect.False(t, beta.HasCoding)

	expect.EQ(t, geneNames(db.OverlappingGenes("1", interval.New(550, 560))), []string{"ALPHA"})
}

func TestLoadGTFErrors(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	orphan := filepath.Join(tempDir, "orphan.gtf")
	expect.NoError(t, ioutil.WriteFile(orphan, []byte(
		"1\ttest\ttranscript\t1\t10\t.\t+\t.\tgene_id \"NOPE\"; transcript_id \"T1\";\n"), 0644))
	_, err := LoadGTF(context.Background(), orphan)
	expect.HasSubstr(t, err.Error(), "unknown gene")

	noExons := filepath.Join(tempDir, "noexons.gtf")
	expect.NoError(t, ioutil.WriteFile(noExons, []byte(
		"1\ttest\tgene\t1\t10\t.\t+\t.\tgene_id \"G1\"; gene_name \"G1N\";\n"+
			"1\ttest\ttranscript\t1\t10\t.\t+\t.\tgene_id \"G1\"; transcript_id \"T1\";\n"), 0644))
	_, err = LoadGTF(context.Background(), noExons)
	expect.HasSubstr(t, err.Error(), "has no exons")
}
