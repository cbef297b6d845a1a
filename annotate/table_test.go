package annotate

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/interval"
)

const tableHeader = "gene_id\tchromosome\tgene_start\tgene_end\tstrand\t" +
	"transcript_id\ttranscript_start\ttranscript_end\tgenomic_exon_ranges\t" +
	"best_transcript\taliases\n"

const testTable = tableHeader +
	"ENSG01\t1\t100\t900\t+\tALPHA-1\t100\t600\t100-200;300-400;500-600\ttrue\tALPHA\n" +
	"ENSG01\t1\t100\t900\t+\tALPHA-2\t100\t400\t100-200;300-400\tfalse\tALPHA\n" +
	"ENSG02\t2\t1100\t1400\t-\tBETA-1\t1100\t1400\t1100-1200;1300-1400\t\t\n"

func TestLoadTable(t *testing.T) {
	db, err := Load(strings.NewReader(testTable))
	expect.NoError(t, err)
	expect.EQ(t, db.NumGenes(), 2)
	expect.EQ(t, db.NumTranscripts(), 3)

	alpha := db.GeneByName("ENSG01")
	expect.NotNil(t, alpha)
	expect.EQ(t, alpha.RefName, "1")
	expect.EQ(t, alpha.Strand, breakpoint.StrandPos)
	expect.EQ(t, alpha.Pos, interval.Interval{Start: 100, End: 900})
	expect.EQ(t, alpha.Aliases, []string{"ALPHA"})
	expect.EQ(t, len(alpha.Transcripts), 2)

	a1 := db.TranscriptByName("ALPHA-1")
	expect.NotNil(t, a1)
	expect.True(t, a1.Best)
	expect.EQ(t, len(a1.Exons), 3)
	expect.EQ(t, a1.Pos, interval.Interval{Start: 100, End: 600})
	expect.False(t, db.TranscriptByName("ALPHA-2").Best)

	beta := db.TranscriptByName("BETA-1")
	expect.NotNil(t, beta)
	expect.EQ(t, beta.Strand, breakpoint.StrandNeg)
	expect.False(t, beta.Best)

	// Load freezes the database.
	expect.EQ(t, geneNames(db.OverlappingGenes("1", interval.New(150, 160))), []string{"ENSG01"})
}

func TestLoadTableErrors(t *testing.T) {
	_, err := Load(strings.NewReader(tableHeader +
		"G1\t1\t100\t900\t+\tT1\t100\t200\t100-200\t\t\n" +
		"G1\t1\t100\t800\t+\tT2\t100\t200\t100-200\t\t\n"))
	expect.HasSubstr(t, err.Error(), "conflicts with line 2")

	_, err = Load(strings.NewReader(tableHeader +
		"G1\t1\t100\t900\tx\tT1\t100\t200\t100-200\t\t\n"))
	expect.HasSubstr(t, err.Error(), "invalid strand")

	_, err = Load(strings.NewReader(tableHeader +
		"G1\t1\t100\t900\t+\tT1\t100\t200\t200-100\t\t\n"))
	expect.HasSubstr(t, err.Error(), "invalid exon range")

	_, err = Load(strings.NewReader(tableHeader +
		"G1\t1\t100\t900\t+\tT1\t50\t200\t100-200\t\t\n"))
	expect.HasSubstr(t, err.Error(), "does not match its exons")

	_, err = Load(strings.NewReader(tableHeader +
		"G1\t1\t100\t900\t+\tT1\t100\t200\t100-200\tmaybe\t\n"))
	expect.HasSubstr(t, err.Error(), "invalid best_transcript")
}

func TestLoadTablePath(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "annotations.tab")
	expect.NoError(t, ioutil.WriteFile(path, []byte(testTable), 0644))

	db, err := LoadPath(context.Background(), path)
	expect.NoError(t, err)
	expect.EQ(t, db.NumTranscripts(), 3)
}
