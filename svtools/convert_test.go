package svtools

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raonyguimaraes/mavis/breakpoint"
)

func writeTemp(t *testing.T, name, content string) (string, func()) {
	dir, cleanup := testutil.TempDir(t, "", "")
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path, cleanup
}

func bpAt(t *testing.T, ref string, start, end int, o breakpoint.Orientation, s breakpoint.Strand) breakpoint.Breakpoint {
	b, err := breakpoint.New(ref, start, end, o, s)
	require.NoError(t, err)
	return b
}

func pairOf(t *testing.T, b1, b2 breakpoint.Breakpoint, opposing, stranded bool) breakpoint.Pair {
	p, err := breakpoint.NewPair(b1, b2, opposing, stranded)
	require.NoError(t, err)
	return p
}

func inputRecord(t *testing.T, pair breakpoint.Pair, et breakpoint.SVType, tool Tool) breakpoint.Record {
	return breakpoint.Record{
		Pair:      pair,
		EventType: et,
		Method:    breakpoint.CallInput,
		Protocol:  breakpoint.ProtocolGenome,
		Tools:     []string{tool.String()},
	}
}

func TestConvertDelly(t *testing.T) {
	path, cleanup := writeTemp(t, "calls.vcf", vcfHeader+
		"1\t1000\tDEL001\tN\t<DEL>\t.\tPASS\tSVTYPE=DEL;END=2000;CIPOS=-56,56;CIEND=-10,10;CT=3to5\n"+
		"1\t1000\tDEL002\tN\t<DEL>\t.\tPASS\tSVTYPE=DEL;END=2000;CIPOS=-56,56;CIEND=-10,10;CT=3to5\n"+
		"2\t200\tBND001\tA\tA[3:400[\t.\tPASS\tSVTYPE=BND;CT=5to3\n")
	defer cleanup()

	recs, err := Convert(context.Background(), path, ToolDelly, breakpoint.ProtocolGenome, false)
	require.NoError(t, err)

	ns := breakpoint.StrandNS
	want := []breakpoint.Record{
		inputRecord(t, pairOf(t,
			bpAt(t, "1", 944, 1056, breakpoint.OrientLeft, ns),
			bpAt(t, "1", 1990, 2010, breakpoint.OrientRight, ns), false, false),
			breakpoint.SVDeletion, ToolDelly),
		inputRecord(t, pairOf(t,
			bpAt(t, "2", 200, 200, breakpoint.OrientRight, ns),
			bpAt(t, "3", 400, 400, breakpoint.OrientLeft, ns), false, false),
			breakpoint.SVTranslocation, ToolDelly),
	}
	assert.Equal(t, want, recs)
}

func TestConvertVCFRowError(t *testing.T) {
	// 5to3 retains the right side then the left, which duplications
	// produce, never deletions.
	path, cleanup := writeTemp(t, "calls.vcf", vcfHeader+
		"1\t1000\tDEL001\tN\t<DEL>\t.\tPASS\tSVTYPE=DEL;END=2000;CT=5to3\n")
	defer cleanup()

	_, err := Convert(context.Background(), path, ToolDelly, breakpoint.ProtocolGenome, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no consistent breakpoint pair")
	assert.Contains(t, err.Error(), "row 1")
}

const chimeraHeader = "#chrom5p\tstart5p\tend5p\tchrom3p\tstart3p\tend3p\tstrand5p\tstrand3p\n"

func TestConvertChimerascan(t *testing.T) {
	path, cleanup := writeTemp(t, "chimeras.bedpe", chimeraHeader+
		"chr3\t100\t200\tchr12\t300\t400\t+\t-\n"+
		"chr3\t100\t200\tchr3\t300\t400\t+\t+\n")
	defer cleanup()

	recs, err := Convert(context.Background(), path, ToolChimerascan, breakpoint.ProtocolTranscriptome, false)
	require.NoError(t, err)

	ns := breakpoint.StrandNS
	b5 := bpAt(t, "chr3", 200, 200, breakpoint.OrientLeft, ns)
	opposite := pairOf(t, b5, bpAt(t, "chr12", 400, 400, breakpoint.OrientLeft, ns), true, false)
	want := []breakpoint.Record{{
		Pair:      opposite,
		EventType: breakpoint.SVInvertedTranslocation,
		Method:    breakpoint.CallInput,
		Protocol:  breakpoint.ProtocolTranscriptome,
		Tools:     []string{"chimerascan"},
	}}
	sameStrand := pairOf(t, b5, bpAt(t, "chr3", 300, 300, breakpoint.OrientRight, ns), false, false)
	for _, et := range []breakpoint.SVType{breakpoint.SVDeletion, breakpoint.SVInsertion} {
		want = append(want, breakpoint.Record{
			Pair:      sameStrand,
			EventType: et,
			Method:    breakpoint.CallInput,
			Protocol:  breakpoint.ProtocolTranscriptome,
			Tools:     []string{"chimerascan"},
		})
	}
	assert.Equal(t, want, recs)
}

func TestConvertChimerascanStranded(t *testing.T) {
	path, cleanup := writeTemp(t, "chimeras.bedpe", chimeraHeader+
		"chr3\t100\t200\tchr3\t300\t400\t+\t+\n")
	defer cleanup()

	recs, err := Convert(context.Background(), path, ToolChimerascan, breakpoint.ProtocolTranscriptome, true)
	require.NoError(t, err)

	// The fixed same-strand relationship keeps only the two concrete
	// strand assignments that agree across the junction.
	require.Len(t, recs, 4)
	for i, rec := range recs {
		strand := breakpoint.StrandPos
		if i >= 2 {
			strand = breakpoint.StrandNeg
		}
		assert.Equal(t, strand, rec.Break1.Strand, i)
		assert.Equal(t, strand, rec.Break2.Strand, i)
		assert.True(t, rec.Stranded, i)
	}
	assert.Equal(t, breakpoint.SVDeletion, recs[0].EventType)
	assert.Equal(t, breakpoint.SVInsertion, recs[1].EventType)
	assert.Equal(t, breakpoint.SVDeletion, recs[2].EventType)
	assert.Equal(t, breakpoint.SVInsertion, recs[3].EventType)
}

const defuseHeader = "gene_chromosome1\tgene_chromosome2\tgenomic_break_pos1\tgenomic_break_pos2\tgenomic_strand1\tgenomic_strand2\n"

func TestConvertDefuse(t *testing.T) {
	path, cleanup := writeTemp(t, "results.tsv", defuseHeader+
		"1\t9\t5000\t6000\t+\t-\n"+
		"4\t4\t7000\t8000\t+\t+\n")
	defer cleanup()

	recs, err := Convert(context.Background(), path, ToolDefuse, breakpoint.ProtocolTranscriptome, false)
	require.NoError(t, err)

	ns := breakpoint.StrandNS
	want := []breakpoint.Record{
		{
			Pair: pairOf(t,
				bpAt(t, "1", 5000, 5000, breakpoint.OrientLeft, ns),
				bpAt(t, "9", 6000, 6000, breakpoint.OrientRight, ns), false, false),
			EventType: breakpoint.SVTranslocation,
			Method:    breakpoint.CallInput,
			Protocol:  breakpoint.ProtocolTranscriptome,
			Tools:     []string{"defuse"},
		},
		{
			Pair: pairOf(t,
				bpAt(t, "4", 7000, 7000, breakpoint.OrientLeft, ns),
				bpAt(t, "4", 8000, 8000, breakpoint.OrientLeft, ns), true, false),
			EventType: breakpoint.SVInversion,
			Method:    breakpoint.CallInput,
			Protocol:  breakpoint.ProtocolTranscriptome,
			Tools:     []string{"defuse"},
		},
	}
	assert.Equal(t, want, recs)
}

const taFusionHeader = "rearrangement\tbreakpoint\torientations\tstrands\n"

func TestConvertTransAbyssFusion(t *testing.T) {
	path, cleanup := writeTemp(t, "fusions.tsv", taFusionHeader+
		"deletion\tchr5:1000|chr5:2000\tL,R\t+,+\n"+
		"LSR\tchr5:1500|chr5:2500\tL,R\t+,+\n")
	defer cleanup()

	recs, err := Convert(context.Background(), path, ToolTransAbyss, breakpoint.ProtocolGenome, false)
	require.NoError(t, err)

	ns := breakpoint.StrandNS
	typed := pairOf(t,
		bpAt(t, "chr5", 1000, 1000, breakpoint.OrientLeft, ns),
		bpAt(t, "chr5", 2000, 2000, breakpoint.OrientRight, ns), false, false)
	untyped := pairOf(t,
		bpAt(t, "chr5", 1500, 1500, breakpoint.OrientLeft, ns),
		bpAt(t, "chr5", 2500, 2500, breakpoint.OrientRight, ns), false, false)
	want := []breakpoint.Record{
		inputRecord(t, typed, breakpoint.SVDeletion, ToolTransAbyss),
		inputRecord(t, untyped, breakpoint.SVDeletion, ToolTransAbyss),
		inputRecord(t, untyped, breakpoint.SVInsertion, ToolTransAbyss),
	}
	assert.Equal(t, want, recs)
}

func TestConvertTransAbyssFusionStranded(t *testing.T) {
	path, cleanup := writeTemp(t, "fusions.tsv", taFusionHeader+
		"deletion\tchr5:1000|chr5:2000\tL,R\t+,+\n")
	defer cleanup()

	recs, err := Convert(context.Background(), path, ToolTransAbyss, breakpoint.ProtocolGenome, true)
	require.NoError(t, err)

	// Reported strands describe the contig, so both flip to the minus
	// strand on conversion.
	neg := breakpoint.StrandNeg
	want := []breakpoint.Record{
		inputRecord(t, pairOf(t,
			bpAt(t, "chr5", 1000, 1000, breakpoint.OrientLeft, neg),
			bpAt(t, "chr5", 2000, 2000, breakpoint.OrientRight, neg), false, true),
			breakpoint.SVDeletion, ToolTransAbyss),
	}
	assert.Equal(t, want, recs)
}

func TestConvertTransAbyssBadBreakpoint(t *testing.T) {
	path, cleanup := writeTemp(t, "fusions.tsv", taFusionHeader+
		"deletion\tchr5:1000-2000\tL,R\t+,+\n")
	defer cleanup()

	_, err := Convert(context.Background(), path, ToolTransAbyss, breakpoint.ProtocolGenome, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot parse breakpoint")
	assert.Contains(t, err.Error(), "line 2")
}

const taIndelHeader = "type\tchr\tchr_start\tchr_end\tctg_strand\n"

func TestConvertTransAbyssIndel(t *testing.T) {
	path, cleanup := writeTemp(t, "indels.tsv", taIndelHeader+
		"del\tchrX\t1500\t1600\t+\n"+
		"ITD\tchrX\t500\t600\t-\n")
	defer cleanup()

	recs, err := Convert(context.Background(), path, ToolTransAbyss, breakpoint.ProtocolGenome, false)
	require.NoError(t, err)

	ns := breakpoint.StrandNS
	want := []breakpoint.Record{
		inputRecord(t, pairOf(t,
			bpAt(t, "chrX", 1500, 1500, breakpoint.OrientLeft, ns),
			bpAt(t, "chrX", 1601, 1601, breakpoint.OrientRight, ns), false, false),
			breakpoint.SVDeletion, ToolTransAbyss),
		inputRecord(t, pairOf(t,
			bpAt(t, "chrX", 500, 500, breakpoint.OrientRight, ns),
			bpAt(t, "chrX", 601, 601, breakpoint.OrientLeft, ns), false, false),
			breakpoint.SVDuplication, ToolTransAbyss),
	}
	assert.Equal(t, want, recs)
}

func TestConvertMavisPassthrough(t *testing.T) {
	r1, err := breakpoint.NewRecord(
		pairOf(t,
			bpAt(t, "2", 300, 300, breakpoint.OrientLeft, breakpoint.StrandNS),
			bpAt(t, "2", 800, 800, breakpoint.OrientRight, breakpoint.StrandNS), false, false),
		breakpoint.SVDeletion, breakpoint.CallSplit, breakpoint.ProtocolTranscriptome)
	require.NoError(t, err)
	r1.Library = "libA"
	r1.Tools = []string{"delly"}
	r1.ID = "x1"
	r2, err := breakpoint.NewRecord(
		pairOf(t,
			bpAt(t, "2", 300, 300, breakpoint.OrientRight, breakpoint.StrandNS),
			bpAt(t, "7", 900, 900, breakpoint.OrientLeft, breakpoint.StrandNS), false, false),
		breakpoint.SVTranslocation, breakpoint.CallContig, breakpoint.ProtocolTranscriptome)
	require.NoError(t, err)
	r2.Library = "libA"
	r2.ID = "x2"

	var buf bytes.Buffer
	require.NoError(t, breakpoint.WriteRecords(&buf, []breakpoint.Record{r1, r1, r2}))
	path, cleanup := writeTemp(t, "pairs.tsv", buf.String())
	defer cleanup()

	recs, err := Convert(context.Background(), path, ToolMavis, breakpoint.ProtocolGenome, false)
	require.NoError(t, err)

	// Everything but the tool tag passes through: the file's protocol and
	// call method win over the conversion arguments.
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"mavis"}, recs[0].Tools)
	assert.Equal(t, breakpoint.ProtocolTranscriptome, recs[0].Protocol)
	assert.Equal(t, breakpoint.CallSplit, recs[0].Method)
	assert.Equal(t, "libA", recs[0].Library)
	assert.Equal(t, "x1", recs[0].ID)
	assert.Equal(t, r1.Pair, recs[0].Pair)
	assert.Equal(t, r2.Pair, recs[1].Pair)
}

func TestExpandCandidateUntyped(t *testing.T) {
	c := candidate{
		refName1: "1", refName2: "1",
		start1: 100, end1: 100,
		start2: 500, end2: 500,
	}
	recs, err := expandCandidate(c, breakpoint.ProtocolGenome, false)
	require.NoError(t, err)

	var types []breakpoint.SVType
	for _, rec := range recs {
		types = append(types, rec.EventType)
	}
	assert.Equal(t, []breakpoint.SVType{
		breakpoint.SVInversion,
		breakpoint.SVDeletion,
		breakpoint.SVInsertion,
		breakpoint.SVDuplication,
		breakpoint.SVInversion,
	}, types)
	assert.Equal(t, breakpoint.OrientLeft, recs[0].Break1.Orient)
	assert.Equal(t, breakpoint.OrientLeft, recs[0].Break2.Orient)
	assert.True(t, recs[0].OpposingStrands)
	assert.Equal(t, breakpoint.OrientRight, recs[4].Break1.Orient)
	assert.Equal(t, breakpoint.OrientRight, recs[4].Break2.Orient)
}

func TestExpandCandidateBadRange(t *testing.T) {
	c := candidate{
		refName1: "1", refName2: "1",
		start1: 5, end1: 3,
		start2: 500, end2: 500,
	}
	_, err := expandCandidate(c, breakpoint.ProtocolGenome, false)
	require.Error(t, err)
}

func TestCollapseRecords(t *testing.T) {
	pair := pairOf(t,
		bpAt(t, "1", 100, 100, breakpoint.OrientLeft, breakpoint.StrandNS),
		bpAt(t, "1", 500, 500, breakpoint.OrientRight, breakpoint.StrandNS), false, false)
	del := breakpoint.Record{Pair: pair, EventType: breakpoint.SVDeletion}
	ins := breakpoint.Record{Pair: pair, EventType: breakpoint.SVInsertion}

	got := collapseRecords([]breakpoint.Record{del, ins, del})
	assert.Equal(t, []breakpoint.Record{del, ins}, got)

	// Untemplated sequence is part of the identity, call metadata is not.
	templated := del
	templated.UntemplatedSeq = "ACGT"
	got = collapseRecords([]breakpoint.Record{del, templated})
	assert.Len(t, got, 2)

	libB := del
	libB.Library = "libB"
	got = collapseRecords([]breakpoint.Record{del, libB})
	assert.Equal(t, []breakpoint.Record{del}, got)
}

func TestConvertEmptyInput(t *testing.T) {
	path, cleanup := writeTemp(t, "chimeras.bedpe", "")
	defer cleanup()

	recs, err := Convert(context.Background(), path, ToolChimerascan, breakpoint.ProtocolTranscriptome, false)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestReadTransAbyssFlavorSniff(t *testing.T) {
	fusion, err := readTransAbyss(strings.NewReader(taFusionHeader+
		"deletion\tchr5:1000|chr5:2000\tL,R\t+,+\n"), false)
	require.NoError(t, err)
	require.Len(t, fusion, 1)
	assert.Equal(t, 1000, fusion[0].start1)

	indel, err := readTransAbyss(strings.NewReader(taIndelHeader+
		"del\tchrX\t1500\t1600\t+\n"), false)
	require.NoError(t, err)
	require.Len(t, indel, 1)
	assert.Equal(t, 1601, indel[0].start2)
}
