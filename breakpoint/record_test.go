package breakpoint

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/interval"
)

func mustRecordPair(t *testing.T, b1, b2 Breakpoint, opposing bool) Pair {
	t.Helper()
	p, err := NewPair(b1, b2, opposing, false)
	expect.NoError(t, err)
	return p
}

func TestNewRecordValidation(t *testing.T) {
	del := mustRecordPair(t,
		mustBP(t, "1", 100, 100, OrientLeft, StrandNS),
		mustBP(t, "1", 500, 500, OrientRight, StrandNS), false)

	rec, err := NewRecord(del, SVDeletion, CallSplit, ProtocolGenome)
	expect.NoError(t, err)
	expect.EQ(t, rec.EventType, SVDeletion)

	_, err = NewRecord(del, SVInversion, CallSplit, ProtocolGenome)
	expect.True(t, errors.Cause(err) == ErrInvalidRearrangement)
	_, err = NewRecord(del, SVDuplication, CallSplit, ProtocolGenome)
	expect.True(t, errors.Cause(err) == ErrInvalidRearrangement)

	rec.FusionCoding = interval.Interval{Start: 100, End: 1}
	rec.HasFusionCoding = true
	expect.NotNil(t, rec.Validate())
}

func TestRecordRoundTrip(t *testing.T) {
	del := mustRecordPair(t,
		mustBP(t, "1", 100, 110, OrientLeft, StrandNS),
		mustBP(t, "1", 500, 500, OrientRight, StrandNS), false)
	del.UntemplatedSeq = "AGC"
	inv, err := NewPair(
		mustBP(t, "2", 1000, 1000, OrientLeft, StrandPos),
		mustBP(t, "2", 4000, 4100, OrientLeft, StrandNeg), true, true)
	expect.NoError(t, err)
	trans := mustRecordPair(t,
		mustBP(t, "3", 200, 200, OrientRight, StrandNS),
		mustBP(t, "7", 900, 900, OrientLeft, StrandNS), false)

	recs := []Record{
		{
			Pair:      del,
			EventType: SVDeletion,
			Method:    CallSplit,
			Protocol:  ProtocolGenome,
			Library:   "mock-A36971",
			Tools:     []string{"delly", "manta"},
			ID:        "mock-A36971.1",
		},
		{
			Pair:            inv,
			EventType:       SVInversion,
			Method:          CallContig,
			Protocol:        ProtocolTranscriptome,
			Library:         "mock-A47933",
			Tools:           []string{"transabyss"},
			Transcript1:     "GENE1-001",
			Transcript2:     "GENE2-001",
			FusionID:        "fusion-1",
			FusionCoding:    interval.Interval{Start: 1, End: 360},
			HasFusionCoding: true,
		},
		{
			Pair:      trans,
			EventType: SVTranslocation,
			Method:    CallInput,
			Protocol:  ProtocolGenome,
			Library:   "mock-A36971",
		},
	}
	for _, rec := range recs {
		expect.NoError(t, rec.Validate())
	}

	var buf bytes.Buffer
	expect.NoError(t, WriteRecords(&buf, recs))
	expect.True(t, strings.HasPrefix(buf.String(), "break1_chromosome\tbreak1_position_start\t"))

	got, err := ReadRecords(&buf)
	expect.NoError(t, err)
	expect.EQ(t, got, recs)
}

func TestWriteRecordsEmpty(t *testing.T) {
	var buf bytes.Buffer
	expect.NoError(t, WriteRecords(&buf, nil))
	expect.EQ(t, buf.String(), strings.Join(recordColumns, "\t")+"\n")

	got, err := ReadRecords(&buf)
	expect.NoError(t, err)
	expect.EQ(t, len(got), 0)
}

// testRow builds one data row in recordColumns order, starting from a valid
// deletion record and applying overrides keyed by column name.
func testRow(t *testing.T, overrides map[string]string) []string {
	t.Helper()
	defaults := map[string]string{
		"break1_chromosome":     "1",
		"break1_position_start": "100",
		"break1_position_end":   "100",
		"break1_orientation":    "L",
		"break1_strand":         "?",
		"break2_chromosome":     "1",
		"break2_position_start": "500",
		"break2_position_end":   "500",
		"break2_orientation":    "R",
		"break2_strand":         "?",
		"opposing_strands":      "false",
		"stranded":              "false",
		"event_type":            "deletion",
		"untemplated_seq":       "",
		"protocol":              "genome",
		"library":               "mock",
		"tools":                 "",
		"call_method":           "input",
		"product_id":            "",
		"transcript1":           "",
		"transcript2":           "",
		"fusion_sequence_fasta_id": "",
		"fusion_cdna_coding_start": "",
		"fusion_cdna_coding_end":   "",
	}
	for col := range overrides {
		if _, ok := defaults[col]; !ok {
			t.Fatalf("unknown column %q", col)
		}
	}
	row := make([]string, len(recordColumns))
	for i, col := range recordColumns {
		if v, ok := overrides[col]; ok {
			row[i] = v
		} else {
			row[i] = defaults[col]
		}
	}
	return row
}

func pairFile(header []string, rows ...[]string) string {
	lines := []string{strings.Join(header, "\t")}
	for _, row := range rows {
		lines = append(lines, strings.Join(row, "\t"))
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestReadRecordsHeaderChecks(t *testing.T) {
	// A missing standard column fails up front.
	var short []string
	for _, col := range recordColumns {
		if col != "event_type" {
			short = append(short, col)
		}
	}
	row := testRow(t, nil)
	_, err := ReadRecords(strings.NewReader(pairFile(short, row[:len(row)-1])))
	expect.NotNil(t, err)

	// Column order is free and unknown columns are ignored.
	reversed := make([]string, len(recordColumns))
	rrow := make([]string, len(row))
	for i, col := range recordColumns {
		reversed[len(recordColumns)-1-i] = col
		rrow[len(row)-1-i] = row[i]
	}
	extraHeader := append([]string{"annotation_notes"}, reversed...)
	extraRow := append([]string{"ignore me"}, rrow...)
	recs, err := ReadRecords(strings.NewReader(pairFile(extraHeader, extraRow)))
	expect.NoError(t, err)
	expect.EQ(t, len(recs), 1)
	expect.EQ(t, recs[0].Break1.Pos, interval.Point(100))
	expect.EQ(t, recs[0].EventType, SVDeletion)
}

func TestReadRecordsDefaults(t *testing.T) {
	in := pairFile(recordColumns,
		testRow(t, map[string]string{
			"opposing_strands": "False",
			"stranded":         "True",
			"untemplated_seq":  "None",
			"transcript1":      "None",
			"call_method":      "",
			"tools":            "delly; manta;",
			"product_id":       "None",
		}))
	recs, err := ReadRecords(strings.NewReader(in))
	expect.NoError(t, err)
	expect.EQ(t, len(recs), 1)
	rec := recs[0]
	expect.False(t, rec.OpposingStrands)
	expect.True(t, rec.Stranded)
	expect.EQ(t, rec.UntemplatedSeq, "")
	expect.EQ(t, rec.Transcript1, "")
	expect.EQ(t, rec.ID, "")
	expect.EQ(t, rec.Method, CallInput)
	expect.EQ(t, rec.Tools, []string{"delly", "manta"})
}

func TestReadRecordsRowErrors(t *testing.T) {
	bad := []map[string]string{
		{"break1_orientation": "Q"},
		{"break1_position_start": "0", "break1_position_end": "0"},
		{"break2_position_start": "600"},
		{"opposing_strands": "maybe"},
		{"event_type": "deltion"},
		{"protocol": "exome"},
		{"call_method": "psychic"},
		{"fusion_cdna_coding_start": "1"},
		{"fusion_cdna_coding_start": "x", "fusion_cdna_coding_end": "10"},
	}
	for _, overrides := range bad {
		in := pairFile(recordColumns, testRow(t, overrides))
		_, err := ReadRecords(strings.NewReader(in))
		expect.NotNil(t, err, "overrides %v", overrides)
		expect.HasSubstr(t, err.Error(), "line 2")
	}

	// Geometry that contradicts the stated event type is rejected.
	in := pairFile(recordColumns, testRow(t, map[string]string{"event_type": "inversion"}))
	_, err := ReadRecords(strings.NewReader(in))
	expect.True(t, errors.Cause(err) == ErrInvalidRearrangement)

	// So is an orientation pair with an inconsistent opposing flag.
	in = pairFile(recordColumns, testRow(t, map[string]string{"break2_orientation": "L", "opposing_strands": "false"}))
	_, err = ReadRecords(strings.NewReader(in))
	expect.True(t, errors.Cause(err) == ErrInvalidRearrangement)

	// The second row is still reported by line number.
	in = pairFile(recordColumns, testRow(t, nil), testRow(t, map[string]string{"event_type": "x"}))
	_, err = ReadRecords(strings.NewReader(in))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "line 3")
}

func TestReadRecordsFusionColumns(t *testing.T) {
	in := pairFile(recordColumns,
		testRow(t, map[string]string{
			"fusion_sequence_fasta_id": "fusion-7",
			"fusion_cdna_coding_start": "90",
			"fusion_cdna_coding_end":   "390",
		}))
	recs, err := ReadRecords(strings.NewReader(in))
	expect.NoError(t, err)
	expect.EQ(t, recs[0].FusionID, "fusion-7")
	expect.True(t, recs[0].HasFusionCoding)
	expect.EQ(t, recs[0].FusionCoding, interval.New(90, 390))
}
