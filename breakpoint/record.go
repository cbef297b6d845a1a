package breakpoint

import (
	"context"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/interval"
)

// Record is a breakpoint pair annotated with the call metadata carried in
// tabular pair files: the event type and call method, the library and
// protocol the evidence came from, the tools that reported it, and the
// predicted fusion product when one was annotated.
type Record struct {
	Pair
	EventType SVType
	Method    CallMethod
	Protocol  Protocol
	Library   string
	// Tools lists the upstream callers that reported the event.
	Tools []string
	// ID is the product identifier assigned when the record was produced;
	// empty until a pipeline stage assigns one.
	ID string
	// Transcript1 and Transcript2 name the annotated transcripts at each
	// breakpoint; empty when none was assigned.
	Transcript1 string
	Transcript2 string
	// FusionID names the predicted fusion product sequence.  FusionCoding
	// holds the product's cDNA coding range when the product is coding;
	// HasFusionCoding distinguishes a missing range from a zero one.
	FusionID        string
	FusionCoding    interval.Interval
	HasFusionCoding bool
}

// NewRecord couples a pair with its event type, rejecting types the pair's
// geometry cannot produce.
func NewRecord(pair Pair, eventType SVType, method CallMethod, protocol Protocol) (Record, error) {
	rec := Record{Pair: pair, EventType: eventType, Method: method, Protocol: protocol}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Validate checks the record's internal consistency: the event type must be
// among the pair's classifications, and the fusion coding range, when
// present, must be a nonempty 1-based range.
func (r Record) Validate() error {
	if !ClassifySupports(r.Pair, r.EventType) {
		return errors.Wrapf(ErrInvalidRearrangement, "event type %s on pair %s", r.EventType, r.Pair)
	}
	if r.HasFusionCoding && (r.FusionCoding.Start < 1 || r.FusionCoding.End < r.FusionCoding.Start) {
		return errors.Errorf("breakpoint: invalid fusion coding range %s", r.FusionCoding)
	}
	return nil
}

// recordRow mirrors one line of the tabular pair format.  Optional integer
// columns stay strings so that absent values round-trip.
type recordRow struct {
	Break1Chrom  string `tsv:"break1_chromosome"`
	Break1Start  int    `tsv:"break1_position_start"`
	Break1End    int    `tsv:"break1_position_end"`
	Break1Orient string `tsv:"break1_orientation"`
	Break1Strand string `tsv:"break1_strand"`
	Break2Chrom  string `tsv:"break2_chromosome"`
	Break2Start  int    `tsv:"break2_position_start"`
	Break2End    int    `tsv:"break2_position_end"`
	Break2Orient string `tsv:"break2_orientation"`
	Break2Strand string `tsv:"break2_strand"`
	Opposing     string `tsv:"opposing_strands"`
	Stranded     string `tsv:"stranded"`
	EventType    string `tsv:"event_type"`
	Untemplated  string `tsv:"untemplated_seq"`
	Protocol     string `tsv:"protocol"`
	Library      string `tsv:"library"`
	Tools        string `tsv:"tools"`
	Method       string `tsv:"call_method"`
	ID           string `tsv:"product_id"`
	Transcript1  string `tsv:"transcript1"`
	Transcript2  string `tsv:"transcript2"`
	FusionID     string `tsv:"fusion_sequence_fasta_id"`
	CodingStart  string `tsv:"fusion_cdna_coding_start"`
	CodingEnd    string `tsv:"fusion_cdna_coding_end"`
}

var recordColumns = func() []string {
	typ := reflect.TypeOf(recordRow{})
	cols := make([]string, typ.NumField())
	for i := range cols {
		cols[i] = typ.Field(i).Tag.Get("tsv")
	}
	return cols
}()

// noneBlank maps the literal "None" written by older pair files to an empty
// value.
func noneBlank(s string) string {
	if s == "None" {
		return ""
	}
	return s
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, errors.Errorf("breakpoint: invalid boolean %q", s)
}

func parseOptionalInt(s string) (int, bool, error) {
	if s == "" || s == "None" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, errors.Errorf("breakpoint: invalid integer %q", s)
	}
	return v, true, nil
}

func splitTools(s string) []string {
	if s = noneBlank(s); s == "" {
		return nil
	}
	var tools []string
	for _, t := range strings.Split(s, ";") {
		if t = strings.TrimSpace(t); t != "" {
			tools = append(tools, t)
		}
	}
	return tools
}

func recordFromRow(row *recordRow) (Record, error) {
	o1, err := ParseOrientation(row.Break1Orient)
	if err != nil {
		return Record{}, err
	}
	s1, err := ParseStrand(row.Break1Strand)
	if err != nil {
		return Record{}, err
	}
	b1, err := New(row.Break1Chrom, row.Break1Start, row.Break1End, o1, s1)
	if err != nil {
		return Record{}, errors.Wrap(err, "break1")
	}
	o2, err := ParseOrientation(row.Break2Orient)
	if err != nil {
		return Record{}, err
	}
	s2, err := ParseStrand(row.Break2Strand)
	if err != nil {
		return Record{}, err
	}
	b2, err := New(row.Break2Chrom, row.Break2Start, row.Break2End, o2, s2)
	if err != nil {
		return Record{}, errors.Wrap(err, "break2")
	}
	opposing, err := parseFlag(row.Opposing)
	if err != nil {
		return Record{}, errors.Wrap(err, "opposing_strands")
	}
	stranded, err := parseFlag(row.Stranded)
	if err != nil {
		return Record{}, errors.Wrap(err, "stranded")
	}
	pair, err := NewPair(b1, b2, opposing, stranded)
	if err != nil {
		return Record{}, err
	}
	pair.UntemplatedSeq = noneBlank(row.Untemplated)
	eventType, err := ParseSVType(row.EventType)
	if err != nil {
		return Record{}, err
	}
	protocol, err := ParseProtocol(row.Protocol)
	if err != nil {
		return Record{}, err
	}
	// An absent call method marks calls carried over verbatim from input.
	method := CallInput
	if row.Method != "" {
		if method, err = ParseCallMethod(row.Method); err != nil {
			return Record{}, err
		}
	}
	rec := Record{
		Pair:        pair,
		EventType:   eventType,
		Method:      method,
		Protocol:    protocol,
		Library:     row.Library,
		Tools:       splitTools(row.Tools),
		ID:          noneBlank(row.ID),
		Transcript1: noneBlank(row.Transcript1),
		Transcript2: noneBlank(row.Transcript2),
		FusionID:    noneBlank(row.FusionID),
	}
	start, hasStart, err := parseOptionalInt(row.CodingStart)
	if err != nil {
		return Record{}, errors.Wrap(err, "fusion_cdna_coding_start")
	}
	end, hasEnd, err := parseOptionalInt(row.CodingEnd)
	if err != nil {
		return Record{}, errors.Wrap(err, "fusion_cdna_coding_end")
	}
	if hasStart != hasEnd {
		return Record{}, errors.New("breakpoint: fusion coding range needs both ends")
	}
	if hasStart {
		rec.FusionCoding = interval.Interval{Start: start, End: end}
		rec.HasFusionCoding = true
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ReadRecords parses tabular pair records from r.  The input must carry a
// header row naming every standard pair column; column order is free and
// extra columns are ignored.
func ReadRecords(r io.Reader) ([]Record, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	var (
		recs []Record
		row  recordRow
	)
	for line := 2; ; line++ {
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "pair record line %d", line)
		}
		rec, err := recordFromRow(&row)
		if err != nil {
			return nil, errors.Wrapf(err, "pair record line %d", line)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ReadRecordsPath reads pair records from path, transparently decompressing
// by extension.
func ReadRecordsPath(ctx context.Context, path string) ([]Record, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	recs, err := ReadRecords(r)
	if err != nil {
		_ = in.Close(ctx)
		return nil, errors.Wrapf(err, "%s", path)
	}
	if err := in.Close(ctx); err != nil {
		return nil, errors.Wrapf(err, "close %s", path)
	}
	return recs, nil
}

// WriteRecords writes recs in the standard tabular pair format, header line
// first.
func WriteRecords(w io.Writer, recs []Record) error {
	tw := tsv.NewWriter(w)
	for _, col := range recordColumns {
		tw.WriteString(col)
	}
	if err := tw.EndLine(); err != nil {
		return errors.Wrap(err, "write pair header")
	}
	for i := range recs {
		writeRecordRow(tw, &recs[i])
		if err := tw.EndLine(); err != nil {
			return errors.Wrapf(err, "write pair record %d", i+1)
		}
	}
	return tw.Flush()
}

func writeRecordRow(tw *tsv.Writer, r *Record) {
	tw.WriteString(r.Break1.RefName)
	tw.WriteInt64(int64(r.Break1.Pos.Start))
	tw.WriteInt64(int64(r.Break1.Pos.End))
	tw.WriteString(r.Break1.Orient.String())
	tw.WriteString(r.Break1.Strand.String())
	tw.WriteString(r.Break2.RefName)
	tw.WriteInt64(int64(r.Break2.Pos.Start))
	tw.WriteInt64(int64(r.Break2.Pos.End))
	tw.WriteString(r.Break2.Orient.String())
	tw.WriteString(r.Break2.Strand.String())
	tw.WriteString(strconv.FormatBool(r.OpposingStrands))
	tw.WriteString(strconv.FormatBool(r.Stranded))
	tw.WriteString(r.EventType.String())
	tw.WriteString(r.UntemplatedSeq)
	tw.WriteString(r.Protocol.String())
	tw.WriteString(r.Library)
	tw.WriteString(strings.Join(r.Tools, ";"))
	tw.WriteString(r.Method.String())
	tw.WriteString(r.ID)
	tw.WriteString(r.Transcript1)
	tw.WriteString(r.Transcript2)
	tw.WriteString(r.FusionID)
	if r.HasFusionCoding {
		tw.WriteInt64(int64(r.FusionCoding.Start))
		tw.WriteInt64(int64(r.FusionCoding.End))
	} else {
		tw.WriteString("")
		tw.WriteString("")
	}
}

// WriteRecordsPath writes pair records to path.
func WriteRecordsPath(ctx context.Context, path string, recs []Record) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	return errors.Wrapf(WriteRecords(out.Writer(ctx), recs), "%s", path)
}
