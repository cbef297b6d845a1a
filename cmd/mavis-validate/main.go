package main

// See doc.go for documentation
import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/annotate"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/config"
	"github.com/raonyguimaraes/mavis/encoding/bam"
	"github.com/raonyguimaraes/mavis/encoding/fasta"
	"github.com/raonyguimaraes/mavis/interval"
	"github.com/raonyguimaraes/mavis/validate"
)

var (
	configPath      = flag.String("config", "", "Library table (TSV); required")
	library         = flag.String("library", "", "Library whose BAM the pairs are validated against; required")
	annotationsPath = flag.String("annotations", "", "Annotation GTF or transcript table; required for transcriptome libraries")
	maskingPath     = flag.String("masking", "", "Masked-region TSV or BED; pairs with a breakpoint in a masked region are skipped")
	referencePath   = flag.String("reference", "", "Reference FASTA; when set, BAM header contigs are checked against it")
	bamIndexPath    = flag.String("index", "", "BAM index path. Defaults to the library's bam_file + .bai")
	outPath         = flag.String("out", "mavis-validate.tab", "Output pair file")

	stdevCount    = flag.Int("stdev-count", validate.DefaultOpts.StdevCount, "Fragments more than this many standard deviations above the median are abnormal")
	callError     = flag.Int("call-error", validate.DefaultOpts.CallError, "Bases of positional uncertainty absorbed around each input breakpoint")
	minSplitReads = flag.Int("min-split-reads", validate.DefaultOpts.MinSplitsReadsResolution, "Split reads that must agree on a position for split-read resolution")
	minFlanking   = flag.Int("min-flanking-pairs", validate.DefaultOpts.MinFlankingPairsResolution, "Flanking pairs required to call from the pair envelope alone")
	minLinking    = flag.Int("min-linking-split-reads", validate.DefaultOpts.MinLinkingSplitReads, "Split reads that must link both sides of a split-read call")
	mapq          = flag.Int("mapq", validate.DefaultOpts.MinMappingQuality, "Reads with MAPQ below this level are skipped")
	fetchLimit    = flag.Int("fetch-limit", validate.DefaultOpts.FetchReadsLimit, "Reads fetched per evidence window; 0 = unlimited")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -config libraries.tsv -library NAME [OPTIONS] pairs.tab ...\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *configPath == "" || *library == "" {
		log.Fatalf("-config and -library are required")
	}
	if flag.NArg() == 0 {
		log.Fatalf("at least one pair file argument is required")
	}
	ctx := vcontext.Background()
	libs, err := config.ReadLibrariesPath(ctx, *configPath)
	if err != nil {
		log.Panicf("%v", err)
	}
	lib := config.Find(libs, *library)
	if lib == nil {
		log.Fatalf("library %s is not in %s", *library, *configPath)
	}
	opts := validate.Opts{
		ReadLength:                 lib.ReadLength,
		MedianFragmentSize:         lib.MedianFragmentSize,
		StdevFragmentSize:          lib.StdevFragmentSize,
		StdevCount:                 *stdevCount,
		CallError:                  *callError,
		MinSplitsReadsResolution:   *minSplitReads,
		MinFlankingPairsResolution: *minFlanking,
		MinLinkingSplitReads:       *minLinking,
		MinMappingQuality:          *mapq,
		FetchReadsLimit:            *fetchLimit,
	}

	var db *annotate.DB
	if lib.Protocol == breakpoint.ProtocolTranscriptome && *annotationsPath == "" {
		log.Fatalf("-annotations is required for transcriptome library %s", lib.Name)
	}
	if *annotationsPath != "" {
		if db, err = loadAnnotations(ctx, *annotationsPath); err != nil {
			log.Panicf("%v", err)
		}
	}

	reader, err := bam.NewRegionReader(ctx, lib.BAMFile, *bamIndexPath)
	if err != nil {
		log.Panicf("%v", err)
	}
	if *referencePath != "" {
		checkReference(ctx, *referencePath, reader.Header())
	}
	var mask interval.MaskSet
	masked := false
	if *maskingPath != "" {
		bed := strings.HasSuffix(strings.TrimSuffix(*maskingPath, ".gz"), ".bed")
		mask, err = interval.NewMaskSetFromPath(*maskingPath, interval.MaskOpts{
			SAMHeader: reader.Header(),
			BEDCoords: bed,
		})
		if err != nil {
			log.Panicf("%v", err)
		}
		masked = true
	}
	src := &validate.BAMReadSource{Reader: reader, Limit: opts.FetchReadsLimit}

	var recs []breakpoint.Record
	for _, path := range flag.Args() {
		rs, err := breakpoint.ReadRecordsPath(ctx, path)
		if err != nil {
			log.Panicf("%v", err)
		}
		log.Printf("%s: %d pairs", path, len(rs))
		recs = append(recs, rs...)
	}

	var (
		calls              []breakpoint.Record
		nProduct           int
		nMasked, nUncalled int
	)
	for _, rec := range recs {
		if masked && (mask.OverlapsInterval(rec.Break1.RefName, rec.Break1.Pos) ||
			mask.OverlapsInterval(rec.Break2.RefName, rec.Break2.Pos)) {
			log.Printf("%s: skipped, breakpoint in a masked region", rec.Pair)
			nMasked++
			continue
		}
		if !reader.HasRef(rec.Break1.RefName) || !reader.HasRef(rec.Break2.RefName) {
			log.Error.Printf("%s: no call: reference not in %s", rec.Pair, lib.BAMFile)
			nUncalled++
			continue
		}
		evCalls, err := callPair(rec.Pair, db, src, opts, lib.Protocol)
		if err != nil {
			log.Error.Printf("%s: no call: %v", rec.Pair, err)
			nUncalled++
			continue
		}
		for _, c := range evCalls {
			nProduct++
			log.Printf("%s: called %s by %s: %d/%d split reads, %d flanking pairs",
				rec.Pair, c.EventType, c.Method, len(c.Split1), len(c.Split2), len(c.Flanking))
			calls = append(calls, breakpoint.Record{
				Pair:      c.Pair,
				EventType: c.EventType,
				Method:    c.Method,
				Protocol:  lib.Protocol,
				Library:   lib.Name,
				Tools:     rec.Tools,
				ID:        fmt.Sprintf("%s-%d", lib.Name, nProduct),
			})
		}
	}
	if err := breakpoint.WriteRecordsPath(ctx, *outPath, calls); err != nil {
		log.Panicf("%v", err)
	}
	if err := reader.Close(ctx); err != nil {
		log.Panicf("%v", err)
	}
	log.Printf("%d calls from %d pairs (%d masked, %d uncalled) written to %s",
		len(calls), len(recs), nMasked, nUncalled, *outPath)
}

// loadAnnotations routes on extension: *.gtf is parsed as GTF, everything
// else as the flat transcript table.
func loadAnnotations(ctx context.Context, path string) (*annotate.DB, error) {
	if strings.HasSuffix(strings.TrimSuffix(path, ".gz"), ".gtf") {
		return annotate.LoadGTF(ctx, path)
	}
	return annotate.LoadPath(ctx, path)
}

func callPair(pair breakpoint.Pair, db *annotate.DB, src validate.ReadSource, opts validate.Opts, protocol breakpoint.Protocol) ([]*validate.EventCall, error) {
	var (
		ev  *validate.Evidence
		err error
	)
	if protocol == breakpoint.ProtocolTranscriptome {
		ev, err = validate.NewTranscriptomeEvidence(pair, db, opts)
	} else {
		ev, err = validate.NewGenomeEvidence(pair, opts)
	}
	if err != nil {
		return nil, err
	}
	if err := ev.Collect(src); err != nil {
		return nil, err
	}
	return validate.CallEvents(ev)
}

// checkReference verifies that every contig in the BAM header has the same
// length in the reference FASTA.
func checkReference(ctx context.Context, path string, header *sam.Header) {
	lengths, err := referenceLengths(ctx, path)
	if err != nil {
		log.Panicf("%v", err)
	}
	missing := 0
	for _, ref := range header.Refs() {
		n, ok := lengths[ref.Name()]
		if !ok {
			missing++
			continue
		}
		if n != uint64(ref.Len()) {
			log.Fatalf("inconsistent lengths for contig %s: %d in the BAM header, %d in %s",
				ref.Name(), ref.Len(), n, path)
		}
	}
	if missing != 0 {
		log.Printf("warning: %d contig(s) in the BAM header are missing from %s", missing, path)
	}
}

// referenceLengths reads sequence lengths from the FASTA's .fai index,
// generating the index in memory when none exists next to the file.
func referenceLengths(ctx context.Context, path string) (map[string]uint64, error) {
	if in, err := file.Open(ctx, path+".fai"); err == nil {
		lengths, err := fasta.FaiToReferenceLengths(in.Reader(ctx))
		if closeErr := in.Close(ctx); err == nil {
			err = closeErr
		}
		return lengths, err
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	r := io.Reader(in.Reader(ctx))
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	var buf bytes.Buffer
	err = fasta.GenerateIndex(&buf, r)
	if closeErr := in.Close(ctx); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, errors.Wrapf(err, "index %s", path)
	}
	return fasta.FaiToReferenceLengths(&buf)
}
