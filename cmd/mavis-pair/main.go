package main

// See doc.go for documentation
import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/annotate"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/encoding/fasta"
	"github.com/raonyguimaraes/mavis/pairing"
)

var (
	annotationsPath = flag.String("annotations", "", "Annotation GTF or transcript table for cross-protocol breakpoint projection")
	productsPath    = flag.String("products", "", "FASTA of predicted fusion product sequences")
	outPath         = flag.String("out", "mavis-pair.tab", "Output pairing table")

	contigDistance = flag.Int("contig-call-distance", pairing.DefaultOpts.ContigCallDistance, "Position tolerance for contig calls")
	splitDistance  = flag.Int("split-call-distance", pairing.DefaultOpts.SplitCallDistance, "Position tolerance for split-read calls")
	flankDistance  = flag.Int("flanking-call-distance", pairing.DefaultOpts.FlankingCallDistance, "Position tolerance for flanking-pair calls")
	inputDistance  = flag.Int("input-call-distance", pairing.DefaultOpts.InputCallDistance, "Position tolerance for converted input calls")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] calls.tab calls.tab ...\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() < 2 {
		log.Fatalf("at least two call set arguments are required")
	}
	ctx := vcontext.Background()
	var (
		db  *annotate.DB
		err error
	)
	if *annotationsPath != "" {
		if db, err = loadAnnotations(ctx, *annotationsPath); err != nil {
			log.Panicf("%v", err)
		}
	}
	products := pairing.NewProductSet()
	if *productsPath != "" {
		if err := loadProducts(ctx, products, *productsPath); err != nil {
			log.Panicf("%v", err)
		}
		log.Printf("%s: %d product sequences", *productsPath, products.Len())
	}
	var recs []breakpoint.Record
	for _, path := range flag.Args() {
		rs, err := breakpoint.ReadRecordsPath(ctx, path)
		if err != nil {
			log.Panicf("%v", err)
		}
		log.Printf("%s: %d calls", path, len(rs))
		recs = append(recs, rs...)
	}
	opts := pairing.Opts{
		ContigCallDistance:   *contigDistance,
		SplitCallDistance:    *splitDistance,
		FlankingCallDistance: *flankDistance,
		InputCallDistance:    *inputDistance,
	}
	pairs, err := pairing.PairRecords(opts, db, products, recs)
	if err != nil {
		log.Panicf("%v", err)
	}
	if err := writePairs(ctx, *outPath, pairs); err != nil {
		log.Panicf("%v", err)
	}
	nPaired := 0
	for _, partners := range pairs {
		if len(partners) > 0 {
			nPaired++
		}
	}
	log.Printf("%d of %d calls paired, written to %s", nPaired, len(pairs), *outPath)
}

// loadAnnotations routes on extension: *.gtf is parsed as GTF, everything
// else as the flat transcript table.
func loadAnnotations(ctx context.Context, path string) (*annotate.DB, error) {
	if strings.HasSuffix(strings.TrimSuffix(path, ".gz"), ".gtf") {
		return annotate.LoadGTF(ctx, path)
	}
	return annotate.LoadPath(ctx, path)
}

// loadProducts registers every sequence of the FASTA under its id.
func loadProducts(ctx context.Context, products *pairing.ProductSet, path string) error {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	r := io.Reader(in.Reader(ctx))
	if u := compress.NewReaderPath(r, path); u != nil {
		r = u
	}
	fa, err := fasta.New(r)
	if closeErr := in.Close(ctx); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrapf(err, "read products %s", path)
	}
	for _, name := range fa.SeqNames() {
		n, err := fa.Len(name)
		if err != nil {
			return err
		}
		seq, err := fa.Get(name, 0, n)
		if err != nil {
			return err
		}
		products.Add(name, seq)
	}
	return nil
}

// writePairs writes one row per product id with its semicolon-joined
// partners, in id order.
func writePairs(ctx context.Context, path string, pairs map[string][]string) error {
	ids := make([]string, 0, len(pairs))
	for id := range pairs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	w := tsv.NewWriter(out.Writer(ctx))
	w.WriteString("product_id")
	w.WriteString("paired_with")
	err = w.EndLine()
	for _, id := range ids {
		if err != nil {
			break
		}
		w.WriteString(id)
		w.WriteString(strings.Join(pairs[id], ";"))
		err = errors.Wrapf(w.EndLine(), "write pairing row %s", id)
	}
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		_ = out.Close(ctx)
		return errors.Wrapf(err, "%s", path)
	}
	return errors.Wrapf(out.Close(ctx), "close %s", path)
}
