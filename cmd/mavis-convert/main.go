package main

// See doc.go for documentation
import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/config"
	"github.com/raonyguimaraes/mavis/svtools"
)

var (
	configPath = flag.String("config", "", "Library table (TSV); required")
	library    = flag.String("library", "", "Library the input files belong to; required")
	toolName   = flag.String("tool", "", "Tool that produced the input files; one of mavis, manta, delly, pindel, transabyss, chimerascan, defuse; required")
	outPath    = flag.String("out", "mavis-convert.tab", "Output pair file")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -config libraries.tsv -library NAME -tool TOOL [OPTIONS] [input ...]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Without positional inputs the library's inputs column is converted.\n")
	fmt.Fprintf(os.Stderr, "Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if *configPath == "" || *library == "" || *toolName == "" {
		log.Fatalf("-config, -library and -tool are required")
	}
	tool, err := svtools.ParseTool(*toolName)
	if err != nil {
		log.Fatalf("%v", err)
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
	inputs := flag.Args()
	if len(inputs) == 0 {
		inputs = lib.Inputs
	}
	if len(inputs) == 0 {
		log.Fatalf("no input files: pass them as arguments or fill the library's inputs column")
	}

	var recs []breakpoint.Record
	for _, path := range inputs {
		converted, err := svtools.Convert(ctx, path, tool, lib.Protocol, lib.StrandedBAM)
		if err != nil {
			log.Panicf("%v", err)
		}
		log.Printf("%s: %d breakpoint pairs", path, len(converted))
		recs = append(recs, converted...)
	}
	for i := range recs {
		recs[i].Library = lib.Name
		recs[i].ID = fmt.Sprintf("%s-%d", lib.Name, i+1)
	}
	if err := breakpoint.WriteRecordsPath(ctx, *outPath, recs); err != nil {
		log.Panicf("%v", err)
	}
	log.Printf("Wrote %d pairs to %s", len(recs), *outPath)
}
