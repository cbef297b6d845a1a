// Package annotate models the gene annotations used to interpret structural
// variant breakpoints: genes, unspliced transcripts and their exons, the
// splicing patterns a transcript can produce, and the conversions between
// genomic and cDNA coordinates.
//
// Annotations are interned into a DB, which hands out dense integer IDs and
// answers positional overlap queries once frozen.  Transcripts can also be
// built standalone with NewTranscript, which is convenient for callers that
// only need splicing or coordinate math.
package annotate

import (
	"sort"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/interval"
)

// GeneID is a dense identifier for a gene interned in a DB.  Valid IDs start
// at 1; the zero value never refers to a gene.
type GeneID int32

// TranscriptID is a dense identifier for a transcript interned in a DB, with
// the same numbering scheme as GeneID.
type TranscriptID int32

const (
	invalidGeneID       = GeneID(0)
	invalidTranscriptID = TranscriptID(0)
)

// Exon is a single exon of an unspliced transcript.  The splice sites at its
// boundaries may be marked non-intact when a rearrangement abrogates them;
// splicing-pattern enumeration then routes around such sites.
type Exon struct {
	Pos interval.Interval
	// StartIntact and EndIntact report whether the splice sites at the
	// genomic start and end boundaries survive.  Both are true for
	// reference annotations.
	StartIntact bool
	EndIntact   bool
}

// NewExon returns an exon spanning [start, end] with both splice sites
// intact.
func NewExon(start, end int) Exon {
	return Exon{Pos: interval.New(start, end), StartIntact: true, EndIntact: true}
}

// DonorPos returns the genomic position of the exon's splice donor site for
// the given strand.  The donor sits at the transcription-downstream boundary,
// so a reverse strand donor is at the exon's genomic start.
func (e Exon) DonorPos(strand breakpoint.Strand) int {
	if strand == breakpoint.StrandNeg {
		return e.Pos.Start
	}
	return e.Pos.End
}

// AcceptorPos returns the genomic position of the exon's splice acceptor
// site for the given strand.
func (e Exon) AcceptorPos(strand breakpoint.Strand) int {
	if strand == breakpoint.StrandNeg {
		return e.Pos.End
	}
	return e.Pos.Start
}

// Gene is a named, strand specific region of a reference sequence owning zero
// or more transcripts.
type Gene struct {
	Name    string
	Aliases []string
	RefName string
	Pos     interval.Interval
	Strand  breakpoint.Strand

	// Transcripts lists the IDs of the transcripts attached to this gene,
	// in insertion order.
	Transcripts []TranscriptID
}

// Transcript is an unspliced (pre-mRNA) transcript: the ordered exons of one
// transcript model, before any splicing choice is made.  Spliced products are
// derived from it via SplicingPatterns and NewSplicedTranscript.
type Transcript struct {
	Name    string
	Gene    GeneID // zero when built without a gene
	RefName string
	Strand  breakpoint.Strand
	Pos     interval.Interval
	Exons   []Exon

	// Coding is the cDNA coding range when known.
	Coding    interval.Interval
	HasCoding bool
	// Best marks the annotation's preferred transcript for the gene.
	Best bool
}

// NewTranscript builds a standalone transcript from its exons.  Exons are
// sorted by genomic start and may not overlap one another; at least one exon
// is required.  The transcript span is the envelope of its exons.
func NewTranscript(name, refName string, strand breakpoint.Strand, exons []Exon) (*Transcript, error) {
	if len(exons) == 0 {
		return nil, errors.Errorf("transcript %s: at least one exon is required", name)
	}
	sorted := make([]Exon, len(exons))
	copy(sorted, exons)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Pos.Start < sorted[j].Pos.Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Pos.Start <= sorted[i-1].Pos.End {
			return nil, errors.Errorf("transcript %s: exons %s and %s overlap",
				name, sorted[i-1].Pos, sorted[i].Pos)
		}
	}
	return &Transcript{
		Name:    name,
		RefName: refName,
		Strand:  strand,
		Pos:     interval.New(sorted[0].Pos.Start, sorted[len(sorted)-1].Pos.End),
		Exons:   sorted,
	}, nil
}

// ExonNumber returns the 1-based rank of exon i in transcription order.  The
// first transcribed exon is number 1, which for a reverse strand transcript
// is the exon with the largest genomic coordinates.
func (t *Transcript) ExonNumber(i int) int {
	if t.Strand == breakpoint.StrandNeg {
		return len(t.Exons) - i
	}
	return i + 1
}

// DB interns genes and transcripts and answers positional overlap queries
// against them.  Additions go through AddGene and AddTranscript; Freeze
// builds the per-reference indexes, after which no additions are accepted.
type DB struct {
	geneNames map[string]GeneID
	genes     []*Gene

	transcriptNames map[string]TranscriptID
	transcripts     []*Transcript

	trees  map[string]*geneTree
	frozen bool
}

// NewDB creates an empty annotation database.
func NewDB() *DB {
	return &DB{
		geneNames:       map[string]GeneID{},
		genes:           []*Gene{{Name: "invalid"}},
		transcriptNames: map[string]TranscriptID{},
		transcripts:     []*Transcript{{Name: "invalid"}},
		trees:           map[string]*geneTree{},
	}
}

// Gene returns the record for a gene ID.
func (db *DB) Gene(id GeneID) *Gene { return db.genes[id] }

// Transcript returns the record for a transcript ID.
func (db *DB) Transcript(id TranscriptID) *Transcript { return db.transcripts[id] }

// GeneByName returns the gene with the given name, or nil.
func (db *DB) GeneByName(name string) *Gene {
	id, ok := db.geneNames[name]
	if !ok {
		return nil
	}
	return db.genes[id]
}

// TranscriptByName returns the transcript with the given name, or nil.
func (db *DB) TranscriptByName(name string) *Transcript {
	id, ok := db.transcriptNames[name]
	if !ok {
		return nil
	}
	return db.transcripts[id]
}

// NumGenes returns the number of interned genes.
func (db *DB) NumGenes() int { return len(db.genes) - 1 }

// NumTranscripts returns the number of interned transcripts.
func (db *DB) NumTranscripts() int { return len(db.transcripts) - 1 }

// GeneTranscripts resolves a gene's transcript IDs to records.
func (db *DB) GeneTranscripts(g *Gene) []*Transcript {
	out := make([]*Transcript, len(g.Transcripts))
	for i, id := range g.Transcripts {
		out[i] = db.transcripts[id]
	}
	return out
}

// AddGene interns a gene.  Gene names must be unique within the database.
func (db *DB) AddGene(name, refName string, start, end int, strand breakpoint.Strand, aliases ...string) (*Gene, error) {
	if db.frozen {
		log.Panicf("annotate: AddGene(%s) after Freeze", name)
	}
	if _, ok := db.geneNames[name]; ok {
		return nil, errors.Errorf("gene %s: duplicate gene name", name)
	}
	if start < 1 || end < start {
		return nil, errors.Errorf("gene %s: invalid range [%d, %d]", name, start, end)
	}
	id := GeneID(len(db.genes))
	g := &Gene{
		Name:    name,
		Aliases: aliases,
		RefName: refName,
		Pos:     interval.Interval{Start: start, End: end},
		Strand:  strand,
	}
	db.genes = append(db.genes, g)
	db.geneNames[name] = id
	return g, nil
}

// AddTranscript builds a transcript from exons, attaches it to g, and interns
// it.  The transcript inherits the gene's reference name and strand, and the
// gene's span widens to cover it if needed.
func (db *DB) AddTranscript(g *Gene, name string, exons []Exon) (*Transcript, error) {
	if db.frozen {
		log.Panicf("annotate: AddTranscript(%s) after Freeze", name)
	}
	gid := db.geneNames[g.Name]
	if gid == invalidGeneID {
		return nil, errors.Errorf("transcript %s: gene %s not in database", name, g.Name)
	}
	if _, ok := db.transcriptNames[name]; ok {
		return nil, errors.Errorf("transcript %s: duplicate transcript name", name)
	}
	t, err := NewTranscript(name, g.RefName, g.Strand, exons)
	if err != nil {
		return nil, err
	}
	t.Gene = gid
	g.Pos = interval.Span(g.Pos, t.Pos)
	tid := TranscriptID(len(db.transcripts))
	db.transcripts = append(db.transcripts, t)
	db.transcriptNames[name] = tid
	g.Transcripts = append(g.Transcripts, tid)
	return t, nil
}
