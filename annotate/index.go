package annotate

import (
	itree "github.com/biogo/store/interval"
	"github.com/grailbio/base/log"
	"github.com/raonyguimaraes/mavis/interval"
)

// geneTree indexes the gene spans of one reference sequence.
type geneTree struct {
	itree.IntTree
}

// geneEntry places one gene in a geneTree.  Ranges are 0-based half open to
// match the tree's conventions.
type geneEntry struct {
	start, end int
	id         GeneID
}

func (e geneEntry) Overlap(b itree.IntRange) bool {
	return e.end > b.Start && e.start < b.End
}

func (e geneEntry) ID() uintptr { return uintptr(e.id) }

func (e geneEntry) Range() itree.IntRange {
	return itree.IntRange{Start: e.start, End: e.end}
}

// Freeze closes the database to further additions and builds the positional
// indexes behind the overlap queries.  Freezing twice is a no-op.
func (db *DB) Freeze() {
	if db.frozen {
		return
	}
	db.frozen = true
	for i, g := range db.genes[1:] {
		t := db.trees[g.RefName]
		if t == nil {
			t = &geneTree{}
			db.trees[g.RefName] = t
		}
		e := geneEntry{start: g.Pos.Start - 1, end: g.Pos.End, id: GeneID(i + 1)}
		if err := t.Insert(e, true); err != nil {
			log.Panicf("annotate: index gene %s: %v", g.Name, err)
		}
	}
	for _, t := range db.trees {
		t.AdjustRanges()
	}
}

// OverlappingGenes returns the genes on refName whose span overlaps iv.  The
// database must be frozen first.
func (db *DB) OverlappingGenes(refName string, iv interval.Interval) []*Gene {
	db.mustBeFrozen()
	t := db.trees[refName]
	if t == nil {
		return nil
	}
	q := geneEntry{start: iv.Start - 1, end: iv.End}
	var out []*Gene
	for _, hit := range t.Get(q) {
		out = append(out, db.genes[hit.(geneEntry).id])
	}
	return out
}

// OverlappingTranscripts returns the transcripts whose unspliced span
// overlaps iv on refName.
func (db *DB) OverlappingTranscripts(refName string, iv interval.Interval) []*Transcript {
	var out []*Transcript
	for _, g := range db.OverlappingGenes(refName, iv) {
		for _, tid := range g.Transcripts {
			tr := db.transcripts[tid]
			if tr.Pos.Overlaps(iv) {
				out = append(out, tr)
			}
		}
	}
	return out
}

func (db *DB) mustBeFrozen() {
	if !db.frozen {
		log.Panicf("annotate: positional query before Freeze")
	}
}
