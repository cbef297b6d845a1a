// Package pairing decides whether two breakpoint calls, possibly produced
// under different sequencing protocols, describe the same rearrangement.
// Same-protocol calls compare by position distance; cross-protocol calls
// compare predicted fusion products when both carry one, and otherwise
// project the genome call into transcript terms before measuring distance.
package pairing

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/annotate"
	"github.com/raonyguimaraes/mavis/breakpoint"
)

// EquivalentEvents reports whether two records describe the same
// rearrangement.  db resolves transcript names for cross-protocol
// projection and may be nil when no annotations are loaded; products is
// consulted only when both records name a fusion sequence.  The test is
// symmetric in a and b.
func EquivalentEvents(opts Opts, db *annotate.DB, products *ProductSet, a, b breakpoint.Record) (bool, error) {
	if a.EventType != b.EventType ||
		a.OpposingStrands != b.OpposingStrands ||
		a.Break1.RefName != b.Break1.RefName ||
		a.Break2.RefName != b.Break2.RefName ||
		!a.Break1.Orient.Matches(b.Break1.Orient) ||
		!a.Break2.Orient.Matches(b.Break2.Orient) ||
		!a.Break1.Strand.Matches(b.Break1.Strand) ||
		!a.Break2.Strand.Matches(b.Break2.Strand) {
		return false, nil
	}
	d := opts.distance(a.Method)
	if bd := opts.distance(b.Method); bd > d {
		d = bd
	}
	if a.Protocol == b.Protocol {
		return withinDistance(a.Break1, b.Break1, d) && withinDistance(a.Break2, b.Break2, d), nil
	}
	if a.FusionID != "" && b.FusionID != "" {
		return sameFusionProduct(products, a, b)
	}
	genome, trans := a, b
	if a.Protocol == breakpoint.ProtocolTranscriptome {
		genome, trans = b, a
	}
	if !sideEquivalent(db, d, genome.Break1, trans.Break1, genome.Transcript1, trans.Transcript1) {
		return false, nil
	}
	return sideEquivalent(db, d, genome.Break2, trans.Break2, genome.Transcript2, trans.Transcript2), nil
}

// sameFusionProduct compares two predicted fusion products: the sequences
// must be identical and the cDNA coding ranges claimed over them must
// overlap.
func sameFusionProduct(products *ProductSet, a, b breakpoint.Record) (bool, error) {
	same, err := products.SameSequence(a.FusionID, b.FusionID)
	if err != nil || !same {
		return false, err
	}
	if a.HasFusionCoding != b.HasFusionCoding {
		return false, nil
	}
	if a.HasFusionCoding && !a.FusionCoding.Overlaps(b.FusionCoding) {
		return false, nil
	}
	return true, nil
}

// sideEquivalent compares one breakpoint side of a genome call against the
// same side of a transcriptome call.  When both records name the same known
// transcript the genome breakpoint is projected through it and any candidate
// within tolerance matches; differing names never match; without a usable
// transcript the plain distance rule applies.
func sideEquivalent(db *annotate.DB, d int, genomeBP, transBP breakpoint.Breakpoint, genomeTx, transTx string) bool {
	if genomeTx == "" || transTx == "" {
		return withinDistance(genomeBP, transBP, d)
	}
	if genomeTx != transTx {
		return false
	}
	var tx *annotate.Transcript
	if db != nil {
		tx = db.TranscriptByName(genomeTx)
	}
	if tx == nil {
		return withinDistance(genomeBP, transBP, d)
	}
	candidates, err := PredictTranscriptomeBreakpoint(genomeBP, tx)
	if err != nil {
		return false
	}
	for _, c := range candidates {
		if withinDistance(c, transBP, d) {
			return true
		}
	}
	return false
}

func withinDistance(a, b breakpoint.Breakpoint, d int) bool {
	return abs(a.Pos.Start-b.Pos.Start) <= d && abs(a.Pos.End-b.Pos.End) <= d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// PairRecords compares every record against the records of the other
// libraries and returns, keyed by product id, the sorted ids of its
// equivalent partners.  Every record must carry a unique product id; ids
// with no partners map to an empty list.
func PairRecords(opts Opts, db *annotate.DB, products *ProductSet, recs []breakpoint.Record) (map[string][]string, error) {
	seen := make(map[string]int, len(recs))
	for i := range recs {
		id := recs[i].ID
		if id == "" {
			return nil, errors.Errorf("pairing: record %d has no product id", i)
		}
		if j, ok := seen[id]; ok {
			return nil, errors.Errorf("pairing: records %d and %d share product id %s", j, i, id)
		}
		seen[id] = i
	}
	pairs := make(map[string][]string, len(recs))
	for i := range recs {
		pairs[recs[i].ID] = nil
	}
	for i := range recs {
		for j := i + 1; j < len(recs); j++ {
			if recs[i].Library == recs[j].Library {
				continue
			}
			ok, err := EquivalentEvents(opts, db, products, recs[i], recs[j])
			if err != nil {
				return nil, errors.Wrapf(err, "pairing %s with %s", recs[i].ID, recs[j].ID)
			}
			if ok {
				pairs[recs[i].ID] = append(pairs[recs[i].ID], recs[j].ID)
				pairs[recs[j].ID] = append(pairs[recs[j].ID], recs[i].ID)
			}
		}
	}
	for id := range pairs {
		sort.Strings(pairs[id])
	}
	return pairs, nil
}
