package validate

import (
	"encoding/binary"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/unsafe"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
	"github.com/raonyguimaraes/mavis/encoding/bam"
	"github.com/raonyguimaraes/mavis/interval"
	"v.io/x/lib/vlog"
)

// ReadSource hands back the aligned reads overlapping a reference interval.
type ReadSource interface {
	// Fetch returns the records overlapping the 1-based closed interval iv
	// of the named reference.
	Fetch(refName string, iv interval.Interval) ([]*sam.Record, error)
}

// BAMReadSource reads evidence from an indexed BAM file.  It filters out
// secondary, supplementary and unmapped records and caps the records
// returned per fetch, protecting callers from pathologically deep pileups.
type BAMReadSource struct {
	Reader *bam.RegionReader
	// Limit caps the records returned per Fetch; 0 means unlimited.
	Limit int
}

var errFetchLimit = errors.New("fetch limit reached")

// Fetch implements ReadSource.
func (s *BAMReadSource) Fetch(refName string, iv interval.Interval) ([]*sam.Record, error) {
	var out []*sam.Record
	err := s.Reader.Fetch(refName, iv.Start-1, iv.End, func(rec *sam.Record) error {
		if !admitRecord(rec) {
			return nil
		}
		if s.Limit > 0 && len(out) >= s.Limit {
			return errFetchLimit
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		if errors.Cause(err) == errFetchLimit {
			vlog.VI(1).Infof("%s:%s: fetch capped at %d reads", refName, iv, s.Limit)
			return out, nil
		}
		return nil, err
	}
	return out, nil
}

func admitRecord(rec *sam.Record) bool {
	return !bam.IsUnmapped(rec) && bam.IsPrimary(rec)
}

// recordIdentity hashes the fields identifying one alignment of one read,
// so that a record fetched again for an overlapping window is recognized.
func recordIdentity(rec *sam.Record) uint64 {
	buf := make([]byte, 0, len(rec.Name)+10)
	buf = append(buf, unsafe.StringToBytes(rec.Name)...)
	var tail [10]byte
	binary.LittleEndian.PutUint16(tail[:2], uint16(rec.Flags))
	binary.LittleEndian.PutUint64(tail[2:], uint64(rec.Pos))
	buf = append(buf, tail[:]...)
	return seahash.Sum64(buf)
}

// Collect fetches the reads in every evidence window of ev from src and
// files them as split-read and flanking-pair support.  Windows may overlap;
// a record fetched more than once is considered once.  Read pairs are
// offered first as primary flanking evidence and, failing that, as evidence
// for the compatible event type.
func (ev *Evidence) Collect(src ReadSource) error {
	type target struct {
		refName string
		window  interval.Interval
	}
	targets := []target{
		{ev.Pair.Break1.RefName, ev.OuterWindow1},
		{ev.Pair.Break2.RefName, ev.OuterWindow2},
	}
	if ev.CompatibleType != breakpoint.SVUnknown {
		targets = append(targets,
			target{ev.Pair.Break1.RefName, ev.CompatibleWindow1},
			target{ev.Pair.Break2.RefName, ev.CompatibleWindow2})
	}
	var pool []*sam.Record
	seen := make(map[uint64]bool)
	for _, tgt := range targets {
		recs, err := src.Fetch(tgt.refName, tgt.window)
		if err != nil {
			return errors.Wrapf(err, "fetch %s:%s", tgt.refName, tgt.window)
		}
		for _, rec := range recs {
			id := recordIdentity(rec)
			if seen[id] {
				continue
			}
			seen[id] = true
			pool = append(pool, rec)
		}
	}

	byName := make(map[string][]*sam.Record)
	for _, rec := range pool {
		ev.AddSplitRead(rec, true)
		ev.AddSplitRead(rec, false)
		if bam.IsPaired(rec) && !bam.HasNoMappedMate(rec) {
			byName[rec.Name] = append(byName[rec.Name], rec)
		}
	}
	for _, rec := range pool {
		if !bam.IsRead1(rec) {
			continue
		}
		for _, mate := range byName[rec.Name] {
			if !bam.IsRead2(mate) || !matesOf(rec, mate) {
				continue
			}
			if !ev.AddFlankingPair(rec, mate) {
				ev.AddCompatibleFlankingPair(rec, mate)
			}
		}
	}
	vlog.VI(1).Infof("%s: %d split reads and %d+%d flanking pairs from %d records",
		ev.Pair, len(ev.Split1)+len(ev.Split2), len(ev.Flanking), len(ev.CompatibleFlanking), len(pool))
	return nil
}

// matesOf reports whether the two records are the two halves of one
// template, by each record's mate position pointing at the other.
func matesOf(read, mate *sam.Record) bool {
	if read.MatePos != mate.Pos || mate.MatePos != read.Pos {
		return false
	}
	if read.MateRef == nil || mate.Ref == nil || read.MateRef.Name() != mate.Ref.Name() {
		return false
	}
	if mate.MateRef == nil || read.Ref == nil || mate.MateRef.Name() != read.Ref.Name() {
		return false
	}
	return true
}
