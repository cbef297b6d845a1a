package bam

import "github.com/grailbio/hts/sam"

// IsPaired returns true if the record is part of a read pair.
func IsPaired(record *sam.Record) bool {
	return record.Flags&sam.Paired != 0
}

// IsProperPair returns true if the record's pair aligned as the aligner expects.
func IsProperPair(record *sam.Record) bool {
	return record.Flags&sam.ProperPair != 0
}

// IsUnmapped returns true if the record is unmapped.
func IsUnmapped(record *sam.Record) bool {
	return record.Flags&sam.Unmapped != 0
}

// IsMateUnmapped returns true if the record's mate is unmapped.
func IsMateUnmapped(record *sam.Record) bool {
	return record.Flags&sam.MateUnmapped != 0
}

// IsReverse returns true if the record aligned to the reverse strand.
func IsReverse(record *sam.Record) bool {
	return record.Flags&sam.Reverse != 0
}

// IsMateReverse returns true if the record's mate aligned to the reverse strand.
func IsMateReverse(record *sam.Record) bool {
	return record.Flags&sam.MateReverse != 0
}

// IsRead1 returns true if the record is the first read of a pair.
func IsRead1(record *sam.Record) bool {
	return record.Flags&sam.Read1 != 0
}

// IsRead2 returns true if the record is the second read of a pair.
func IsRead2(record *sam.Record) bool {
	return record.Flags&sam.Read2 != 0
}

// IsSecondary returns true if the record is a secondary alignment.
func IsSecondary(record *sam.Record) bool {
	return record.Flags&sam.Secondary != 0
}

// IsQCFail returns true if the record failed platform quality checks.
func IsQCFail(record *sam.Record) bool {
	return record.Flags&sam.QCFail != 0
}

// IsDuplicate returns true if the record is marked as a duplicate.
func IsDuplicate(record *sam.Record) bool {
	return record.Flags&sam.Duplicate != 0
}

// IsSupplementary returns true if the record is a supplementary alignment.
func IsSupplementary(record *sam.Record) bool {
	return record.Flags&sam.Supplementary != 0
}

// IsPrimary returns true if the record is the primary alignment of its read.
func IsPrimary(record *sam.Record) bool {
	return record.Flags&(sam.Secondary|sam.Supplementary) == 0
}

// HasNoMappedMate returns true if record is unpaired or has an unmapped mate.
func HasNoMappedMate(record *sam.Record) bool {
	return (record.Flags&sam.Paired) == 0 || (record.Flags&sam.MateUnmapped) != 0
}

func isClip(t sam.CigarOpType) bool {
	return t == sam.CigarSoftClipped || t == sam.CigarHardClipped
}

// LeftClipDistance returns the number of clipped bases (soft or hard) at the
// left (alignment start) side of the record.
func LeftClipDistance(record *sam.Record) int {
	n := 0
	for _, co := range record.Cigar {
		if !isClip(co.Type()) {
			break
		}
		n += co.Len()
	}
	return n
}

// RightClipDistance returns the number of clipped bases (soft or hard) at
// the right (alignment end) side of the record.
func RightClipDistance(record *sam.Record) int {
	n := 0
	for i := len(record.Cigar) - 1; i >= 0; i-- {
		if !isClip(record.Cigar[i].Type()) {
			break
		}
		n += record.Cigar[i].Len()
	}
	return n
}

// LeadingSoftClip returns the length of the soft clip at the alignment
// start, zero when the alignment starts with an aligned base. A hard clip
// outside the soft clip is ignored.
func LeadingSoftClip(record *sam.Record) int {
	for _, co := range record.Cigar {
		switch co.Type() {
		case sam.CigarSoftClipped:
			return co.Len()
		case sam.CigarHardClipped:
		default:
			return 0
		}
	}
	return 0
}

// TrailingSoftClip returns the length of the soft clip at the alignment end.
func TrailingSoftClip(record *sam.Record) int {
	for i := len(record.Cigar) - 1; i >= 0; i-- {
		switch record.Cigar[i].Type() {
		case sam.CigarSoftClipped:
			return record.Cigar[i].Len()
		case sam.CigarHardClipped:
		default:
			return 0
		}
	}
	return 0
}

// FivePrimeClipDistance returns the clip distance at the 5' end of the
// read: the left side for a forward read, the right side for a reverse read.
func FivePrimeClipDistance(record *sam.Record) int {
	if IsReverse(record) {
		return RightClipDistance(record)
	}
	return LeftClipDistance(record)
}

// UnclippedStart returns the 0-based position of the first base of the
// read, including clipped bases. May be negative.
func UnclippedStart(record *sam.Record) int {
	return record.Pos - LeftClipDistance(record)
}

// UnclippedEnd returns the 0-based position of the last base of the read,
// including clipped bases.
func UnclippedEnd(record *sam.Record) int {
	return record.End() - 1 + RightClipDistance(record)
}

// UnclippedFivePrimePosition returns the unclipped 0-based position of the
// 5' end of the read.
func UnclippedFivePrimePosition(record *sam.Record) int {
	if IsReverse(record) {
		return UnclippedEnd(record)
	}
	return UnclippedStart(record)
}

// BaseAtPos returns the read base aligned to the given 0-based reference
// position. The bool result reports whether the position falls inside the
// aligned span of the read; a position covered by a deletion or skip
// returns a zero base and true.
func BaseAtPos(record *sam.Record, refPos int) (byte, bool) {
	if refPos < record.Pos {
		return 0, false
	}
	ref := record.Pos
	query := 0
	for _, co := range record.Cigar {
		consumes := co.Type().Consumes()
		if consumes.Reference == 1 && refPos < ref+co.Len() {
			if consumes.Query == 0 {
				return 0, true
			}
			return record.Seq.Expand()[query+refPos-ref], true
		}
		ref += co.Len() * consumes.Reference
		query += co.Len() * consumes.Query
	}
	return 0, false
}
