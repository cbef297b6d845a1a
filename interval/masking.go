package interval

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
)

// PosType is MaskSet's coordinate type.  int32 is wide enough since that is
// what BAM is limited to.
type PosType int32

const posTypeMax = math.MaxInt32

// MaskOpts defines the behavior of the mask-loading functions.
type MaskOpts struct {
	// SAMHeader enables ID-based lookup in addition to name-based lookup.
	SAMHeader *sam.Header
	// Invert causes the complement of the region-union to be kept.  The
	// complement extends down to position -1 at the beginning of each reference
	// and up to 2^31 - 2 inclusive at the end.  If SAMHeader is provided, any
	// reference mentioned there but absent from the input is fully included.
	Invert bool
	// BEDCoords interprets input rows as zero-based half-open [start, end)
	// instead of the default one-based fully-closed [start, end].
	BEDCoords bool
}

// MaskSet is a union of masked reference regions, stored per reference as a
// sorted length-2N sequence: element [2k] holds interval #k's 0-based start
// and [2k+1] its half-open end.  Touching and overlapping input rows are
// merged on load.  This layout keeps containment queries down to one binary
// search, and sequential queries cheaper still.
type MaskSet struct {
	// nameMap is keyed by reference name with disjoint-interval-set values.
	// Always initialized.
	nameMap map[string][]PosType
	// idMap is an optional slice of disjoint-interval-sets indexed by
	// sam.Header reference ID.  Only initialized when a SAMHeader was supplied.
	idMap [][]PosType
	// lastRefIntervals points at the disjoint-interval-set for the most
	// recently queried reference.
	lastRefIntervals []PosType
	// lastRefName is the name of the last queried-by-name reference.  If
	// nonempty, it is in sync with lastRefIntervals.
	lastRefName string
	// lastRefID is the ID of the last queried-by-ID reference.  If
	// nonnegative, it is in sync with lastRefIntervals.
	lastRefID int
	// lastPosPlus1 is 1 plus the last spot-queried position.
	lastPosPlus1 PosType
	// lastIdx is searchPosType(lastRefIntervals, lastPosPlus1), cached to
	// accelerate in-order queries.
	lastIdx int
	// isSequential is true while queries since the last reference change have
	// been in nondecreasing position order.
	isSequential bool
}

// MaskEntry is a single masked region with 0-based half-open coordinates.
type MaskEntry struct {
	RefName string
	Start0  PosType
	End     PosType
}

// searchPosType returns the index of x in a[], or the position where x would
// be inserted if x isn't in a (possibly len(a)).  Identical to
// sort.SearchInts, except for PosType.
func searchPosType(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// fwdsearchPosType checks a[idx], then a[idx+1], a[idx+3], a[idx+7], etc.,
// then binary-searches the remaining range.  Usually a better choice than
// searchPosType when iterating in order.
func fwdsearchPosType(a []PosType, x PosType, idx int) int {
	nextIncr := 1
	startIdx := idx
	endIdx := len(a)
	for idx < endIdx {
		if a[idx] >= x {
			endIdx = idx
			break
		}
		startIdx = idx + 1
		idx += nextIncr
		nextIncr *= 2
	}
	for startIdx < endIdx {
		midIdx := int(uint(startIdx+endIdx) >> 1)
		if a[midIdx] >= x {
			endIdx = midIdx
		} else {
			startIdx = midIdx + 1
		}
	}
	return startIdx
}

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any group of characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// ContainsByID checks whether the 0-based position pos is masked, with the
// reference specified by sam.Header ID.
func (u *MaskSet) ContainsByID(refID int, pos PosType) bool {
	posPlus1 := pos + 1
	if refID != u.lastRefID {
		u.lastRefID = refID
		u.lastRefName = ""
		// Errors out the usual way if the MaskSet was built without ID info.
		u.lastRefIntervals = u.idMap[refID]
		if u.lastRefIntervals == nil {
			return false
		}
		u.lastIdx = searchPosType(u.lastRefIntervals, posPlus1)
		u.lastPosPlus1 = posPlus1
		u.isSequential = true
		return u.lastIdx&1 == 1
	}
	if u.lastRefIntervals == nil {
		return false
	}
	if u.isSequential {
		if posPlus1 >= u.lastPosPlus1 {
			u.lastIdx = fwdsearchPosType(u.lastRefIntervals, posPlus1, u.lastIdx)
			u.lastPosPlus1 = posPlus1
			return u.lastIdx&1 == 1
		}
		u.isSequential = false
	}
	return searchPosType(u.lastRefIntervals, posPlus1)&1 == 1
}

// ContainsByName checks whether the 0-based position pos is masked, with the
// reference specified by name.
func (u *MaskSet) ContainsByName(refName string, pos PosType) bool {
	posPlus1 := pos + 1
	if refName != u.lastRefName {
		u.lastRefName = refName
		u.lastRefID = -1
		u.lastRefIntervals = u.nameMap[refName]
		if u.lastRefIntervals == nil {
			return false
		}
		u.lastIdx = searchPosType(u.lastRefIntervals, posPlus1)
		u.lastPosPlus1 = posPlus1
		u.isSequential = true
		return u.lastIdx&1 == 1
	}
	if u.lastRefIntervals == nil {
		return false
	}
	if u.isSequential {
		if posPlus1 >= u.lastPosPlus1 {
			u.lastIdx = fwdsearchPosType(u.lastRefIntervals, posPlus1, u.lastIdx)
			u.lastPosPlus1 = posPlus1
			return u.lastIdx&1 == 1
		}
		u.isSequential = false
	}
	return searchPosType(u.lastRefIntervals, posPlus1)&1 == 1
}

// OverlapsInterval checks whether any part of the 1-based closed interval iv
// on refName is masked.
func (u *MaskSet) OverlapsInterval(refName string, iv Interval) bool {
	intervals := u.nameMap[refName]
	if intervals == nil {
		return false
	}
	// Convert to 0-based half-open [iv.Start-1, iv.End).
	idx := searchPosType(intervals, PosType(iv.Start))
	if idx&1 == 1 {
		return true
	}
	return idx != len(intervals) && intervals[idx] < PosType(iv.End)
}

// ContainsInterval checks whether the whole 1-based closed interval iv on
// refName is masked.
func (u *MaskSet) ContainsInterval(refName string, iv Interval) bool {
	intervals := u.nameMap[refName]
	if intervals == nil {
		return false
	}
	idx := searchPosType(intervals, PosType(iv.Start))
	return idx&1 == 1 && PosType(iv.End) <= intervals[idx]
}

// UnmaskedSpans splits the 1-based closed interval iv into the maximal
// subintervals not covered by the mask, in ascending order.  A fully masked
// interval yields nil.
func (u *MaskSet) UnmaskedSpans(refName string, iv Interval) []Interval {
	intervals := u.nameMap[refName]
	if intervals == nil {
		return []Interval{iv}
	}
	var spans []Interval
	cur := PosType(iv.Start - 1) // 0-based cursor
	limit := PosType(iv.End)     // half-open limit
	idx := searchPosType(intervals, cur+1)
	for cur < limit {
		if idx&1 == 1 {
			// Inside a masked region; skip to its end.
			cur = intervals[idx]
			idx++
			continue
		}
		spanEnd := limit
		if idx != len(intervals) && intervals[idx] < limit {
			spanEnd = intervals[idx]
		}
		if spanEnd > cur {
			spans = append(spans, Interval{Start: int(cur) + 1, End: int(spanEnd)})
		}
		cur = spanEnd
		idx++
	}
	return spans
}

// Clone returns a new MaskSet sharing the interval data but with its own
// search state, for use by another goroutine.
func (u *MaskSet) Clone() (mask MaskSet) {
	mask.nameMap = u.nameMap
	mask.idMap = u.idMap
	mask.lastRefIntervals = nil
	mask.lastRefName = ""
	mask.lastRefID = -1
	return
}

func initMaskSet() (mask MaskSet) {
	mask.nameMap = make(map[string][]PosType)
	mask.lastRefName = ""
	mask.lastRefID = -1
	return
}

func (u *MaskSet) nameToIDData(header *sam.Header, invert bool) {
	samRefs := header.Refs()
	u.idMap = make([][]PosType, len(samRefs))
	for refID, ref := range samRefs {
		if refID != ref.ID() {
			panic("internal error: sam.Header ref.ID != array position")
		}
		refIntervals := u.nameMap[ref.Name()]
		if refIntervals != nil {
			u.idMap[refID] = refIntervals
		} else if invert {
			u.idMap[refID] = []PosType{-1, posTypeMax}
		}
	}
}

// NewMaskSetFromEntries builds a MaskSet from entries in any order, merging
// touching and overlapping regions and dropping empty ones.
func NewMaskSetFromEntries(entries []MaskEntry, opts MaskOpts) (mask MaskSet, err error) {
	mask = initMaskSet()
	sorted := make([]MaskEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].RefName != sorted[j].RefName {
			return sorted[i].RefName < sorted[j].RefName
		}
		return sorted[i].Start0 < sorted[j].Start0
	})

	prevRef := ""
	var prevStart, prevEnd PosType
	var refIntervals []PosType
	flush := func() {
		if prevRef == "" {
			return
		}
		if prevEnd != -1 {
			refIntervals = append(refIntervals, prevStart, prevEnd)
		}
		if opts.Invert {
			refIntervals = append(refIntervals, posTypeMax)
		}
		mask.nameMap[prevRef] = refIntervals
	}
	for _, entry := range sorted {
		if entry.Start0 < 0 {
			return mask, fmt.Errorf("interval.NewMaskSetFromEntries: negative start coordinate on %s", entry.RefName)
		}
		if entry.End < entry.Start0 || entry.End >= posTypeMax {
			return mask, fmt.Errorf("interval.NewMaskSetFromEntries: invalid coordinate pair [%d, %d)", entry.Start0, entry.End)
		}
		if prevRef != entry.RefName {
			flush()
			prevRef = entry.RefName
			refIntervals = []PosType{}
			if opts.Invert {
				refIntervals = append(refIntervals, -1)
			}
			if entry.End == entry.Start0 {
				// A zero-length entry still marks the reference as mentioned.
				prevStart = -1
				prevEnd = -1
				continue
			}
			prevStart = entry.Start0
			prevEnd = entry.End
			continue
		}
		if entry.End == entry.Start0 {
			continue
		}
		if entry.Start0 > prevEnd && prevEnd != -1 {
			refIntervals = append(refIntervals, prevStart, prevEnd)
			prevStart = entry.Start0
			prevEnd = entry.End
		} else if prevEnd == -1 {
			prevStart = entry.Start0
			prevEnd = entry.End
		} else if entry.End > prevEnd {
			prevEnd = entry.End
		}
	}
	flush()
	if opts.SAMHeader != nil {
		mask.nameToIDData(opts.SAMHeader, opts.Invert)
	}
	return mask, nil
}

// NewMaskSet loads masked regions from tabular text.  The default format is
// the masking-file layout: tab- or space-separated columns chr, start, end
// and optionally a region label, one-based fully-closed coordinates, an
// optional header row naming the columns, and #-prefixed comment lines.  With
// opts.BEDCoords the coordinate columns are read as zero-based half-open
// instead, matching BED.
func NewMaskSet(reader io.Reader, opts MaskOpts) (mask MaskSet, err error) {
	// Scanner does not handle very long lines unless an adequate buffer size
	// is specified in advance.  Masking rows are short.
	scanner := bufio.NewScanner(reader)
	var entries []MaskEntry
	var tokens [3][]byte
	lineIdx := 0
	totBases := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		if len(curLine) > 0 && curLine[0] == '#' {
			continue
		}
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 {
			continue
		}
		if nToken != 3 {
			return mask, fmt.Errorf("interval.NewMaskSet: line %d has fewer tokens than expected", lineIdx)
		}
		parsedStart, perr := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if perr != nil {
			// The first unparseable row may be the header; require the
			// conventional column names so typos surface instead of being
			// skipped.
			if len(entries) == 0 && strings.EqualFold(gunsafe.BytesToString(tokens[1]), "start") &&
				strings.EqualFold(gunsafe.BytesToString(tokens[2]), "end") {
				continue
			}
			return mask, fmt.Errorf("interval.NewMaskSet: unparseable start coordinate on line %d", lineIdx)
		}
		parsedEnd, perr := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if perr != nil {
			return mask, fmt.Errorf("interval.NewMaskSet: unparseable end coordinate on line %d", lineIdx)
		}
		if !opts.BEDCoords {
			parsedStart--
		}
		if parsedStart < 0 {
			return mask, fmt.Errorf("interval.NewMaskSet: start coordinate out of range on line %d", lineIdx)
		}
		if parsedEnd < parsedStart || parsedEnd >= posTypeMax {
			return mask, fmt.Errorf("interval.NewMaskSet: invalid coordinate pair on line %d", lineIdx)
		}
		entries = append(entries, MaskEntry{
			RefName: string(tokens[0]),
			Start0:  PosType(parsedStart),
			End:     PosType(parsedEnd),
		})
		totBases += parsedEnd - parsedStart
	}
	if err = scanner.Err(); err != nil {
		return mask, err
	}
	log.Printf("masking regions loaded, %d base(s) covered", totBases)
	return NewMaskSetFromEntries(entries, opts)
}

// NewMaskSetFromPath is a wrapper for NewMaskSet that takes a path, with
// transparent gzip decompression.
func NewMaskSetFromPath(path string, opts MaskOpts) (mask MaskSet, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewMaskSet(reader, opts)
}

// ParseRegionString parses a region string of one of the forms
//
//	[reference]:[1-based first pos]-[last pos]
//	[reference]:[1-based pos]
//	[reference]
//
// returning the reference name and a 1-based closed Interval.  The interval
// [1, 2^31-2] is returned when there is no positional restriction.
func ParseRegionString(region string) (refName string, iv Interval, err error) {
	if len(region) == 0 {
		return "", Interval{}, fmt.Errorf("interval.ParseRegionString: empty region string")
	}
	colonPos := strings.IndexByte(region, ':')
	if colonPos == -1 {
		return region, Interval{Start: 1, End: posTypeMax - 1}, nil
	}
	if colonPos == 0 {
		return "", Interval{}, fmt.Errorf("interval.ParseRegionString: empty reference name")
	}
	refName = region[:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos int
		if pos, err = strconv.Atoi(rangeStr); err != nil {
			return "", Interval{}, err
		}
		if pos <= 0 || pos >= posTypeMax {
			return "", Interval{}, fmt.Errorf("interval.ParseRegionString: position %v out of range", rangeStr)
		}
		return refName, Point(pos), nil
	}
	var start, end int
	if start, err = strconv.Atoi(rangeStr[:dashPos]); err != nil {
		return "", Interval{}, err
	}
	if end, err = strconv.Atoi(rangeStr[dashPos+1:]); err != nil {
		return "", Interval{}, err
	}
	if start <= 0 || end < start || end >= posTypeMax {
		return "", Interval{}, fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
	}
	return refName, Interval{Start: start, End: end}, nil
}
