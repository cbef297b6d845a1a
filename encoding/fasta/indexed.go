package fasta

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// faiEntry is one line of a faidx index: sequence length, byte offset of
// the first base, bases per line, and bytes per line.
type faiEntry struct {
	name      string
	length    uint64
	offset    uint64
	lineBases uint64
	lineWidth uint64
}

func parseIndex(index io.Reader) ([]faiEntry, error) {
	var entries []faiEntry
	scanner := bufio.NewScanner(index)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			return nil, errors.Errorf("malformed index line %q", line)
		}
		ent := faiEntry{name: fields[0]}
		for i, dst := range []*uint64{&ent.length, &ent.offset, &ent.lineBases, &ent.lineWidth} {
			v, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "malformed index line %q", line)
			}
			*dst = v
		}
		entries = append(entries, ent)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read FASTA index")
	}
	return entries, nil
}

type indexedFasta struct {
	entries  map[string]faiEntry
	seqNames []string

	mu  sync.Mutex
	r   io.ReadSeeker
	buf []byte
}

// NewIndexed returns a Fasta that looks sequence ranges up through the
// given faidx index, reading only the bytes each Get needs.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Fasta, error) {
	entries, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	f := &indexedFasta{entries: make(map[string]faiEntry, len(entries)), r: fasta}
	for _, ent := range entries {
		f.entries[ent.name] = ent
		f.seqNames = append(f.seqNames, ent.name)
	}
	return f, nil
}

// FaiToReferenceLengths reads a faidx index and returns a map of reference
// name to reference length, without touching the FASTA data itself.
func FaiToReferenceLengths(index io.Reader) (map[string]uint64, error) {
	entries, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	lengths := make(map[string]uint64, len(entries))
	for _, ent := range entries {
		lengths[ent.name] = ent.length
	}
	return lengths, nil
}

func (f *indexedFasta) Get(seqName string, start, end uint64) (string, error) {
	ent, ok := f.entries[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found in index: %s", seqName)
	}
	if end <= start {
		return "", errors.New("start must be less than end")
	}
	if end > ent.length {
		return "", errors.Errorf("query range %d-%d past end of sequence %s with length %d",
			start, end, seqName, ent.length)
	}
	if ent.lineBases == 0 || ent.lineWidth < ent.lineBases {
		return "", errors.Errorf("index entry for %s has bad line geometry %d/%d",
			seqName, ent.lineBases, ent.lineWidth)
	}

	// Byte offsets of the first and last wanted base, counting the line
	// terminators between them.
	gap := ent.lineWidth - ent.lineBases
	begin := ent.offset + start + (start/ent.lineBases)*gap
	last := end - 1
	stop := ent.offset + last + (last/ent.lineBases)*gap + 1

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.r.Seek(int64(begin), io.SeekStart); err != nil {
		return "", errors.Wrapf(err, "seek to base %d of %s", start, seqName)
	}
	n := int(stop - begin)
	if cap(f.buf) < n {
		f.buf = make([]byte, n)
	}
	buf := f.buf[:n]
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return "", errors.Wrapf(err, "read %d bytes of %s (stale index?)", n, seqName)
	}
	k := 0
	for _, c := range buf {
		if c == '\n' || c == '\r' {
			continue
		}
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		buf[k] = c
		k++
	}
	if uint64(k) != end-start {
		return "", errors.Errorf("read %d bases of %s, want %d (stale index?)", k, seqName, end-start)
	}
	return string(buf[:k]), nil
}

func (f *indexedFasta) Len(seqName string) (uint64, error) {
	ent, ok := f.entries[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found in index: %s", seqName)
	}
	return ent.length, nil
}

func (f *indexedFasta) SeqNames() []string {
	return f.seqNames
}
