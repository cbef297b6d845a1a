// Package fasta provides access to FASTA-formatted reference sequence,
// either fully in memory or random-access through a samtools faidx style
// index (http://www.htslib.org/doc/faidx.html). A FASTA file holds named
// sequences that may be wrapped over multiple lines:
//
//	>chr7
//	ACGTAC
//	GAGGAC
//	GCG
//	>chr8
//	ACGT
//
// A sequence name runs from '>' to the first space; any description after
// the space is dropped, so ">chr1 assembled" becomes "chr1".
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Fasta is a set of named sequences.
type Fasta interface {
	// Get returns the bases of the named sequence over the 0-based
	// half-open interval [start, end), upper-cased. Get is safe for
	// concurrent use.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the named sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns all sequence names in file order.
	SeqNames() []string
}

type memFasta struct {
	seqs     map[string]string
	seqNames []string
}

// New reads all FASTA data from r into memory.
func New(r io.Reader) (Fasta, error) {
	f := &memFasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<30)
	var (
		name string
		seq  strings.Builder
	)
	store := func() {
		f.seqs[name] = strings.ToUpper(seq.String())
		f.seqNames = append(f.seqNames, name)
		seq.Reset()
	}
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if name != "" {
				store()
			}
			name = strings.SplitN(line[1:], " ", 2)[0]
			continue
		}
		if name == "" {
			return nil, errors.New("malformed FASTA file: sequence data before the first header")
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read FASTA data")
	}
	if name == "" {
		return nil, errors.New("empty FASTA file")
	}
	store()
	return f, nil
}

func (f *memFasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end <= start {
		return "", errors.New("start must be less than end")
	}
	if end > uint64(len(s)) {
		return "", errors.Errorf("query range %d-%d past end of sequence %s with length %d",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

func (f *memFasta) Len(seqName string) (uint64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return uint64(len(s)), nil
}

func (f *memFasta) SeqNames() []string {
	return f.seqNames
}
