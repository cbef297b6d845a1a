package pairing

import (
	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/unsafe"
	"github.com/pkg/errors"
)

// ProductSet holds predicted fusion product sequences keyed by their fasta
// id.  Sequences are fingerprinted on registration so that the many
// comparisons made during pairing reject unequal products without rereading
// them.
type ProductSet struct {
	seq map[string]string
	fp  map[string]uint64
}

// NewProductSet creates an empty product set.
func NewProductSet() *ProductSet {
	return &ProductSet{seq: map[string]string{}, fp: map[string]uint64{}}
}

// Add registers the product sequence for a fusion id, replacing any previous
// sequence under the same id.
func (p *ProductSet) Add(id, seq string) {
	p.seq[id] = seq
	p.fp[id] = farm.Fingerprint64(unsafe.StringToBytes(seq))
}

// Len returns the number of registered products.
func (p *ProductSet) Len() int {
	if p == nil {
		return 0
	}
	return len(p.seq)
}

// SameSequence reports whether two registered products have identical
// sequences.  Unregistered ids are an error.
func (p *ProductSet) SameSequence(idA, idB string) (bool, error) {
	if p == nil {
		return false, errors.Errorf("pairing: no product sequence for %s", idA)
	}
	fpA, ok := p.fp[idA]
	if !ok {
		return false, errors.Errorf("pairing: no product sequence for %s", idA)
	}
	fpB, ok := p.fp[idB]
	if !ok {
		return false, errors.Errorf("pairing: no product sequence for %s", idB)
	}
	if fpA != fpB {
		return false, nil
	}
	return p.seq[idA] == p.seq[idB], nil
}
