package breakpoint

import (
	"fmt"
)

// Orientation describes which side of a breakpoint is retained in the
// rearranged product.  Left means the sequence to the breakpoint's own left
// is kept and the partner continues rightward; Right is the mirror.  The
// zero value NS (not specified) acts as a wildcard.
type Orientation int8

const (
	OrientNS Orientation = iota
	OrientLeft
	OrientRight
)

var orientationChars = [...]string{"?", "L", "R"}

func (o Orientation) String() string { return orientationChars[o] }

// Matches reports whether the two orientations are compatible, with NS
// matching anything.
func (o Orientation) Matches(other Orientation) bool {
	return o == OrientNS || other == OrientNS || o == other
}

// Expand returns the concrete orientations o stands for.
func (o Orientation) Expand() []Orientation {
	if o == OrientNS {
		return []Orientation{OrientLeft, OrientRight}
	}
	return []Orientation{o}
}

// Opposite flips the orientation; NS stays NS.
func (o Orientation) Opposite() Orientation {
	switch o {
	case OrientLeft:
		return OrientRight
	case OrientRight:
		return OrientLeft
	}
	return OrientNS
}

// ParseOrientation converts the single-character form used in tabular input.
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "L":
		return OrientLeft, nil
	case "R":
		return OrientRight, nil
	case "?", "", "NS":
		return OrientNS, nil
	}
	return OrientNS, fmt.Errorf("breakpoint: invalid orientation %q", s)
}

// Strand is the reference strand a breakpoint (or read) belongs to.  The zero
// value NS acts as a wildcard.
type Strand int8

const (
	StrandNS Strand = iota
	StrandPos
	StrandNeg
)

var strandChars = [...]string{"?", "+", "-"}

func (s Strand) String() string { return strandChars[s] }

// Matches reports whether the two strands are compatible, with NS matching
// anything.
func (s Strand) Matches(other Strand) bool {
	return s == StrandNS || other == StrandNS || s == other
}

// Expand returns the concrete strands s stands for.
func (s Strand) Expand() []Strand {
	if s == StrandNS {
		return []Strand{StrandPos, StrandNeg}
	}
	return []Strand{s}
}

// Opposite flips the strand; NS stays NS.
func (s Strand) Opposite() Strand {
	switch s {
	case StrandPos:
		return StrandNeg
	case StrandNeg:
		return StrandPos
	}
	return StrandNS
}

// ParseStrand converts the single-character form used in tabular input.
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+":
		return StrandPos, nil
	case "-":
		return StrandNeg, nil
	case "?", "", "NS":
		return StrandNS, nil
	}
	return StrandNS, fmt.Errorf("breakpoint: invalid strand %q", s)
}

// SVType is the classification of a structural rearrangement.
type SVType int8

const (
	SVUnknown SVType = iota
	SVDeletion
	SVInsertion
	SVDuplication
	SVInversion
	SVTranslocation
	SVInvertedTranslocation
)

var svTypeNames = [...]string{
	"unknown",
	"deletion",
	"insertion",
	"duplication",
	"inversion",
	"translocation",
	"inverted translocation",
}

func (t SVType) String() string { return svTypeNames[t] }

// ParseSVType converts the long-form name used in tabular input.
func ParseSVType(s string) (SVType, error) {
	for i, name := range svTypeNames[1:] {
		if s == name {
			return SVType(i + 1), nil
		}
	}
	return SVUnknown, fmt.Errorf("breakpoint: invalid event type %q", s)
}

// CallMethod is the evidence tier used to resolve a breakpoint, ordered by
// descending confidence: contig, then split read, then flanking pair.  Input
// marks calls carried over verbatim from an upstream tool.
type CallMethod int8

const (
	CallContig CallMethod = iota
	CallSplit
	CallFlank
	CallInput
)

var callMethodNames = [...]string{"contig", "split reads", "flanking reads", "input"}

func (m CallMethod) String() string { return callMethodNames[m] }

// ParseCallMethod converts the long-form name used in tabular input.
func ParseCallMethod(s string) (CallMethod, error) {
	for i, name := range callMethodNames {
		if s == name {
			return CallMethod(i), nil
		}
	}
	return CallContig, fmt.Errorf("breakpoint: invalid call method %q", s)
}

// Protocol tags the sequencing source of a library: genome or transcriptome.
// The protocol decides whether intronic bases are free to traverse when
// building evidence windows and measuring fragment sizes.
type Protocol int8

const (
	ProtocolGenome Protocol = iota
	ProtocolTranscriptome
)

var protocolNames = [...]string{"genome", "transcriptome"}

func (p Protocol) String() string { return protocolNames[p] }

// ParseProtocol converts the long-form name used in tabular input.
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "genome":
		return ProtocolGenome, nil
	case "transcriptome":
		return ProtocolTranscriptome, nil
	}
	return ProtocolGenome, fmt.Errorf("breakpoint: invalid protocol %q", s)
}
