// Package svtools converts the output of supported structural variant
// callers into breakpoint pair records.
//
// Callers rarely report an event with the precision the pair model asks
// for: orientations and strands may be unknown, the reported type may stand
// for several classifications, and the strand relationship of the two ends
// is usually not stated at all.  Conversion therefore expands each input
// row into every breakpoint pair consistent with what the caller did say,
// drops the combinations that contradict themselves, and collapses
// duplicates.  A row that admits no consistent pair at all is an error.
package svtools

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
)

// Tool identifies a supported structural variant caller.
type Tool int8

const (
	// ToolMavis marks files already in the standard pair format.
	ToolMavis Tool = iota
	ToolManta
	ToolDelly
	ToolPindel
	ToolTransAbyss
	ToolChimerascan
	ToolDefuse
)

var toolNames = [...]string{"mavis", "manta", "delly", "pindel", "transabyss", "chimerascan", "defuse"}

func (t Tool) String() string { return toolNames[t] }

// ParseTool matches a caller name case-insensitively.
func ParseTool(s string) (Tool, error) {
	for i, name := range toolNames {
		if strings.EqualFold(s, name) {
			return Tool(i), nil
		}
	}
	return ToolMavis, fmt.Errorf("svtools: unsupported tool %q", s)
}

// EventTypes translates a caller's event type label into the
// classifications it stands for.  Standard long names translate to
// themselves so converted output can be fed back in; "translocation" is the
// exception, since the callers that use it do not distinguish the inverted
// form.
func EventTypes(label string) ([]breakpoint.SVType, error) {
	switch label {
	case "deletion", "DEL", "del":
		return []breakpoint.SVType{breakpoint.SVDeletion}, nil
	case "insertion", "INS", "ins", "RPL":
		return []breakpoint.SVType{breakpoint.SVInsertion}, nil
	case "duplication", "DUP", "dup", "DUP:TANDEM", "ITD", "ITX", "CNV", "eversion":
		return []breakpoint.SVType{breakpoint.SVDuplication}, nil
	case "inversion", "INV":
		return []breakpoint.SVType{breakpoint.SVInversion}, nil
	case "inverted translocation":
		return []breakpoint.SVType{breakpoint.SVInvertedTranslocation}, nil
	case "BND":
		return []breakpoint.SVType{breakpoint.SVTranslocation}, nil
	case "translocation", "CTX", "TRA", "interchromosomal":
		return []breakpoint.SVType{breakpoint.SVTranslocation, breakpoint.SVInvertedTranslocation}, nil
	}
	return nil, errors.Errorf("svtools: unrecognized event type label %q", label)
}
