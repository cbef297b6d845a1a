package svtools

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/brentp/vcfgo"
	"github.com/pkg/errors"
	"github.com/raonyguimaraes/mavis/breakpoint"
)

// readVCF converts the VCF flavor shared by delly, manta, and pindel: one
// record per event, SVTYPE naming the label, the partner locus in either
// the BND breakend ALT or the CHR2/END INFO fields, and CIPOS/CIEND
// widening the breakends into ranges.
func readVCF(in io.Reader) ([]candidate, error) {
	rdr, err := vcfgo.NewReader(in, false)
	if err != nil {
		return nil, errors.Wrap(err, "vcf header")
	}
	var out []candidate
	for n := 1; ; n++ {
		variant := rdr.Read()
		if variant == nil {
			break
		}
		c, err := vcfCandidate(variant, n)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", variant.Chromosome, variant.Pos)
		}
		out = append(out, c)
	}
	return out, nil
}

func vcfCandidate(variant *vcfgo.Variant, row int) (candidate, error) {
	c := candidate{row: row, refName1: variant.Chromosome}
	pos := int(variant.Pos)

	svType, _ := infoString(variant, "SVTYPE")
	if svType != "" {
		types, err := EventTypes(svType)
		if err != nil {
			return candidate{}, err
		}
		c.eventTypes = types
	}

	c.refName2 = c.refName1
	end := pos
	if svType == "BND" {
		alt := variant.Alt()
		if len(alt) == 0 {
			return candidate{}, errors.New("svtools: breakend record without alt")
		}
		var err error
		if c.refName2, end, err = parseBreakend(alt[0]); err != nil {
			return candidate{}, err
		}
	} else {
		if chr2, ok := infoString(variant, "CHR2"); ok && chr2 != "" {
			c.refName2 = chr2
		}
		if v, ok := infoInt(variant, "END"); ok {
			end = v
		}
	}

	ciPos := infoIntPair(variant, "CIPOS")
	ciEnd := infoIntPair(variant, "CIEND")
	c.start1, c.end1 = pos+ciPos[0], pos+ciPos[1]
	c.start2, c.end2 = end+ciEnd[0], end+ciEnd[1]
	if c.start1 < 1 {
		c.start1 = 1
	}
	if c.start2 < 1 {
		c.start2 = 1
	}

	if ct, ok := infoString(variant, "CT"); ok {
		if o1, o2, ok := parseConnectionType(ct); ok {
			c.orient1, c.orient2 = o1, o2
		}
	}
	return c, nil
}

var breakendRe = regexp.MustCompile(`[\[\]]([^\[\]:]+):([0-9]+)[\[\]]`)

// parseBreakend extracts the partner locus from a breakend ALT such as
// A[2:321682[ or ]13:123456]T.
func parseBreakend(alt string) (string, int, error) {
	m := breakendRe.FindStringSubmatch(alt)
	if m == nil {
		return "", 0, errors.Errorf("svtools: unrecognized breakend alt %q", alt)
	}
	pos, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, errors.Errorf("svtools: unrecognized breakend alt %q", alt)
	}
	return m[1], pos, nil
}

// parseConnectionType reads delly's paired-end connection annotation, e.g.
// "3to5": the 3' end of a segment is retained approaching from the left,
// the 5' end from the right.  Unrecognized values are ignored rather than
// rejected since callers disagree on the field.
func parseConnectionType(ct string) (breakpoint.Orientation, breakpoint.Orientation, bool) {
	parts := strings.Split(ct, "to")
	if len(parts) != 2 {
		return 0, 0, false
	}
	o1, ok1 := connectionOrient(parts[0])
	o2, ok2 := connectionOrient(parts[1])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return o1, o2, true
}

func connectionOrient(s string) (breakpoint.Orientation, bool) {
	switch s {
	case "3":
		return breakpoint.OrientLeft, true
	case "5":
		return breakpoint.OrientRight, true
	case "N":
		return breakpoint.OrientNS, true
	}
	return breakpoint.OrientNS, false
}

func infoString(variant *vcfgo.Variant, key string) (string, bool) {
	raw, err := variant.Info().Get(key)
	if err != nil || raw == nil {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

func infoInt(variant *vcfgo.Variant, key string) (int, bool) {
	raw, err := variant.Info().Get(key)
	if err != nil || raw == nil {
		return 0, false
	}
	v := asInts(raw)
	if len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

// infoIntPair reads a two-element confidence interval, defaulting to a
// zero-width one.
func infoIntPair(variant *vcfgo.Variant, key string) [2]int {
	raw, err := variant.Info().Get(key)
	if err != nil || raw == nil {
		return [2]int{}
	}
	v := asInts(raw)
	if len(v) < 2 {
		return [2]int{}
	}
	return [2]int{v[0], v[1]}
}

// asInts coerces the types vcfgo hands back for integer INFO fields,
// including the raw string form seen when a file leaves the field
// undeclared in its header.
func asInts(raw interface{}) []int {
	switch v := raw.(type) {
	case int:
		return []int{v}
	case []int:
		return v
	case []interface{}:
		out := make([]int, 0, len(v))
		for _, e := range v {
			n, ok := e.(int)
			if !ok {
				return nil
			}
			out = append(out, n)
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil
			}
			out = append(out, n)
		}
		return out
	}
	return nil
}
