package pairing

import (
	"github.com/raonyguimaraes/mavis/breakpoint"
)

// Opts configures the distance tolerances used when comparing two calls,
// keyed by the tier each call was resolved at.  A comparison uses the larger
// of the two calls' tolerances.
type Opts struct {
	// ContigCallDistance, SplitCallDistance, FlankingCallDistance and
	// InputCallDistance are the maximum per-side differences, in bases,
	// tolerated between the positions of two calls at the named tier.
	ContigCallDistance   int
	SplitCallDistance    int
	FlankingCallDistance int
	InputCallDistance    int
}

// DefaultOpts defines the default tolerance values.
var DefaultOpts = Opts{
	SplitCallDistance: 10,
}

func (o Opts) distance(m breakpoint.CallMethod) int {
	switch m {
	case breakpoint.CallContig:
		return o.ContigCallDistance
	case breakpoint.CallSplit:
		return o.SplitCallDistance
	case breakpoint.CallFlank:
		return o.FlankingCallDistance
	}
	return o.InputCallDistance
}
