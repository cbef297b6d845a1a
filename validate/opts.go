package validate

// Opts configures evidence collection and event calling for one sequencing
// library.
type Opts struct {
	// ReadLength is the library's sequenced read length, in bases.
	ReadLength int

	// MedianFragmentSize and StdevFragmentSize describe the library's
	// fragment size distribution.
	MedianFragmentSize int
	StdevFragmentSize  int

	// StdevCount bounds the distribution: a fragment more than StdevCount
	// standard deviations above the median is considered abnormal.
	// MaxExpectedFragmentSize derives from it.
	StdevCount int

	// CallError pads evidence windows to absorb uncertainty in the input
	// breakpoint positions.
	CallError int

	// MinSplitsReadsResolution is the minimum number of split reads that
	// must agree on an exact position before a breakpoint is called at
	// split-read resolution.
	MinSplitsReadsResolution int

	// MinFlankingPairsResolution is the minimum number of flanking read
	// pairs required to call an event from the pair envelope alone.
	MinFlankingPairsResolution int

	// MinLinkingSplitReads is the number of split reads that must appear on
	// both sides of a split-read call, linking the two breakpoints.
	MinLinkingSplitReads int

	// MinMappingQuality drops fetched reads mapped below this quality.
	MinMappingQuality int

	// FetchReadsLimit caps the number of reads fetched per evidence window.
	FetchReadsLimit int
}

// DefaultOpts defines the default parameter values.
var DefaultOpts = Opts{
	StdevCount:                 3,
	CallError:                  10,
	MinSplitsReadsResolution:   3,
	MinFlankingPairsResolution: 10,
	MinLinkingSplitReads:       0,
	MinMappingQuality:          5,
	FetchReadsLimit:            10000,
}

// MaxExpectedFragmentSize is the largest fragment length still considered
// normal for the library, the median plus StdevCount standard deviations.
func (o Opts) MaxExpectedFragmentSize() int {
	return o.MedianFragmentSize + o.StdevCount*o.StdevFragmentSize
}
