package bam

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raonyguimaraes/mavis/breakpoint"
)

func eq(n int) sam.CigarOp  { return sam.NewCigarOp(sam.CigarEqual, n) }
func mm(n int) sam.CigarOp  { return sam.NewCigarOp(sam.CigarMismatch, n) }
func mat(n int) sam.CigarOp { return sam.NewCigarOp(sam.CigarMatch, n) }
func ins(n int) sam.CigarOp { return sam.NewCigarOp(sam.CigarInsertion, n) }
func del(n int) sam.CigarOp { return sam.NewCigarOp(sam.CigarDeletion, n) }
func sc(n int) sam.CigarOp  { return sam.NewCigarOp(sam.CigarSoftClipped, n) }

func TestConvertEventsLeft(t *testing.T) {
	got, shift, err := ConvertEventsToSoftClip(
		sam.Cigar{eq(10), del(10), eq(40)}, breakpoint.OrientLeft, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, sam.Cigar{eq(10), sc(40)}, got)
	assert.Equal(t, 0, shift)

	// The second deletion sits past the rebuilt anchor, the first does not.
	got, _, err = ConvertEventsToSoftClip(
		sam.Cigar{eq(4), del(10), eq(40), del(10), eq(6)}, breakpoint.OrientLeft, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, sam.Cigar{eq(4), del(10), eq(40), sc(6)}, got)

	// Small events within budget accumulate until they exceed it together.
	got, _, err = ConvertEventsToSoftClip(
		sam.Cigar{eq(10), del(6), ins(5), eq(35)}, breakpoint.OrientLeft, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, sam.Cigar{eq(10), sc(40)}, got)
}

func TestConvertEventsLeftAllMismatch(t *testing.T) {
	in := sam.Cigar{mm(10), del(10), mm(40)}
	got, shift, err := ConvertEventsToSoftClip(in, breakpoint.OrientLeft, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.Equal(t, 0, shift)
}

func TestConvertEventsRight(t *testing.T) {
	got, shift, err := ConvertEventsToSoftClip(
		sam.Cigar{eq(10), del(10), eq(40)}, breakpoint.OrientRight, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, sam.Cigar{sc(10), eq(40)}, got)
	assert.Equal(t, 20, shift)

	got, shift, err = ConvertEventsToSoftClip(
		sam.Cigar{eq(6), del(10), eq(40), del(10), eq(4)}, breakpoint.OrientRight, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, sam.Cigar{sc(6), eq(40), del(10), eq(4)}, got)
	assert.Equal(t, 16, shift)
}

func TestConvertEventsComplexAlignment(t *testing.T) {
	withM := sam.Cigar{
		mat(137), del(14823), mat(19), del(1), mat(5), ins(18), del(18),
		mat(16), ins(1), del(120), mat(22), sc(147),
	}
	_, _, err := ConvertEventsToSoftClip(withM, breakpoint.OrientLeft, 50, 50)
	require.Error(t, err)

	split := sam.Cigar{
		eq(137), del(14823), eq(19), del(1), eq(5), ins(18), del(18),
		eq(16), ins(1), del(120), eq(22), sc(147),
	}
	got, _, err := ConvertEventsToSoftClip(split, breakpoint.OrientLeft, 50, 50)
	require.NoError(t, err)
	assert.Equal(t, sam.Cigar{eq(137), sc(365 - 137)}, got)

	// With a 100 base anchor requirement the scan never clears the events.
	got, shift, err := ConvertEventsToSoftClip(split, breakpoint.OrientRight, 50, 100)
	require.NoError(t, err)
	assert.Equal(t, split, got)
	assert.Equal(t, 0, shift)
}

func TestConvertEventsMultiple(t *testing.T) {
	in := sam.Cigar{
		eq(18), mm(1), eq(30), del(8146), eq(10),
		del(62799), eq(28), del(2), eq(27), sc(77),
	}
	got, shift, err := ConvertEventsToSoftClip(in, breakpoint.OrientRight, 50, 50)
	require.NoError(t, err)
	assert.Equal(t, sam.Cigar{sc(59), eq(28), del(2), eq(27), sc(77)}, got)
	assert.Equal(t, CigarRefLen(in)-CigarRefLen(got), shift)
}

func TestConvertEventsLeftWithInsertions(t *testing.T) {
	in := sam.Cigar{
		sc(94), eq(1), mm(1), eq(10), mm(1), eq(4), ins(2), eq(40),
		ins(1), del(714), eq(7), ins(38), eq(1), mm(1),
		eq(17), del(1), eq(1), mm(1), eq(26), del(17), eq(10), sc(4),
	}
	want := sam.Cigar{
		sc(94), eq(1), mm(1), eq(10), mm(1), eq(4), ins(2), eq(40),
		sc(38 + 8 + 20 + 1 + 26 + 10 + 4),
	}
	got, _, err := ConvertEventsToSoftClip(in, breakpoint.OrientLeft, 50, 50)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestConvertEventsBadOrientation(t *testing.T) {
	_, _, err := ConvertEventsToSoftClip(sam.Cigar{eq(10)}, breakpoint.OrientNS, 5, 5)
	require.Error(t, err)
}

func TestMergeIndels(t *testing.T) {
	noEvents := sam.Cigar{eq(1)}
	assert.Equal(t, noEvents, MergeIndels(noEvents))
	noEvents = sam.Cigar{eq(1), mm(3), eq(10)}
	assert.Equal(t, noEvents, MergeIndels(noEvents))

	assert.Equal(t,
		sam.Cigar{eq(1), ins(2), del(1), eq(2)},
		MergeIndels(sam.Cigar{eq(1), del(1), ins(2), eq(2)}))

	ordered := sam.Cigar{eq(1), ins(2), del(1), eq(2)}
	assert.Equal(t, ordered, MergeIndels(ordered))

	assert.Equal(t,
		sam.Cigar{eq(1), ins(4), del(2), eq(2)},
		MergeIndels(sam.Cigar{eq(1), ins(2), del(1), ins(2), del(1), eq(2)}))
}

func TestMergeInternalEvents(t *testing.T) {
	tests := []struct {
		name         string
		in, want     sam.Cigar
		inner, outer int
	}{
		{
			name:  "mismatch and deletion kept by wide anchor",
			in:    sam.Cigar{eq(10), mm(2), eq(5), del(2), eq(10)},
			want:  sam.Cigar{eq(10), mm(2), eq(5), del(2), eq(10)},
			inner: 5, outer: 5,
		},
		{
			name:  "mismatch and deletion merged",
			in:    sam.Cigar{eq(10), mm(2), eq(5), del(2), eq(10)},
			want:  sam.Cigar{eq(10), ins(7), del(9), eq(10)},
			inner: 6, outer: 6,
		},
		{
			name:  "mismatch and insertion kept",
			in:    sam.Cigar{eq(10), mm(2), eq(5), ins(2), eq(10)},
			want:  sam.Cigar{eq(10), mm(2), eq(5), ins(2), eq(10)},
			inner: 5, outer: 5,
		},
		{
			name:  "mismatch and insertion merged",
			in:    sam.Cigar{eq(10), mm(2), eq(5), ins(2), eq(10)},
			want:  sam.Cigar{eq(10), ins(9), del(7), eq(10)},
			inner: 6, outer: 6,
		},
		{
			name:  "two insertions merged",
			in:    sam.Cigar{eq(10), ins(2), eq(5), ins(2), eq(10)},
			want:  sam.Cigar{eq(10), ins(9), del(5), eq(10)},
			inner: 6, outer: 6,
		},
		{
			name:  "two deletions merged",
			in:    sam.Cigar{eq(10), del(2), eq(5), del(2), eq(10)},
			want:  sam.Cigar{eq(10), ins(5), del(9), eq(10)},
			inner: 6, outer: 6,
		},
		{
			name:  "insertion and deletion merged",
			in:    sam.Cigar{eq(10), ins(2), eq(5), del(2), eq(10)},
			want:  sam.Cigar{eq(10), ins(7), del(7), eq(10)},
			inner: 6, outer: 6,
		},
		{
			name:  "adjacent matches joined",
			in:    sam.Cigar{eq(10), eq(10)},
			want:  sam.Cigar{eq(20)},
			inner: 10, outer: 10,
		},
		{
			name:  "leading mismatch untouched",
			in:    sam.Cigar{mm(10), eq(10)},
			want:  sam.Cigar{mm(10), eq(10)},
			inner: 10, outer: 10,
		},
		{
			name:  "single mismatch region untouched",
			in:    sam.Cigar{eq(10), mm(5), eq(10)},
			want:  sam.Cigar{eq(10), mm(5), eq(10)},
			inner: 10, outer: 10,
		},
		{
			name: "long suffix and prefix",
			in: sam.Cigar{
				sc(94), eq(1), mm(1), eq(10), mm(1), eq(4), ins(2), eq(40),
				ins(1), del(714), eq(7), ins(38), eq(1), mm(1),
				eq(17), del(1), eq(1), mm(1), eq(26), del(17), eq(10), sc(4),
			},
			want: sam.Cigar{
				sc(94), eq(1), mm(1), eq(10), mm(1), eq(4), ins(2), eq(40),
				ins(1 + 7 + 38 + 1 + 1 + 17 + 1 + 1),
				del(714 + 7 + 1 + 1 + 17 + 1 + 1 + 1),
				eq(26), del(17), eq(10), sc(4),
			},
			inner: 20, outer: 15,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, MergeInternalEvents(test.in, test.inner, test.outer))
		})
	}
}
