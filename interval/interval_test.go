package interval

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
)

func TestIntervalBasics(t *testing.T) {
	iv := New(3, 10)
	expect.EQ(t, iv.Len(), 8)
	expect.EQ(t, iv.Center(), 6.5)
	expect.True(t, iv.Contains(3))
	expect.True(t, iv.Contains(10))
	expect.False(t, iv.Contains(11))
	expect.EQ(t, Point(7).Len(), 1)
	expect.EQ(t, iv.String(), "3-10")
	expect.EQ(t, Point(7).String(), "7")
}

func TestIntervalOverlapIntersect(t *testing.T) {
	tests := []struct {
		a, b     Interval
		overlaps bool
		isect    Interval
	}{
		{New(1, 10), New(5, 20), true, New(5, 10)},
		{New(5, 20), New(1, 10), true, New(5, 10)},
		{New(1, 10), New(10, 20), true, Point(10)},
		{New(1, 10), New(11, 20), false, Interval{}},
		{New(4, 4), New(1, 10), true, Point(4)},
	}
	for _, tt := range tests {
		expect.EQ(t, tt.a.Overlaps(tt.b), tt.overlaps)
		got, ok := tt.a.Intersect(tt.b)
		expect.EQ(t, ok, tt.overlaps)
		if ok {
			expect.EQ(t, got, tt.isect)
		}
	}
}

func TestIntervalUnion(t *testing.T) {
	got, err := New(1, 10).Union(New(5, 20))
	expect.NoError(t, err)
	expect.EQ(t, got, New(1, 20))

	// Adjacency counts.
	got, err = New(1, 10).Union(New(11, 20))
	expect.NoError(t, err)
	expect.EQ(t, got, New(1, 20))

	_, err = New(1, 10).Union(New(12, 20))
	expect.HasSubstr(t, err.Error(), "cannot union")
}

func TestIntervalDist(t *testing.T) {
	tests := []struct {
		a, b Interval
		want int
	}{
		{New(1, 10), New(5, 20), 0},
		{New(1, 10), New(11, 20), 1},
		{New(11, 20), New(1, 10), 1},
		{New(1, 10), New(15, 20), 5},
	}
	for _, tt := range tests {
		expect.EQ(t, tt.a.Dist(tt.b), tt.want)
	}
}

func TestSpan(t *testing.T) {
	expect.EQ(t, Span(New(5, 10), New(1, 2), New(25, 30)), New(1, 30))
	expect.EQ(t, Span(Point(7)), New(7, 7))
}

func TestConvertPos(t *testing.T) {
	// Three exonic blocks mapped onto a contiguous 1-based cDNA axis.
	src := []Interval{New(101, 200), New(301, 400), New(501, 600)}
	dst := []Interval{New(1, 100), New(101, 200), New(201, 300)}

	tests := []struct {
		pos     int
		reverse bool
		want    int
	}{
		{101, false, 1},
		{200, false, 100},
		{301, false, 101},
		{600, false, 300},
		{350, false, 150},
		// Reverse takes the offset from the source interval's end.
		{600, true, 201},
		{501, true, 300},
		{101, true, 100},
		{200, true, 1},
	}
	for _, tt := range tests {
		got, err := ConvertPos(src, dst, tt.pos, tt.reverse)
		expect.NoError(t, err)
		expect.EQ(t, got, tt.want)
	}

	for _, pos := range []int{100, 250, 601} {
		_, err := ConvertPos(src, dst, pos, false)
		expect.True(t, errors.Cause(err) == ErrPosNotMapped)
	}
}
