package util

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// matrix represents a 2 dimensional matrix.
type matrix struct {
	nRow, nCol int
	data       []int // row-major nRow*nCol array.
}

// newMatrix returns an n x m matrix.
func newMatrix(n, m int) (x matrix) {
	return matrix{
		nRow: n,
		nCol: m,
		data: make([]int, n*m),
	}
}

// String returns a string representation of a matrix.
func (m matrix) String() (r string) {
	maxLength := 0
	for _, d := range m.data {
		if l := len(strconv.Itoa(d)); l > maxLength {
			maxLength = l
		}
	}

	lines := []string{"\n"}
	for i := 0; i < m.nRow; i++ {
		var parts []string
		for j := 0; j < m.nCol; j++ {
			parts = append(parts, fmt.Sprintf("%0*s", maxLength, strconv.Itoa(m.data[i*m.nCol+j])))
		}
		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}

// Levenshtein computes the edit distance between two strings: the number of
// single-character insertions, deletions, and substitutions it takes to
// transform s1 into s2.  Each step in the transformation costs one distance
// point.  The inputs need not have equal lengths.
func Levenshtein(s1, s2 string) (distance int) {
	r1 := []byte(s1)
	r2 := []byte(s2)

	m := newMatrix(len(r1)+1, len(r2)+1)
	for i := 0; i <= len(r1); i++ {
		m.data[i*m.nCol] = i
	}
	for j := 0; j <= len(r2); j++ {
		m.data[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		for j := 1; j <= len(r2); j++ {
			diagonalValue := m.data[(i-1)*m.nCol+(j-1)]
			if r1[i-1] != r2[j-1] {
				diagonalValue++
			}
			downValue := m.data[(i-1)*m.nCol+j] + 1
			rightValue := m.data[i*m.nCol+(j-1)] + 1

			minValue := downValue
			if diagonalValue < minValue {
				minValue = diagonalValue
			}
			if rightValue < minValue {
				minValue = rightValue
			}
			m.data[i*m.nCol+j] = minValue
		}
	}
	return m.data[len(r1)*m.nCol+len(r2)]
}

// Closest returns the candidates with the smallest edit distance to word,
// sorted lexicographically, along with that distance.  An empty candidate
// list returns distance -1.
func Closest(word string, candidates []string) (best []string, distance int) {
	distance = -1
	for _, c := range candidates {
		d := Levenshtein(word, c)
		switch {
		case distance == -1 || d < distance:
			distance = d
			best = append(best[:0], c)
		case d == distance:
			best = append(best, c)
		}
	}
	sort.Strings(best)
	return best, distance
}

// DidYouMean formats a suggestion for an unrecognized name, for use in error
// messages.  It returns the empty string when no candidate is within maxDist
// edits.
func DidYouMean(word string, candidates []string, maxDist int) string {
	best, distance := Closest(word, candidates)
	if distance < 0 || distance > maxDist {
		return ""
	}
	return fmt.Sprintf("did you mean %s?", strings.Join(best, " or "))
}
