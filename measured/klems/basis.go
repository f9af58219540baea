package klems

import (
	"sort"

	"github.com/chewxy/math32"
)

// ThetaRow is one incident-elevation row of an angle basis.
type ThetaRow struct {
	CenterTheta   float32
	LowerTheta    float32
	UpperTheta    float32
	PhiCount      uint32
	PhiSolidAngle float32
}

// Basis is a Klems angle basis: a list of theta rows sorted by
// UpperTheta ascending, plus the permutation that maps an original
// (as-declared-in-XML) row index to its sorted position, and the
// linear offset of each row's first column/entry in a flattened
// Row/PhiCount-major storage.
type Basis struct {
	Rows    []ThetaRow
	Perm    []int    // Perm[originalIndex] = sortedIndex
	Offsets []uint32 // Offsets[sortedIndex] = cumulative PhiCount before this row
}

// NewBasis builds a sorted Basis from angle-basis rows in their
// as-declared XML order.
func NewBasis(rows []ThetaRow) *Basis {
	n := len(rows)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return rows[order[i]].UpperTheta < rows[order[j]].UpperTheta
	})

	sorted := make([]ThetaRow, n)
	perm := make([]int, n)
	for sortedIdx, origIdx := range order {
		sorted[sortedIdx] = rows[origIdx]
		perm[origIdx] = sortedIdx
	}

	offsets := make([]uint32, n)
	var acc uint32
	for i, r := range sorted {
		offsets[i] = acc
		acc += r.PhiCount
	}

	return &Basis{Rows: sorted, Perm: perm, Offsets: offsets}
}

// EntryCount is the total number of (theta,phi) direction slots in
// the basis — the dimension of any matrix indexed by it.
func (b *Basis) EntryCount() int {
	n := 0
	for _, r := range b.Rows {
		n += int(r.PhiCount)
	}
	return n
}

// solidAngle computes the per-phi-sector solid angle for a theta band
// [lower, upper) split into nPhi equal azimuthal sectors: the
// standard Klems-basis formula 2π(cosLower-cosUpper)/nPhi.
func solidAngle(lower, upper float32, nPhi uint32) float32 {
	if nPhi == 0 {
		return 0
	}
	return 2 * math32.Pi * (math32.Cos(lower) - math32.Cos(upper)) / float32(nPhi)
}
