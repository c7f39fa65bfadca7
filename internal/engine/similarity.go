package engine

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// cosineSimilarity computes the r×r matrix of pairwise cosine similarities
// between the rows of m as an explicit two-stage pipeline: L2-normalize
// every row, then multiply by the transpose. Zero rows stay zero, so an
// item or user without any weight has similarity 0 to everything instead
// of tripping a division by zero.
//
// This is the O(n²·d) step of a fit and runs exactly once per snapshot,
// never per request.
func cosineSimilarity(m mat.Matrix) *mat.Dense {
	n := rowNormalized(m)
	var s mat.Dense
	s.Mul(n, n.T())
	return &s
}

// rowNormalized returns a copy of m with every nonzero row scaled to unit
// L2 norm.
func rowNormalized(m mat.Matrix) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, m)
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
		out.SetRow(i, row)
	}
	return out
}

// cosine is the similarity of two plain vectors, with the same zero-vector
// convention as the matrix form.
func cosine(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
