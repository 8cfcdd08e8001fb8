// Package vectorizer converts feature dicts and text into sparse numeric
// vectors with stable, fit-once vocabularies.
package vectorizer

// SparseVector is a sparse feature vector of dimension Dim with non-zero
// Values at Indices.
type SparseVector struct {
	Indices []int
	Values  []float64
	Dim     int
}

// Dot returns the dot product of v with a dense weight vector.
func (v SparseVector) Dot(w []float64) float64 {
	sum := 0.0
	for i, idx := range v.Indices {
		if idx < len(w) {
			sum += v.Values[i] * w[idx]
		}
	}
	return sum
}

// NNZ returns the number of stored non-zero entries.
func (v SparseVector) NNZ() int {
	return len(v.Indices)
}

// ConcatSparse concatenates sparse vectors into one, offsetting indices by
// the dimensions of the preceding blocks.
func ConcatSparse(vectors []SparseVector) SparseVector {
	totalDim := 0
	totalNNZ := 0
	for _, v := range vectors {
		totalDim += v.Dim
		totalNNZ += len(v.Indices)
	}

	out := SparseVector{
		Indices: make([]int, 0, totalNNZ),
		Values:  make([]float64, 0, totalNNZ),
		Dim:     totalDim,
	}
	offset := 0
	for _, v := range vectors {
		for i, idx := range v.Indices {
			out.Indices = append(out.Indices, offset+idx)
			out.Values = append(out.Values, v.Values[i])
		}
		offset += v.Dim
	}
	return out
}
