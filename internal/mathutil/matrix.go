package mathutil

// Vec is a float64 vector.
type Vec = []float64

// Mat is a 2D float64 matrix stored as row-major [][]float64.
type Mat = [][]float64

// NewMat creates a rows x cols matrix initialized to zero.
// All rows share one backing array.
func NewMat(rows, cols int) Mat {
	m := make(Mat, rows)
	data := make([]float64, rows*cols)
	for i := range m {
		m[i] = data[i*cols : (i+1)*cols]
	}
	return m
}

// NewVecFill creates a vector of length n filled with val.
func NewVecFill(n int, val float64) Vec {
	v := make(Vec, n)
	FillVec(v, val)
	return v
}

// FillVec fills all elements of an existing vector with val.
func FillVec(v Vec, val float64) {
	for i := range v {
		v[i] = val
	}
}

// CloneVec returns a copy of v.
func CloneVec(v Vec) Vec {
	out := make(Vec, len(v))
	copy(out, v)
	return out
}

// FloorVec stores max(src[i], floor) in dst.
func FloorVec(dst, src Vec, floor float64) {
	for i := range dst {
		if src[i] > floor {
			dst[i] = src[i]
		} else {
			dst[i] = floor
		}
	}
}

// CausalConvAdd adds the causal convolution of u with kernel g to dst:
// dst[k] += sum_{l<=k} u[l]*g[k-l].
// The kernel must be at least as long as dst.
func CausalConvAdd(dst, u, g Vec) {
	for k := range dst {
		s := 0.0
		for l := 0; l <= k; l++ {
			s += u[l] * g[k-l]
		}
		dst[k] += s
	}
}
