package fiducial

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// buildHomographySystem fills the 8x9 direct linear transform system for
// four point correspondences src[i] -> dst[i].
func buildHomographySystem(src, dst [4]ImagePoint) *mat.Dense {
	a := mat.NewDense(8, 9, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y, -u})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y, -v})
	}
	return a
}

// homographyFromPoints computes the 3x3 projective map taking src[i] to
// dst[i]. The homography is the null vector of the DLT system, read off
// the last column of V; the system matrix is wide, so this needs the
// full SVD rather than the thin one.
func homographyFromPoints(src, dst [4]ImagePoint) (*mat.Dense, error) {
	a := buildHomographySystem(src, dst)
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, fmt.Errorf("homography SVD did not converge")
	}
	var v mat.Dense
	svd.VTo(&v)
	_, c := v.Dims()
	h := mat.Col(nil, c-1, &v)
	return mat.NewDense(3, 3, h), nil
}

// applyHomography maps p through h with a perspective divide.
func applyHomography(h *mat.Dense, p ImagePoint) ImagePoint {
	x := h.At(0, 0)*p.X + h.At(0, 1)*p.Y + h.At(0, 2)
	y := h.At(1, 0)*p.X + h.At(1, 1)*p.Y + h.At(1, 2)
	w := h.At(2, 0)*p.X + h.At(2, 1)*p.Y + h.At(2, 2)
	return ImagePoint{X: x / w, Y: y / w}
}
