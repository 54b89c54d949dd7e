package fiducial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// objectCorners returns the marker's model points: a square of the given
// side centred at the origin in the Z=0 plane, corner order matching the
// canonical image order (top-left first), X right, Y up.
func objectCorners(size float64) [4][3]float64 {
	h := size / 2
	return [4][3]float64{
		{-h, h, 0},
		{h, h, 0},
		{h, -h, 0},
		{-h, -h, 0},
	}
}

func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func norm3(a [3]float64) float64 {
	return math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
}

func scale3(a [3]float64, s float64) [3]float64 {
	return [3]float64{a[0] * s, a[1] * s, a[2] * s}
}

// rodriguesToMatrix converts an axis-angle rotation vector to its 3x3
// rotation matrix. Small angles use the first-order expansion.
func rodriguesToMatrix(r [3]float64) *mat.Dense {
	theta := norm3(r)
	if theta < 1e-12 {
		return mat.NewDense(3, 3, []float64{
			1, -r[2], r[1],
			r[2], 1, -r[0],
			-r[1], r[0], 1,
		})
	}
	kx, ky, kz := r[0]/theta, r[1]/theta, r[2]/theta
	c, s := math.Cos(theta), math.Sin(theta)
	cc := 1 - c
	return mat.NewDense(3, 3, []float64{
		c + kx*kx*cc, kx*ky*cc - kz*s, kx*kz*cc + ky*s,
		ky*kx*cc + kz*s, c + ky*ky*cc, ky*kz*cc - kx*s,
		kz*kx*cc - ky*s, kz*ky*cc + kx*s, c + kz*kz*cc,
	})
}

// rodriguesFromMatrix extracts the axis-angle vector from a rotation
// matrix. The near-zero branch reads the skew part directly; the
// near-pi branch recovers the axis from the diagonal and anchors the
// component signs at the largest axis entry, where the off-diagonal
// symmetric terms dominate.
func rodriguesFromMatrix(m *mat.Dense) [3]float64 {
	trace := m.At(0, 0) + m.At(1, 1) + m.At(2, 2)
	cosTheta := (trace - 1) / 2
	if cosTheta > 1 {
		cosTheta = 1
	} else if cosTheta < -1 {
		cosTheta = -1
	}
	theta := math.Acos(cosTheta)

	if theta < 1e-10 {
		return [3]float64{
			(m.At(2, 1) - m.At(1, 2)) / 2,
			(m.At(0, 2) - m.At(2, 0)) / 2,
			(m.At(1, 0) - m.At(0, 1)) / 2,
		}
	}

	if math.Pi-theta < 1e-6 {
		kx := math.Sqrt(math.Max((m.At(0, 0)+1)/2, 0))
		ky := math.Sqrt(math.Max((m.At(1, 1)+1)/2, 0))
		kz := math.Sqrt(math.Max((m.At(2, 2)+1)/2, 0))
		switch {
		case kx >= ky && kx >= kz:
			if m.At(0, 1) < 0 {
				ky = -ky
			}
			if m.At(0, 2) < 0 {
				kz = -kz
			}
		case ky >= kx && ky >= kz:
			if m.At(0, 1) < 0 {
				kx = -kx
			}
			if m.At(1, 2) < 0 {
				kz = -kz
			}
		default:
			if m.At(0, 2) < 0 {
				kx = -kx
			}
			if m.At(1, 2) < 0 {
				ky = -ky
			}
		}
		return [3]float64{kx * theta, ky * theta, kz * theta}
	}

	s := 2 * math.Sin(theta)
	return [3]float64{
		theta * (m.At(2, 1) - m.At(1, 2)) / s,
		theta * (m.At(0, 2) - m.At(2, 0)) / s,
		theta * (m.At(1, 0) - m.At(0, 1)) / s,
	}
}

// nearestRotation projects a 3x3 matrix onto the rotation group via SVD,
// flipping the last singular direction when the determinant comes out
// negative.
func nearestRotation(m *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return nil, fmt.Errorf("rotation SVD did not converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	var r mat.Dense
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		d := mat.NewDiagDense(3, []float64{1, 1, -1})
		var ud mat.Dense
		ud.Mul(&u, d)
		r.Mul(&ud, v.T())
	}
	return &r, nil
}

// solvePlanarPose computes an initial pose from the planar homography
// between the marker model and the undistorted, normalized image
// corners. The homography columns give the first two rotation columns
// and the translation up to a common scale; the scale sign is fixed by
// requiring positive depth.
func solvePlanarPose(corners [4]ImagePoint, in Intrinsics, markerSize float64) (rvec, tvec [3]float64, err error) {
	obj := objectCorners(markerSize)
	var src, dst [4]ImagePoint
	for i := 0; i < 4; i++ {
		src[i] = ImagePoint{X: obj[i][0], Y: obj[i][1]}
		x, y := in.normalize(corners[i])
		x, y = in.undistort(x, y)
		dst[i] = ImagePoint{X: x, Y: y}
	}
	h, err := homographyFromPoints(src, dst)
	if err != nil {
		return rvec, tvec, err
	}

	h1 := [3]float64{h.At(0, 0), h.At(1, 0), h.At(2, 0)}
	h2 := [3]float64{h.At(0, 1), h.At(1, 1), h.At(2, 1)}
	h3 := [3]float64{h.At(0, 2), h.At(1, 2), h.At(2, 2)}
	lambda := 2 / (norm3(h1) + norm3(h2))
	if lambda*h3[2] < 0 {
		lambda = -lambda
	}
	r1 := scale3(h1, lambda)
	r2 := scale3(h2, lambda)
	tvec = scale3(h3, lambda)
	r3 := cross3(r1, r2)

	rm := mat.NewDense(3, 3, []float64{
		r1[0], r2[0], r3[0],
		r1[1], r2[1], r3[1],
		r1[2], r2[2], r3[2],
	})
	rot, err := nearestRotation(rm)
	if err != nil {
		return rvec, tvec, err
	}
	return rodriguesFromMatrix(rot), tvec, nil
}

const (
	poseRefineIterations = 10
	poseRefineDelta      = 1e-6
)

// refinePoseGN polishes a pose with Gauss-Newton steps on the eight
// pixel reprojection residuals through the full distortion model. The
// Jacobian is central-difference; a step that fails to reduce the
// squared error ends the iteration.
func refinePoseGN(observed [4]ImagePoint, in Intrinsics, markerSize float64, rvec, tvec [3]float64) ([3]float64, [3]float64) {
	obj := objectCorners(markerSize)
	residual := func(p [6]float64) [8]float64 {
		rm := rodriguesToMatrix([3]float64{p[0], p[1], p[2]})
		var res [8]float64
		for i := 0; i < 4; i++ {
			o := obj[i]
			cx := rm.At(0, 0)*o[0] + rm.At(0, 1)*o[1] + rm.At(0, 2)*o[2] + p[3]
			cy := rm.At(1, 0)*o[0] + rm.At(1, 1)*o[1] + rm.At(1, 2)*o[2] + p[4]
			cz := rm.At(2, 0)*o[0] + rm.At(2, 1)*o[1] + rm.At(2, 2)*o[2] + p[5]
			pt := in.Project(cx, cy, cz)
			res[2*i] = pt.X - observed[i].X
			res[2*i+1] = pt.Y - observed[i].Y
		}
		return res
	}
	sse := func(r [8]float64) float64 {
		var s float64
		for _, v := range r {
			s += v * v
		}
		return s
	}

	p := [6]float64{rvec[0], rvec[1], rvec[2], tvec[0], tvec[1], tvec[2]}
	best := sse(residual(p))

	for iter := 0; iter < poseRefineIterations; iter++ {
		cur := residual(p)
		j := mat.NewDense(8, 6, nil)
		for k := 0; k < 6; k++ {
			pp, pm := p, p
			pp[k] += poseRefineDelta
			pm[k] -= poseRefineDelta
			rp, rm := residual(pp), residual(pm)
			for row := 0; row < 8; row++ {
				j.Set(row, k, (rp[row]-rm[row])/(2*poseRefineDelta))
			}
		}
		rhs := mat.NewVecDense(8, nil)
		for row, v := range cur {
			rhs.SetVec(row, -v)
		}
		var qr mat.QR
		qr.Factorize(j)
		var step mat.VecDense
		if err := qr.SolveVecTo(&step, false, rhs); err != nil {
			break
		}
		trial := p
		for k := 0; k < 6; k++ {
			trial[k] += step.AtVec(k)
		}
		s := sse(residual(trial))
		if s >= best {
			break
		}
		improved := best - s
		p = trial
		best = s
		if improved < 1e-12 {
			break
		}
	}
	return [3]float64{p[0], p[1], p[2]}, [3]float64{p[3], p[4], p[5]}
}

// estimatePose computes the 6-DoF pose of one marker from its canonical
// corners: homography decomposition for the initial estimate, then
// Gauss-Newton reprojection refinement.
func estimatePose(corners [4]ImagePoint, in Intrinsics, markerSize float64) (position, rotation [3]float64, err error) {
	rvec, tvec, err := solvePlanarPose(corners, in, markerSize)
	if err != nil {
		return position, rotation, err
	}
	rvec, tvec = refinePoseGN(corners, in, markerSize, rvec, tvec)
	return tvec, rvec, nil
}

// ComposeRotations returns the axis-angle vector of R(a)*R(b), so b is
// applied first.
func ComposeRotations(a, b [3]float64) [3]float64 {
	var m mat.Dense
	m.Mul(rodriguesToMatrix(a), rodriguesToMatrix(b))
	return rodriguesFromMatrix(&m)
}

// RotationBetween returns the geodesic angle in radians between two
// axis-angle rotations.
func RotationBetween(a, b [3]float64) float64 {
	ra := rodriguesToMatrix(a)
	rb := rodriguesToMatrix(b)
	var rel mat.Dense
	rel.Mul(ra, rb.T())
	c := (rel.At(0, 0) + rel.At(1, 1) + rel.At(2, 2) - 1) / 2
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}
