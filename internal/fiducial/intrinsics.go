package fiducial

import "gonum.org/v1/gonum/mat"

// Intrinsics is the pinhole camera model with Brown-Conrady lens
// distortion. All pose math runs through this type.
type Intrinsics struct {
	Fx, Fy float64
	Cx, Cy float64
	// Distortion holds the five coefficients in the order
	// [r1, r2, t1, t2, r3]: two radial terms, both tangential terms,
	// then the third radial term.
	Distortion [5]float64
}

// NewIntrinsics assembles the camera model from its caller-facing parts.
// The third radial coefficient lands after the tangential pair.
func NewIntrinsics(focalLength, principalPoint [2]float64, radial [3]float64, tangential [2]float64) Intrinsics {
	return Intrinsics{
		Fx: focalLength[0],
		Fy: focalLength[1],
		Cx: principalPoint[0],
		Cy: principalPoint[1],
		Distortion: [5]float64{
			radial[0], radial[1],
			tangential[0], tangential[1],
			radial[2],
		},
	}
}

// Matrix returns the 3x3 intrinsic matrix
//
//	[fx  0 cx]
//	[ 0 fy cy]
//	[ 0  0  1]
func (in Intrinsics) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		in.Fx, 0, in.Cx,
		0, in.Fy, in.Cy,
		0, 0, 1,
	})
}

// normalize maps a pixel to normalized image coordinates.
func (in Intrinsics) normalize(p ImagePoint) (x, y float64) {
	return (p.X - in.Cx) / in.Fx, (p.Y - in.Cy) / in.Fy
}

// denormalize maps normalized image coordinates back to pixels.
func (in Intrinsics) denormalize(x, y float64) ImagePoint {
	return ImagePoint{X: x*in.Fx + in.Cx, Y: y*in.Fy + in.Cy}
}

// distort applies the forward Brown-Conrady model to normalized
// coordinates.
func (in Intrinsics) distort(x, y float64) (xd, yd float64) {
	k1 := in.Distortion[0]
	k2 := in.Distortion[1]
	p1 := in.Distortion[2]
	p2 := in.Distortion[3]
	k3 := in.Distortion[4]

	r2 := x*x + y*y
	radial := 1 + r2*(k1+r2*(k2+r2*k3))
	xd = x*radial + 2*p1*x*y + p2*(r2+2*x*x)
	yd = y*radial + p1*(r2+2*y*y) + 2*p2*x*y
	return xd, yd
}

const (
	undistortIterations = 10
	undistortTolerance  = 1e-14
)

// undistort inverts the forward model with Newton-Raphson iterations on
// normalized coordinates, starting from the distorted position. The
// Jacobian is analytic, so convergence is quadratic for the moderate
// distortion this model targets.
func (in Intrinsics) undistort(xd, yd float64) (x, y float64) {
	k1 := in.Distortion[0]
	k2 := in.Distortion[1]
	p1 := in.Distortion[2]
	p2 := in.Distortion[3]
	k3 := in.Distortion[4]

	x, y = xd, yd
	for i := 0; i < undistortIterations; i++ {
		r2 := x*x + y*y
		radial := 1 + r2*(k1+r2*(k2+r2*k3))
		// d(radial)/d(r2)
		dradial := k1 + r2*(2*k2+3*k3*r2)

		fx := x*radial + 2*p1*x*y + p2*(r2+2*x*x) - xd
		fy := y*radial + p1*(r2+2*y*y) + 2*p2*x*y - yd
		if fx*fx+fy*fy < undistortTolerance {
			break
		}

		j00 := radial + 2*x*x*dradial + 2*p1*y + 6*p2*x
		j01 := 2*x*y*dradial + 2*p1*x + 2*p2*y
		j10 := 2*x*y*dradial + 2*p1*x + 2*p2*y
		j11 := radial + 2*y*y*dradial + 6*p1*y + 2*p2*x

		det := j00*j11 - j01*j10
		if det == 0 {
			break
		}
		x -= (j11*fx - j01*fy) / det
		y -= (j00*fy - j10*fx) / det
	}
	return x, y
}

// UndistortPoint maps an observed pixel to its ideal pinhole position.
func (in Intrinsics) UndistortPoint(p ImagePoint) ImagePoint {
	x, y := in.normalize(p)
	x, y = in.undistort(x, y)
	return in.denormalize(x, y)
}

// Project maps a camera-space 3D point (Z forward) to its distorted
// pixel position. Points at or behind the camera plane yield whatever
// the perspective divide produces.
func (in Intrinsics) Project(x, y, z float64) ImagePoint {
	xd, yd := in.distort(x/z, y/z)
	return in.denormalize(xd, yd)
}
