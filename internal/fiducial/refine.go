package fiducial

import "math"

// refineCorners nudges each corner towards the nearby gradient saddle
// with the iterative least-squares scheme standard for subpixel corner
// localization: every window pixel contributes the constraint that its
// intensity gradient is orthogonal to the vector from the corner to that
// pixel. Gaussian weighting keeps the fit anchored near the corner.
func refineCorners(g *GrayImage, corners [4]ImagePoint, p DetectorParams) [4]ImagePoint {
	out := corners
	win := p.CornerRefinementWinSize
	sigma := float64(win) / 2
	for ci := range out {
		c := out[ci]
		for iter := 0; iter < p.CornerRefinementMaxIterations; iter++ {
			var a11, a12, a22, b1, b2 float64
			for dy := -win; dy <= win; dy++ {
				for dx := -win; dx <= win; dx++ {
					px := c.X + float64(dx)
					py := c.Y + float64(dy)
					gx := (g.sampleBilinear(px+1, py) - g.sampleBilinear(px-1, py)) / 2
					gy := (g.sampleBilinear(px, py+1) - g.sampleBilinear(px, py-1)) / 2
					w := math.Exp(-float64(dx*dx+dy*dy) / (2 * sigma * sigma))
					a11 += w * gx * gx
					a12 += w * gx * gy
					a22 += w * gy * gy
					b1 += w * (gx*gx*px + gx*gy*py)
					b2 += w * (gx*gy*px + gy*gy*py)
				}
			}
			det := a11*a22 - a12*a12
			if math.Abs(det) < 1e-12 {
				break
			}
			nx := (a22*b1 - a12*b2) / det
			ny := (a11*b2 - a12*b1) / det
			moved := math.Hypot(nx-c.X, ny-c.Y)
			c = ImagePoint{X: nx, Y: ny}
			if moved < p.CornerRefinementMinAccuracy {
				break
			}
		}
		out[ci] = c
	}
	return out
}
