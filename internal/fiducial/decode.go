package fiducial

import "github.com/parallax-data/fiducial/internal/fiducial/dict"

// warpPatch resamples the quad bounded by corners into a square canonical
// patch of the given side length. Patch pixels are sampled at their
// centres through the quad homography with bilinear interpolation.
func warpPatch(g *GrayImage, corners [4]ImagePoint, side int) ([]uint8, error) {
	s := float64(side)
	src := [4]ImagePoint{{0, 0}, {s, 0}, {s, s}, {0, s}}
	h, err := homographyFromPoints(src, corners)
	if err != nil {
		return nil, err
	}
	patch := make([]uint8, side*side)
	for py := 0; py < side; py++ {
		for px := 0; px < side; px++ {
			q := applyHomography(h, ImagePoint{X: float64(px) + 0.5, Y: float64(py) + 0.5})
			patch[py*side+px] = uint8(g.sampleBilinear(q.X, q.Y) + 0.5)
		}
	}
	return patch, nil
}

// cellBits reduces a canonical patch to one bit per cell by majority
// vote against the patch's Otsu threshold. A marginRate fraction of each
// cell edge is excluded from the vote. Low-contrast patches short-circuit
// to a uniform grid matching the patch mean.
func cellBits(patch []uint8, total, ppc int, marginRate, minStdDev float64) []bool {
	bits := make([]bool, total*total)
	thr, mean, stddev := otsu(patch)
	if stddev < minStdDev {
		if mean > 127 {
			for i := range bits {
				bits[i] = true
			}
		}
		return bits
	}
	side := total * ppc
	margin := int(marginRate * float64(ppc))
	for cr := 0; cr < total; cr++ {
		for cc := 0; cc < total; cc++ {
			white, count := 0, 0
			for y := cr*ppc + margin; y < (cr+1)*ppc-margin; y++ {
				for x := cc*ppc + margin; x < (cc+1)*ppc-margin; x++ {
					count++
					if int(patch[y*side+x]) > thr {
						white++
					}
				}
			}
			bits[cr*total+cc] = white*2 > count
		}
	}
	return bits
}

// countBorderErrors counts border-ring cells that voted white. The
// border of a valid marker is fully black.
func countBorderErrors(bits []bool, total, borderBits int) int {
	errs := 0
	for r := 0; r < total; r++ {
		for c := 0; c < total; c++ {
			inner := r >= borderBits && r < total-borderBits &&
				c >= borderBits && c < total-borderBits
			if !inner && bits[r*total+c] {
				errs++
			}
		}
	}
	return errs
}

// decodeCandidate warps one candidate quad, votes its cells, checks the
// black border and looks the inner word up in the dictionary with
// bounded error correction. On success it returns the marker id and the
// rotation needed to bring the observed corners into canonical order.
func decodeCandidate(g *GrayImage, corners [4]ImagePoint, d *dict.Dictionary, p DetectorParams) (id, rotation int, ok bool) {
	n := d.GridSize()
	total := n + 2*p.MarkerBorderBits
	side := total * p.PerspectiveRemovePixelPerCell

	patch, err := warpPatch(g, corners, side)
	if err != nil {
		return 0, 0, false
	}
	bits := cellBits(patch, total, p.PerspectiveRemovePixelPerCell,
		p.PerspectiveRemoveIgnoredMarginPerCell, p.MinOtsuStdDev)

	maxBorderErrs := int(float64(n*n) * p.MaxErroneousBitsInBorderRate)
	if countBorderErrors(bits, total, p.MarkerBorderBits) > maxBorderErrs {
		return 0, 0, false
	}

	inner := make([]bool, 0, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			inner = append(inner, bits[(r+p.MarkerBorderBits)*total+(c+p.MarkerBorderBits)])
		}
	}
	word := dict.WordFromCells(inner)
	maxCorrection := int(p.ErrorCorrectionRate * float64(d.MaxCorrectionBits()))
	return d.Identify(word, maxCorrection)
}

// canonicalCorners rotates an observed corner list so index 0 is the
// marker's canonical top-left corner.
func canonicalCorners(corners [4]ImagePoint, rotation int) [4]ImagePoint {
	var out [4]ImagePoint
	for j := 0; j < 4; j++ {
		out[j] = corners[(j+rotation)%4]
	}
	return out
}
