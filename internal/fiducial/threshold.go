package fiducial

import "math"

// integral is a summed-area table with one extra zero row and column so
// rectangle sums need no boundary branches.
type integral struct {
	sum []uint64
	w   int
	h   int
}

func newIntegral(g *GrayImage) *integral {
	w, h := g.Width, g.Height
	it := &integral{sum: make([]uint64, (w+1)*(h+1)), w: w, h: h}
	stride := w + 1
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(g.Pix[y*w+x])
			it.sum[(y+1)*stride+(x+1)] = it.sum[y*stride+(x+1)] + rowSum
		}
	}
	return it
}

// rectSum returns the pixel sum over the half-open rectangle
// [x0,x1) x [y0,y1).
func (it *integral) rectSum(x0, y0, x1, y1 int) uint64 {
	stride := it.w + 1
	return it.sum[y1*stride+x1] - it.sum[y0*stride+x1] -
		it.sum[y1*stride+x0] + it.sum[y0*stride+x0]
}

// adaptiveThreshold produces an inverted binary image: pixels at least
// `constant` darker than their local window mean become 255, everything
// else 0. Marker borders are dark on light, so foreground means
// candidate ink. Windows are clamped at the image edges; an even window
// size is bumped to the next odd value.
func adaptiveThreshold(g *GrayImage, winSize int, constant float64) *GrayImage {
	if winSize%2 == 0 {
		winSize++
	}
	r := winSize / 2
	it := newIntegral(g)
	out := &GrayImage{Pix: make([]uint8, len(g.Pix)), Width: g.Width, Height: g.Height}
	for y := 0; y < g.Height; y++ {
		y0 := y - r
		if y0 < 0 {
			y0 = 0
		}
		y1 := y + r + 1
		if y1 > g.Height {
			y1 = g.Height
		}
		for x := 0; x < g.Width; x++ {
			x0 := x - r
			if x0 < 0 {
				x0 = 0
			}
			x1 := x + r + 1
			if x1 > g.Width {
				x1 = g.Width
			}
			area := (x1 - x0) * (y1 - y0)
			mean := float64(it.rectSum(x0, y0, x1, y1)) / float64(area)
			if float64(g.Pix[y*g.Width+x]) <= mean-constant {
				out.Pix[y*g.Width+x] = 255
			}
		}
	}
	return out
}

// otsu computes the threshold maximizing between-class variance over an
// 8-bit patch, along with the patch mean and standard deviation. Pixels
// strictly above the returned threshold belong to the bright class.
func otsu(pix []uint8) (threshold int, mean, stddev float64) {
	var hist [256]int
	for _, v := range pix {
		hist[v]++
	}
	total := float64(len(pix))

	var sum float64
	for v, c := range hist {
		sum += float64(v) * float64(c)
	}
	mean = sum / total
	var variance float64
	for v, c := range hist {
		d := float64(v) - mean
		variance += d * d * float64(c)
	}
	stddev = math.Sqrt(variance / total)

	bestVar := -1.0
	var wB, sumB float64
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			threshold = t
		}
	}
	return threshold, mean, stddev
}
