package fiducial

import "math"

// Moore neighborhood in clockwise order for y-down image coordinates:
// E, SE, S, SW, W, NW, N, NE.
var (
	mooreDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	mooreDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// dirFromDelta maps a king-move delta to its direction index,
// indexed [dy+1][dx+1]. The centre entry is unused.
var dirFromDelta = [3][3]int{
	{5, 6, 7},
	{4, -1, 0},
	{3, 2, 1},
}

// findContours labels 8-connected foreground components of an inverted
// binary image and returns the outer boundary of every component with at
// least minPixels pixels, traced clockwise from its topmost-leftmost
// pixel. Hole boundaries are not traced; only the outer edge of a marker
// border ring matters downstream.
func findContours(bin *GrayImage, minPixels int) [][]ImagePoint {
	w, h := bin.Width, bin.Height
	labels := make([]int32, w*h)
	var contours [][]ImagePoint
	var next int32
	var stack []int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if bin.Pix[idx] == 0 || labels[idx] != 0 {
				continue
			}
			// Row-major scan means this seed is the component's topmost
			// pixel, leftmost within that row.
			next++
			label := next
			labels[idx] = label
			stack = append(stack[:0], idx)
			count := 0
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				count++
				px, py := p%w, p/w
				for d := 0; d < 8; d++ {
					nx, ny := px+mooreDX[d], py+mooreDY[d]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := ny*w + nx
					if bin.Pix[n] != 0 && labels[n] == 0 {
						labels[n] = label
						stack = append(stack, n)
					}
				}
			}
			if count < minPixels {
				continue
			}
			contours = append(contours, traceBoundary(labels, w, h, label, x, y))
		}
	}
	return contours
}

// traceBoundary walks the outer boundary of one labeled component with
// Moore-neighbor tracing. The anchor is the topmost-leftmost component
// pixel, so its west neighbour is provably background and serves as the
// initial backtrack. Termination: the walk state is (position,
// backtrack direction); the trace stops when the initial state recurs.
func traceBoundary(labels []int32, w, h int, label int32, startX, startY int) []ImagePoint {
	contour := []ImagePoint{{X: float64(startX), Y: float64(startY)}}
	cx, cy := startX, startY
	backtrackDir := 4 // W
	maxSteps := 4 * w * h

	for steps := 0; steps < maxSteps; steps++ {
		found := -1
		for i := 0; i < 8; i++ {
			d := (backtrackDir + 1 + i) % 8
			nx, ny := cx+mooreDX[d], cy+mooreDY[d]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if labels[ny*w+nx] == label {
				found = d
				break
			}
		}
		if found < 0 {
			break // isolated pixel
		}
		prev := (found + 7) % 8
		bx := cx + mooreDX[prev]
		by := cy + mooreDY[prev]
		cx += mooreDX[found]
		cy += mooreDY[found]
		backtrackDir = dirFromDelta[by-cy+1][bx-cx+1]
		if cx == startX && cy == startY && backtrackDir == 4 {
			break
		}
		contour = append(contour, ImagePoint{X: float64(cx), Y: float64(cy)})
	}
	return contour
}

// arcLength returns the geometric length of a polyline, closing it when
// closed is true.
func arcLength(pts []ImagePoint, closed bool) float64 {
	if len(pts) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(pts); i++ {
		total += math.Hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
	}
	if closed {
		last := pts[len(pts)-1]
		total += math.Hypot(pts[0].X-last.X, pts[0].Y-last.Y)
	}
	return total
}
