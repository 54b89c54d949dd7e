package fiducial

import "math"

// candidate is one convex quadrilateral that survived the geometry
// filters, with the perimeter that ranked it.
type candidate struct {
	corners   [4]ImagePoint
	perimeter float64
}

// approxPolyClosed approximates a closed contour with Douglas-Peucker.
// The contour is split at the point farthest from the first point (for a
// closed curve that point is on the hull), each chain is simplified, and
// the halves are rejoined without duplicated endpoints.
func approxPolyClosed(pts []ImagePoint, epsilon float64) []ImagePoint {
	if len(pts) < 3 {
		return append([]ImagePoint(nil), pts...)
	}
	far := 0
	var farDist float64
	for i, p := range pts {
		dx, dy := p.X-pts[0].X, p.Y-pts[0].Y
		if d := dx*dx + dy*dy; d > farDist {
			farDist = d
			far = i
		}
	}
	if far == 0 {
		return []ImagePoint{pts[0]}
	}
	chain2 := make([]ImagePoint, 0, len(pts)-far+1)
	chain2 = append(chain2, pts[far:]...)
	chain2 = append(chain2, pts[0])

	out1 := douglasPeucker(pts[:far+1], epsilon)
	out2 := douglasPeucker(chain2, epsilon)

	out := make([]ImagePoint, 0, len(out1)+len(out2)-2)
	out = append(out, out1[:len(out1)-1]...)
	out = append(out, out2[:len(out2)-1]...)
	return out
}

// douglasPeucker simplifies an open polyline, always keeping both
// endpoints.
func douglasPeucker(pts []ImagePoint, epsilon float64) []ImagePoint {
	if len(pts) < 3 {
		return append([]ImagePoint(nil), pts...)
	}
	a, b := pts[0], pts[len(pts)-1]
	idx := 0
	var maxDist float64
	for i := 1; i < len(pts)-1; i++ {
		if d := pointLineDistance(pts[i], a, b); d > maxDist {
			maxDist = d
			idx = i
		}
	}
	if maxDist <= epsilon {
		return []ImagePoint{a, b}
	}
	left := douglasPeucker(pts[:idx+1], epsilon)
	right := douglasPeucker(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// pointLineDistance is the perpendicular distance from p to the line
// through a and b, or the distance to a when the line degenerates.
func pointLineDistance(p, a, b ImagePoint) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dx*(a.Y-p.Y)-dy*(a.X-p.X)) / l
}

// isConvexQuad reports whether the four vertices form a strictly convex
// polygon: every consecutive edge pair turns the same way and no corner
// is collinear.
func isConvexQuad(q [4]ImagePoint) bool {
	sign := 0
	for i := 0; i < 4; i++ {
		a, b, c := q[i], q[(i+1)%4], q[(i+2)%4]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		if cross == 0 {
			return false
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

// minConsecutiveCornerDistSq returns the smallest squared distance
// between consecutive quad corners.
func minConsecutiveCornerDistSq(q [4]ImagePoint) float64 {
	minD := math.MaxFloat64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		dx, dy := q[j].X-q[i].X, q[j].Y-q[i].Y
		if d := dx*dx + dy*dy; d < minD {
			minD = d
		}
	}
	return minD
}

// tooNearBorder reports whether any corner lies within dist pixels of
// the image border.
func tooNearBorder(q [4]ImagePoint, w, h, dist int) bool {
	for _, p := range q {
		if p.X < float64(dist) || p.Y < float64(dist) ||
			p.X > float64(w-1-dist) || p.Y > float64(h-1-dist) {
			return true
		}
	}
	return false
}

// ensureClockwise reorders the quad in place so its vertices run
// clockwise in image coordinates (y down). Swapping the second and
// fourth vertex reverses orientation while keeping vertex 0 first.
func ensureClockwise(q *[4]ImagePoint) {
	var area float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		area += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	if area < 0 {
		q[1], q[3] = q[3], q[1]
	}
}

// filterTooClose merges near-duplicate candidates found across threshold
// windows. Two candidates are near when, under the best of the four
// corner alignments, the mean squared corner distance falls below the
// rate scaled by the smaller perimeter. The larger-perimeter member of
// each near pair survives.
func filterTooClose(cands []candidate, minMarkerDistanceRate float64) []candidate {
	drop := make([]bool, len(cands))
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			minPerim := cands[i].perimeter
			if cands[j].perimeter < minPerim {
				minPerim = cands[j].perimeter
			}
			limit := minPerim * minMarkerDistanceRate
			limitSq := limit * limit
			near := false
			for shift := 0; shift < 4 && !near; shift++ {
				var total float64
				for c := 0; c < 4; c++ {
					dx := cands[i].corners[(shift+c)%4].X - cands[j].corners[c].X
					dy := cands[i].corners[(shift+c)%4].Y - cands[j].corners[c].Y
					total += dx*dx + dy*dy
				}
				if total/4 < limitSq {
					near = true
				}
			}
			if near {
				if cands[i].perimeter < cands[j].perimeter {
					drop[i] = true
				} else {
					drop[j] = true
				}
			}
		}
	}
	out := make([]candidate, 0, len(cands))
	for i, c := range cands {
		if !drop[i] {
			out = append(out, c)
		}
	}
	return out
}
