package fiducial

import (
	"fmt"
	"sync"

	"github.com/parallax-data/fiducial/internal/fiducial/dict"
)

// Detection is one stored marker: identifier, canonical corner quad in
// pixel coordinates (top-left first, clockwise), and the solved pose.
// Position is in the units of the marker size fed to DetectMarkers;
// Rotation is an axis-angle vector.
type Detection struct {
	ID       int
	Corners  [4]ImagePoint
	Position [3]float32
	Rotation [3]float32
}

// Detector runs the detection pipeline and owns the store of the latest
// pass. A single Detector is safe for concurrent use: DetectMarkers
// rebuilds the result off-lock and swaps it in under the write lock,
// queries take read locks. The store always reflects exactly one pass.
type Detector struct {
	params DetectorParams

	mu       sync.RWMutex
	detected map[int]Detection
	rejected [][4]ImagePoint
}

// NewDetector builds a detector with the given parameters.
func NewDetector(params DetectorParams) (*Detector, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("detector params: %w", err)
	}
	return &Detector{
		params:   params,
		detected: map[int]Detection{},
	}, nil
}

// findCandidates runs the adaptive threshold sweep and geometry filters
// over a grayscale image, returning deduplicated quad candidates.
func (d *Detector) findCandidates(g *GrayImage) []candidate {
	maxDim := g.Width
	if g.Height > maxDim {
		maxDim = g.Height
	}
	minPerimPx := d.params.MinMarkerPerimeterRate * float64(maxDim)
	maxPerimPx := d.params.MaxMarkerPerimeterRate * float64(maxDim)

	var all []candidate
	for win := d.params.AdaptiveThreshWinSizeMin; win <= d.params.AdaptiveThreshWinSizeMax; win += d.params.AdaptiveThreshWinSizeStep {
		bin := adaptiveThreshold(g, win, d.params.AdaptiveThreshConstant)
		contours := findContours(bin, 4)
		accepted := 0
		for _, contour := range contours {
			n := float64(len(contour))
			if n < minPerimPx || n > maxPerimPx {
				continue
			}
			approx := approxPolyClosed(contour, d.params.PolygonalApproxAccuracyRate*n)
			if len(approx) != 4 {
				continue
			}
			var quad [4]ImagePoint
			copy(quad[:], approx)
			if !isConvexQuad(quad) {
				continue
			}
			minCorner := n * d.params.MinCornerDistanceRate
			if minConsecutiveCornerDistSq(quad) < minCorner*minCorner {
				continue
			}
			if tooNearBorder(quad, g.Width, g.Height, d.params.MinDistanceToBorder) {
				continue
			}
			ensureClockwise(&quad)
			all = append(all, candidate{corners: quad, perimeter: arcLength(quad[:], true)})
			accepted++
		}
		Tracef("threshold win=%d contours=%d quads=%d", win, len(contours), accepted)
	}
	return filterTooClose(all, d.params.MinMarkerDistanceRate)
}

// DetectMarkers runs the full pipeline over one frame and rewrites the
// store with the result. It always reports true once the pass runs to
// completion; zero detected markers is a normal outcome. An unknown
// dictionary id logs and leaves an empty store.
func (d *Detector) DetectMarkers(frame Frame, focalLength, principalPoint [2]float64, radialDistortion [3]float64, tangentialDistortion [2]float64, markerSize float64, dictionaryID int) bool {
	dc, err := dict.Predefined(dict.Family(dictionaryID))
	if err != nil {
		Opsf("detect: dictionary id %d: %v", dictionaryID, err)
		d.mu.Lock()
		d.detected = map[int]Detection{}
		d.rejected = nil
		d.mu.Unlock()
		return true
	}
	in := NewIntrinsics(focalLength, principalPoint, radialDistortion, tangentialDistortion)
	Diagf("detect: dict=%s fx=%.2f fy=%.2f cx=%.2f cy=%.2f dist=%v",
		dc.Name(), in.Fx, in.Fy, in.Cx, in.Cy, in.Distortion)

	gray := frame.Grayscale()
	cands := d.findCandidates(gray)

	detected := make(map[int]Detection)
	var rejected [][4]ImagePoint
	for _, c := range cands {
		id, rot, ok := decodeCandidate(gray, c.corners, dc, d.params)
		if !ok {
			rejected = append(rejected, c.corners)
			continue
		}
		corners := canonicalCorners(c.corners, rot)
		if d.params.CornerRefinementEnabled {
			corners = refineCorners(gray, corners, d.params)
		}
		pos, rvec, err := estimatePose(corners, in, markerSize)
		if err != nil {
			Opsf("detect: pose for marker %d: %v", id, err)
			rejected = append(rejected, c.corners)
			continue
		}
		detected[id] = Detection{
			ID:      id,
			Corners: corners,
			Position: [3]float32{
				float32(pos[0]), float32(pos[1]), float32(pos[2]),
			},
			Rotation: [3]float32{
				float32(rvec[0]), float32(rvec[1]), float32(rvec[2]),
			},
		}
		Diagf("detect: marker %d pos=(%.4f %.4f %.4f) rot=(%.4f %.4f %.4f)",
			id, pos[0], pos[1], pos[2], rvec[0], rvec[1], rvec[2])
	}

	d.mu.Lock()
	d.detected = detected
	d.rejected = rejected
	d.mu.Unlock()

	Opsf("detect: %d candidates, %d markers, %d rejected", len(cands), len(detected), len(rejected))
	return true
}

// DetectedMarkerIDs copies every stored marker identifier into out and
// reports success. It fails without writing when out is shorter than
// the stored count. Identifiers arrive in map iteration order; callers
// must not assume any particular ordering.
func (d *Detector) DetectedMarkerIDs(out []int) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(out) < len(d.detected) {
		return false
	}
	i := 0
	for id := range d.detected {
		out[i] = id
		i++
	}
	return true
}

// DetectedMarkerPose returns the stored pose for id. The store is never
// mutated by queries.
func (d *Detector) DetectedMarkerPose(id int) (position, rotation [3]float32, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	det, ok := d.detected[id]
	if !ok {
		return position, rotation, false
	}
	return det.Position, det.Rotation, true
}

// DetectedMarkerCount returns the number of markers in the store.
func (d *Detector) DetectedMarkerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.detected)
}

// Detections returns a snapshot of the stored detections, in no
// particular order.
func (d *Detector) Detections() []Detection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Detection, 0, len(d.detected))
	for _, det := range d.detected {
		out = append(out, det)
	}
	return out
}

// RejectedCandidates returns the corner quads that survived the
// geometry filters but failed decoding in the latest pass. Diagnostic
// only; rejected quads play no part in queries.
func (d *Detector) RejectedCandidates() [][4]ImagePoint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([][4]ImagePoint, len(d.rejected))
	copy(out, d.rejected)
	return out
}

// Reset clears the store back to its initial empty state.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detected = map[int]Detection{}
	d.rejected = nil
}
