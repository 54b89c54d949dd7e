package fiducial

import (
	"math"
	"testing"
)

func TestRefineCornersFindsStepCorner(t *testing.T) {
	// Black square with its top-left ink pixel at (20,20); the physical
	// corner between ink and background sits at (19.5, 19.5).
	g := uniformGray(64, 64, 255)
	for y := 20; y <= 40; y++ {
		for x := 20; x <= 40; x++ {
			g.Pix[y*g.Width+x] = 0
		}
	}
	p := DefaultDetectorParams()
	p.CornerRefinementEnabled = true

	start := [4]ImagePoint{{21, 21}, {39, 21}, {39, 39}, {21, 39}}
	refined := refineCorners(g, start, p)

	want := ImagePoint{19.5, 19.5}
	if d := math.Hypot(refined[0].X-want.X, refined[0].Y-want.Y); d > 0.75 {
		t.Errorf("top-left corner refined to %v, want near %v (off by %v)", refined[0], want, d)
	}
	startDist := math.Hypot(start[0].X-want.X, start[0].Y-want.Y)
	gotDist := math.Hypot(refined[0].X-want.X, refined[0].Y-want.Y)
	if gotDist >= startDist {
		t.Errorf("refinement moved corner away from the edge intersection: %v -> %v", startDist, gotDist)
	}
}

func TestRefineCornersFlatRegionUnchanged(t *testing.T) {
	g := uniformGray(64, 64, 128)
	p := DefaultDetectorParams()
	p.CornerRefinementEnabled = true

	start := [4]ImagePoint{{10, 10}, {50, 10}, {50, 50}, {10, 50}}
	refined := refineCorners(g, start, p)
	if refined != start {
		t.Errorf("corners moved on a gradient-free image: %v", refined)
	}
}
