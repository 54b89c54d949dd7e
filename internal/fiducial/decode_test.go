package fiducial

import (
	"testing"

	"github.com/parallax-data/fiducial/internal/fiducial/dict"
)

// drawMarkerGray paints an axis-aligned marker into g with the given
// cell edge in pixels and returns its outer corner quad, clockwise from
// the top-left.
func drawMarkerGray(t *testing.T, g *GrayImage, d *dict.Dictionary, id, x0, y0, cellPx, borderBits int) [4]ImagePoint {
	t.Helper()
	word, err := d.Word(id)
	if err != nil {
		t.Fatal(err)
	}
	n := d.GridSize()
	total := n + 2*borderBits
	for r := 0; r < total; r++ {
		for c := 0; c < total; c++ {
			v := uint8(0)
			inner := r >= borderBits && r < total-borderBits &&
				c >= borderBits && c < total-borderBits
			if inner && dict.CellAt(word, n, r-borderBits, c-borderBits) {
				v = 255
			}
			for y := y0 + r*cellPx; y < y0+(r+1)*cellPx; y++ {
				for x := x0 + c*cellPx; x < x0+(c+1)*cellPx; x++ {
					g.Pix[y*g.Width+x] = v
				}
			}
		}
	}
	sz := float64(total*cellPx - 1)
	fx, fy := float64(x0), float64(y0)
	return [4]ImagePoint{{fx, fy}, {fx + sz, fy}, {fx + sz, fy + sz}, {fx, fy + sz}}
}

func TestDecodeCandidateRecoversId(t *testing.T) {
	d, err := dict.Predefined(dict.Family4x4_50)
	if err != nil {
		t.Fatal(err)
	}
	g := uniformGray(128, 128, 255)
	corners := drawMarkerGray(t, g, d, 7, 40, 40, 8, 1)

	id, rot, ok := decodeCandidate(g, corners, d, DefaultDetectorParams())
	if !ok {
		t.Fatal("decode failed on a clean marker")
	}
	if id != 7 {
		t.Fatalf("id = %d, want 7", id)
	}
	if rot != 0 {
		t.Fatalf("rotation = %d for canonical corner order, want 0", rot)
	}
}

func TestDecodeCandidateShiftedCorners(t *testing.T) {
	// However the candidate search happens to start the corner list, the
	// decode rotation must bring the canonical top-left back to index 0.
	d, err := dict.Predefined(dict.Family4x4_50)
	if err != nil {
		t.Fatal(err)
	}
	g := uniformGray(128, 128, 255)
	corners := drawMarkerGray(t, g, d, 11, 40, 40, 8, 1)

	for shift := 0; shift < 4; shift++ {
		var shifted [4]ImagePoint
		for j := 0; j < 4; j++ {
			shifted[j] = corners[(j+shift)%4]
		}
		id, rot, ok := decodeCandidate(g, shifted, d, DefaultDetectorParams())
		if !ok {
			t.Fatalf("shift %d: decode failed", shift)
		}
		if id != 11 {
			t.Fatalf("shift %d: id = %d, want 11", shift, id)
		}
		if got := canonicalCorners(shifted, rot); got != corners {
			t.Fatalf("shift %d: canonical corners %v, want %v", shift, got, corners)
		}
	}
}

func TestDecodeCandidateRejectsWhiteBorder(t *testing.T) {
	d, err := dict.Predefined(dict.Family4x4_50)
	if err != nil {
		t.Fatal(err)
	}
	word, err := d.Word(3)
	if err != nil {
		t.Fatal(err)
	}
	g := uniformGray(128, 128, 255)
	// Inner pattern only; the border ring stays white.
	cellPx, x0, y0 := 8, 40, 40
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			v := uint8(0)
			if dict.CellAt(word, 4, r, c) {
				v = 255
			}
			for y := y0 + (r+1)*cellPx; y < y0+(r+2)*cellPx; y++ {
				for x := x0 + (c+1)*cellPx; x < x0+(c+2)*cellPx; x++ {
					g.Pix[y*g.Width+x] = v
				}
			}
		}
	}
	sz := float64(6*cellPx - 1)
	corners := [4]ImagePoint{
		{40, 40}, {40 + sz, 40}, {40 + sz, 40 + sz}, {40, 40 + sz},
	}
	if _, _, ok := decodeCandidate(g, corners, d, DefaultDetectorParams()); ok {
		t.Fatal("decode accepted a marker with a white border")
	}
}

func TestDecodeCandidateRejectsBlankRegion(t *testing.T) {
	d, err := dict.Predefined(dict.Family4x4_50)
	if err != nil {
		t.Fatal(err)
	}
	g := uniformGray(128, 128, 255)
	corners := [4]ImagePoint{{40, 40}, {87, 40}, {87, 87}, {40, 87}}
	if _, _, ok := decodeCandidate(g, corners, d, DefaultDetectorParams()); ok {
		t.Fatal("decode accepted a blank white region")
	}
}

func TestCountBorderErrors(t *testing.T) {
	total := 4
	bits := make([]bool, total*total)
	if got := countBorderErrors(bits, total, 1); got != 0 {
		t.Errorf("clean border: %d errors, want 0", got)
	}
	// Two corner cells and one edge cell go white; one inner cell flips
	// too and must not count.
	bits[0] = true
	bits[3] = true
	bits[1*total+0] = true
	bits[1*total+1] = true
	if got := countBorderErrors(bits, total, 1); got != 3 {
		t.Errorf("got %d border errors, want 3", got)
	}
}

func TestCellBitsMarginExcluded(t *testing.T) {
	// 2x2 cells at 4 px per cell. With a 0.3 margin rate only the inner
	// 2x2 pixels of each cell vote, so a contrary outer ring loses.
	total, ppc := 2, 4
	side := total * ppc
	patch := make([]uint8, side*side)
	fill := func(cr, cc int, ring, core uint8) {
		for y := cr * ppc; y < (cr+1)*ppc; y++ {
			for x := cc * ppc; x < (cc+1)*ppc; x++ {
				v := ring
				if y >= cr*ppc+1 && y < (cr+1)*ppc-1 && x >= cc*ppc+1 && x < (cc+1)*ppc-1 {
					v = core
				}
				patch[y*side+x] = v
			}
		}
	}
	fill(0, 0, 255, 0) // bright ring, dark core
	fill(0, 1, 0, 255) // dark ring, bright core
	fill(1, 0, 0, 0)
	fill(1, 1, 255, 255)

	bits := cellBits(patch, total, ppc, 0.3, 5.0)
	want := []bool{false, true, false, true}
	for i := range want {
		if bits[i] != want[i] {
			t.Errorf("bit %d = %v, want %v", i, bits[i], want[i])
		}
	}
}

func TestCellBitsUniformShortCircuit(t *testing.T) {
	patch := make([]uint8, 64)
	for i := range patch {
		patch[i] = 200
	}
	for _, b := range cellBits(patch, 2, 4, 0.13, 5.0) {
		if !b {
			t.Fatal("bright uniform patch must vote all ones")
		}
	}
	for i := range patch {
		patch[i] = 20
	}
	for _, b := range cellBits(patch, 2, 4, 0.13, 5.0) {
		if b {
			t.Fatal("dark uniform patch must vote all zeros")
		}
	}
}
