package fiducial

import (
	"math"
	"testing"
)

func uniformGray(w, h int, v uint8) *GrayImage {
	g := &GrayImage{Pix: make([]uint8, w*h), Width: w, Height: h}
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func TestIntegralRectSum(t *testing.T) {
	g := &GrayImage{Width: 5, Height: 4, Pix: []uint8{
		1, 2, 3, 4, 5,
		6, 7, 8, 9, 10,
		11, 12, 13, 14, 15,
		16, 17, 18, 19, 20,
	}}
	it := newIntegral(g)
	cases := []struct{ x0, y0, x1, y1 int }{
		{0, 0, 5, 4}, {0, 0, 1, 1}, {2, 1, 5, 3}, {1, 2, 4, 4}, {3, 3, 3, 3},
	}
	for _, c := range cases {
		var want uint64
		for y := c.y0; y < c.y1; y++ {
			for x := c.x0; x < c.x1; x++ {
				want += uint64(g.Pix[y*g.Width+x])
			}
		}
		if got := it.rectSum(c.x0, c.y0, c.x1, c.y1); got != want {
			t.Errorf("rectSum(%d,%d,%d,%d) = %d, want %d", c.x0, c.y0, c.x1, c.y1, got, want)
		}
	}
}

func TestAdaptiveThresholdMarksDarkOnLight(t *testing.T) {
	// A 16x16 dark square on a light field. The sweep windows are larger
	// than the square, so every square pixel sees a light-biased mean.
	g := uniformGray(64, 64, 200)
	for y := 24; y < 40; y++ {
		for x := 24; x < 40; x++ {
			g.Pix[y*g.Width+x] = 30
		}
	}
	bin := adaptiveThreshold(g, 23, 7)
	for _, p := range [][2]int{{24, 24}, {31, 31}, {39, 39}, {24, 39}} {
		if bin.At(p[0], p[1]) != 255 {
			t.Errorf("dark pixel (%d,%d) not marked foreground", p[0], p[1])
		}
	}
	for _, p := range [][2]int{{2, 2}, {61, 3}, {10, 55}, {60, 60}} {
		if bin.At(p[0], p[1]) != 0 {
			t.Errorf("background pixel (%d,%d) marked foreground", p[0], p[1])
		}
	}
}

func TestAdaptiveThresholdUniformImageAllBackground(t *testing.T) {
	bin := adaptiveThreshold(uniformGray(32, 32, 128), 13, 7)
	for i, v := range bin.Pix {
		if v != 0 {
			t.Fatalf("pixel %d = %d on a uniform image, want 0", i, v)
		}
	}
}

func TestAdaptiveThresholdEvenWindowBumped(t *testing.T) {
	g := uniformGray(16, 16, 100)
	g.Pix[8*16+8] = 10
	// Even and next-odd windows must agree exactly.
	a := adaptiveThreshold(g, 12, 7)
	b := adaptiveThreshold(g, 13, 7)
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("pixel %d differs between window 12 and 13", i)
		}
	}
}

func TestOtsuSplitsBimodalPatch(t *testing.T) {
	pix := make([]uint8, 200)
	for i := 0; i < 100; i++ {
		pix[i] = 40
	}
	for i := 100; i < 200; i++ {
		pix[i] = 200
	}
	thr, mean, stddev := otsu(pix)
	if thr < 40 || thr >= 200 {
		t.Errorf("threshold %d does not separate modes 40 and 200", thr)
	}
	if math.Abs(mean-120) > 1e-9 {
		t.Errorf("mean = %v, want 120", mean)
	}
	if math.Abs(stddev-80) > 1e-9 {
		t.Errorf("stddev = %v, want 80", stddev)
	}
	// Classification by v > thr puts each mode on its own side.
	if !(200 > thr) || 40 > thr {
		t.Errorf("threshold %d misclassifies a mode", thr)
	}
}

func TestOtsuUniformPatchHasZeroStdDev(t *testing.T) {
	pix := make([]uint8, 64)
	for i := range pix {
		pix[i] = 128
	}
	_, mean, stddev := otsu(pix)
	if mean != 128 {
		t.Errorf("mean = %v, want 128", mean)
	}
	if stddev != 0 {
		t.Errorf("stddev = %v, want 0", stddev)
	}
}
