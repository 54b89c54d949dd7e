package fiducial

import "testing"

// makeBGRAFrame builds a frame of the given size filled with one BGRA value.
func makeBGRAFrame(w, h int, b, g, r, a byte) Frame {
	data := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		data[i*4] = b
		data[i*4+1] = g
		data[i*4+2] = r
		data[i*4+3] = a
	}
	return Frame{Data: data, Width: w, Height: h}
}

func TestGrayscalePureChannels(t *testing.T) {
	cases := []struct {
		name    string
		b, g, r byte
		want    uint8
	}{
		{"black", 0, 0, 0, 0},
		{"white", 255, 255, 255, 255},
		{"pure red", 0, 0, 255, 76},    // 255*0.299
		{"pure green", 0, 255, 0, 149}, // 255*0.587
		{"pure blue", 255, 0, 0, 29},   // 255*0.114
	}
	for _, tc := range cases {
		f := makeBGRAFrame(4, 3, tc.b, tc.g, tc.r, 255)
		gray := f.Grayscale()
		if gray.Width != 4 || gray.Height != 3 {
			t.Fatalf("%s: dimensions = %dx%d, want 4x3", tc.name, gray.Width, gray.Height)
		}
		for i, v := range gray.Pix {
			if v != tc.want {
				t.Fatalf("%s: pixel %d = %d, want %d", tc.name, i, v, tc.want)
			}
		}
	}
}

func TestGrayscaleIgnoresAlpha(t *testing.T) {
	opaque := makeBGRAFrame(8, 8, 40, 80, 120, 255)
	clear := makeBGRAFrame(8, 8, 40, 80, 120, 0)
	g1 := opaque.Grayscale()
	g2 := clear.Grayscale()
	for i := range g1.Pix {
		if g1.Pix[i] != g2.Pix[i] {
			t.Fatalf("pixel %d differs with alpha: %d vs %d", i, g1.Pix[i], g2.Pix[i])
		}
	}
}

func TestGrayscaleDoesNotRetainInput(t *testing.T) {
	f := makeBGRAFrame(2, 2, 255, 255, 255, 255)
	gray := f.Grayscale()
	for i := range f.Data {
		f.Data[i] = 0
	}
	for i, v := range gray.Pix {
		if v != 255 {
			t.Fatalf("pixel %d changed after input mutation: %d", i, v)
		}
	}
}

func TestSampleBilinear(t *testing.T) {
	// 2x2 gradient: 0 100 / 200 50
	g := &GrayImage{Pix: []uint8{0, 100, 200, 50}, Width: 2, Height: 2}

	if v := g.sampleBilinear(0, 0); v != 0 {
		t.Errorf("corner sample = %v, want 0", v)
	}
	if v := g.sampleBilinear(1, 0); v != 100 {
		t.Errorf("corner sample = %v, want 100", v)
	}
	// Midpoint mixes all four values equally.
	if v := g.sampleBilinear(0.5, 0.5); v != 87.5 {
		t.Errorf("centre sample = %v, want 87.5", v)
	}
	// Out-of-range coordinates clamp to the edge.
	if v := g.sampleBilinear(-3, -3); v != 0 {
		t.Errorf("clamped sample = %v, want 0", v)
	}
	if v := g.sampleBilinear(5, 0); v != 100 {
		t.Errorf("clamped sample = %v, want 100", v)
	}
}
