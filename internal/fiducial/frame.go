package fiducial

// ImagePoint is a 2D point in continuous pixel coordinates. Pixel centres
// sit on integer coordinates.
type ImagePoint struct {
	X float64
	Y float64
}

// Frame is a borrowed view over a caller-owned BGRA pixel buffer.
// Layout: row-major, 4 interleaved bytes per pixel (blue, green, red,
// alpha), no row padding. Dimensions are trusted per the caller contract.
// The engine reads Data only for the duration of a call and never retains
// it.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// GrayImage is a single-channel 8-bit image owned by the engine.
// Thresholded images reuse the type with pixel values 0 and 255.
type GrayImage struct {
	Pix    []uint8
	Width  int
	Height int
}

// Grayscale converts the frame to a fresh grayscale image using ITU-R
// BT.601 luminance weights (alpha ignored).
// Formula: Y = 0.299*R + 0.587*G + 0.114*B
func (f Frame) Grayscale() *GrayImage {
	out := &GrayImage{
		Pix:    make([]uint8, f.Width*f.Height),
		Width:  f.Width,
		Height: f.Height,
	}
	n := f.Width * f.Height
	for i := 0; i < n; i++ {
		b := f.Data[i*4]
		g := f.Data[i*4+1]
		r := f.Data[i*4+2]
		out.Pix[i] = uint8(float64(r)*0.299 + float64(g)*0.587 + float64(b)*0.114)
	}
	return out
}

// At returns the pixel at (x, y). No bounds checking; caller must ensure
// coordinates are valid.
func (g *GrayImage) At(x, y int) uint8 { return g.Pix[y*g.Width+x] }

// sampleBilinear samples the image at a sub-pixel position with bilinear
// interpolation, clamping coordinates to the image edge.
func (g *GrayImage) sampleBilinear(x, y float64) float64 {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x > float64(g.Width-1) {
		x = float64(g.Width - 1)
	}
	if y > float64(g.Height-1) {
		y = float64(g.Height - 1)
	}

	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > g.Width-1 {
		x1 = g.Width - 1
	}
	if y1 > g.Height-1 {
		y1 = g.Height - 1
	}

	fx := x - float64(x0)
	fy := y - float64(y0)

	v00 := float64(g.Pix[y0*g.Width+x0])
	v10 := float64(g.Pix[y0*g.Width+x1])
	v01 := float64(g.Pix[y1*g.Width+x0])
	v11 := float64(g.Pix[y1*g.Width+x1])

	top := v00 + (v10-v00)*fx
	bottom := v01 + (v11-v01)*fx
	return top + (bottom-top)*fy
}
