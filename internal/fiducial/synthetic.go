package fiducial

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/parallax-data/fiducial/internal/fiducial/dict"
)

// MarkerPlacement pairs a marker id with a ground-truth pose for
// synthetic rendering.
type MarkerPlacement struct {
	ID   int
	Rvec [3]float64
	Tvec [3]float64
}

// renderMarkerGray paints one marker into a fresh grayscale canvas by
// inverse-mapping every pixel through the camera model onto the marker
// plane: undistort the pixel ray, intersect it with the plane via the
// inverted plane homography, reject negative depth, and look up the
// cell. Background stays white.
func renderMarkerGray(d *dict.Dictionary, id int, markerSize float64, rvec, tvec [3]float64, in Intrinsics, width, height, borderBits int) ([]uint8, error) {
	word, err := d.Word(id)
	if err != nil {
		return nil, err
	}
	n := d.GridSize()
	total := n + 2*borderBits

	rm := rodriguesToMatrix(rvec)
	hpn := mat.NewDense(3, 3, []float64{
		rm.At(0, 0), rm.At(0, 1), tvec[0],
		rm.At(1, 0), rm.At(1, 1), tvec[1],
		rm.At(2, 0), rm.At(2, 1), tvec[2],
	})
	var inv mat.Dense
	if err := inv.Inverse(hpn); err != nil {
		return nil, fmt.Errorf("marker plane degenerate from this viewpoint: %w", err)
	}

	pix := make([]uint8, width*height)
	for i := range pix {
		pix[i] = 255
	}
	half := markerSize / 2
	for v := 0; v < height; v++ {
		for u := 0; u < width; u++ {
			x, y := in.normalize(ImagePoint{X: float64(u), Y: float64(v)})
			x, y = in.undistort(x, y)
			pw := inv.At(2, 0)*x + inv.At(2, 1)*y + inv.At(2, 2)
			if pw == 0 {
				continue
			}
			px := (inv.At(0, 0)*x + inv.At(0, 1)*y + inv.At(0, 2)) / pw
			py := (inv.At(1, 0)*x + inv.At(1, 1)*y + inv.At(1, 2)) / pw
			if px < -half || px >= half || py <= -half || py > half {
				continue
			}
			if depth := hpn.At(2, 0)*px + hpn.At(2, 1)*py + hpn.At(2, 2); depth <= 0 {
				continue
			}
			col := int((px + half) / markerSize * float64(total))
			row := int((half - py) / markerSize * float64(total))
			if col < 0 || col >= total || row < 0 || row >= total {
				continue
			}
			val := uint8(0)
			inner := row >= borderBits && row < total-borderBits &&
				col >= borderBits && col < total-borderBits
			if inner && dict.CellAt(word, n, row-borderBits, col-borderBits) {
				val = 255
			}
			pix[v*width+u] = val
		}
	}
	return pix, nil
}

func grayToBGRA(pix []uint8, width, height int) Frame {
	data := make([]byte, len(pix)*4)
	for i, v := range pix {
		data[i*4] = v
		data[i*4+1] = v
		data[i*4+2] = v
		data[i*4+3] = 255
	}
	return Frame{Data: data, Width: width, Height: height}
}

// RenderMarkerFrame renders a single marker at a ground-truth pose into
// a BGRA frame over a white background.
func RenderMarkerFrame(d *dict.Dictionary, id int, markerSize float64, rvec, tvec [3]float64, in Intrinsics, width, height, borderBits int) (Frame, error) {
	pix, err := renderMarkerGray(d, id, markerSize, rvec, tvec, in, width, height, borderBits)
	if err != nil {
		return Frame{}, err
	}
	return grayToBGRA(pix, width, height), nil
}

// RenderScene renders several markers of one dictionary into a single
// BGRA frame. Where projections overlap, the darker pixel wins, so ink
// is never erased by another marker's background.
func RenderScene(d *dict.Dictionary, placements []MarkerPlacement, markerSize float64, in Intrinsics, width, height, borderBits int) (Frame, error) {
	canvas := make([]uint8, width*height)
	for i := range canvas {
		canvas[i] = 255
	}
	for _, pl := range placements {
		pix, err := renderMarkerGray(d, pl.ID, markerSize, pl.Rvec, pl.Tvec, in, width, height, borderBits)
		if err != nil {
			return Frame{}, fmt.Errorf("marker %d: %w", pl.ID, err)
		}
		for i, v := range pix {
			if v < canvas[i] {
				canvas[i] = v
			}
		}
	}
	return grayToBGRA(canvas, width, height), nil
}
