// Command markergen renders fiducial markers to PNG, either as flat
// print-ready bitmaps or as full synthetic camera frames for pipeline
// testing.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"math"
	"os"

	"github.com/parallax-data/fiducial/internal/fiducial"
	"github.com/parallax-data/fiducial/internal/fiducial/dict"
	"github.com/parallax-data/fiducial/internal/version"
)

func main() {
	family := flag.Int("dict", 0, "predefined dictionary family (0-15)")
	id := flag.Int("id", 0, "marker id within the dictionary")
	cell := flag.Int("cell", 20, "pixels per module in flat mode")
	border := flag.Int("border", 1, "border width in modules")
	output := flag.String("o", "marker.png", "output path")
	frameMode := flag.Bool("frame", false, "render a synthetic camera frame instead of a flat marker")
	size := flag.Float64("size", 0.1, "marker side length in metres (frame mode)")
	distance := flag.Float64("distance", 0.5, "camera distance in metres (frame mode)")
	yaw := flag.Float64("yaw", 0, "marker yaw in degrees (frame mode)")
	width := flag.Int("width", 640, "frame width in pixels (frame mode)")
	height := flag.Int("height", 480, "frame height in pixels (frame mode)")
	focal := flag.Float64("focal", 600, "focal length in pixels (frame mode)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("markergen %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	d, err := dict.Predefined(dict.Family(*family))
	if err != nil {
		fmt.Fprintf(os.Stderr, "dictionary error: %v\n", err)
		os.Exit(1)
	}

	var img image.Image
	if *frameMode {
		img, err = renderFrame(d, *id, *size, *distance, *yaw, *width, *height, *focal)
	} else {
		img, err = markerImage(d, *id, *cell, *border)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "render error: %v\n", err)
		os.Exit(1)
	}

	if err := writePNG(*output, img); err != nil {
		fmt.Fprintf(os.Stderr, "write error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("✓ Created: %s (%s id %d)", *output, d.Name(), *id)
}

// markerImage draws the marker as a flat bitmap: border modules black,
// inner modules from the dictionary word, one module per cellPx square.
func markerImage(d *dict.Dictionary, id, cellPx, borderBits int) (*image.Gray, error) {
	if cellPx < 1 {
		return nil, fmt.Errorf("cell size must be at least 1 pixel, got %d", cellPx)
	}
	if borderBits < 1 {
		return nil, fmt.Errorf("border must be at least 1 module, got %d", borderBits)
	}
	word, err := d.Word(id)
	if err != nil {
		return nil, err
	}
	n := d.GridSize()
	total := n + 2*borderBits
	img := image.NewGray(image.Rect(0, 0, total*cellPx, total*cellPx))
	// NewGray starts all black, so only white modules need filling.
	for row := 0; row < total; row++ {
		for col := 0; col < total; col++ {
			inner := row >= borderBits && row < total-borderBits &&
				col >= borderBits && col < total-borderBits
			if !inner || !dict.CellAt(word, n, row-borderBits, col-borderBits) {
				continue
			}
			for y := row * cellPx; y < (row+1)*cellPx; y++ {
				for x := col * cellPx; x < (col+1)*cellPx; x++ {
					img.Pix[y*img.Stride+x] = 255
				}
			}
		}
	}
	return img, nil
}

// renderFrame places the marker frontally at the given distance, yawed
// about its vertical axis, and renders the camera view.
func renderFrame(d *dict.Dictionary, id int, size, distance, yawDeg float64, width, height int, focal float64) (*image.RGBA, error) {
	rvec := fiducial.ComposeRotations(
		[3]float64{math.Pi, 0, 0},
		[3]float64{0, yawDeg * math.Pi / 180, 0},
	)
	in := fiducial.NewIntrinsics(
		[2]float64{focal, focal},
		[2]float64{float64(width) / 2, float64(height) / 2},
		[3]float64{}, [2]float64{},
	)
	frame, err := fiducial.RenderMarkerFrame(d, id, size, rvec, [3]float64{0, 0, distance}, in, width, height, 1)
	if err != nil {
		return nil, err
	}
	return frameImage(frame), nil
}

// frameImage converts a BGRA frame to the RGBA layout image/png expects.
func frameImage(f fiducial.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i := 0; i < f.Width*f.Height; i++ {
		img.Pix[i*4] = f.Data[i*4+2]
		img.Pix[i*4+1] = f.Data[i*4+1]
		img.Pix[i*4+2] = f.Data[i*4]
		img.Pix[i*4+3] = f.Data[i*4+3]
	}
	return img
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
