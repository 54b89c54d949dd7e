package main

import (
	"testing"

	"github.com/parallax-data/fiducial/internal/fiducial/dict"
)

func TestMarkerImageGeometry(t *testing.T) {
	d, err := dict.Predefined(dict.Family4x4_50)
	if err != nil {
		t.Fatal(err)
	}
	img, err := markerImage(d, 3, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	wantSide := (d.GridSize() + 2) * 10
	if b := img.Bounds(); b.Dx() != wantSide || b.Dy() != wantSide {
		t.Fatalf("image is %dx%d, want %dx%d", b.Dx(), b.Dy(), wantSide, wantSide)
	}

	// Border modules stay black on every edge.
	for i := 0; i < wantSide; i++ {
		for _, px := range []uint8{
			img.Pix[0*img.Stride+i],
			img.Pix[(wantSide-1)*img.Stride+i],
			img.Pix[i*img.Stride+0],
			img.Pix[i*img.Stride+wantSide-1],
		} {
			if px != 0 {
				t.Fatalf("border pixel at offset %d is %d, want 0", i, px)
			}
		}
	}

	// Inner modules reproduce the word bit for bit, sampled at module
	// centres.
	word, err := d.Word(3)
	if err != nil {
		t.Fatal(err)
	}
	n := d.GridSize()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			x := (c+1)*10 + 5
			y := (r+1)*10 + 5
			want := uint8(0)
			if dict.CellAt(word, n, r, c) {
				want = 255
			}
			if got := img.Pix[y*img.Stride+x]; got != want {
				t.Errorf("module (%d,%d) rendered %d, want %d", r, c, got, want)
			}
		}
	}
}

func TestMarkerImageRejectsBadArgs(t *testing.T) {
	d, err := dict.Predefined(dict.Family4x4_50)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := markerImage(d, 3, 0, 1); err == nil {
		t.Error("zero cell size accepted")
	}
	if _, err := markerImage(d, 3, 10, 0); err == nil {
		t.Error("zero border accepted")
	}
	if _, err := markerImage(d, d.Len(), 10, 1); err == nil {
		t.Error("out of range marker id accepted")
	}
}

func TestRenderFrameProducesInk(t *testing.T) {
	d, err := dict.Predefined(dict.Family4x4_50)
	if err != nil {
		t.Fatal(err)
	}
	img, err := renderFrame(d, 7, 0.1, 0.5, 0, 160, 120, 150)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 120 {
		t.Fatalf("frame is %dx%d, want 160x120", b.Dx(), b.Dy())
	}
	dark := 0
	for i := 0; i < 160*120; i++ {
		if img.Pix[i*4] < 128 {
			dark++
		}
	}
	if dark == 0 {
		t.Error("rendered frame has no dark pixels")
	}
}
