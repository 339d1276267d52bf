package processing

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/devtools/pkg/types"
)

var (
	gray = color.NRGBA{64, 64, 64, 255}
	red  = color.NRGBA{255, 0, 0, 255}
)

// createTestImage creates a uniform gray test image
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, gray)
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return path
}

func TestLoadImage(t *testing.T) {
	p := NewProcessor()
	path := writePNG(t, createTestImage(80, 60))

	img, err := p.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 80 || img.Bounds().Dy() != 60 {
		t.Errorf("Expected 80x60, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestLoadImageMissing(t *testing.T) {
	p := NewProcessor()
	_, err := p.LoadImage(filepath.Join(t.TempDir(), "nope.png"))
	if !errors.Is(err, ErrImageLoad) {
		t.Errorf("Expected ErrImageLoad, got %v", err)
	}
}

func TestLoadImageCorrupt(t *testing.T) {
	p := NewProcessor()
	path := filepath.Join(t.TempDir(), "corrupt.jpg")
	if err := os.WriteFile(path, []byte("definitely not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := p.LoadImage(path)
	if !errors.Is(err, ErrImageLoad) {
		t.Errorf("Expected ErrImageLoad, got %v", err)
	}
}

func TestLoadImageFromURL(t *testing.T) {
	img := createTestImage(10, 12)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/img.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, img)
	}))
	defer srv.Close()

	p := NewProcessor()
	got, err := p.LoadImageSmart(srv.URL + "/img.png")
	if err != nil {
		t.Fatalf("LoadImageSmart failed: %v", err)
	}
	if got.Bounds().Dx() != 10 || got.Bounds().Dy() != 12 {
		t.Errorf("Expected 10x12, got %v", got.Bounds())
	}

	if _, err := p.LoadImageSmart(srv.URL + "/missing.png"); !errors.Is(err, ErrImageLoad) {
		t.Errorf("Expected ErrImageLoad for 404, got %v", err)
	}
	if _, err := p.LoadImageFromURL("ftp://example.com/a.png"); !errors.Is(err, ErrImageLoad) {
		t.Errorf("Expected ErrImageLoad for ftp scheme, got %v", err)
	}
}

func TestSaveImageFormats(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(20, 10)
	dir := t.TempDir()

	for _, format := range []string{"png", "jpg", "webp"} {
		path := filepath.Join(dir, "out."+format)
		if err := p.SaveImage(img, path, format, 90, false); err != nil {
			t.Fatalf("SaveImage(%s) failed: %v", format, err)
		}
		loaded, err := p.LoadImage(path)
		if err != nil {
			t.Fatalf("reload %s failed: %v", format, err)
		}
		if loaded.Bounds().Dx() != 20 || loaded.Bounds().Dy() != 10 {
			t.Errorf("%s: expected 20x10, got %v", format, loaded.Bounds())
		}
	}

	if err := p.SaveImage(img, filepath.Join(dir, "out.bmp"), "bmp", 90, false); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestDrawAnnotationsHWExample(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(800, 600)
	rects := []types.Rect{types.HWBox{Left: 171, Top: 177, Width: 138, Height: 75}.Rect()}

	out, err := p.DrawAnnotations(img, rects, nil, types.Style{})
	if err != nil {
		t.Fatalf("DrawAnnotations failed: %v", err)
	}

	// Corners of the outline span x in [171,309], y in [177,252]
	for _, pt := range []image.Point{{171, 177}, {309, 177}, {171, 252}, {309, 252}, {240, 177}, {171, 214}} {
		if got := out.NRGBAAt(pt.X, pt.Y); got != red {
			t.Errorf("Expected outline at %v, got %v", pt, got)
		}
	}

	// Interior and exterior stay untouched
	for _, pt := range []image.Point{{240, 214}, {170, 177}, {310, 252}, {171, 253}} {
		if got := out.NRGBAAt(pt.X, pt.Y); got != gray {
			t.Errorf("Expected untouched pixel at %v, got %v", pt, got)
		}
	}

	// Source image is not modified
	if got := img.NRGBAAt(171, 177); got != gray {
		t.Errorf("Expected source image unchanged, got %v", got)
	}
}

func TestDrawAnnotationsXYExample(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(800, 600)
	rects := []types.Rect{types.XYBox{XMin: 285, YMin: 249, XMax: 513, YMax: 353}.Rect()}

	out, err := p.DrawAnnotations(img, rects, nil, types.Style{Color: "#00ff00"})
	if err != nil {
		t.Fatalf("DrawAnnotations failed: %v", err)
	}

	green := color.NRGBA{0, 255, 0, 255}
	for _, pt := range []image.Point{{285, 249}, {513, 353}, {513, 249}, {285, 353}} {
		if got := out.NRGBAAt(pt.X, pt.Y); got != green {
			t.Errorf("Expected outline at %v, got %v", pt, got)
		}
	}
	if got := out.NRGBAAt(400, 300); got != gray {
		t.Errorf("Expected unfilled interior, got %v", got)
	}
}

func TestDrawAnnotationsEmpty(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(40, 30)

	out, err := p.DrawAnnotations(img, nil, nil, types.Style{})
	if err != nil {
		t.Fatalf("DrawAnnotations failed: %v", err)
	}
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			if out.NRGBAAt(x, y) != gray {
				t.Fatalf("Expected no overlay, pixel (%d,%d) is %v", x, y, out.NRGBAAt(x, y))
			}
		}
	}
}

func TestDrawAnnotationsOrder(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(50, 50)
	rects := []types.Rect{{X: 10, Y: 10, W: 20, H: 20}}

	first, err := p.DrawAnnotations(img, rects, nil, types.Style{Color: "blue"})
	if err != nil {
		t.Fatal(err)
	}
	// A second box sharing the left edge, drawn later, wins where they overlap
	out, err := p.DrawAnnotations(first, []types.Rect{{X: 10, Y: 5, W: 5, H: 30}}, nil, types.Style{Color: "yellow"})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.NRGBAAt(10, 20); got != (color.NRGBA{255, 255, 0, 255}) {
		t.Errorf("Expected later box on top, got %v", got)
	}
	if got := out.NRGBAAt(30, 20); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("Expected earlier box kept elsewhere, got %v", got)
	}
}

func TestDrawAnnotationsStrokeAndClipping(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(30, 30)
	rects := []types.Rect{{X: -5, Y: -5, W: 50, H: 20}}

	out, err := p.DrawAnnotations(img, rects, nil, types.Style{Stroke: 3})
	if err != nil {
		t.Fatalf("DrawAnnotations failed: %v", err)
	}
	// Bottom edge at y=15 with stroke 3 covers 13..15
	for _, y := range []int{13, 14, 15} {
		if got := out.NRGBAAt(10, y); got != red {
			t.Errorf("Expected stroke at y=%d, got %v", y, got)
		}
	}
	if got := out.NRGBAAt(10, 12); got != gray {
		t.Errorf("Expected no stroke at y=12, got %v", got)
	}
}

func TestDrawAnnotationsThickStrokeStaysInside(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(30, 30)
	rects := []types.Rect{{X: 10, Y: 10, W: 4, H: 2}}

	out, err := p.DrawAnnotations(img, rects, nil, types.Style{Stroke: 6})
	if err != nil {
		t.Fatalf("DrawAnnotations failed: %v", err)
	}
	inside := image.Rect(10, 10, 15, 13)
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			got := out.NRGBAAt(x, y)
			if (image.Point{x, y}).In(inside) {
				if got != red {
					t.Errorf("Expected stroke at (%d,%d), got %v", x, y, got)
				}
			} else if got != gray {
				t.Errorf("Expected untouched pixel at (%d,%d), got %v", x, y, got)
			}
		}
	}
}

func TestDrawAnnotationsLabels(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(200, 100)
	rects := []types.Rect{{X: 50, Y: 40, W: 60, H: 40}}

	plain, err := p.DrawAnnotations(img, rects, []string{"car"}, types.Style{})
	if err != nil {
		t.Fatal(err)
	}
	labelled, err := p.DrawAnnotations(img, rects, []string{"car"}, types.Style{Labels: true, LabelColor: "white"})
	if err != nil {
		t.Fatal(err)
	}

	countWhite := func(img *image.NRGBA) int {
		n := 0
		for y := 20; y < 40; y++ {
			for x := 50; x < 80; x++ {
				if img.NRGBAAt(x, y) == (color.NRGBA{255, 255, 255, 255}) {
					n++
				}
			}
		}
		return n
	}
	if countWhite(plain) != 0 {
		t.Error("Expected no label pixels when labels are disabled")
	}
	if countWhite(labelled) == 0 {
		t.Error("Expected label pixels above the box")
	}
}

func TestDrawAnnotationsBadColor(t *testing.T) {
	p := NewProcessor()
	if _, err := p.DrawAnnotations(createTestImage(5, 5), nil, nil, types.Style{Color: "not-a-color"}); err == nil {
		t.Error("Expected error for invalid color")
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"red":     {255, 0, 0, 255},
		"#00ff00": {0, 255, 0, 255},
		"0000FF":  {0, 0, 255, 255},
		" Gold ":  {255, 204, 0, 255},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Errorf("ParseColor(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseColor(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseColor("#12"); err == nil {
		t.Error("Expected error for short hex")
	}
}
