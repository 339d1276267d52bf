package processing

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/devtools/pkg/types"
)

// ErrImageLoad is returned when an image is missing, unreadable or cannot be decoded
var ErrImageLoad = errors.New("processing: image load failed")

// DefaultColor is the outline color used when a style leaves it empty
const DefaultColor = "red"

// Processor handles image processing operations
type Processor struct {
	client *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageLoad, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrImageLoad, path, err)
	}

	img, err := p.decodeImageFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageLoad, path, err)
	}
	return img, nil
}

// LoadImageFromURL downloads and loads an image from a URL
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", ErrImageLoad, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported URL scheme: %s", ErrImageLoad, parsedURL.Scheme)
	}

	resp, err := p.client.Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %v", ErrImageLoad, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download: HTTP %d", ErrImageLoad, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrImageLoad, err)
	}

	img, err := p.decodeImageFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageLoad, imageURL, err)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// decodeImageFromBytes decodes an image from byte data with WebP support.
// EXIF orientation is applied for JPEGs so boxes line up with what a viewer shows.
func (p *Processor) decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("unknown or unsupported image format")
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// DrawAnnotations returns a copy of img with each rect drawn as an unfilled outline.
// Rects are drawn in order so later ones paint over earlier ones. labels is
// indexed like rects and may be shorter or nil.
func (p *Processor) DrawAnnotations(img image.Image, rects []types.Rect, labels []string, style types.Style) (*image.NRGBA, error) {
	stroke := style.Stroke
	if stroke <= 0 {
		stroke = 1
	}

	colorName := style.Color
	if colorName == "" {
		colorName = DefaultColor
	}
	boxColor, err := ParseColor(colorName)
	if err != nil {
		return nil, err
	}

	labelColor := boxColor
	if style.LabelColor != "" {
		if labelColor, err = ParseColor(style.LabelColor); err != nil {
			return nil, err
		}
	}

	nrgba := imaging.Clone(img)

	for i, r := range rects {
		x0, y0, x1, y1 := rectToPixels(r, nrgba.Rect.Min)
		drawBox(nrgba, x0, y0, x1, y1, boxColor, stroke)

		if style.Labels && i < len(labels) && labels[i] != "" {
			drawLabel(nrgba, x0, y0, labels[i], labelColor)
		}
	}

	return nrgba, nil
}

var namedColors = map[string]string{
	"red":     "#ff0000",
	"green":   "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"white":   "#ffffff",
	"black":   "#000000",
	"orange":  "#ff8000",
	"gold":    "#ffcc00",
}

// ParseColor parses a named color or a "#rrggbb" hex string into an opaque color
func ParseColor(s string) (color.NRGBA, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[key]; ok {
		key = hex
	}
	if !strings.HasPrefix(key, "#") {
		key = "#" + key
	}

	c, err := colorful.Hex(key)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// rectToPixels converts a rect into inclusive pixel corners relative to the image origin
func rectToPixels(r types.Rect, origin image.Point) (int, int, int, int) {
	maxX, maxY := r.Max()
	x0 := int(math.Round(r.X)) + origin.X
	y0 := int(math.Round(r.Y)) + origin.Y
	x1 := int(math.Round(maxX)) + origin.X
	y1 := int(math.Round(maxY)) + origin.Y
	return x0, y0, x1, y1
}

// drawBox strokes inward from the corners. The stroke is capped at half of each
// extent so thick outlines on small boxes stay inside the rectangle.
func drawBox(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA, stroke int) {
	sx := min(stroke, (x1-x0)/2+1)
	sy := min(stroke, (y1-y0)/2+1)
	for s := 0; s < sy; s++ {
		drawHLine(img, y0+s, x0, x1+1, c)
		drawHLine(img, y1-s, x0, x1+1, c)
	}
	for s := 0; s < sx; s++ {
		drawVLine(img, x0+s, y0, y1+1, c)
		drawVLine(img, x1-s, y0, y1+1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	if x0 >= x1 {
		return
	}
	i := img.PixOffset(x0, y)
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	if y0 >= y1 {
		return
	}
	i := img.PixOffset(x, y0)
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}

// drawLabel writes text just above the box, or inside it when the box touches the top edge
func drawLabel(img *image.NRGBA, x0, y0 int, text string, c color.NRGBA) {
	face := basicfont.Face7x13
	baseline := y0 - face.Descent - 1
	if baseline-face.Ascent < img.Bounds().Min.Y {
		baseline = y0 + face.Ascent + 1
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x0, baseline),
	}
	d.DrawString(text)
}
