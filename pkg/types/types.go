package types

import "fmt"

// Format selects how an untyped annotation record is interpreted
type Format string

const (
	// FormatXY is the corner-pair form: xmin, ymin, xmax, ymax
	FormatXY Format = "XY"
	// FormatHW is the origin-plus-extent form: left, top, width, height
	FormatHW Format = "HW"
)

// Valid reports whether f is one of the known formats
func (f Format) Valid() bool {
	return f == FormatXY || f == FormatHW
}

// Rect is an axis-aligned rectangle in image pixel space
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Max returns the bottom-right corner
func (r Rect) Max() (float64, float64) {
	return r.X + r.W, r.Y + r.H
}

func (r Rect) String() string {
	return fmt.Sprintf("%gx%g@%g,%g", r.W, r.H, r.X, r.Y)
}

// Annotation is one rectangle in either encoding. The concrete type is the tag.
type Annotation interface {
	Rect() Rect
	Format() Format
	Name() string
}

// XYBox is an annotation given by its min and max corners
type XYBox struct {
	XMin  float64 `json:"xmin"`
	YMin  float64 `json:"ymin"`
	XMax  float64 `json:"xmax"`
	YMax  float64 `json:"ymax"`
	Label string  `json:"name,omitempty"`
}

// Rect converts the corner pair into origin and extents
func (b XYBox) Rect() Rect {
	return Rect{X: b.XMin, Y: b.YMin, W: b.XMax - b.XMin, H: b.YMax - b.YMin}
}

func (b XYBox) Format() Format { return FormatXY }

func (b XYBox) Name() string { return b.Label }

// HWBox is an annotation given by its top-left corner and size
type HWBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Label  string  `json:"name,omitempty"`
}

// Rect is the identity mapping for HW boxes
func (b HWBox) Rect() Rect {
	return Rect{X: b.Left, Y: b.Top, W: b.Width, H: b.Height}
}

func (b HWBox) Format() Format { return FormatHW }

func (b HWBox) Name() string { return b.Label }

// Style controls how outlines are drawn
type Style struct {
	Color      string
	Stroke     int
	Labels     bool
	LabelColor string
}

// OutputOptions describes the artifact written by a file presenter
type OutputOptions struct {
	Dir       string
	Suffix    string
	Extension string
	Quality   int
	Lossless  bool
}
