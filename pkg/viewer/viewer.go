// Package viewer overlays rectangle annotations on an image and presents the result.
//
// A call loads the image, reports its size, computes one rectangle per
// annotation, draws the outlines in input order and hands the composite to a
// Presenter. Any failure aborts the call before anything is presented.
package viewer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/menta2k/devtools/pkg/annotation"
	"github.com/menta2k/devtools/pkg/processing"
	"github.com/menta2k/devtools/pkg/types"
)

// Result describes a completed render
type Result struct {
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Rects    []types.Rect `json:"rects"`
	Artifact string       `json:"artifact,omitempty"`
}

// Viewer renders annotations over images
type Viewer struct {
	processor *processing.Processor
	presenter Presenter
	style     types.Style
	out       io.Writer
	logger    zerolog.Logger
}

// Option configures a Viewer
type Option func(*Viewer)

// WithPresenter sets how the composite is shown or stored
func WithPresenter(p Presenter) Option {
	return func(v *Viewer) { v.presenter = p }
}

// WithStyle sets the outline style
func WithStyle(s types.Style) Option {
	return func(v *Viewer) { v.style = s }
}

// WithOutput sets where the size diagnostic is written
func WithOutput(w io.Writer) Option {
	return func(v *Viewer) { v.out = w }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(v *Viewer) { v.logger = l }
}

// WithProcessor sets the image processor
func WithProcessor(p *processing.Processor) Option {
	return func(v *Viewer) { v.processor = p }
}

// New creates a Viewer. Without options it writes PNG artifacts to the
// working directory and reports sizes on stdout.
func New(opts ...Option) *Viewer {
	v := &Viewer{
		processor: processing.NewProcessor(),
		out:       os.Stdout,
		logger:    log.Logger,
		style:     types.Style{Color: processing.DefaultColor, Stroke: 1},
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.presenter == nil {
		v.presenter = NewFilePresenter(v.processor, types.OutputOptions{Dir: ".", Suffix: "_annotated", Extension: "png"})
	}
	return v
}

// Plot interprets records with the given format selector and shows them over the image at path.
// An unknown selector or a record missing a key for the selected mode fails with
// annotation.ErrAnnotationFormat and nothing is drawn.
func (v *Viewer) Plot(ctx context.Context, path string, format types.Format, records []annotation.Record) (*Result, error) {
	return v.render(ctx, path, func() ([]types.Annotation, error) {
		return annotation.Decode(format, records)
	})
}

// Show draws typed annotations over the image at path.
func (v *Viewer) Show(ctx context.Context, path string, anns []types.Annotation) (*Result, error) {
	return v.render(ctx, path, func() ([]types.Annotation, error) {
		return anns, nil
	})
}

func (v *Viewer) render(ctx context.Context, path string, resolve func() ([]types.Annotation, error)) (*Result, error) {
	img, err := v.processor.LoadImageSmart(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	res := &Result{Width: bounds.Dx(), Height: bounds.Dy()}
	fmt.Fprintf(v.out, "width: %d  height: %d\n", res.Width, res.Height)

	anns, err := resolve()
	if err != nil {
		return nil, err
	}
	if err := annotation.ValidateAll(anns); err != nil {
		return nil, err
	}

	res.Rects = annotation.Rects(anns)
	labels := make([]string, len(anns))
	for i, a := range anns {
		labels[i] = a.Name()
		v.logger.Debug().Int("index", i).Str("format", string(a.Format())).Stringer("rect", res.Rects[i]).Msg("annotation")
	}

	composite, err := v.processor.DrawAnnotations(img, res.Rects, labels, v.style)
	if err != nil {
		return nil, err
	}

	artifact, err := v.presenter.Present(ctx, composite, path)
	if err != nil {
		return nil, err
	}
	res.Artifact = artifact

	v.logger.Info().Str("image", path).Int("boxes", len(res.Rects)).Str("artifact", artifact).Msg("rendered")
	return res, nil
}
