package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/menta2k/devtools/internal/config"
	"github.com/menta2k/devtools/internal/logging"
	"github.com/menta2k/devtools/internal/utils"
	"github.com/menta2k/devtools/pkg/annotation"
	"github.com/menta2k/devtools/pkg/processing"
	"github.com/menta2k/devtools/pkg/types"
	"github.com/menta2k/devtools/pkg/viewer"
)

var errUsage = errors.New("usage")

type options struct {
	in        string
	format    string
	boxes     string
	boxesFile string
	config    string

	outDir   string
	ext      string
	quality  int
	lossless bool

	color      string
	labelColor string
	stroke     int
	labels     bool

	view      bool
	viewerCmd string

	// set records which flags were given explicitly so they win over the config file
	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{set: map[string]bool{}}
	def := config.Default()

	fs := flag.NewFlagSet("annotate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.in, "in", "", "input image path or URL (jpg/png/webp)")
	fs.StringVar(&o.format, "format", "", "annotation format: XY (xmin/ymin/xmax/ymax) or HW (left/top/width/height)")
	fs.StringVar(&o.boxes, "boxes", "", "JSON array of annotation objects")
	fs.StringVar(&o.boxesFile, "boxes-file", "", "file holding the JSON array, - for stdin")
	fs.StringVar(&o.config, "config", "", "TOML config file (default "+config.GetConfigPath()+" if present)")

	fs.StringVar(&o.outDir, "out", def.Output.Dir, "output directory")
	fs.StringVar(&o.ext, "ext", def.Output.Format, "artifact format: png|jpg|webp")
	fs.IntVar(&o.quality, "quality", def.Output.Quality, "JPEG/WebP quality (1-100)")
	fs.BoolVar(&o.lossless, "lossless", def.Output.Lossless, "WebP lossless mode")

	fs.StringVar(&o.color, "color", def.Overlay.Color, "outline color: name or #rrggbb")
	fs.StringVar(&o.labelColor, "label-color", def.Overlay.LabelColor, "label color (defaults to the outline color)")
	fs.IntVar(&o.stroke, "stroke", def.Overlay.Stroke, "outline width in pixels")
	fs.BoolVar(&o.labels, "labels", def.Overlay.Labels, "draw the name of each annotation")

	fs.BoolVar(&o.view, "view", def.Viewer.Interactive, "open the composite in an image viewer instead of writing it")
	fs.StringVar(&o.viewerCmd, "viewer", def.Viewer.Command, "viewer command used with -view")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if o.in == "" || o.format == "" || (o.boxes == "" && o.boxesFile == "") {
		fmt.Fprintf(stderr, "usage: %s -in image.jpg -format XY|HW -boxes '[...]' | -boxes-file f.json [-out dir] [-ext png|jpg|webp] [-view]\n", filepath.Base(os.Args[0]))
		return nil, errUsage
	}
	if o.boxes != "" && o.boxesFile != "" {
		return nil, fmt.Errorf("-boxes and -boxes-file are mutually exclusive")
	}
	return o, nil
}

// loadConfig reads the explicit config file, or the default one when it exists,
// and layers explicitly set flags on top.
func loadConfig(o *options) (*config.Config, error) {
	cfg := config.Default()
	path := o.config
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.set["out"] {
		cfg.Output.Dir = o.outDir
	}
	if o.set["ext"] {
		cfg.Output.Format = o.ext
	}
	if o.set["quality"] {
		cfg.Output.Quality = o.quality
	}
	if o.set["lossless"] {
		cfg.Output.Lossless = o.lossless
	}
	if o.set["color"] {
		cfg.Overlay.Color = o.color
	}
	if o.set["label-color"] {
		cfg.Overlay.LabelColor = o.labelColor
	}
	if o.set["stroke"] {
		cfg.Overlay.Stroke = o.stroke
	}
	if o.set["labels"] {
		cfg.Overlay.Labels = o.labels
	}
	if o.set["view"] {
		cfg.Viewer.Interactive = o.view
	}
	if o.set["viewer"] {
		cfg.Viewer.Command = o.viewerCmd
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readBoxes(o *options, stdin io.Reader) ([]annotation.Record, error) {
	data := []byte(o.boxes)
	if o.boxesFile != "" {
		var err error
		if o.boxesFile == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(o.boxesFile)
		}
		if err != nil {
			return nil, fmt.Errorf("read boxes: %w", err)
		}
	}
	return annotation.ParseJSON(data)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, logger zerolog.Logger) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "annotate: %v\n", err)
		}
		return 2
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "annotate: %v\n", err)
		return 1
	}

	records, err := readBoxes(o, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "annotate: %v\n", err)
		return 1
	}

	processor := processing.NewProcessor()
	var presenter viewer.Presenter
	if cfg.Viewer.Interactive {
		presenter = viewer.NewCommandPresenter(processor, cfg.Viewer.Command)
	} else {
		presenter = viewer.NewFilePresenter(processor, cfg.OutputOptions())
	}

	v := viewer.New(
		viewer.WithProcessor(processor),
		viewer.WithPresenter(presenter),
		viewer.WithStyle(cfg.Style()),
		viewer.WithOutput(stdout),
		viewer.WithLogger(logger),
	)

	res, err := v.Plot(ctx, o.in, types.Format(o.format), records)
	if err != nil {
		fmt.Fprintf(stderr, "annotate: %v\n", err)
		return 1
	}
	if !cfg.Viewer.Interactive {
		logger.Info().Str("path", res.Artifact).Msg("wrote")
	}
	return 0
}

func main() {
	logging.Init("annotate", logging.ProfileRuntime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, log.Logger)
	stop()
	os.Exit(code)
}
