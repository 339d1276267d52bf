// Package devtools bundles two small developer utilities: an annotation viewer
// that outlines rectangles over an image, and a websocket listener that prints
// every frame an endpoint pushes.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/menta2k/devtools"
//	)
//
//	func main() {
//		// Outline two boxes given as left/top/width/height
//		res, err := devtools.Plot("8b8c68b646bf9cfa57c87a2ba455cbd7.jpeg", "HW", []map[string]any{
//			{"left": 171, "top": 177, "width": 138, "height": 75},
//			{"left": 351, "top": 178, "width": 119, "height": 42},
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("wrote %s", res.Artifact)
//
//		// Print progress frames until the server closes the connection
//		devtools.Listen(context.Background(), "ws://localhost:8080/v1/uploads/1?websocket=true")
//	}
//
// The package consists of these components:
//
// 1. Annotation (pkg/annotation): decodes XY and HW records into typed boxes
// 2. Processing (pkg/processing): image loading, saving and outline drawing
// 3. Viewer (pkg/viewer): loads, reports, draws and presents
// 4. Listener (pkg/listener): websocket receive loop
//
// The cmd/annotate and cmd/wslisten tools expose the same operations on the
// command line.
package devtools

import (
	"context"

	"github.com/menta2k/devtools/pkg/annotation"
	"github.com/menta2k/devtools/pkg/listener"
	"github.com/menta2k/devtools/pkg/types"
	"github.com/menta2k/devtools/pkg/viewer"
)

// Version of the devtools library
const Version = "1.0.0"

// Plot draws records over the image at path using the default viewer, which
// prints the image size to stdout and writes <name>_annotated.png to the
// working directory. format is "XY" or "HW".
func Plot(path, format string, records []map[string]any) (*viewer.Result, error) {
	recs := make([]annotation.Record, len(records))
	for i, r := range records {
		recs[i] = annotation.Record(r)
	}
	return viewer.New().Plot(context.Background(), path, types.Format(format), recs)
}

// Listen dials address and prints frames to stdout until the connection ends.
// Receive errors end the loop and are reported in the returned result; only a
// dial failure is returned as an error.
func Listen(ctx context.Context, address string, opts ...listener.Option) (listener.Result, error) {
	l, err := listener.Dial(ctx, listener.DefaultConfig(address), opts...)
	if err != nil {
		return listener.Result{}, err
	}
	return l.Run(ctx), nil
}
