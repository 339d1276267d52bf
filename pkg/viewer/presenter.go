package viewer

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/menta2k/devtools/internal/utils"
	"github.com/menta2k/devtools/pkg/processing"
	"github.com/menta2k/devtools/pkg/types"
)

// Presenter shows or stores a composited image. Present blocks until the
// artifact is written or, for interactive presenters, until the viewer exits.
// It returns the path of the artifact it produced.
type Presenter interface {
	Present(ctx context.Context, img image.Image, source string) (string, error)
}

// FilePresenter writes the composited image next to the configured output directory
type FilePresenter struct {
	Processor *processing.Processor
	Options   types.OutputOptions
}

// NewFilePresenter creates a presenter that writes artifacts using opts
func NewFilePresenter(p *processing.Processor, opts types.OutputOptions) *FilePresenter {
	return &FilePresenter{Processor: p, Options: opts}
}

func (f *FilePresenter) Present(ctx context.Context, img image.Image, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := f.Options.Extension
	if ext == "" {
		ext = "png"
	}
	dir := f.Options.Dir
	if dir == "" {
		dir = "."
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := utils.GenerateOutputFilename(source, dir, "", f.Options.Suffix, ext)
	if err := f.Processor.SaveImage(img, path, ext, f.Options.Quality, f.Options.Lossless); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// CommandPresenter writes a temporary PNG and hands it to an external image viewer
type CommandPresenter struct {
	Processor *processing.Processor
	// Command is the viewer executable and its leading arguments; the image path is appended.
	Command []string
	// Keep leaves the temporary file in place after the viewer exits.
	Keep bool
}

// NewCommandPresenter creates a presenter that runs command, or the platform default when empty
func NewCommandPresenter(p *processing.Processor, command string) *CommandPresenter {
	args := strings.Fields(command)
	if len(args) == 0 {
		args = DefaultViewerCommand()
	}
	return &CommandPresenter{Processor: p, Command: args}
}

// DefaultViewerCommand returns the platform's file opener
func DefaultViewerCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"open", "-W"}
	case "windows":
		return []string{"cmd", "/c", "start", "/wait", ""}
	default:
		return []string{"xdg-open"}
	}
}

func (c *CommandPresenter) Present(ctx context.Context, img image.Image, source string) (string, error) {
	if len(c.Command) == 0 {
		return "", fmt.Errorf("no viewer command configured")
	}

	tmp, err := os.CreateTemp("", "annotate-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()

	if err := c.Processor.SaveImage(img, path, "png", 0, false); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if !c.Keep {
		defer os.Remove(path)
	}

	args := append(append([]string{}, c.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return path, fmt.Errorf("viewer %s for %s: %w", c.Command[0], filepath.Base(source), err)
	}
	return path, nil
}
