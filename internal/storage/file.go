package storage

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/IshaanNene/linkfeed/internal/types"
)

// Output writes feeds to a file, or to stdout when no path is set.
type Output struct {
	path   string
	stdout io.Writer
	writer FeedWriter
	logger *slog.Logger
}

// NewOutput creates an Output. An empty path or "-" means stdout.
func NewOutput(path string, writer FeedWriter, logger *slog.Logger) *Output {
	if path == "-" {
		path = ""
	}
	return &Output{
		path:   path,
		stdout: os.Stdout,
		writer: writer,
		logger: logger.With("component", "output"),
	}
}

// Write serializes feed to the destination. File output goes through a
// temporary file in the same directory, so readers never see a partial
// feed.
func (o *Output) Write(feed *types.Feed) error {
	if o.path == "" {
		if err := o.writer.Write(o.stdout, feed); err != nil {
			return &types.StorageError{Backend: o.writer.Name(), Err: err}
		}
		return nil
	}

	if err := o.writeFile(feed); err != nil {
		return &types.StorageError{Backend: o.writer.Name(), Err: err}
	}
	o.logger.Info("feed written", "path", o.path, "format", o.writer.Name(), "items", len(feed.Items))
	return nil
}

func (o *Output) writeFile(feed *types.Feed) error {
	if err := os.MkdirAll(filepath.Dir(o.path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var buf bytes.Buffer
	if err := o.writer.Write(&buf, feed); err != nil {
		return err
	}
	if err := atomic.WriteFile(o.path, &buf); err != nil {
		return fmt.Errorf("replace output file: %w", err)
	}
	if err := os.Chmod(o.path, 0o644); err != nil {
		return fmt.Errorf("chmod output file: %w", err)
	}
	return nil
}
