package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactSink receives finished export artifacts.
type ArtifactSink interface {
	SaveArtifact(ctx context.Context, data []byte, filename, contentType string) error
}

// DirSink saves artifacts as files in Dir.
type DirSink struct {
	Dir string
}

// SaveArtifact writes via a temp file and rename so no partial file is left behind.
func (s DirSink) SaveArtifact(ctx context.Context, data []byte, filename, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid artifact name %q", filename)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}
