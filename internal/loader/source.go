package loader

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/hyperjump/miftah/internal/models"
)

//go:embed data/*
var bundled embed.FS

// Source opens named corpus files.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// EmbeddedSource serves the corpus bundled into the binary.
type EmbeddedSource struct{}

// Open opens name from the bundled data directory.
func (EmbeddedSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := bundled.Open(path.Join("data", name))
	if err != nil {
		return nil, classifyOpenError(name, err)
	}
	return f, nil
}

// DirSource serves corpus files from a directory on disk.
type DirSource struct {
	Dir string
}

// Open opens name inside the directory.
func (s DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.Dir, filepath.Clean("/"+name)))
	if err != nil {
		return nil, classifyOpenError(name, err)
	}
	return f, nil
}

// classifyOpenError maps a filesystem error to a LoadError. Missing and
// forbidden files are permanent; anything else is treated as transient.
func classifyOpenError(name string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return models.NewLoadError(models.CodeNotFound, false, err, "open %s", name)
	case errors.Is(err, fs.ErrPermission):
		return models.NewLoadError(models.CodeUnknown, false, err, "open %s", name)
	}
	return models.NewLoadError(models.CodeNetwork, true, err, "open %s", name)
}

func readAll(ctx context.Context, src Source, name string) ([]byte, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, models.NewLoadError(models.CodeNetwork, true, err, "read %s", name)
	}
	return data, nil
}
