package domain

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Artifact is the user-supplied source file of a mission. Open is called at
// most once per submission.
type Artifact interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileArtifact is an artifact read from the local filesystem.
type FileArtifact struct {
	Path string
}

// NewFileArtifact returns an artifact for path.
func NewFileArtifact(path string) *FileArtifact {
	return &FileArtifact{Path: strings.TrimSpace(path)}
}

func (a *FileArtifact) Name() string {
	if a.Path == "" {
		return ""
	}
	return filepath.Base(a.Path)
}

func (a *FileArtifact) Open() (io.ReadCloser, error) {
	return os.Open(a.Path)
}

// UploadArtifact is a spooled copy of a file received over HTTP. The copy is
// removed when the reader returned by Open is closed.
type UploadArtifact struct {
	Filename string
	Path     string
}

func (a *UploadArtifact) Name() string {
	if strings.TrimSpace(a.Filename) == "" {
		return ""
	}
	return filepath.Base(a.Filename)
}

func (a *UploadArtifact) Open() (io.ReadCloser, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, err
	}
	return &removeOnClose{File: f}, nil
}

// Discard removes the spooled copy without reading it.
func (a *UploadArtifact) Discard() error {
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type removeOnClose struct {
	*os.File
}

func (r *removeOnClose) Close() error {
	err := r.File.Close()
	if rmErr := os.Remove(r.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	return err
}

// ValidArtifact reports whether a names a file that can be submitted.
func ValidArtifact(a Artifact) bool {
	if a == nil {
		return false
	}
	switch v := a.(type) {
	case *FileArtifact:
		if v == nil {
			return false
		}
	case *UploadArtifact:
		if v == nil || v.Path == "" {
			return false
		}
	}
	name := strings.TrimSpace(a.Name())
	return name != "" && name != "." && name != string(filepath.Separator)
}
