// Package media keeps uploaded evidence files and profile pictures on local disk.
package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	UploadsDir         = "uploads"
	ProfilePicturesDir = "profile_pictures"

	maxNameLength = 100
)

type Store struct {
	root string
	log  *zap.Logger
}

// Saved describes a stored file. Path is relative to the store root and always
// uses forward slashes, so it can double as the URL suffix under /media/.
type Saved struct {
	Path string
	Name string
	Size int64
}

func NewStore(root string, log *zap.Logger) (*Store, error) {
	for _, dir := range []string{UploadsDir, ProfilePicturesDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media directory: %w", err)
		}
	}
	return &Store{root: root, log: log}, nil
}

// Save copies r into subdir under a collision-free name derived from filename.
func (s *Store) Save(subdir, filename string, r io.Reader) (Saved, error) {
	name := uuid.NewString()[:8] + "-" + cleanName(filename)
	rel := path.Join(subdir, name)

	dst, err := os.OpenFile(filepath.Join(s.root, filepath.FromSlash(rel)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Saved{}, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst.Name())
		return Saved{}, fmt.Errorf("failed to save file: %w", err)
	}

	s.log.Debug("stored file", zap.String("path", rel), zap.Int64("size", size))
	return Saved{Path: rel, Name: name, Size: size}, nil
}

// Remove deletes a stored file. Removing a file that is already gone is not an error.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", fmt.Errorf("invalid media path %q", rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Handler serves stored files under prefix. Directory listings are refused.
func (s *Store) Handler(prefix string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(s.root)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// cleanName reduces a client supplied file name to a safe base name.
func cleanName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		name = "file"
	}
	if len(name) > maxNameLength {
		ext := path.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:maxNameLength-len(ext)] + ext
	}
	return name
}
