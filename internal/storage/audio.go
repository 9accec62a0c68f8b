// Package storage holds submitted speaking recordings on the local
// filesystem. Keys are relative paths under the configured base directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// AudioStore persists and retrieves attempt audio recordings.
type AudioStore interface {
	Put(key string, r io.Reader) (string, error)
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
}

type FSStore struct {
	base string
}

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data/audio"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

// AudioKey builds the storage key for one speaking part of an attempt.
// The extension comes from the uploaded filename; unrecognized or missing
// extensions fall back to .bin.
func AudioKey(attemptID, partID uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp3", ".wav", ".ogg", ".webm", ".m4a":
	default:
		ext = ".bin"
	}
	return fmt.Sprintf("attempts/%d/part_%d%s", attemptID, partID, ext)
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	dst := filepath.Join(s.base, filepath.Clean(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return key, nil
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.base, filepath.Clean(key)))
}

func (s *FSStore) Delete(key string) error {
	return os.Remove(filepath.Join(s.base, filepath.Clean(key)))
}
