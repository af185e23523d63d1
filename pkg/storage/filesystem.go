package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Lookup errors.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidPath    = errors.New("invalid object path")
)

// ObjectStore is a bucketed blob store addressable by public URL.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, name string, content []byte) error
	PublicURL(bucket, name string) string
	Open(bucket, name string) (io.ReadCloser, int64, error)
	Remove(ctx context.Context, bucket, name string) error
}

// LocalObjectStore persists objects on disk under <baseDir>/<bucket>/<name>.
type LocalObjectStore struct {
	baseDir       string
	publicBaseURL string
}

// NewLocalObjectStore ensures the base directory exists and returns a handle.
func NewLocalObjectStore(baseDir, publicBaseURL string) (*LocalObjectStore, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalObjectStore{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Upload writes content atomically. An existing object with the same name is replaced.
func (s *LocalObjectStore) Upload(ctx context.Context, bucket, name string, content []byte) error {
	path, err := s.resolve(bucket, name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare bucket %s: %w", bucket, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create object %s/%s: %w", bucket, name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, bytes.NewReader(content)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write object %s/%s: %w", bucket, name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object %s/%s: %w", bucket, name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit object %s/%s: %w", bucket, name, err)
	}
	return nil
}

// PublicURL derives the URL without checking that the object exists.
func (s *LocalObjectStore) PublicURL(bucket, name string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, url.PathEscape(bucket), url.PathEscape(name))
}

// Open returns a read handle and the object size.
func (s *LocalObjectStore) Open(bucket, name string) (io.ReadCloser, int64, error) {
	path, err := s.resolve(bucket, name)
	if err != nil {
		return nil, 0, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrObjectNotFound
		}
		return nil, 0, fmt.Errorf("open object %s/%s: %w", bucket, name, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("stat object %s/%s: %w", bucket, name, err)
	}
	return file, info.Size(), nil
}

// Remove deletes an object. Missing objects are not an error.
func (s *LocalObjectStore) Remove(ctx context.Context, bucket, name string) error {
	path, err := s.resolve(bucket, name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s/%s: %w", bucket, name, err)
	}
	return nil
}

func (s *LocalObjectStore) resolve(bucket, name string) (string, error) {
	if !validSegment(bucket) || !validSegment(name) {
		return "", fmt.Errorf("%w %q/%q", ErrInvalidPath, bucket, name)
	}
	return filepath.Join(s.baseDir, bucket, name), nil
}

func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}
