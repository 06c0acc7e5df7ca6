// Package blob is the content-addressed attachment store. Blobs are written
// to a path derived from the SHA-256 of their own content, so identical
// content is stored exactly once regardless of how many attachments
// reference it.
package blob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chamfer/internal/artifact"
	"chamfer/internal/hashing"
)

// ErrNotFound is returned by Path when no blob exists for a digest.
var ErrNotFound = errors.New("blob not found")

// Store writes and resolves content-addressed blobs under a root directory.
// Layout: <root>/<digest[:2]>/<digest><ext-hint>. Files are never rewritten.
type Store struct {
	root string
}

// New returns a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("blob: empty root dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Put stores content and returns its attachment metadata and on-disk path.
// The write is idempotent: if a blob with the same digest already exists the
// existing file is left untouched and fresh metadata is returned anyway.
func (s *Store) Put(content []byte, kind, mime, filename string) (artifact.Attachment, string, error) {
	digest := hashing.DigestBytes(content)

	att := artifact.Attachment{
		SHA256:    digest,
		Kind:      kind,
		MIME:      mime,
		Filename:  filename,
		SizeBytes: int64(len(content)),
		CreatedAt: time.Now().UTC(),
	}

	// Dedup on the digest alone. An earlier Put of the same content under a
	// different filename already stored this blob, just with another
	// extension hint.
	if existing, err := s.Path(digest); err == nil {
		return att, existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return artifact.Attachment{}, "", err
	}

	path := s.pathFor(digest, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return artifact.Attachment{}, "", fmt.Errorf("blob: create shard dir: %w", err)
	}
	// Temp + rename so a concurrent Put of the same content never observes a
	// partial file. Rename over an existing path is fine: same content.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return artifact.Attachment{}, "", fmt.Errorf("blob: temp file: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return artifact.Attachment{}, "", fmt.Errorf("blob: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return artifact.Attachment{}, "", fmt.Errorf("blob: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return artifact.Attachment{}, "", fmt.Errorf("blob: rename: %w", err)
	}
	return att, path, nil
}

// Path resolves a digest to its on-disk path. The format-hint suffix is
// ignored for lookup: any file in the digest's shard whose name starts with
// the digest matches.
func (s *Store) Path(digest string) (string, error) {
	if len(digest) < 3 {
		return "", ErrNotFound
	}
	shard := filepath.Join(s.root, digest[:2])
	entries, err := os.ReadDir(shard)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("blob: read shard: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if name == digest || (len(name) > len(digest) && name[:len(digest)] == digest) {
			return filepath.Join(shard, name), nil
		}
	}
	return "", ErrNotFound
}

// pathFor derives the storage path, carrying the original extension as a
// format hint when the filename has one.
func (s *Store) pathFor(digest, filename string) string {
	ext := filepath.Ext(filename)
	return filepath.Join(s.root, digest[:2], digest+ext)
}
