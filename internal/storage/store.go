// Package storage owns the on-disk naming and lifecycle discipline for
// ingested media: every physical file lives under one of two configured
// roots, named by a freshly generated identifier. Identifier uniqueness
// is guaranteed by generation (128 bits of randomness via uuid), not by
// collision-detection lookups.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/clipdeck/clipdeck/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.Get("Storage")

type (
	// Role distinguishes the original uploaded bytes from artifacts the
	// pipeline derived from them.
	Role int

	// Asset is one physical file written by the pipeline. Paths are
	// always absolute; consumers must never have to guess a prefix.
	Asset struct {
		ID   uuid.UUID
		Kind media.Kind
		Role Role
		Path string
	}

	Config struct {
		UploadDir    string `yaml:"upload_dir" env:"UPLOAD_DIR" env-default:"./uploads" validate:"required"`
		ThumbnailDir string `yaml:"thumbnail_dir" env:"THUMBNAIL_DIR" env-default:"./thumbnails" validate:"required"`
	}

	Store struct {
		uploadDir    string
		thumbnailDir string
	}
)

const (
	OriginalRole Role = iota
	ThumbnailRole
)

// Thumbnails are always encoded as JPEG, regardless of source kind.
const thumbnailExtension = ".jpg"

// New resolves the configured roots to absolute paths, creating them
// if they're missing.
func New(config Config) (*Store, error) {
	uploadDir, err := ensureRoot(config.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("upload root unusable: %w", err)
	}

	thumbnailDir, err := ensureRoot(config.ThumbnailDir)
	if err != nil {
		return nil, fmt.Errorf("thumbnail root unusable: %w", err)
	}

	return &Store{uploadDir: uploadDir, thumbnailDir: thumbnailDir}, nil
}

// Allocate generates a fresh asset underneath the root owned by the
// given role. Only the extension of the caller-supplied filename is ever
// used - and only after it has passed classification, so a crafted
// filename can never steer the path. Thumbnails ignore the source
// filename entirely.
func (store *Store) Allocate(kind media.Kind, role Role, filename string) (Asset, error) {
	var ext string
	switch role {
	case ThumbnailRole:
		ext = thumbnailExtension
	case OriginalRole:
		classified, err := media.Classify(filename)
		if err != nil {
			return Asset{}, err
		}
		if classified != kind {
			return Asset{}, fmt.Errorf("filename %q does not classify as %s", filepath.Base(filename), kind)
		}
		ext = strings.ToLower(filepath.Ext(filename))
	default:
		return Asset{}, fmt.Errorf("unknown asset role %d", role)
	}

	id := uuid.New()
	return Asset{
		ID:   id,
		Kind: kind,
		Role: role,
		Path: filepath.Join(store.rootFor(role), id.String()+ext),
	}, nil
}

// Write stream-copies the source to the asset's path. If the copy fails
// part way through, the partial file is removed before the error is
// surfaced - a failed write must never leave an orphan behind.
func (store *Store) Write(asset Asset, source io.Reader) (int64, error) {
	file, err := os.Create(asset.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to create asset file: %w", err)
	}

	written, err := io.Copy(file, source)
	if err != nil {
		file.Close()
		store.discardPartial(asset)
		return written, fmt.Errorf("failed to write asset bytes: %w", err)
	}

	if err := file.Close(); err != nil {
		store.discardPartial(asset)
		return written, fmt.Errorf("failed to flush asset file: %w", err)
	}

	return written, nil
}

// Remove deletes the physical file behind an asset. The pipeline itself
// never calls this after an ingestion returns; cleanup of returned
// assets belongs to the persistence layer.
func (store *Store) Remove(asset Asset) error {
	if err := os.Remove(asset.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove asset %s: %w", asset.ID, err)
	}

	return nil
}

func (store *Store) UploadDir() string    { return store.uploadDir }
func (store *Store) ThumbnailDir() string { return store.thumbnailDir }

func (store *Store) rootFor(role Role) string {
	if role == ThumbnailRole {
		return store.thumbnailDir
	}
	return store.uploadDir
}

func (store *Store) discardPartial(asset Asset) {
	if err := os.Remove(asset.Path); err != nil {
		log.Emit(logger.WARNING, "Failed to remove partial asset file %s: %s\n", asset.Path, err.Error())
	}
}

func ensureRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}

	return abs, nil
}

func (r Role) String() string {
	switch r {
	case OriginalRole:
		return "original"
	case ThumbnailRole:
		return "thumbnail"
	default:
		return fmt.Sprintf("UNKNOWN[%d]", int(r))
	}
}
