package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/clipdeck/clipdeck/internal/storage"
	"github.com/clipdeck/clipdeck/pkg/logger"
)

var log = logger.Get("Ingest")

type (
	// Upload is the ephemeral description of one submitted file. It is
	// consumed exactly once; the source reader is drained during the
	// ingestion call and never retained.
	Upload struct {
		Filename string
		Size     int64
		Source   io.Reader
	}

	// Record is the durable result of a successful ingestion. Ownership
	// passes to the caller on return; the pipeline never mutates or
	// deletes the referenced assets afterwards.
	Record struct {
		Original         storage.Asset
		Thumbnail        *storage.Asset
		Metadata         media.Metadata
		OriginalFilename string
		Size             int64

		// Diagnostics carries the non-fatal failures (metadata or
		// thumbnail degradation) encountered while building this record.
		Diagnostics []Failure
	}

	Config struct {
		// MaxFileSize is the upload size ceiling in bytes.
		MaxFileSize int64 `yaml:"max_file_size" env:"MAX_FILE_SIZE" env-default:"104857600" validate:"gt=0"`

		// ProbeTimeoutSeconds bounds each external ffprobe invocation.
		// Expiry is treated identically to a probe failure.
		ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds" env:"PROBE_TIMEOUT_SECONDS" env-default:"30" validate:"gt=0"`
	}

	extractor interface {
		Extract(ctx context.Context, path string, kind media.Kind) (media.Metadata, error)
	}

	thumbnailer interface {
		Generate(ctx context.Context, source string, kind media.Kind, outputPath string) (bool, error)
	}

	assetStore interface {
		Allocate(kind media.Kind, role storage.Role, filename string) (storage.Asset, error)
		Write(asset storage.Asset, source io.Reader) (int64, error)
		Remove(asset storage.Asset) error
	}

	// Service is the ingestion orchestrator. It holds no per-call state,
	// so a single instance is safe to use from any number of concurrent
	// call sites.
	Service struct {
		validator   *media.Validator
		assets      assetStore
		extractor   extractor
		thumbnailer thumbnailer
	}
)

func (config *Config) ProbeTimeout() time.Duration {
	return time.Duration(config.ProbeTimeoutSeconds) * time.Second
}

func New(config Config, assets assetStore, extractor extractor, thumbnailer thumbnailer) *Service {
	return &Service{
		validator:   media.NewValidator(config.MaxFileSize),
		assets:      assets,
		extractor:   extractor,
		thumbnailer: thumbnailer,
	}
}

// Ingest runs one upload through the pipeline:
//   - validate declared size and type (fatal on reject, before any I/O)
//   - persist the original bytes (fatal on write failure, partials removed)
//   - extract metadata (non-fatal; empty metadata on failure)
//   - derive a thumbnail (non-fatal; absent thumbnail on failure)
//
// The call is synchronous and single-attempt. Fatal errors are returned
// as a Failure; everything else lands on the returned record.
func (service *Service) Ingest(ctx context.Context, upload Upload) (*Record, error) {
	kind, err := service.validator.Validate(upload.Filename, upload.Size)
	if err != nil {
		return nil, newValidationFailure(err)
	}

	original, err := service.assets.Allocate(kind, storage.OriginalRole, upload.Filename)
	if err != nil {
		return nil, newFailure(STORAGE_WRITE_FAILED, fmt.Errorf("failed to allocate asset for %s: %w", upload.Filename, err))
	}

	written, err := service.assets.Write(original, upload.Source)
	if err != nil {
		return nil, newFailure(STORAGE_WRITE_FAILED, err)
	}

	log.Emit(logger.NEW, "Persisted %s upload %q as asset %s (%d bytes)\n", kind, upload.Filename, original.ID, written)

	record := &Record{
		Original:         original,
		Metadata:         media.Metadata{Kind: kind},
		OriginalFilename: upload.Filename,
		Size:             written,
	}

	// Metadata extraction failure deprives the record of metadata, but a
	// corrupt or unprobeable stream never aborts the upload itself.
	if metadata, err := service.extractor.Extract(ctx, original.Path, kind); err == nil {
		record.Metadata = metadata
	} else {
		log.Emit(logger.WARNING, "Metadata extraction failed for asset %s: %s\n", original.ID, err.Error())
		record.Diagnostics = append(record.Diagnostics, newFailure(METADATA_UNAVAILABLE, err))
	}

	record.Thumbnail = service.deriveThumbnail(ctx, record, kind)

	return record, nil
}

// deriveThumbnail is always best-effort. A nil result with no recorded
// diagnostic means the kind simply has no thumbnail (audio).
func (service *Service) deriveThumbnail(ctx context.Context, record *Record, kind media.Kind) *storage.Asset {
	thumb, err := service.assets.Allocate(kind, storage.ThumbnailRole, "")
	if err != nil {
		record.Diagnostics = append(record.Diagnostics, newFailure(THUMBNAIL_UNAVAILABLE, err))
		return nil
	}

	generated, err := service.thumbnailer.Generate(ctx, record.Original.Path, kind, thumb.Path)
	if err != nil {
		log.Emit(logger.WARNING, "Thumbnail generation failed for asset %s: %s\n", record.Original.ID, err.Error())
		record.Diagnostics = append(record.Diagnostics, newFailure(THUMBNAIL_UNAVAILABLE, err))
		return nil
	}
	if !generated {
		return nil
	}

	return &thumb
}
