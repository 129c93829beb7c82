package media

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/clipdeck/clipdeck/internal/ffmpeg"
	"github.com/clipdeck/clipdeck/pkg/logger"
	"github.com/disintegration/imaging"
)

// Thumbnails are JPEG previews that fit within a fixed bounding box,
// preserving the source aspect ratio.
const (
	ThumbnailMaxWidth  = 320
	ThumbnailMaxHeight = 240

	// Frames for video thumbnails are taken this far into the stream;
	// shorter streams fall back to the first available frame.
	thumbnailSeekSeconds = 1

	thumbnailJpegQuality = 80
)

type frameExtractFunc func(ctx context.Context, config ffmpeg.Config, source string, output string, seekSeconds int) error

// Thumbnailer derives the bounded-dimension preview for a stored media
// file. Generation is always best-effort; callers must treat any error as
// 'no thumbnail' rather than an ingestion failure.
type Thumbnailer struct {
	ffmpegConfig ffmpeg.Config
	extractFrame frameExtractFunc
}

func NewThumbnailer(config ffmpeg.Config) *Thumbnailer {
	return &Thumbnailer{
		ffmpegConfig: config,
		extractFrame: ffmpeg.ExtractFrame,
	}
}

// Generate writes a JPEG preview for the file at 'source' to 'outputPath'.
// The boolean result reports whether a thumbnail was produced; audio files
// yield (false, nil) as their lack of thumbnail is a normal outcome.
func (thumbnailer *Thumbnailer) Generate(ctx context.Context, source string, kind Kind, outputPath string) (bool, error) {
	switch kind {
	case Audio:
		return false, nil
	case Image:
		if err := thumbnailer.generateImageThumbnail(source, outputPath); err != nil {
			return false, err
		}
		return true, nil
	case Video:
		if err := thumbnailer.generateVideoThumbnail(ctx, source, outputPath); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("cannot generate thumbnail for unknown media kind %v", kind)
	}
}

func (thumbnailer *Thumbnailer) generateImageThumbnail(source string, outputPath string) error {
	img, err := imaging.Open(source, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image %s: %w", source, err)
	}

	return saveFitted(img, outputPath)
}

func (thumbnailer *Thumbnailer) generateVideoThumbnail(ctx context.Context, source string, outputPath string) error {
	frameFile, err := os.CreateTemp("", "clipdeck-frame-*.png")
	if err != nil {
		return fmt.Errorf("failed to allocate temporary frame file: %w", err)
	}
	framePath := frameFile.Name()
	frameFile.Close()
	defer os.Remove(framePath)

	// Try for a frame at the fixed offset first; streams shorter than the
	// offset produce nothing, so retry from the very first frame.
	if err := thumbnailer.extractFrame(ctx, thumbnailer.ffmpegConfig, source, framePath, thumbnailSeekSeconds); err != nil {
		log.Emit(logger.DEBUG, "Frame extraction at %ds offset failed for %s (%s), retrying from first frame\n", thumbnailSeekSeconds, source, err.Error())
		if err := thumbnailer.extractFrame(ctx, thumbnailer.ffmpegConfig, source, framePath, -1); err != nil {
			return fmt.Errorf("failed to extract frame from %s: %w", source, err)
		}
	}

	img, err := imaging.Open(framePath)
	if err != nil {
		return fmt.Errorf("failed to decode extracted frame: %w", err)
	}

	return saveFitted(img, outputPath)
}

func saveFitted(img image.Image, outputPath string) error {
	thumb := imaging.Fit(img, ThumbnailMaxWidth, ThumbnailMaxHeight, imaging.Lanczos)
	if err := imaging.Save(thumb, outputPath, imaging.JPEGQuality(thumbnailJpegQuality)); err != nil {
		// Don't leave a partial preview behind
		os.Remove(outputPath)
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return nil
}
