package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/clipdeck/clipdeck/internal/ffmpeg"
	"github.com/clipdeck/clipdeck/pkg/logger"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var log = logger.Get("Media")

type (
	// Rational is a strictly-parsed frame rate. The probe reports frame
	// rates as '<int>/<int>' expressions; they are only ever evaluated
	// as a ratio of two integers, never as arbitrary input.
	Rational struct {
		Num int `json:"num"`
		Den int `json:"den"`
	}

	VideoMetadata struct {
		Width     int      `json:"width"`
		Height    int      `json:"height"`
		Duration  float64  `json:"duration"`
		FrameRate Rational `json:"frame_rate"`
		Codec     string   `json:"codec"`
	}

	AudioMetadata struct {
		Duration   float64 `json:"duration"`
		Codec      string  `json:"codec"`
		SampleRate int     `json:"sample_rate"`
		Channels   int     `json:"channels"`
	}

	ImageMetadata struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Format string `json:"format"`
	}

	// Metadata is a closed kind-tagged container; exactly one of the
	// payload pointers is populated, matching 'Kind'. The zero value is
	// the 'empty metadata' object recorded when extraction fails.
	Metadata struct {
		Kind  Kind           `json:"kind"`
		Video *VideoMetadata `json:"video,omitempty"`
		Audio *AudioMetadata `json:"audio,omitempty"`
		Image *ImageMetadata `json:"image,omitempty"`
	}
)

// DefaultFrameRate is the rate recorded when the probe report carries no
// parseable frame rate expression.
var DefaultFrameRate = Rational{Num: 30, Den: 1}

func (r Rational) Value() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// Empty reports whether this metadata carries no extracted payload.
func (meta *Metadata) Empty() bool {
	return meta.Video == nil && meta.Audio == nil && meta.Image == nil
}

// ParseFrameRate evaluates a '<int>/<int>' expression as a rational
// number. Anything else - including negative or zero components - is
// rejected so that a hostile probe report cannot smuggle anything past
// the parser.
func ParseFrameRate(input string) (Rational, error) {
	rawNum, rawDen, found := strings.Cut(input, "/")
	if !found {
		return Rational{}, fmt.Errorf("frame rate %q is not a '<int>/<int>' expression", input)
	}

	num, err := strconv.Atoi(rawNum)
	if err != nil {
		return Rational{}, fmt.Errorf("frame rate %q has a non-integer numerator", input)
	}
	den, err := strconv.Atoi(rawDen)
	if err != nil {
		return Rational{}, fmt.Errorf("frame rate %q has a non-integer denominator", input)
	}
	if num <= 0 || den <= 0 {
		return Rational{}, fmt.Errorf("frame rate %q is not positive", input)
	}

	return Rational{Num: num, Den: den}, nil
}

type probeFunc func(ctx context.Context, config ffmpeg.Config, path string) (*ffmpeg.ProbeOutput, error)

// Extractor reads the intrinsic attributes of a stored media file. Video
// and audio files are probed using an external ffprobe invocation (bounded
// by the configured timeout); images are decoded in-process.
type Extractor struct {
	ffmpegConfig ffmpeg.Config
	probeTimeout time.Duration
	probe        probeFunc
}

func NewExtractor(config ffmpeg.Config, probeTimeout time.Duration) *Extractor {
	return &Extractor{
		ffmpegConfig: config,
		probeTimeout: probeTimeout,
		probe:        ffmpeg.ProbeFile,
	}
}

// Extract returns the metadata for the file at 'path', polymorphic over
// the provided kind. An error here means the file could not be probed or
// decoded; callers are expected to treat that as a degradation (empty
// metadata), not a fatal ingestion failure.
func (extractor *Extractor) Extract(ctx context.Context, path string, kind Kind) (Metadata, error) {
	switch kind {
	case Video:
		return extractor.extractVideo(ctx, path)
	case Audio:
		return extractor.extractAudio(ctx, path)
	case Image:
		return extractor.extractImage(path)
	default:
		return Metadata{}, fmt.Errorf("cannot extract metadata for unknown media kind %v", kind)
	}
}

func (extractor *Extractor) extractVideo(ctx context.Context, path string) (Metadata, error) {
	output, err := extractor.runProbe(ctx, path)
	if err != nil {
		return Metadata{}, err
	}

	stream := output.FirstStreamOfType("video")
	if stream == nil {
		return Metadata{}, fmt.Errorf("no video stream found in %s", path)
	}

	frameRate, err := ParseFrameRate(stream.RFrameRate)
	if err != nil {
		log.Emit(logger.DEBUG, "Falling back to default frame rate for %s: %s\n", path, err.Error())
		frameRate = DefaultFrameRate
	}

	return Metadata{
		Kind: Video,
		Video: &VideoMetadata{
			Width:     stream.Width,
			Height:    stream.Height,
			Duration:  convertToFloat(output.Format.Duration),
			FrameRate: frameRate,
			Codec:     codecOrUnknown(stream.CodecName),
		},
	}, nil
}

func (extractor *Extractor) extractAudio(ctx context.Context, path string) (Metadata, error) {
	output, err := extractor.runProbe(ctx, path)
	if err != nil {
		return Metadata{}, err
	}

	stream := output.FirstStreamOfType("audio")
	if stream == nil {
		return Metadata{}, fmt.Errorf("no audio stream found in %s", path)
	}

	return Metadata{
		Kind: Audio,
		Audio: &AudioMetadata{
			Duration:   convertToFloat(output.Format.Duration),
			Codec:      codecOrUnknown(stream.CodecName),
			SampleRate: convertToInt(stream.SampleRate),
			Channels:   stream.Channels,
		},
	}, nil
}

func (extractor *Extractor) extractImage(path string) (Metadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to open image for decoding: %w", err)
	}
	defer file.Close()

	config, format, err := image.DecodeConfig(file)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	return Metadata{
		Kind: Image,
		Image: &ImageMetadata{
			Width:  config.Width,
			Height: config.Height,
			Format: format,
		},
	}, nil
}

func (extractor *Extractor) runProbe(ctx context.Context, path string) (*ffmpeg.ProbeOutput, error) {
	probeCtx, cancel := context.WithTimeout(ctx, extractor.probeTimeout)
	defer cancel()

	return extractor.probe(probeCtx, extractor.ffmpegConfig, path)
}

func codecOrUnknown(codec string) string {
	if codec == "" {
		return "unknown"
	}
	return codec
}

// convertToFloat accepts a string input and will attempt to convert it
// to a float - if it fails, 0 is returned (the field is treated as absent)
func convertToFloat(input string) float64 {
	v, err := strconv.ParseFloat(input, 64)
	if err != nil || v < 0 {
		return 0
	}

	return v
}

// convertToInt is a helper method that accepts a string input and will
// attempt to convert that string to an integer - if it fails, 0 is returned
func convertToInt(input string) int {
	v, err := strconv.Atoi(input)
	if err != nil || v < 0 {
		return 0
	}

	return v
}
