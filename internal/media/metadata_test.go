package media

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipdeck/clipdeck/internal/ffmpeg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseFrameRate_AcceptsRationalExpressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected Rational
	}{
		{"30/1", Rational{30, 1}},
		{"30000/1001", Rational{30000, 1001}},
		{"24/1", Rational{24, 1}},
		{"1/2", Rational{1, 2}},
	}

	for _, test := range tests {
		rate, err := ParseFrameRate(test.input)
		assert.Nil(t, err, "parsing %q should not error", test.input)
		assert.Equal(t, test.expected, rate)
	}
}

func Test_ParseFrameRate_RejectsEverythingElse(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"30", "", "a/b", "30/0", "0/1", "-30/1", "30/-1", "30.5/1", "30/1/2", "1e3/1"} {
		_, err := ParseFrameRate(input)
		assert.NotNil(t, err, "parsing %q should be rejected", input)
	}
}

func fakeProbeExtractor(output *ffmpeg.ProbeOutput, err error) *Extractor {
	return &Extractor{
		probeTimeout: time.Second * 5,
		probe: func(ctx context.Context, config ffmpeg.Config, path string) (*ffmpeg.ProbeOutput, error) {
			return output, err
		},
	}
}

func Test_Extract_Video_ReadsFirstVideoStream(t *testing.T) {
	t.Parallel()

	extractor := fakeProbeExtractor(&ffmpeg.ProbeOutput{
		Streams: []ffmpeg.ProbeStream{
			{Index: 0, CodecType: "audio", CodecName: "aac", SampleRate: "48000", Channels: 2},
			{Index: 1, CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080, RFrameRate: "30000/1001"},
		},
		Format: ffmpeg.ProbeFormat{Duration: "12.5"},
	}, nil)

	metadata, err := extractor.Extract(context.Background(), "/fake/clip.mp4", Video)
	require.Nil(t, err)
	require.NotNil(t, metadata.Video)
	assert.Equal(t, Video, metadata.Kind)
	assert.Equal(t, 1920, metadata.Video.Width)
	assert.Equal(t, 1080, metadata.Video.Height)
	assert.Equal(t, 12.5, metadata.Video.Duration)
	assert.Equal(t, Rational{30000, 1001}, metadata.Video.FrameRate)
	assert.Equal(t, "h264", metadata.Video.Codec)
	assert.False(t, metadata.Empty())
}

func Test_Extract_Video_FallsBackToDefaultFrameRate(t *testing.T) {
	t.Parallel()

	extractor := fakeProbeExtractor(&ffmpeg.ProbeOutput{
		Streams: []ffmpeg.ProbeStream{
			{CodecType: "video", CodecName: "vp9", Width: 640, Height: 360, RFrameRate: "nonsense"},
		},
		Format: ffmpeg.ProbeFormat{Duration: "3"},
	}, nil)

	metadata, err := extractor.Extract(context.Background(), "/fake/clip.webm", Video)
	require.Nil(t, err)
	assert.Equal(t, DefaultFrameRate, metadata.Video.FrameRate)
}

func Test_Extract_Video_ErrorsWithoutVideoStream(t *testing.T) {
	t.Parallel()

	extractor := fakeProbeExtractor(&ffmpeg.ProbeOutput{
		Streams: []ffmpeg.ProbeStream{{CodecType: "audio", CodecName: "mp3"}},
	}, nil)

	_, err := extractor.Extract(context.Background(), "/fake/clip.mp4", Video)
	assert.NotNil(t, err)
}

func Test_Extract_Audio_ReadsStreamAttributes(t *testing.T) {
	t.Parallel()

	extractor := fakeProbeExtractor(&ffmpeg.ProbeOutput{
		Streams: []ffmpeg.ProbeStream{
			{CodecType: "audio", CodecName: "mp3", SampleRate: "44100", Channels: 2},
		},
		Format: ffmpeg.ProbeFormat{Duration: "180.04"},
	}, nil)

	metadata, err := extractor.Extract(context.Background(), "/fake/song.mp3", Audio)
	require.Nil(t, err)
	require.NotNil(t, metadata.Audio)
	assert.Equal(t, Audio, metadata.Kind)
	assert.Equal(t, 180.04, metadata.Audio.Duration)
	assert.Equal(t, "mp3", metadata.Audio.Codec)
	assert.Equal(t, 44100, metadata.Audio.SampleRate)
	assert.Equal(t, 2, metadata.Audio.Channels)
}

func Test_Extract_Audio_AbsentFieldsBecomeZero(t *testing.T) {
	t.Parallel()

	extractor := fakeProbeExtractor(&ffmpeg.ProbeOutput{
		Streams: []ffmpeg.ProbeStream{{CodecType: "audio"}},
	}, nil)

	metadata, err := extractor.Extract(context.Background(), "/fake/short.wav", Audio)
	require.Nil(t, err)
	assert.Equal(t, "unknown", metadata.Audio.Codec)
	assert.Zero(t, metadata.Audio.Duration)
	assert.Zero(t, metadata.Audio.SampleRate)
	assert.Zero(t, metadata.Audio.Channels)
}

func Test_Extract_ProbeFailurePropagates(t *testing.T) {
	t.Parallel()

	expectedErr := errors.New("probe exploded")
	extractor := fakeProbeExtractor(nil, expectedErr)

	_, err := extractor.Extract(context.Background(), "/fake/clip.mp4", Video)
	assert.ErrorIs(t, err, expectedErr)
}

func Test_Extract_Image_DecodesInProcess(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "photo.png")
	file, err := os.Create(path)
	require.Nil(t, err)
	require.Nil(t, png.Encode(file, image.NewRGBA(image.Rect(0, 0, 10, 8))))
	require.Nil(t, file.Close())

	extractor := &Extractor{}
	metadata, err := extractor.Extract(context.Background(), path, Image)
	require.Nil(t, err)
	require.NotNil(t, metadata.Image)
	assert.Equal(t, 10, metadata.Image.Width)
	assert.Equal(t, 8, metadata.Image.Height)
	assert.Equal(t, "png", metadata.Image.Format)
}

func Test_Extract_Image_CorruptFileErrors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.png")
	require.Nil(t, os.WriteFile(path, []byte("not an image at all"), 0o644))

	extractor := &Extractor{}
	_, err := extractor.Extract(context.Background(), path, Image)
	assert.NotNil(t, err)
}

func Test_Metadata_EmptyReportsNoPayload(t *testing.T) {
	t.Parallel()

	empty := Metadata{Kind: Video}
	assert.True(t, empty.Empty())

	populated := Metadata{Kind: Image, Image: &ImageMetadata{Width: 1, Height: 1}}
	assert.False(t, populated.Empty())
}
