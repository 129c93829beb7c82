package media_test

import (
	"testing"

	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/stretchr/testify/assert"
)

func Test_Classify_RecognisesExtensionSets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		expected media.Kind
	}{
		{"clip.mp4", media.Video},
		{"holiday.mov", media.Video},
		{"old.avi", media.Video},
		{"film.mkv", media.Video},
		{"web.webm", media.Video},
		{"song.mp3", media.Audio},
		{"take.wav", media.Audio},
		{"voice.aac", media.Audio},
		{"voice.m4a", media.Audio},
		{"podcast.ogg", media.Audio},
		{"photo.jpg", media.Image},
		{"photo.jpeg", media.Image},
		{"frame.png", media.Image},
		{"anim.gif", media.Image},
		{"modern.webp", media.Image},
		{"SHOUTY.MP4", media.Video},
		{"Mixed.Jpeg", media.Image},
		{"archive.tar.mp3", media.Audio},
		{"/some/dir/nested.mkv", media.Video},
	}

	for _, test := range tests {
		kind, err := media.Classify(test.filename)
		assert.Nil(t, err, "classification of %s should not error", test.filename)
		assert.Equal(t, test.expected, kind, "classification of %s", test.filename)
	}
}

func Test_Classify_RejectsUnknownExtensions(t *testing.T) {
	t.Parallel()

	for _, filename := range []string{"document.pdf", "noextension", "trailingdot.", "archive.mp3.tar", ".mp4.bak", "script.sh"} {
		_, err := media.Classify(filename)
		assert.ErrorIs(t, err, media.ErrUnsupportedType, "classification of %s should be rejected", filename)
	}
}

func Test_Validate_EnforcesSizeCeilingFirst(t *testing.T) {
	t.Parallel()
	validator := media.NewValidator(1000)

	// An oversized file reports TOO LARGE even when the type is also unsupported.
	_, err := validator.Validate("big.pdf", 2000)
	assert.ErrorIs(t, err, media.ErrTooLarge)

	_, err = validator.Validate("big.mp4", 1001)
	assert.ErrorIs(t, err, media.ErrTooLarge)

	kind, err := validator.Validate("exact.mp4", 1000)
	assert.Nil(t, err)
	assert.Equal(t, media.Video, kind)

	kind, err = validator.Validate("empty.mp3", 0)
	assert.Nil(t, err)
	assert.Equal(t, media.Audio, kind)
}

func Test_KindFromString_RoundTrips(t *testing.T) {
	t.Parallel()

	for _, kind := range []media.Kind{media.Video, media.Audio, media.Image} {
		parsed, err := media.KindFromString(kind.String())
		assert.Nil(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := media.KindFromString("hologram")
	assert.NotNil(t, err)
}
