package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type Kind int

const (
	Video Kind = iota
	Audio
	Image
)

var (
	// ErrUnsupportedType indicates the file extension did not match any
	// of the recognised video/audio/image extension sets.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTooLarge indicates the declared upload size exceeds the
	// configured ceiling.
	ErrTooLarge = errors.New("file exceeds maximum allowed size")
)

// The extension sets below are fixed and disjoint. Lookups are performed
// against the lower-cased extension (including the leading dot).
var (
	videoExtensions = map[string]struct{}{
		".mp4": {}, ".mov": {}, ".avi": {}, ".mkv": {}, ".webm": {},
	}
	audioExtensions = map[string]struct{}{
		".mp3": {}, ".wav": {}, ".aac": {}, ".m4a": {}, ".ogg": {},
	}
	imageExtensions = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	}
)

// Classify maps a filename to a media Kind based solely on it's extension.
// Unknown extensions are an error, never a default kind.
func Classify(filename string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := videoExtensions[ext]; ok {
		return Video, nil
	}
	if _, ok := audioExtensions[ext]; ok {
		return Audio, nil
	}
	if _, ok := imageExtensions[ext]; ok {
		return Image, nil
	}

	return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
}

// Validator performs the pure pre-checks that must pass before any
// byte of an upload touches the disk.
type Validator struct {
	maxFileSize int64
}

func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// Validate enforces the size ceiling against the declared size of the
// upload, and delegates type acceptance to Classify. The resulting Kind
// is returned so callers don't need to re-classify.
func (validator *Validator) Validate(filename string, declaredSize int64) (Kind, error) {
	if declaredSize > validator.maxFileSize {
		return 0, fmt.Errorf("%w: %d bytes (maximum %d)", ErrTooLarge, declaredSize, validator.maxFileSize)
	}

	return Classify(filename)
}

func (k Kind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Image:
		return "image"
	default:
		return fmt.Sprintf("UNKNOWN[%d]", int(k))
	}
}

// KindFromString is the inverse of Kind.String, used when loading
// persisted rows back into the model.
func KindFromString(raw string) (Kind, error) {
	switch raw {
	case "video":
		return Video, nil
	case "audio":
		return Audio, nil
	case "image":
		return Image, nil
	default:
		return 0, fmt.Errorf("unknown media kind %q", raw)
	}
}
