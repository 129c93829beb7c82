package ingest

import (
	"errors"
	"fmt"

	"github.com/clipdeck/clipdeck/internal/media"
)

type (
	FailureKind int

	// Failure wraps an underlying error with it's position in the
	// ingestion failure taxonomy. Fatal kinds abort the call; the
	// non-fatal kinds are absorbed into the record's diagnostics so the
	// caller can log partial degradation without branching on it.
	Failure struct {
		error
		kind FailureKind
	}
)

const (
	UNSUPPORTED_TYPE FailureKind = iota
	TOO_LARGE
	STORAGE_WRITE_FAILED
	METADATA_UNAVAILABLE
	THUMBNAIL_UNAVAILABLE
)

func newFailure(kind FailureKind, err error) Failure {
	return Failure{error: err, kind: kind}
}

// newValidationFailure maps the validator's sentinel errors on to the
// failure taxonomy.
func newValidationFailure(err error) Failure {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return newFailure(TOO_LARGE, err)
	default:
		return newFailure(UNSUPPORTED_TYPE, err)
	}
}

func (f Failure) Kind() FailureKind { return f.kind }
func (f Failure) Unwrap() error     { return f.error }

// Fatal reports whether this failure aborts an ingestion, as opposed to
// being recorded as a diagnostic on an otherwise successful record.
func (f Failure) Fatal() bool {
	switch f.kind {
	case UNSUPPORTED_TYPE, TOO_LARGE, STORAGE_WRITE_FAILED:
		return true
	default:
		return false
	}
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.kind, f.error.Error())
}

func (k FailureKind) String() string {
	switch k {
	case UNSUPPORTED_TYPE:
		return "UNSUPPORTED_TYPE"
	case TOO_LARGE:
		return "TOO_LARGE"
	case STORAGE_WRITE_FAILED:
		return "STORAGE_WRITE_FAILED"
	case METADATA_UNAVAILABLE:
		return "METADATA_UNAVAILABLE"
	case THUMBNAIL_UNAVAILABLE:
		return "THUMBNAIL_UNAVAILABLE"
	default:
		return fmt.Sprintf("UNKNOWN[%d]", int(k))
	}
}
