package medias

import (
	"time"

	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/google/uuid"
)

type (
	// MediaDto is the transfer representation of a stored media file.
	// Physical paths are never exposed; content and thumbnails are
	// fetched through their respective endpoints.
	MediaDto struct {
		ID               uuid.UUID      `json:"id"`
		Kind             string         `json:"kind"`
		OriginalFilename string         `json:"original_filename"`
		Size             int64          `json:"size"`
		HasThumbnail     bool           `json:"has_thumbnail"`
		Metadata         media.Metadata `json:"metadata"`
		CreatedAt        time.Time      `json:"created_at"`
	}
)

func NewDto(file *media.File) MediaDto {
	return MediaDto{
		ID:               file.ID,
		Kind:             file.Kind.String(),
		OriginalFilename: file.OriginalFilename,
		Size:             file.Size,
		HasThumbnail:     file.ThumbnailPath != nil,
		Metadata:         file.Metadata,
		CreatedAt:        file.CreatedAt,
	}
}

func NewDtos(files []*media.File) []MediaDto {
	dtos := make([]MediaDto, len(files))
	for k, v := range files {
		dtos[k] = NewDto(v)
	}

	return dtos
}
