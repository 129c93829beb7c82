package medias

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/clipdeck/clipdeck/internal/event"
	"github.com/clipdeck/clipdeck/internal/ingest"
	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type (
	Store interface {
		ListMedia() ([]*media.File, error)
		GetMedia(id uuid.UUID) (*media.File, error)
		DeleteMedia(id uuid.UUID) error
		SaveImported(record *ingest.Record) (uuid.UUID, error)
	}

	IngestService interface {
		Ingest(ctx context.Context, upload ingest.Upload) (*ingest.Record, error)
	}

	Controller struct {
		store         Store
		ingestService IngestService
		eventBus      event.EventDispatcher
	}
)

func New(ingestService IngestService, store Store, eventBus event.EventDispatcher) *Controller {
	return &Controller{store: store, ingestService: ingestService, eventBus: eventBus}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/", controller.upload)
	eg.GET("/", controller.list)
	eg.GET("/:id/", controller.get)
	eg.GET("/:id/content/", controller.getContent)
	eg.GET("/:id/thumbnail/", controller.getThumbnail)
	eg.DELETE("/:id/", controller.delete)
}

// upload accepts a multipart form containing a single 'file' field and
// runs it through the ingestion pipeline. The declared size of the form
// part is enforced before any bytes are persisted.
func (controller *Controller) upload(ec echo.Context) error {
	fileHeader, err := ec.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request must contain a 'file' form field")
	}

	source, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("failed to open uploaded file: %v", err))
	}
	defer source.Close()

	record, err := controller.ingestService.Ingest(ec.Request().Context(), ingest.Upload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Source:   source,
	})
	if err != nil {
		var failure ingest.Failure
		if errors.As(err, &failure) {
			return echo.NewHTTPError(statusForFailure(failure), failure.Error())
		}

		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	id, err := controller.store.SaveImported(record)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to save uploaded media: %v", err))
	}

	controller.eventBus.Dispatch(event.MEDIA_INGESTED, id)

	file, err := controller.store.GetMedia(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to fetch newly saved media: %v", err))
	}

	return ec.JSON(http.StatusCreated, NewDto(file))
}

func (controller *Controller) list(ec echo.Context) error {
	files, err := controller.store.ListMedia()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Error occurred while listing media: %v", err))
	}

	return ec.JSON(http.StatusOK, NewDtos(files))
}

func (controller *Controller) get(ec echo.Context) error {
	file, err := controller.findMedia(ec)
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, NewDto(file))
}

// getContent serves the stored original bytes for playback or download.
func (controller *Controller) getContent(ec echo.Context) error {
	file, err := controller.findMedia(ec)
	if err != nil {
		return err
	}

	return ec.File(file.SourcePath)
}

func (controller *Controller) getThumbnail(ec echo.Context) error {
	file, err := controller.findMedia(ec)
	if err != nil {
		return err
	}

	if file.ThumbnailPath == nil {
		return echo.NewHTTPError(http.StatusNotFound, "media has no thumbnail")
	}

	return ec.File(*file.ThumbnailPath)
}

// delete removes the media file's stored assets and it's database row.
func (controller *Controller) delete(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "media ID is not a valid UUID")
	}

	if err := controller.store.DeleteMedia(id); err != nil {
		if errors.Is(err, media.ErrFileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "media not found")
		}

		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to delete media: %v", err))
	}

	controller.eventBus.Dispatch(event.MEDIA_REMOVED, id)
	return ec.NoContent(http.StatusNoContent)
}

func (controller *Controller) findMedia(ec echo.Context) (*media.File, error) {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "media ID is not a valid UUID")
	}

	file, err := controller.store.GetMedia(id)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "media not found")
	}

	return file, nil
}

func statusForFailure(failure ingest.Failure) int {
	switch failure.Kind() {
	case ingest.UNSUPPORTED_TYPE:
		return http.StatusUnsupportedMediaType
	case ingest.TOO_LARGE:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
