package imports

import (
	"net/http"

	"github.com/clipdeck/clipdeck/internal/ingest"
	"github.com/labstack/echo/v4"
)

type (
	Service interface {
		GetAllImports() []*ingest.ImportItem
	}

	Dto struct {
		ID      string      `json:"id"`
		Path    string      `json:"path"`
		State   string      `json:"state"`
		Failure *FailureDto `json:"failure,omitempty"`
	}

	FailureDto struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}

	Controller struct {
		service Service
	}
)

func New(service Service) *Controller {
	return &Controller{service: service}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
}

// list exposes the import watcher's queue, including any files whose
// ingestion failed and why.
func (controller *Controller) list(ec echo.Context) error {
	items := controller.service.GetAllImports()

	dtos := make([]Dto, len(items))
	for k, v := range items {
		dtos[k] = NewDto(v)
	}

	return ec.JSON(http.StatusOK, dtos)
}

func NewDto(item *ingest.ImportItem) Dto {
	dto := Dto{
		ID:    item.ID.String(),
		Path:  item.Path,
		State: item.State.String(),
	}

	if item.Failure != nil {
		dto.Failure = &FailureDto{
			Kind:    item.Failure.Kind().String(),
			Message: item.Failure.Error(),
		}
	}

	return dto
}
