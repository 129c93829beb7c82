package api

import (
	"context"
	"sync"

	"github.com/clipdeck/clipdeck/internal/api/imports"
	"github.com/clipdeck/clipdeck/internal/api/medias"
	"github.com/clipdeck/clipdeck/internal/event"
	"github.com/clipdeck/clipdeck/internal/websocket"
	"github.com/clipdeck/clipdeck/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080" validate:"required"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router. It's
	// sole responsibility is to create the routes Clipdeck exposes and to
	// manage ongoing web socket connections and events.
	RestGateway struct {
		*broadcaster
		config            *RestConfig
		ec                *echo.Echo
		socket            *websocket.SocketHub
		mediaController   controller
		importsController controller
	}
)

// NewRestGateway constructs the Echo router and populates it with the
// routes defined by the various controllers.
func NewRestGateway(
	config *RestConfig,
	ingestService medias.IngestService,
	importService imports.Service,
	store medias.Store,
	eventBus event.EventDispatcher,
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	socket := websocket.New()
	gateway := &RestGateway{
		broadcaster:       newBroadcaster(socket, store),
		config:            config,
		ec:                ec,
		socket:            socket,
		mediaController:   medias.New(ingestService, store, eventBus),
		importsController: imports.New(importService),
	}

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.GET("/api/clipdeck/v1/activity/ws/", func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})

	media := ec.Group("/api/clipdeck/v1/media")
	gateway.mediaController.SetRoutes(media)

	importGroup := ec.Group("/api/clipdeck/v1/imports")
	gateway.importsController.SetRoutes(importGroup)

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	wg.Wait()

	// Parent context cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
