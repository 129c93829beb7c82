package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/clipdeck/clipdeck/internal/api"
	"github.com/clipdeck/clipdeck/internal/database"
	"github.com/clipdeck/clipdeck/internal/event"
	"github.com/clipdeck/clipdeck/internal/ingest"
	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/clipdeck/clipdeck/internal/storage"
	"github.com/clipdeck/clipdeck/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	// Clipdeck is the top-level object for the server, responsible for
	// initialising the stores, services, event handling, et cetera...
	Clipdeck struct {
		eventBus event.EventCoordinator
		config   ClipdeckConfig
		db       database.Manager

		store         *storeOrchestrator
		ingestService *ingest.Service
		watcher       *ingest.Watcher
		restGateway   *api.RestGateway
	}
)

// New constructs the Clipdeck services using the provided config. The
// database is not connected until Run is called.
func New(config ClipdeckConfig) (*Clipdeck, error) {
	log.Emit(logger.DEBUG, "Bootstrapping Clipdeck services using config: %#v\n", config)

	assetStore, err := storage.New(config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to construct asset store: %w", err)
	}

	eventBus := event.New()
	db := database.New()
	store := newStoreOrchestrator(db, media.NewStore(), assetStore)

	ingestService := ingest.New(
		config.Ingest,
		assetStore,
		media.NewExtractor(config.Ffmpeg, config.Ingest.ProbeTimeout()),
		media.NewThumbnailer(config.Ffmpeg),
	)

	watcher, err := ingest.NewWatcher(config.Watch, ingestService, store, eventBus)
	if err != nil {
		return nil, fmt.Errorf("failed to construct import watcher: %w", err)
	}

	clipdeck := &Clipdeck{
		eventBus:      eventBus,
		config:        config,
		db:            db,
		store:         store,
		ingestService: ingestService,
		watcher:       watcher,
		restGateway:   api.NewRestGateway(&config.Rest, ingestService, watcher, store, eventBus),
	}

	clipdeck.registerActivityHandlers()
	return clipdeck, nil
}

// Run brings up the database connection and spawns the long-running
// services. This function will not return until Clipdeck is stopped; to
// stop it, the provided context must be cancelled. Errors from which
// Clipdeck cannot recover will also cause it to stop.
func (clipdeck *Clipdeck) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	log.Emit(logger.NEW, "Connecting to database...\n")
	if err := clipdeck.db.Connect(clipdeck.config.Database); err != nil {
		return err
	}

	wg := &sync.WaitGroup{}
	clipdeck.spawnAsyncService(ctx, wg, clipdeck.watcher, "import-watcher", crashHandler)
	clipdeck.spawnAsyncService(ctx, wg, clipdeck.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Clipdeck services spawned!\n")

	wg.Wait()
	return nil
}

// registerActivityHandlers forwards media lifecycle events on to the
// gateway's activity socket. Handlers run async so a slow socket never
// stalls the dispatching pipeline.
func (clipdeck *Clipdeck) registerActivityHandlers() {
	clipdeck.eventBus.RegisterAsyncHandlerFunction(event.MEDIA_INGESTED, func(ev event.Event, payload event.Payload) {
		id, ok := payload.(uuid.UUID)
		if !ok {
			log.Emit(logger.ERROR, "Event %s carried unexpected payload %#v\n", ev, payload)
			return
		}

		if err := clipdeck.restGateway.BroadcastMediaIngested(id); err != nil {
			log.Emit(logger.WARNING, "Failed to broadcast ingestion of media %s: %s\n", id, err.Error())
		}
	})

	clipdeck.eventBus.RegisterAsyncHandlerFunction(event.MEDIA_REMOVED, func(ev event.Event, payload event.Payload) {
		id, ok := payload.(uuid.UUID)
		if !ok {
			log.Emit(logger.ERROR, "Event %s carried unexpected payload %#v\n", ev, payload)
			return
		}

		if err := clipdeck.restGateway.BroadcastMediaRemoved(id); err != nil {
			log.Emit(logger.WARNING, "Failed to broadcast removal of media %s: %s\n", id, err.Error())
		}
	})
}

// spawnAsyncService runs the provided service as it's own go-routine,
// ensuring the service waitgroup is updated correctly.
func (clipdeck *Clipdeck) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				crashHandler(serviceLabel, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(ctx); err != nil {
			crashHandler(serviceLabel, err)
		}
	}()
}
