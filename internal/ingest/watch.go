package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/clipdeck/clipdeck/internal/event"
	"github.com/clipdeck/clipdeck/pkg/logger"
	"github.com/clipdeck/clipdeck/pkg/worker"
	"github.com/google/uuid"
	"github.com/rjeczalik/notify"
)

type (
	WatchConfig struct {
		// ImportPath is the directory watched for new files to ingest.
		ImportPath string `yaml:"import_path" env:"IMPORT_PATH" env-default:"/clipdeck/import" validate:"required"`

		ForceSyncSeconds int `yaml:"force_sync_seconds" env:"FORCE_SYNC_SECONDS" env-default:"60" validate:"gt=0"`
		Parallelism      int `yaml:"parallelism" env:"PARALLELISM" env-default:"2" validate:"gt=0"`

		// RequiredModTimeAgeSeconds is how long a file must have been left
		// unmodified before it's considered safe to import. Guards against
		// picking up files which are still being copied in.
		RequiredModTimeAgeSeconds int `yaml:"modtime_threshold_seconds" env:"MODTIME_THRESHOLD_SECONDS" env-default:"10" validate:"gte=0"`
	}

	ImportState int

	// ImportItem tracks one file found in the import directory through
	// it's journey to the database.
	ImportItem struct {
		ID      uuid.UUID
		Path    string
		State   ImportState
		Failure *Failure
	}

	// sink receives the records the watcher produces, and reports which
	// source paths have already been imported so they can be skipped.
	sink interface {
		KnownSourcePaths() []string
		SaveImported(record *Record) (uuid.UUID, error)
	}

	// Watcher is responsible for the automatic detection and ingestion of
	// files placed in the import directory. Detected files are:
	// - Held until their modtime settles (no partially-copied files)
	// - Run through the ingestion pipeline by a pool of workers
	// - Handed to the sink for persistence, announced over the event bus
	Watcher struct {
		*sync.Mutex

		service  *Service
		sink     sink
		eventBus event.EventDispatcher

		ctx              context.Context
		config           WatchConfig
		items            []*ImportItem
		importHoldTimers map[uuid.UUID]*time.Timer
		workerPool       *worker.WorkerPool
	}
)

const (
	ITEM_IDLE ImportState = iota
	ITEM_IMPORT_HOLD
	ITEM_INGESTING
	ITEM_COMPLETE
	ITEM_FAILED
)

func (config *WatchConfig) RequiredModTimeAgeDuration() time.Duration {
	return time.Duration(config.RequiredModTimeAgeSeconds) * time.Second
}

// NewWatcher creates a watcher over the configured import path, which is
// validated to be an existing directory. If the directory is missing it
// will be created; if the path points to an existing FILE, an error is
// returned.
func NewWatcher(config WatchConfig, service *Service, sink sink, eventBus event.EventDispatcher) (*Watcher, error) {
	if info, err := os.Stat(config.ImportPath); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("import path '%s' is not a directory", config.ImportPath)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(config.ImportPath, os.ModeDir|os.ModePerm); err != nil {
			return nil, fmt.Errorf("import path '%s' could not be created: %w", config.ImportPath, err)
		}
	} else {
		return nil, fmt.Errorf("import path '%s' could not be accessed: %w", config.ImportPath, err)
	}

	watcher := &Watcher{
		Mutex:            &sync.Mutex{},
		service:          service,
		sink:             sink,
		eventBus:         eventBus,
		config:           config,
		items:            make([]*ImportItem, 0),
		importHoldTimers: make(map[uuid.UUID]*time.Timer),
		workerPool:       worker.NewWorkerPool(),
	}

	for i := 0; i < config.Parallelism; i++ {
		label := fmt.Sprintf("import-worker-%d", i)
		watcher.workerPool.PushWorker(worker.NewWorker(label, watcher.PerformFileImport))
	}

	return watcher, nil
}

// Run is the main entry point of the watcher. It listens to the OS file
// system for new files, and regularly polls irrespective of the watcher
// in case events were missed. To kill the watcher, cancel the context.
func (watcher *Watcher) Run(ctx context.Context) error {
	fsNotifyChannel := make(chan notify.EventInfo, 16)
	if err := notify.Watch(filepath.Join(watcher.config.ImportPath, "..."), fsNotifyChannel, notify.Create, notify.Rename); err != nil {
		return fmt.Errorf("failed to watch import path '%s': %w", watcher.config.ImportPath, err)
	}
	defer notify.Stop(fsNotifyChannel)

	watcher.ctx = ctx
	if err := watcher.workerPool.Start(); err != nil {
		return err
	}
	defer watcher.workerPool.Close()
	defer watcher.clearAllImportHoldTimers()

	forceSyncChannel := time.NewTicker(time.Second * time.Duration(watcher.config.ForceSyncSeconds))
	defer forceSyncChannel.Stop()

	watcher.DiscoverNewFiles()

	for {
		select {
		case <-fsNotifyChannel:
			watcher.DiscoverNewFiles()
		case <-forceSyncChannel.C:
			watcher.DiscoverNewFiles()
		case <-ctx.Done():
			return nil
		}
	}
}

// PerformFileImport is the worker function for the watcher, called by the
// worker pool. It claims the first IDLE item it finds and runs it through
// the ingestion pipeline. A fatal ingestion failure is set on the item
// and it's state set to FAILED; the file is left in place for inspection.
func (watcher *Watcher) PerformFileImport(w worker.Worker) (bool, error) {
	item := watcher.claimIdleItem()
	if item == nil {
		return false, nil
	}

	if err := watcher.importFile(item); err != nil {
		var failure Failure
		if errors.As(err, &failure) {
			watcher.setItemOutcome(item, ITEM_FAILED, &failure)
		} else {
			watcher.setItemOutcome(item, ITEM_FAILED, nil)
			return false, err
		}
	} else {
		watcher.setItemOutcome(item, ITEM_COMPLETE, nil)
	}

	return true, nil
}

func (watcher *Watcher) importFile(item *ImportItem) error {
	info, err := os.Stat(item.Path)
	if err != nil {
		return fmt.Errorf("failed to stat import file %s: %w", item.Path, err)
	}

	source, err := os.Open(item.Path)
	if err != nil {
		return fmt.Errorf("failed to open import file %s: %w", item.Path, err)
	}
	defer source.Close()

	record, err := watcher.service.Ingest(watcher.ctx, Upload{
		Filename: filepath.Base(item.Path),
		Size:     info.Size(),
		Source:   source,
	})
	if err != nil {
		return err
	}

	id, err := watcher.sink.SaveImported(record)
	if err != nil {
		return fmt.Errorf("failed to save imported file %s: %w", item.Path, err)
	}

	log.Emit(logger.SUCCESS, "Imported %s as media file %s\n", item.Path, id)
	watcher.eventBus.Dispatch(event.MEDIA_INGESTED, id)
	return nil
}

// DiscoverNewFiles scans the import path for files that need to be
// ingested (as in no database row for the path already exists, and no
// current item in the watcher represents it). Files modified too
// recently are placed on IMPORT_HOLD and re-evaluated once their
// modtime has settled.
//
// Note: This function takes ownership of the mutex, and releases it when returning
func (watcher *Watcher) DiscoverNewFiles() {
	watcher.Lock()
	defer watcher.Unlock()

	knownPathLookup := make(map[string]bool)
	for _, path := range watcher.sink.KnownSourcePaths() {
		knownPathLookup[path] = true
	}
	for _, item := range watcher.items {
		knownPathLookup[item.Path] = true
	}

	newFiles, err := recursivelyWalkFileSystem(watcher.config.ImportPath, knownPathLookup)
	if err != nil {
		log.Emit(logger.ERROR, "file system polling failed: %s\n", err.Error())
		return
	}

	minModtimeAge := watcher.config.RequiredModTimeAgeDuration()
	dirty := false
	for filePath, fileInfo := range newFiles {
		itemID := uuid.New()
		timeDiff := time.Since(fileInfo.ModTime())

		itemState := ITEM_IMPORT_HOLD
		if timeDiff > minModtimeAge {
			dirty = true
			itemState = ITEM_IDLE
		}

		watcher.items = append(watcher.items, &ImportItem{
			ID:    itemID,
			Path:  filePath,
			State: itemState,
		})

		if itemState == ITEM_IMPORT_HOLD {
			watcher.scheduleImportHoldTimer(itemID, minModtimeAge-timeDiff)
		}
	}

	if dirty {
		watcher.workerPool.WakeupWorkers()
	}
}

// GetAllImports returns a snapshot of the items being processed by this
// watcher.
func (watcher *Watcher) GetAllImports() []*ImportItem {
	watcher.Lock()
	defer watcher.Unlock()

	items := make([]*ImportItem, len(watcher.items))
	copy(items, watcher.items)
	return items
}

func (watcher *Watcher) getImport(itemID uuid.UUID) *ImportItem {
	for _, item := range watcher.items {
		if item.ID == itemID {
			return item
		}
	}

	return nil
}

func (watcher *Watcher) removeImport(itemID uuid.UUID) {
	for k, v := range watcher.items {
		if v.ID == itemID {
			watcher.items = append(watcher.items[:k], watcher.items[k+1:]...)
			return
		}
	}
}

// evaluateItemHold checks an IMPORT_HOLD item's modtime to see if the
// item can be moved on to the IDLE state. If the item's source file no
// longer exists, the item is removed from the watcher's state. If the
// file still does not meet modtime requirements, a new timer is
// scheduled to re-evaluate the hold.
//
// Note: this function takes ownership of the mutex, and releases it when returning
func (watcher *Watcher) evaluateItemHold(id uuid.UUID) {
	watcher.Lock()
	defer watcher.Unlock()

	item := watcher.getImport(id)
	if item == nil || item.State != ITEM_IMPORT_HOLD {
		return
	}

	info, err := os.Stat(item.Path)
	if err != nil {
		// Item's source file has gone away!
		watcher.removeImport(id)
		return
	}

	timeDiff := time.Since(info.ModTime())
	thresholdModTime := watcher.config.RequiredModTimeAgeDuration()
	if timeDiff < thresholdModTime {
		watcher.scheduleImportHoldTimer(id, thresholdModTime-timeDiff)
		return
	}

	item.State = ITEM_IDLE
	watcher.workerPool.WakeupWorkers()
}

// scheduleImportHoldTimer will call evaluateItemHold for the item
// provided after the delay specified has elapsed. Any existing import
// hold timer for the item is *cancelled* before the new timer is created.
func (watcher *Watcher) scheduleImportHoldTimer(id uuid.UUID, delay time.Duration) {
	watcher.clearImportHoldTimer(id)
	watcher.importHoldTimers[id] = time.AfterFunc(delay, func() {
		watcher.evaluateItemHold(id)
	})
}

func (watcher *Watcher) clearImportHoldTimer(id uuid.UUID) {
	if timer, ok := watcher.importHoldTimers[id]; ok {
		timer.Stop()
		delete(watcher.importHoldTimers, id)
	}
}

func (watcher *Watcher) clearAllImportHoldTimers() {
	watcher.Lock()
	defer watcher.Unlock()

	for key, timer := range watcher.importHoldTimers {
		timer.Stop()
		delete(watcher.importHoldTimers, key)
	}
}

// claimIdleItem finds an IDLE item and sets it's state to INGESTING to
// prevent another worker from claiming it once the lock is released.
//
// Note: This function takes ownership of the mutex, and releases it when returning
func (watcher *Watcher) claimIdleItem() *ImportItem {
	watcher.Lock()
	defer watcher.Unlock()

	for _, item := range watcher.items {
		if item.State == ITEM_IDLE {
			item.State = ITEM_INGESTING
			return item
		}
	}

	return nil
}

func (watcher *Watcher) setItemOutcome(item *ImportItem, state ImportState, failure *Failure) {
	watcher.Lock()
	defer watcher.Unlock()

	item.State = state
	item.Failure = failure
}

func (item *ImportItem) String() string {
	return fmt.Sprintf("ImportItem{ID=%s state=%s}", item.ID, item.State)
}

func (s ImportState) String() string {
	switch s {
	case ITEM_IDLE:
		return "IDLE"
	case ITEM_IMPORT_HOLD:
		return "IMPORT_HOLD"
	case ITEM_INGESTING:
		return "INGESTING"
	case ITEM_COMPLETE:
		return "COMPLETE"
	case ITEM_FAILED:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN[%d]", s)
	}
}

// recursivelyWalkFileSystem walks the file system starting at the
// directory provided and constructs a map of all the files inside
// (including any inside of nested directories). Files whose paths are
// included in the 'known' map will NOT be included in the result.
func recursivelyWalkFileSystem(rootDirPath string, known map[string]bool) (map[string]fs.FileInfo, error) {
	foundItems := make(map[string]fs.FileInfo, 0)
	err := filepath.WalkDir(rootDirPath, func(path string, dir fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !dir.IsDir() {
			fileInfo, err := dir.Info()
			if err != nil {
				return err
			}

			if _, ok := known[path]; !ok {
				foundItems[path] = fileInfo
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk file system: %s", err.Error())
	}

	return foundItems, nil
}
