package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clipdeck/clipdeck/internal/event"
	"github.com/clipdeck/clipdeck/internal/ingest"
	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu    sync.Mutex
	known []string
	saved []*ingest.Record
}

func (sink *fakeSink) KnownSourcePaths() []string {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	return append([]string{}, sink.known...)
}

func (sink *fakeSink) SaveImported(record *ingest.Record) (uuid.UUID, error) {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	sink.saved = append(sink.saved, record)
	return record.Original.ID, nil
}

func (sink *fakeSink) savedCount() int {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	return len(sink.saved)
}

func startWatcher(t *testing.T, importDir string, sink *fakeSink, eventBus event.EventCoordinator) *ingest.Watcher {
	t.Helper()

	assets := newAssetStore(t)
	service := newService(t, assets, &fakeExtractor{}, &fakeThumbnailer{})

	watcher, err := ingest.NewWatcher(ingest.WatchConfig{
		ImportPath:       importDir,
		ForceSyncSeconds: 100,
		Parallelism:      1,
	}, service, sink, eventBus)
	require.Nil(t, err)

	wg := sync.WaitGroup{}
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer wg.Done()
		assert.Nil(t, watcher.Run(ctx))
	}()

	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	return watcher
}

func Test_Watcher_ImportsExistingFileAndAnnouncesIt(t *testing.T) {
	t.Parallel()
	importDir := t.TempDir()
	require.Nil(t, os.WriteFile(filepath.Join(importDir, "clip.mp4"), []byte("bytes"), 0o644))

	eventBus := event.New()
	var announcedMu sync.Mutex
	announced := make([]uuid.UUID, 0)
	eventBus.RegisterHandlerFunction(event.MEDIA_INGESTED, func(_ event.Event, payload event.Payload) {
		announcedMu.Lock()
		defer announcedMu.Unlock()
		if id, ok := payload.(uuid.UUID); ok {
			announced = append(announced, id)
		}
	})

	sink := &fakeSink{}
	watcher := startWatcher(t, importDir, sink, eventBus)

	assert.Eventually(t, func() bool { return sink.savedCount() == 1 }, time.Second*5, time.Millisecond*20)
	assert.Equal(t, "clip.mp4", sink.saved[0].OriginalFilename)
	assert.Equal(t, media.Video, sink.saved[0].Metadata.Kind)

	assert.Eventually(t, func() bool {
		items := watcher.GetAllImports()
		return len(items) == 1 && items[0].State == ingest.ITEM_COMPLETE
	}, time.Second*5, time.Millisecond*20)

	assert.Eventually(t, func() bool {
		announcedMu.Lock()
		defer announcedMu.Unlock()
		return len(announced) == 1 && announced[0] == sink.saved[0].Original.ID
	}, time.Second*5, time.Millisecond*20)
}

func Test_Watcher_PicksUpFileCreatedAfterStart(t *testing.T) {
	t.Parallel()
	importDir := t.TempDir()
	sink := &fakeSink{}
	startWatcher(t, importDir, sink, event.New())

	require.Nil(t, os.WriteFile(filepath.Join(importDir, "late.mp3"), []byte("id3"), 0o644))

	assert.Eventually(t, func() bool { return sink.savedCount() == 1 }, time.Second*5, time.Millisecond*20)
	assert.Equal(t, "late.mp3", sink.saved[0].OriginalFilename)
}

func Test_Watcher_UnsupportedFileIsMarkedFailed(t *testing.T) {
	t.Parallel()
	importDir := t.TempDir()
	require.Nil(t, os.WriteFile(filepath.Join(importDir, "notes.txt"), []byte("todo"), 0o644))

	sink := &fakeSink{}
	watcher := startWatcher(t, importDir, sink, event.New())

	assert.Eventually(t, func() bool {
		items := watcher.GetAllImports()
		return len(items) == 1 && items[0].State == ingest.ITEM_FAILED
	}, time.Second*5, time.Millisecond*20)

	items := watcher.GetAllImports()
	require.NotNil(t, items[0].Failure)
	assert.Equal(t, ingest.UNSUPPORTED_TYPE, items[0].Failure.Kind())
	assert.Zero(t, sink.savedCount())

	// The failed file stays in place for inspection
	_, err := os.Stat(filepath.Join(importDir, "notes.txt"))
	assert.Nil(t, err)
}

func Test_Watcher_SkipsAlreadyImportedPaths(t *testing.T) {
	t.Parallel()
	importDir := t.TempDir()
	knownPath := filepath.Join(importDir, "seen.mp4")
	require.Nil(t, os.WriteFile(knownPath, []byte("old"), 0o644))
	require.Nil(t, os.WriteFile(filepath.Join(importDir, "new.mp4"), []byte("new"), 0o644))

	sink := &fakeSink{known: []string{knownPath}}
	startWatcher(t, importDir, sink, event.New())

	assert.Eventually(t, func() bool { return sink.savedCount() == 1 }, time.Second*5, time.Millisecond*20)
	assert.Equal(t, "new.mp4", sink.saved[0].OriginalFilename)
}
