package internal

import (
	"fmt"
	"os"

	"github.com/clipdeck/clipdeck/internal/database"
	"github.com/clipdeck/clipdeck/internal/ingest"
	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/clipdeck/clipdeck/internal/storage"
	"github.com/clipdeck/clipdeck/pkg/logger"
	"github.com/google/uuid"
)

// storeOrchestrator glues the media row store to the database manager
// and the on-disk asset store, exposing the typed operations the
// controllers and the import watcher consume.
type storeOrchestrator struct {
	db         database.Manager
	mediaStore *media.Store
	assetStore *storage.Store
}

func newStoreOrchestrator(db database.Manager, mediaStore *media.Store, assetStore *storage.Store) *storeOrchestrator {
	return &storeOrchestrator{db: db, mediaStore: mediaStore, assetStore: assetStore}
}

// SaveImported persists an ingestion record as a media_files row. The
// row shares it's ID with the stored original asset.
func (orchestrator *storeOrchestrator) SaveImported(record *ingest.Record) (uuid.UUID, error) {
	var thumbnailPath *string
	if record.Thumbnail != nil {
		thumbnailPath = &record.Thumbnail.Path
	}

	file := media.NewFile(
		record.Original.ID,
		record.Metadata.Kind,
		record.OriginalFilename,
		record.Size,
		record.Original.Path,
		thumbnailPath,
		record.Metadata,
	)

	if err := orchestrator.mediaStore.Save(orchestrator.db.GetSqlxDb(), file); err != nil {
		return uuid.Nil, err
	}

	return file.ID, nil
}

func (orchestrator *storeOrchestrator) ListMedia() ([]*media.File, error) {
	return orchestrator.mediaStore.List(orchestrator.db.GetSqlxDb())
}

func (orchestrator *storeOrchestrator) GetMedia(id uuid.UUID) (*media.File, error) {
	return orchestrator.mediaStore.GetWithID(orchestrator.db.GetSqlxDb(), id)
}

// DeleteMedia removes the stored assets for a media file before
// deleting it's database row. A missing file on disk is not an error;
// the row is the source of truth and must go regardless.
func (orchestrator *storeOrchestrator) DeleteMedia(id uuid.UUID) error {
	file, err := orchestrator.mediaStore.GetWithID(orchestrator.db.GetSqlxDb(), id)
	if err != nil {
		return err
	}

	removeAsset := func(path string) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Emit(logger.WARNING, "Failed to remove asset %s for media %s: %s\n", path, id, err.Error())
		}
	}

	removeAsset(file.SourcePath)
	if file.ThumbnailPath != nil {
		removeAsset(*file.ThumbnailPath)
	}

	if err := orchestrator.mediaStore.Delete(orchestrator.db.GetSqlxDb(), id); err != nil {
		return fmt.Errorf("failed to delete media row %s: %w", id, err)
	}

	return nil
}

// KnownSourcePaths reports every persisted source path so the import
// watcher can skip files which are already in the library.
func (orchestrator *storeOrchestrator) KnownSourcePaths() []string {
	paths, err := orchestrator.mediaStore.GetAllSourcePaths(orchestrator.db.GetSqlxDb())
	if err != nil {
		log.Emit(logger.ERROR, "Failed to fetch known media source paths: %s\n", err.Error())
		return []string{}
	}

	return paths
}
