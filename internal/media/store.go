package media

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/clipdeck/clipdeck/internal/database"
	"github.com/google/uuid"
)

var ErrFileNotFound = errors.New("media file does not exist")

type (
	fileBase struct {
		ID               uuid.UUID `db:"id"`
		OriginalFilename string    `db:"original_filename"`
		Size             int64     `db:"size"`
		SourcePath       string    `db:"source_path"`
		ThumbnailPath    *string   `db:"thumbnail_path"`
		CreatedAt        time.Time `db:"created_at"`
		UpdatedAt        time.Time `db:"updated_at"`
	}

	// fileModel is the raw media_files row. A separate struct forms the
	// public API of this store to hide the use of the JsonColumn container
	// to prevent against breakages if we change this in the future.
	fileModel struct {
		fileBase
		Kind     string                        `db:"kind"`
		Metadata database.JsonColumn[Metadata] `db:"metadata"`
	}

	// File is the external/public API for a persisted media file.
	File struct {
		fileBase
		Kind     Kind
		Metadata Metadata
	}

	Store struct{}
)

func NewStore() *Store {
	return &Store{}
}

// NewFile builds a File ready to be saved. The database manages the
// created/updated timestamps, so they are left zeroed here.
func NewFile(id uuid.UUID, kind Kind, originalFilename string, size int64, sourcePath string, thumbnailPath *string, metadata Metadata) *File {
	return &File{
		fileBase: fileBase{
			ID:               id,
			OriginalFilename: originalFilename,
			Size:             size,
			SourcePath:       sourcePath,
			ThumbnailPath:    thumbnailPath,
		},
		Kind:     kind,
		Metadata: metadata,
	}
}

func (store *Store) Save(db database.Queryable, file *File) error {
	_, err := db.Exec(`
		INSERT INTO media_files(id, kind, original_filename, size, source_path, thumbnail_path, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, current_timestamp, current_timestamp)
	`, file.ID, file.Kind.String(), file.OriginalFilename, file.Size, file.SourcePath,
		file.ThumbnailPath, database.NewJsonColumn(file.Metadata))
	if err != nil {
		return fmt.Errorf("failed to insert media file: %w", err)
	}

	return nil
}

func (store *Store) List(db database.Queryable) ([]*File, error) {
	query, args, err := selectFileBuilder().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list media files query: %w", err)
	}

	var results []fileModel
	if err := db.Select(&results, query, args...); err != nil {
		return nil, err
	}

	output := make([]*File, len(results))
	for k, v := range results {
		file, err := fileModelToFile(&v)
		if err != nil {
			return nil, err
		}
		output[k] = file
	}

	return output, nil
}

func (store *Store) GetWithID(db database.Queryable, id uuid.UUID) (*File, error) {
	query, args, err := selectFileBuilder().Where("media_files.id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select media file query: %w", err)
	}

	var model fileModel
	if err := db.Get(&model, query, args...); err != nil {
		return nil, ErrFileNotFound
	}

	return fileModelToFile(&model)
}

// GetAllSourcePaths returns the source path of every saved media file.
// The import watcher uses this to skip files which were already ingested.
func (store *Store) GetAllSourcePaths(db database.Queryable) ([]string, error) {
	var paths []string
	if err := db.Select(&paths, `SELECT source_path FROM media_files`); err != nil {
		return nil, err
	}

	return paths, nil
}

func (store *Store) Delete(db database.Queryable, id uuid.UUID) error {
	result, err := db.Exec(`DELETE FROM media_files WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media file %s: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrFileNotFound
	}

	return nil
}

func selectFileBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("media_files.*").
		From("media_files").
		OrderBy("media_files.created_at DESC").
		PlaceholderFormat(squirrel.Dollar)
}

func fileModelToFile(model *fileModel) (*File, error) {
	kind, err := KindFromString(model.Kind)
	if err != nil {
		return nil, fmt.Errorf("media file %s holds invalid kind: %w", model.ID, err)
	}

	file := &File{fileBase: model.fileBase, Kind: kind}
	if metadata := model.Metadata.Get(); metadata != nil {
		file.Metadata = *metadata
	} else {
		file.Metadata = Metadata{Kind: kind}
	}

	return file, nil
}
