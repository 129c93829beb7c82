package internal

import (
	"fmt"

	"github.com/clipdeck/clipdeck/internal/api"
	"github.com/clipdeck/clipdeck/internal/database"
	"github.com/clipdeck/clipdeck/internal/ffmpeg"
	"github.com/clipdeck/clipdeck/internal/ingest"
	"github.com/clipdeck/clipdeck/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// ClipdeckConfig is the struct used to contain the various user config
// supplied by file, or manually inside the code.
type ClipdeckConfig struct {
	Ingest   ingest.Config           `yaml:"ingest"`
	Watch    ingest.WatchConfig      `yaml:"import_watch"`
	Storage  storage.Config          `yaml:"storage"`
	Ffmpeg   ffmpeg.Config           `yaml:"ffmpeg"`
	Database database.DatabaseConfig `yaml:"database" env-required:"true"`
	Rest     api.RestConfig          `yaml:"api"`
}

// LoadFromFile loads a YAML configuration file in to a ClipdeckConfig,
// applying environment variable overrides and defaults, then validates
// the result.
func (config *ClipdeckConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	return nil
}
