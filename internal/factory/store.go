package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/archetype-pal/lightbox-backend/internal/config"
	"github.com/archetype-pal/lightbox-backend/internal/model"
	"github.com/archetype-pal/lightbox-backend/internal/store"
	"github.com/archetype-pal/lightbox-backend/internal/store/postgres"
	"github.com/archetype-pal/lightbox-backend/internal/store/sqlite"
)

// NewStore selects the store driver based on cfg.DBDriver. Construction
// is the environment check: when no usable backend is configured, this
// fails fast with an EnvironmentError instead of letting later
// operations fail with unrelated low-level errors.
func NewStore(cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, model.NewEnvironmentError("sqlite driver selected but LIGHTBOX_SQLITE_PATH is empty")
		}
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
		return st, nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, model.NewEnvironmentError("postgres driver selected but LIGHTBOX_POSTGRES_DSN is empty")
		}
		st, err := postgres.New(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("postgres store ready")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
