// Package backend defines the persistence capability the session talks to
// and its two implementations: Remote, which delegates to the questlines
// HTTP service, and Local, which keeps everything in a client-side
// key-value store. One is chosen at startup by New.
package backend

import (
	"context"
	"fmt"

	"github.com/questlines/engine/internal/kvstore"
	"github.com/questlines/engine/internal/models"
	"github.com/questlines/engine/pkg/config"
)

// ExportFile is a serialized questline ready to be written to disk.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Backend persists questlines.
type Backend interface {
	// ListSummaries returns one summary per questline, most recently
	// updated first.
	ListSummaries(ctx context.Context) ([]models.QuestlineInfo, error)
	Get(ctx context.Context, id string) (*models.Questline, error)
	// Create stores a new questline. The backend assigns the id and fills
	// timestamps that are absent.
	Create(ctx context.Context, ql *models.Questline) (*models.Questline, error)
	Update(ctx context.Context, id string, ql *models.Questline) (*models.Questline, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id, format string) (*ExportFile, error)
}

// New returns the backend selected by cfg.AppMode. The store is only used
// in local mode.
func New(cfg *config.Config, store kvstore.Store) (Backend, error) {
	switch cfg.AppMode {
	case config.ModeRemote:
		return NewRemote(cfg.APIBaseURL, cfg.RequestTimeout), nil
	case config.ModeLocal:
		if store == nil {
			return nil, fmt.Errorf("local mode requires a key-value store")
		}
		return NewLocal(store), nil
	default:
		return nil, fmt.Errorf("unknown app mode %q", cfg.AppMode)
	}
}
