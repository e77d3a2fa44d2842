package repository

import (
	"context"

	"github.com/questlines/engine/internal/models"
	appErr "github.com/questlines/engine/pkg/errors"
	"gorm.io/gorm"
)

type QuestlineRepository interface {
	BaseRepository[models.QuestlineRecord]
	// ListInfos returns summary columns only, most recently updated first.
	ListInfos(ctx context.Context) ([]models.QuestlineInfo, error)
}

type questlineRepository struct {
	BaseRepository[models.QuestlineRecord]
	db *gorm.DB
}

func NewQuestlineRepository(db *gorm.DB) QuestlineRepository {
	return &questlineRepository{BaseRepository: NewBaseRepository[models.QuestlineRecord](db), db: db}
}

func (r *questlineRepository) ListInfos(ctx context.Context) ([]models.QuestlineInfo, error) {
	var rows []models.QuestlineRecord
	err := r.db.WithContext(ctx).
		Select("id", "name", "total_quests", "completed_quests", "updated_at").
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list questlines failed")
	}
	out := make([]models.QuestlineInfo, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Info())
	}
	return out, nil
}
