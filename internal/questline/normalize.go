package questline

import (
	"github.com/google/uuid"
	"github.com/questlines/engine/internal/models"
)

// Normalize backfills missing fields in place: ids get a fresh UUID, nil
// sequences become empty and a zero sortIndex takes the objective's
// position. Running it again changes nothing.
func Normalize(ql *models.Questline) {
	if ql == nil {
		return
	}
	if ql.ID == "" {
		ql.ID = uuid.NewString()
	}
	if ql.Quests == nil {
		ql.Quests = []models.Quest{}
	}
	if ql.Dependencies == nil {
		ql.Dependencies = []models.Dependency{}
	}
	for i := range ql.Quests {
		q := &ql.Quests[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Objectives == nil {
			q.Objectives = []models.Objective{}
		}
		for j := range q.Objectives {
			o := &q.Objectives[j]
			if o.ID == "" {
				o.ID = uuid.NewString()
			}
			if o.SortIndex == 0 {
				o.SortIndex = j
			}
		}
	}
}
