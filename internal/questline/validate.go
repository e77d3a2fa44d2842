package questline

import (
	"github.com/questlines/engine/internal/models"
	appErr "github.com/questlines/engine/pkg/errors"
)

// Validate checks the structural invariants of a questline received from
// outside: unique quest ids, dependency endpoints that exist, no self-loops
// and no duplicate edges. The first violation is returned as CodeInvalid.
func Validate(ql *models.Questline) error {
	ids := make(map[string]bool, len(ql.Quests))
	for _, q := range ql.Quests {
		if ids[q.ID] {
			return appErr.Newf(appErr.CodeInvalid, "duplicate quest id %s", q.ID)
		}
		ids[q.ID] = true
	}

	type edge struct{ from, to string }
	seen := make(map[edge]bool, len(ql.Dependencies))
	for i, d := range ql.Dependencies {
		switch {
		case d.From == d.To:
			return appErr.Newf(appErr.CodeInvalid, "dependency %d references itself", i).WithMeta("quest_id", d.From)
		case !ids[d.From]:
			return appErr.Newf(appErr.CodeInvalid, "dependency %d has unknown source %s", i, d.From)
		case !ids[d.To]:
			return appErr.Newf(appErr.CodeInvalid, "dependency %d has unknown target %s", i, d.To)
		case seen[edge{d.From, d.To}]:
			return appErr.Newf(appErr.CodeInvalid, "duplicate dependency %s -> %s", d.From, d.To)
		}
		seen[edge{d.From, d.To}] = true
	}
	return nil
}
