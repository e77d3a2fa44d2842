package questline

import (
	"github.com/questlines/engine/internal/models"
	appErr "github.com/questlines/engine/pkg/errors"
)

// Change describes the outcome of a mutation.
type Change struct {
	// Changed is true when the questline was modified.
	Changed bool
	// Cascaded lists the quests forced back to incomplete, in visit order.
	Cascaded []string
}

func (c *Change) merge(other Change) {
	c.Changed = c.Changed || other.Changed
	c.Cascaded = append(c.Cascaded, other.Cascaded...)
	if len(other.Cascaded) > 0 {
		c.Changed = true
	}
}

// SetCompleted moves a quest between the incomplete and complete states.
//
// Completing requires CanComplete; a refused request returns CodeInvalid and
// leaves the questline untouched. Un-completing is always allowed and, when
// the quest was complete, cascades to every completed downstream quest.
func SetCompleted(ql *models.Questline, questID string, completed bool) (Change, error) {
	quest := FindQuest(ql, questID)
	if quest == nil {
		return Change{}, appErr.Newf(appErr.CodeNotFound, "quest %s not found", questID)
	}

	if completed {
		if quest.Completed {
			return Change{}, nil
		}
		if !CanComplete(ql, questID) {
			return Change{}, appErr.New(appErr.CodeInvalid, "quest cannot be marked complete: prerequisites or objectives not completed").
				WithMeta("quest_id", questID)
		}
		quest.Completed = true
		return Change{Changed: true}, nil
	}

	if !quest.Completed {
		return Change{}, nil
	}
	quest.Completed = false
	return Change{Changed: true, Cascaded: Cascade(ql, questID)}, nil
}

// Cascade forces every completed quest reachable from rootID along
// from→to edges back to incomplete and returns their ids.
//
// The root itself is not touched. Each quest is visited at most once, so
// diamonds are handled once and a cycle cannot loop forever.
func Cascade(ql *models.Questline, rootID string) []string {
	adj := make(map[string][]string, len(ql.Dependencies))
	for _, d := range ql.Dependencies {
		adj[d.From] = append(adj[d.From], d.To)
	}

	var forced []string
	visited := map[string]bool{rootID: true}
	stack := []string{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, next := range adj[id] {
			if visited[next] {
				continue
			}
			visited[next] = true
			stack = append(stack, next)

			// incomplete quests are walked through, not recorded
			quest := FindQuest(ql, next)
			if quest == nil || !quest.Completed {
				continue
			}
			quest.Completed = false
			forced = append(forced, next)
		}
	}
	return forced
}

// forceIncomplete turns a completed quest off and cascades from it.
func forceIncomplete(ql *models.Questline, questID string) Change {
	quest := FindQuest(ql, questID)
	if quest == nil || !quest.Completed {
		return Change{}
	}
	quest.Completed = false
	return Change{
		Changed:  true,
		Cascaded: append([]string{questID}, Cascade(ql, questID)...),
	}
}
