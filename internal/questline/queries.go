// Package questline holds the graph algorithms of a questline: prerequisite
// lookup, completion eligibility, cascading un-completion and the catalog of
// mutations that keep those invariants. Functions operate on a
// *models.Questline owned by the caller and never perform I/O.
package questline

import "github.com/questlines/engine/internal/models"

// FindQuest returns a pointer into ql.Quests, or nil.
func FindQuest(ql *models.Questline, id string) *models.Quest {
	if ql == nil {
		return nil
	}
	for i := range ql.Quests {
		if ql.Quests[i].ID == id {
			return &ql.Quests[i]
		}
	}
	return nil
}

// PrerequisitesOf returns the ids of every quest with an edge into quest.
func PrerequisitesOf(ql *models.Questline, quest *models.Quest) []string {
	var out []string
	for _, d := range ql.Dependencies {
		if d.To == quest.ID {
			out = append(out, d.From)
		}
	}
	return out
}

// DependentsOf returns the ids of every quest with an edge out of questID.
func DependentsOf(ql *models.Questline, questID string) []string {
	var out []string
	for _, d := range ql.Dependencies {
		if d.From == questID {
			out = append(out, d.To)
		}
	}
	return out
}

// ObjectivesSatisfied reports whether every objective is completed.
// A quest without objectives is satisfied.
func ObjectivesSatisfied(quest *models.Quest) bool {
	for _, o := range quest.Objectives {
		if !o.Completed {
			return false
		}
	}
	return true
}

// PrerequisitesSatisfied reports whether every prerequisite exists and is
// completed. A dangling prerequisite id is not satisfied.
func PrerequisitesSatisfied(ql *models.Questline, quest *models.Quest) bool {
	for _, id := range PrerequisitesOf(ql, quest) {
		pre := FindQuest(ql, id)
		if pre == nil || !pre.Completed {
			return false
		}
	}
	return true
}

// CanComplete reports whether questID may transition to complete.
func CanComplete(ql *models.Questline, questID string) bool {
	quest := FindQuest(ql, questID)
	if quest == nil {
		return false
	}
	return ObjectivesSatisfied(quest) && PrerequisitesSatisfied(ql, quest)
}
