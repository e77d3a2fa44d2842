package questline

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/questlines/engine/internal/models"
	appErr "github.com/questlines/engine/pkg/errors"
)

const (
	DefaultQuestTitle    = "New Quest"
	DefaultQuestColor    = "#cccccc"
	DefaultObjectiveText = "New objective"
)

// DefaultPosition is where a quest lands when no position is given.
var DefaultPosition = models.Position{X: 100, Y: 100}

// EdgeID derives the identifier of the dependency at index idx.
func EdgeID(dep models.Dependency, idx int) string {
	return fmt.Sprintf("edge-%s-%s-%d", dep.From, dep.To, idx)
}

// EdgeIDs returns the derived identifiers of every dependency in order.
func EdgeIDs(ql *models.Questline) []string {
	out := make([]string, len(ql.Dependencies))
	for i, d := range ql.Dependencies {
		out[i] = EdgeID(d, i)
	}
	return out
}

// AddQuest appends a fresh incomplete quest and returns a copy of it.
func AddQuest(ql *models.Questline, pos *models.Position) models.Quest {
	p := DefaultPosition
	if pos != nil {
		p = *pos
	}
	q := models.Quest{
		ID:         uuid.NewString(),
		Title:      DefaultQuestTitle,
		Position:   p,
		Color:      DefaultQuestColor,
		Objectives: []models.Objective{},
	}
	ql.Quests = append(ql.Quests, q)
	return q
}

// MoveQuest updates a quest's position. Unknown ids are a no-op.
func MoveQuest(ql *models.Questline, questID string, pos models.Position) Change {
	q := FindQuest(ql, questID)
	if q == nil {
		return Change{}
	}
	q.Position = pos
	return Change{Changed: true}
}

// AddDependency appends the edge from→to. Self-loops and exact duplicates
// are rejected with CodeInvalid. Longer cycles are not checked.
func AddDependency(ql *models.Questline, from, to string) (Change, error) {
	if from == "" || to == "" {
		return Change{}, appErr.New(appErr.CodeInvalid, "dependency needs both a source and a target")
	}
	if from == to || hasDependency(ql, from, to) {
		return Change{}, appErr.New(appErr.CodeInvalid, "Cannot create duplicate or self-referencing link.").
			WithMeta("from", from).
			WithMeta("to", to)
	}
	ql.Dependencies = append(ql.Dependencies, models.Dependency{From: from, To: to})
	return Change{Changed: true}, nil
}

func hasDependency(ql *models.Questline, from, to string) bool {
	return slices.ContainsFunc(ql.Dependencies, func(d models.Dependency) bool {
		return d.From == from && d.To == to
	})
}

// RemoveQuests deletes the given quests together with every incident
// dependency. Completed quests that depended directly on a removed quest
// are forced incomplete and cascaded from. Unknown ids are ignored.
func RemoveQuests(ql *models.Questline, ids []string) Change {
	if len(ids) == 0 {
		return Change{}
	}
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		removed[id] = true
	}

	// collected before the edges disappear
	var downstream []string
	for _, d := range ql.Dependencies {
		if !removed[d.From] || removed[d.To] {
			continue
		}
		if q := FindQuest(ql, d.To); q != nil && q.Completed && !slices.Contains(downstream, d.To) {
			downstream = append(downstream, d.To)
		}
	}

	var change Change
	quests := ql.Quests[:0]
	for _, q := range ql.Quests {
		if removed[q.ID] {
			change.Changed = true
			continue
		}
		quests = append(quests, q)
	}
	ql.Quests = quests

	deps := ql.Dependencies[:0]
	for _, d := range ql.Dependencies {
		if removed[d.From] || removed[d.To] {
			change.Changed = true
			continue
		}
		deps = append(deps, d)
	}
	ql.Dependencies = deps

	for _, id := range downstream {
		change.merge(forceIncomplete(ql, id))
	}
	return change
}

// RemoveDependencies deletes the dependencies identified by their derived
// edge ids. A completed target of a removed edge is forced incomplete and
// cascaded from. Unknown edge ids are ignored.
func RemoveDependencies(ql *models.Questline, edgeIDs []string) Change {
	if len(edgeIDs) == 0 {
		return Change{}
	}
	var (
		change  Change
		targets []string
		kept    = make([]models.Dependency, 0, len(ql.Dependencies))
	)
	for i, d := range ql.Dependencies {
		if !slices.Contains(edgeIDs, EdgeID(d, i)) {
			kept = append(kept, d)
			continue
		}
		change.Changed = true
		if q := FindQuest(ql, d.To); q != nil && q.Completed && !slices.Contains(targets, d.To) {
			targets = append(targets, d.To)
		}
	}
	ql.Dependencies = kept

	for _, id := range targets {
		change.merge(forceIncomplete(ql, id))
	}
	return change
}

// AddObjective appends an objective to a quest. An empty text falls back to
// DefaultObjectiveText. Returns false when the quest is unknown.
func AddObjective(ql *models.Questline, questID, text string) (models.Objective, bool) {
	q := FindQuest(ql, questID)
	if q == nil {
		return models.Objective{}, false
	}
	if text == "" {
		text = DefaultObjectiveText
	}
	o := models.Objective{
		ID:        uuid.NewString(),
		Text:      text,
		SortIndex: len(q.Objectives),
	}
	q.Objectives = append(q.Objectives, o)
	return o, true
}

// RemoveObjective deletes an objective. Remaining sort indexes are left as
// they are, so gaps can appear.
func RemoveObjective(ql *models.Questline, questID, objectiveID string) Change {
	q := FindQuest(ql, questID)
	if q == nil {
		return Change{}
	}
	before := len(q.Objectives)
	q.Objectives = slices.DeleteFunc(q.Objectives, func(o models.Objective) bool {
		return o.ID == objectiveID
	})
	return Change{Changed: len(q.Objectives) != before}
}

// SetObjectiveCompleted toggles a single objective. Unchecking an objective
// of a completed quest forces the quest incomplete and cascades.
func SetObjectiveCompleted(ql *models.Questline, questID, objectiveID string, completed bool) (Change, error) {
	q := FindQuest(ql, questID)
	if q == nil {
		return Change{}, appErr.Newf(appErr.CodeNotFound, "quest %s not found", questID)
	}
	idx := slices.IndexFunc(q.Objectives, func(o models.Objective) bool { return o.ID == objectiveID })
	if idx < 0 {
		return Change{}, appErr.Newf(appErr.CodeNotFound, "objective %s not found", objectiveID).
			WithMeta("quest_id", questID)
	}
	if q.Objectives[idx].Completed == completed {
		return Change{}, nil
	}
	q.Objectives[idx].Completed = completed
	change := Change{Changed: true}
	if q.Completed && !CanComplete(ql, questID) {
		change.merge(forceIncomplete(ql, questID))
	}
	return change, nil
}

// QuestDetails carries the editable fields of a quest.
type QuestDetails struct {
	ID          string
	Title       string
	Description string
	Color       string
	Objectives  []models.Objective
}

// UpdateQuestDetails replaces the editable fields of a quest while keeping
// its completed flag. If the quest was complete and the new objectives make
// it ineligible, it is forced incomplete and cascaded from.
func UpdateQuestDetails(ql *models.Questline, d QuestDetails) (Change, error) {
	q := FindQuest(ql, d.ID)
	if q == nil {
		return Change{}, appErr.Newf(appErr.CodeNotFound, "Quest %s could not be found for update.", d.ID)
	}
	q.Title = d.Title
	q.Description = d.Description
	q.Color = d.Color
	q.Objectives = append(make([]models.Objective, 0, len(d.Objectives)), d.Objectives...)

	change := Change{Changed: true}
	if q.Completed && !CanComplete(ql, q.ID) {
		change.merge(forceIncomplete(ql, q.ID))
	}
	return change, nil
}

// Rename sets the questline name. Emptiness is only checked on save.
func Rename(ql *models.Questline, name string) Change {
	if ql.Name == name {
		return Change{}
	}
	ql.Name = name
	return Change{Changed: true}
}
