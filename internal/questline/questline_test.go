package questline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questlines/engine/internal/models"
	appErr "github.com/questlines/engine/pkg/errors"
)

// build makes a questline with one objective-free quest per id and the given
// edges as {from, to} pairs.
func build(completed map[string]bool, ids []string, edges ...[2]string) *models.Questline {
	ql := &models.Questline{ID: "ql-1", Name: "test"}
	for _, id := range ids {
		ql.Quests = append(ql.Quests, models.Quest{
			ID:         id,
			Title:      id,
			Objectives: []models.Objective{},
			Completed:  completed[id],
		})
	}
	for _, e := range edges {
		ql.Dependencies = append(ql.Dependencies, models.Dependency{From: e[0], To: e[1]})
	}
	return ql
}

func completedOf(ql *models.Questline) map[string]bool {
	out := map[string]bool{}
	for _, q := range ql.Quests {
		out[q.ID] = q.Completed
	}
	return out
}

func TestCanComplete(t *testing.T) {
	tests := []struct {
		name string
		ql   *models.Questline
		id   string
		want bool
	}{
		{
			name: "no prerequisites no objectives",
			ql:   build(nil, []string{"A"}),
			id:   "A",
			want: true,
		},
		{
			name: "unknown quest",
			ql:   build(nil, []string{"A"}),
			id:   "Z",
			want: false,
		},
		{
			name: "incomplete prerequisite",
			ql:   build(nil, []string{"A", "B"}, [2]string{"A", "B"}),
			id:   "B",
			want: false,
		},
		{
			name: "complete prerequisite",
			ql:   build(map[string]bool{"A": true}, []string{"A", "B"}, [2]string{"A", "B"}),
			id:   "B",
			want: true,
		},
		{
			name: "dangling prerequisite fails closed",
			ql:   build(nil, []string{"B"}, [2]string{"ghost", "B"}),
			id:   "B",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanComplete(tt.ql, tt.id))
		})
	}
}

func TestCanCompleteRequiresObjectives(t *testing.T) {
	ql := build(nil, []string{"A"})
	ql.Quests[0].Objectives = []models.Objective{
		{ID: "o1", Text: "one", Completed: true},
		{ID: "o2", Text: "two", SortIndex: 1},
	}
	assert.False(t, CanComplete(ql, "A"))

	ql.Quests[0].Objectives[1].Completed = true
	assert.True(t, CanComplete(ql, "A"))
}

func TestPrerequisitesOfAndDependents(t *testing.T) {
	ql := build(nil, []string{"P1", "P2", "X", "Y"},
		[2]string{"P1", "X"}, [2]string{"P2", "X"}, [2]string{"X", "Y"})

	assert.ElementsMatch(t, []string{"P1", "P2"}, PrerequisitesOf(ql, FindQuest(ql, "X")))
	assert.Equal(t, []string{"Y"}, DependentsOf(ql, "X"))
	assert.Empty(t, PrerequisitesOf(ql, FindQuest(ql, "P1")))
}

func TestCanCompleteAfterSecondPrerequisite(t *testing.T) {
	ql := build(map[string]bool{"P1": true}, []string{"P1", "P2", "X"},
		[2]string{"P1", "X"}, [2]string{"P2", "X"})

	assert.False(t, CanComplete(ql, "X"))

	_, err := SetCompleted(ql, "P2", true)
	require.NoError(t, err)
	assert.True(t, CanComplete(ql, "X"))
}

func TestSetCompletedRejectsIneligible(t *testing.T) {
	ql := build(nil, []string{"A", "B"}, [2]string{"A", "B"})

	change, err := SetCompleted(ql, "B", true)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	assert.False(t, change.Changed)
	assert.False(t, FindQuest(ql, "B").Completed)
}

func TestSetCompletedUnknownQuest(t *testing.T) {
	ql := build(nil, []string{"A"})
	_, err := SetCompleted(ql, "nope", true)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestUncompleteCascadesThroughChain(t *testing.T) {
	all := map[string]bool{"A": true, "B": true, "C": true}
	ql := build(all, []string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"})

	change, err := SetCompleted(ql, "A", false)
	require.NoError(t, err)

	assert.True(t, change.Changed)
	assert.Equal(t, []string{"B", "C"}, change.Cascaded)
	assert.Equal(t, map[string]bool{"A": false, "B": false, "C": false}, completedOf(ql))
}

func TestCascadeLeavesUnreachableQuests(t *testing.T) {
	all := map[string]bool{"A": true, "B": true, "C": true, "D": true}
	ql := build(all, []string{"A", "B", "C", "D"},
		[2]string{"A", "B"}, [2]string{"C", "D"})

	_, err := SetCompleted(ql, "A", false)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"A": false, "B": false, "C": true, "D": true}, completedOf(ql))
}

func TestCascadeVisitsDiamondOnce(t *testing.T) {
	// A -> B, A -> C, B -> D, C -> D, D -> E
	all := map[string]bool{"A": true, "B": true, "C": true, "D": true, "E": true}
	ql := build(all, []string{"A", "B", "C", "D", "E"},
		[2]string{"A", "B"}, [2]string{"A", "C"},
		[2]string{"B", "D"}, [2]string{"C", "D"}, [2]string{"D", "E"})

	forced := Cascade(ql, "A")

	assert.ElementsMatch(t, []string{"B", "C", "D", "E"}, forced)
	for _, id := range []string{"B", "C", "D", "E"} {
		assert.False(t, FindQuest(ql, id).Completed, id)
	}
	assert.True(t, FindQuest(ql, "A").Completed, "root is left to the caller")
}

func TestCascadeReachesPastIncompleteQuest(t *testing.T) {
	// A -> X -> C with X incomplete; C was completed before X became its prerequisite
	ql := build(map[string]bool{"A": true, "C": true}, []string{"A", "X", "C"})
	_, err := AddDependency(ql, "A", "X")
	require.NoError(t, err)
	_, err = AddDependency(ql, "X", "C")
	require.NoError(t, err)
	require.True(t, FindQuest(ql, "C").Completed)

	change, err := SetCompleted(ql, "A", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"C"}, change.Cascaded)
	assert.Equal(t, map[string]bool{"A": false, "X": false, "C": false}, completedOf(ql))
}

func TestCascadeTerminatesOnCycle(t *testing.T) {
	all := map[string]bool{"A": true, "B": true, "C": true}
	ql := build(all, []string{"A", "B", "C"},
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "A"})

	change, err := SetCompleted(ql, "A", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "C"}, change.Cascaded)
	assert.Equal(t, map[string]bool{"A": false, "B": false, "C": false}, completedOf(ql))
}

func TestAddDependencyRejectsSelfLoopAndDuplicate(t *testing.T) {
	ql := build(nil, []string{"A", "B"}, [2]string{"A", "B"})

	_, err := AddDependency(ql, "A", "A")
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = AddDependency(ql, "A", "B")
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = AddDependency(ql, "", "B")
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	assert.Len(t, ql.Dependencies, 1)

	change, err := AddDependency(ql, "B", "A")
	require.NoError(t, err)
	assert.True(t, change.Changed)
	assert.Len(t, ql.Dependencies, 2)
}

func TestRemoveDependencyIntoCompletedQuest(t *testing.T) {
	all := map[string]bool{"A": true, "B": true, "C": true}
	ql := build(all, []string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"})

	change := RemoveDependencies(ql, []string{EdgeID(ql.Dependencies[0], 0)})

	assert.True(t, change.Changed)
	assert.Equal(t, []string{"B", "C"}, change.Cascaded)
	assert.Equal(t, []models.Dependency{{From: "B", To: "C"}}, ql.Dependencies)
	assert.Equal(t, map[string]bool{"A": true, "B": false, "C": false}, completedOf(ql))
}

func TestRemoveDependencyIntoIncompleteQuest(t *testing.T) {
	ql := build(map[string]bool{"A": true}, []string{"A", "B"}, [2]string{"A", "B"})

	change := RemoveDependencies(ql, []string{"edge-A-B-0"})

	assert.True(t, change.Changed)
	assert.Empty(t, change.Cascaded)
	assert.Equal(t, map[string]bool{"A": true, "B": false}, completedOf(ql))
}

func TestRemoveDependencyUnknownEdge(t *testing.T) {
	ql := build(nil, []string{"A", "B"}, [2]string{"A", "B"})

	change := RemoveDependencies(ql, []string{"edge-A-B-7"})

	assert.False(t, change.Changed)
	assert.Len(t, ql.Dependencies, 1)
}

func TestRemoveQuestFromMiddleOfChain(t *testing.T) {
	done := map[string]bool{"B": true, "C": true}
	ql := build(done, []string{"A", "B", "C"}, [2]string{"A", "B"}, [2]string{"B", "C"})
	FindQuest(ql, "A").Completed = true

	change := RemoveQuests(ql, []string{"B"})

	assert.True(t, change.Changed)
	assert.Equal(t, []string{"C"}, change.Cascaded)
	assert.Empty(t, ql.Dependencies)
	assert.Nil(t, FindQuest(ql, "B"))
	assert.True(t, FindQuest(ql, "A").Completed)
	assert.False(t, FindQuest(ql, "C").Completed)
}

func TestRemoveQuestsLeavesNoDanglingEdges(t *testing.T) {
	ql := build(nil, []string{"A", "B", "C", "D"},
		[2]string{"A", "B"}, [2]string{"C", "B"}, [2]string{"B", "D"}, [2]string{"C", "D"})

	RemoveQuests(ql, []string{"B", "missing"})

	for _, d := range ql.Dependencies {
		assert.NotEqual(t, "B", d.From)
		assert.NotEqual(t, "B", d.To)
	}
	assert.Equal(t, []models.Dependency{{From: "C", To: "D"}}, ql.Dependencies)
	assert.Len(t, ql.Quests, 3)
	require.NoError(t, Validate(ql))
}

func TestAddQuestDefaults(t *testing.T) {
	ql := &models.Questline{}

	q := AddQuest(ql, nil)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, DefaultQuestTitle, q.Title)
	assert.Equal(t, DefaultQuestColor, q.Color)
	assert.Equal(t, DefaultPosition, q.Position)
	assert.False(t, q.Completed)
	assert.NotNil(t, q.Objectives)

	p := AddQuest(ql, &models.Position{X: 3, Y: 4})
	assert.Equal(t, models.Position{X: 3, Y: 4}, p.Position)
	assert.NotEqual(t, q.ID, p.ID)
	assert.Len(t, ql.Quests, 2)
}

func TestMoveQuest(t *testing.T) {
	ql := build(nil, []string{"A"})

	assert.True(t, MoveQuest(ql, "A", models.Position{X: 9, Y: 9}).Changed)
	assert.Equal(t, models.Position{X: 9, Y: 9}, ql.Quests[0].Position)
	assert.False(t, MoveQuest(ql, "Z", models.Position{}).Changed)
}

func TestObjectiveSortIndexKeepsGaps(t *testing.T) {
	ql := build(nil, []string{"A"})

	o1, ok := AddObjective(ql, "A", "")
	require.True(t, ok)
	o2, _ := AddObjective(ql, "A", "second")
	assert.Equal(t, DefaultObjectiveText, o1.Text)
	assert.Equal(t, 0, o1.SortIndex)
	assert.Equal(t, 1, o2.SortIndex)

	assert.True(t, RemoveObjective(ql, "A", o1.ID).Changed)
	o3, _ := AddObjective(ql, "A", "third")

	objs := FindQuest(ql, "A").Objectives
	require.Len(t, objs, 2)
	assert.Equal(t, 1, objs[0].SortIndex)
	assert.Equal(t, 1, o3.SortIndex)

	assert.False(t, RemoveObjective(ql, "A", "missing").Changed)
	_, ok = AddObjective(ql, "Z", "x")
	assert.False(t, ok)
}

func TestUncheckingObjectiveCascades(t *testing.T) {
	all := map[string]bool{"A": true, "B": true}
	ql := build(all, []string{"A", "B"}, [2]string{"A", "B"})
	ql.Quests[0].Objectives = []models.Objective{{ID: "o1", Text: "x", Completed: true}}

	change, err := SetObjectiveCompleted(ql, "A", "o1", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, change.Cascaded)
	assert.Equal(t, map[string]bool{"A": false, "B": false}, completedOf(ql))

	_, err = SetObjectiveCompleted(ql, "A", "missing", true)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestUpdateQuestDetailsPreservesCompletion(t *testing.T) {
	ql := build(map[string]bool{"A": true}, []string{"A", "B"}, [2]string{"A", "B"})
	objs := []models.Objective{{ID: "o1", Text: "done", Completed: true}}

	change, err := UpdateQuestDetails(ql, QuestDetails{
		ID:          "A",
		Title:       "Renamed",
		Description: "desc",
		Color:       "#ffffff",
		Objectives:  objs,
	})
	require.NoError(t, err)

	q := FindQuest(ql, "A")
	assert.True(t, change.Changed)
	assert.Empty(t, change.Cascaded)
	assert.True(t, q.Completed)
	assert.Equal(t, "Renamed", q.Title)

	objs[0].Text = "mutated by caller"
	assert.Equal(t, "done", q.Objectives[0].Text)
}

func TestUpdateQuestDetailsInvalidatesCompletion(t *testing.T) {
	all := map[string]bool{"A": true, "B": true}
	ql := build(all, []string{"A", "B"}, [2]string{"A", "B"})

	change, err := UpdateQuestDetails(ql, QuestDetails{
		ID:         "A",
		Title:      "A",
		Objectives: []models.Objective{{ID: "o1", Text: "new work"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, change.Cascaded)
	assert.Equal(t, map[string]bool{"A": false, "B": false}, completedOf(ql))
}

func TestUpdateQuestDetailsUnknownQuest(t *testing.T) {
	ql := build(nil, []string{"A"})
	before := ql.Clone()

	_, err := UpdateQuestDetails(ql, QuestDetails{ID: "Z", Title: "x"})

	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	assert.Equal(t, before, ql)
}

func TestRenameAcceptsEmpty(t *testing.T) {
	ql := build(nil, nil)

	assert.True(t, Rename(ql, "").Changed)
	assert.Empty(t, ql.Name)
	assert.False(t, Rename(ql, "").Changed)
}

func TestNormalizeBackfillsAndIsIdempotent(t *testing.T) {
	ql := &models.Questline{
		Name: "raw",
		Quests: []models.Quest{
			{Title: "no id", Objectives: []models.Objective{{Text: "a"}, {Text: "b"}, {Text: "c", SortIndex: 7}}},
			{ID: "kept"},
		},
	}

	Normalize(ql)

	assert.NotEmpty(t, ql.ID)
	assert.NotNil(t, ql.Dependencies)
	assert.NotEmpty(t, ql.Quests[0].ID)
	assert.NotNil(t, ql.Quests[1].Objectives)
	assert.Equal(t, "kept", ql.Quests[1].ID)
	idx := []int{}
	for _, o := range ql.Quests[0].Objectives {
		assert.NotEmpty(t, o.ID)
		idx = append(idx, o.SortIndex)
	}
	assert.Equal(t, []int{0, 1, 7}, idx)

	once := ql.Clone()
	Normalize(ql)
	assert.Equal(t, once, ql)
}

func TestJSONRoundTripThroughNormalize(t *testing.T) {
	ql := SeedQuestline(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	_, err := SetCompleted(ql, ql.Quests[0].ID, false)
	require.NoError(t, err)
	AddObjective(ql, ql.Quests[2].ID, "extra")

	data, err := json.MarshalIndent(ql, "", "  ")
	require.NoError(t, err)

	var back models.Questline
	require.NoError(t, json.Unmarshal(data, &back))
	Normalize(&back)

	assert.Equal(t, ql, &back)
}

func TestSeedQuestlineIsValid(t *testing.T) {
	ql := SeedQuestline(time.Now())

	require.NoError(t, Validate(ql))
	assert.NotEmpty(t, ql.Name)
	assert.False(t, CanComplete(ql, ql.Quests[0].ID), "objectives start unchecked")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		ql   *models.Questline
		ok   bool
	}{
		{"valid chain", build(nil, []string{"A", "B"}, [2]string{"A", "B"}), true},
		{"multi-hop cycle allowed", build(nil, []string{"A", "B"}, [2]string{"A", "B"}, [2]string{"B", "A"}), true},
		{"self loop", build(nil, []string{"A"}, [2]string{"A", "A"}), false},
		{"unknown target", build(nil, []string{"A"}, [2]string{"A", "B"}), false},
		{"duplicate edge", build(nil, []string{"A", "B"}, [2]string{"A", "B"}, [2]string{"A", "B"}), false},
		{"duplicate quest", build(nil, []string{"A", "A"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.ql)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
		})
	}
}

func TestEdgeIDs(t *testing.T) {
	ql := build(nil, []string{"A", "B"}, [2]string{"A", "B"}, [2]string{"B", "A"})
	assert.Equal(t, []string{"edge-A-B-0", "edge-B-A-1"}, EdgeIDs(ql))
}
