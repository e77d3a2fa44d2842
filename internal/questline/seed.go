package questline

import (
	"time"

	"github.com/google/uuid"
	"github.com/questlines/engine/internal/models"
)

// SeedQuestline returns the demonstration questline written to an empty
// local store.
func SeedQuestline(now time.Time) *models.Questline {
	ql := &models.Questline{
		ID:      uuid.NewString(),
		Name:    "Getting Started",
		Created: now,
		Updated: now,
	}

	// Step 1 - Basics
	basics := models.Quest{
		ID:          uuid.NewString(),
		Title:       "Learn the basics",
		Description: "Add a quest, give it objectives and tick them off.",
		Position:    models.Position{X: 100, Y: 100},
		Color:       "#8fbc8f",
		Objectives: []models.Objective{
			{ID: uuid.NewString(), Text: "Add a quest", SortIndex: 0},
			{ID: uuid.NewString(), Text: "Add an objective", SortIndex: 1},
		},
	}

	// Step 2 - Link quests
	link := models.Quest{
		ID:          uuid.NewString(),
		Title:       "Link quests",
		Description: "Drag from one quest to another to make it a prerequisite.",
		Position:    models.Position{X: 350, Y: 100},
		Color:       "#87ceeb",
		Objectives: []models.Objective{
			{ID: uuid.NewString(), Text: "Create a dependency", SortIndex: 0},
		},
	}

	// Step 3 - Finish
	finish := models.Quest{
		ID:          uuid.NewString(),
		Title:       "Complete the line",
		Description: "A quest can only be completed once everything before it is.",
		Position:    models.Position{X: 600, Y: 100},
		Color:       DefaultQuestColor,
		Objectives:  []models.Objective{},
	}

	ql.Quests = []models.Quest{basics, link, finish}
	ql.Dependencies = []models.Dependency{
		{From: basics.ID, To: link.ID},
		{From: link.ID, To: finish.ID},
	}
	return ql
}
