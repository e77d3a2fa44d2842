package models

import "time"

// Position is the presentational canvas coordinate of a quest.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Objective is a checklist item owned by exactly one quest.
type Objective struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	Completed bool   `json:"completed" yaml:"completed"`
	SortIndex int    `json:"sortIndex" yaml:"sortIndex"`
}

// Quest is a node of the questline graph.
type Quest struct {
	ID          string      `json:"id" yaml:"id" validate:"required"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Position    Position    `json:"position" yaml:"position"`
	Color       string      `json:"color,omitempty" yaml:"color,omitempty"`
	Objectives  []Objective `json:"objectives" yaml:"objectives"`
	Completed   bool        `json:"completed" yaml:"completed"`
}

// Dependency is a directed prerequisite edge: From must be completed before To.
type Dependency struct {
	From string `json:"from" yaml:"from" validate:"required"`
	To   string `json:"to" yaml:"to" validate:"required"`
}

// Questline is the root aggregate. An empty ID means it was never created
// in a persistence backend.
type Questline struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name" validate:"required"`
	Quests       []Quest      `json:"quests" yaml:"quests" validate:"dive"`
	Dependencies []Dependency `json:"dependencies" yaml:"dependencies" validate:"dive"`
	Created      time.Time    `json:"created" yaml:"created"`
	Updated      time.Time    `json:"updated" yaml:"updated"`
}

// QuestlineInfo is the listing projection of a questline.
type QuestlineInfo struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Updated         time.Time `json:"updated"`
	TotalQuests     int       `json:"totalQuests"`
	CompletedQuests int       `json:"completedQuests"`
}

// Clone returns a deep copy of the questline.
func (ql *Questline) Clone() *Questline {
	if ql == nil {
		return nil
	}
	out := *ql
	if ql.Quests != nil {
		out.Quests = make([]Quest, len(ql.Quests))
		for i, q := range ql.Quests {
			out.Quests[i] = q.Clone()
		}
	}
	if ql.Dependencies != nil {
		out.Dependencies = append(make([]Dependency, 0, len(ql.Dependencies)), ql.Dependencies...)
	}
	return &out
}

// Clone returns a deep copy of the quest.
func (q Quest) Clone() Quest {
	out := q
	if q.Objectives != nil {
		out.Objectives = append(make([]Objective, 0, len(q.Objectives)), q.Objectives...)
	}
	return out
}

// Info derives the listing projection.
func (ql *Questline) Info() QuestlineInfo {
	info := QuestlineInfo{
		ID:          ql.ID,
		Name:        ql.Name,
		Updated:     ql.Updated,
		TotalQuests: len(ql.Quests),
	}
	for _, q := range ql.Quests {
		if q.Completed {
			info.CompletedQuests++
		}
	}
	return info
}
