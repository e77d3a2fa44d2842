package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestlineRecord is the service-side row for a questline. The graph is kept
// as two jsonb documents; counts are denormalized for cheap listing.
type QuestlineRecord struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"not null" json:"name" validate:"required"`
	Quests          datatypes.JSON `gorm:"type:jsonb" json:"quests"`
	Dependencies    datatypes.JSON `gorm:"type:jsonb" json:"dependencies"`
	TotalQuests     int            `gorm:"not null;default:0" json:"total_quests"`
	CompletedQuests int            `gorm:"not null;default:0" json:"completed_quests"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName keeps the table name stable regardless of the struct name.
func (QuestlineRecord) TableName() string { return "questlines" }

// NewQuestlineRecord encodes a questline into its row form.
func NewQuestlineRecord(ql *Questline) (*QuestlineRecord, error) {
	quests := ql.Quests
	if quests == nil {
		quests = []Quest{}
	}
	deps := ql.Dependencies
	if deps == nil {
		deps = []Dependency{}
	}
	qb, err := json.Marshal(quests)
	if err != nil {
		return nil, fmt.Errorf("marshal quests: %w", err)
	}
	db, err := json.Marshal(deps)
	if err != nil {
		return nil, fmt.Errorf("marshal dependencies: %w", err)
	}
	info := ql.Info()
	return &QuestlineRecord{
		ID:              ql.ID,
		Name:            ql.Name,
		Quests:          datatypes.JSON(qb),
		Dependencies:    datatypes.JSON(db),
		TotalQuests:     info.TotalQuests,
		CompletedQuests: info.CompletedQuests,
		CreatedAt:       ql.Created,
		UpdatedAt:       ql.Updated,
	}, nil
}

// Questline decodes the row back into the aggregate.
func (r *QuestlineRecord) Questline() (*Questline, error) {
	ql := &Questline{
		ID:           r.ID,
		Name:         r.Name,
		Quests:       []Quest{},
		Dependencies: []Dependency{},
		Created:      r.CreatedAt,
		Updated:      r.UpdatedAt,
	}
	if len(r.Quests) > 0 {
		if err := json.Unmarshal(r.Quests, &ql.Quests); err != nil {
			return nil, fmt.Errorf("unmarshal quests: %w", err)
		}
	}
	if len(r.Dependencies) > 0 {
		if err := json.Unmarshal(r.Dependencies, &ql.Dependencies); err != nil {
			return nil, fmt.Errorf("unmarshal dependencies: %w", err)
		}
	}
	return ql, nil
}

// Info derives the listing projection without decoding the graph.
func (r *QuestlineRecord) Info() QuestlineInfo {
	return QuestlineInfo{
		ID:              r.ID,
		Name:            r.Name,
		Updated:         r.UpdatedAt,
		TotalQuests:     r.TotalQuests,
		CompletedQuests: r.CompletedQuests,
	}
}
