package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/questlines/engine/internal/kvstore"
)

// Store keys for client preferences.
const (
	LastActiveKey = "lastActiveQuestlineId"
	DarkModeKey   = "isDarkMode"
)

// Preferences are small client-side settings kept next to the local
// questline collection. Every value is a JSON encoded string.
type Preferences struct {
	store kvstore.Store
}

func NewPreferences(store kvstore.Store) *Preferences {
	return &Preferences{store: store}
}

func (p *Preferences) getString(ctx context.Context, key string) (string, error) {
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil || !ok {
		return "", err
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return "", fmt.Errorf("decode %s: %w", key, err)
	}
	return s, nil
}

func (p *Preferences) setString(ctx context.Context, key, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return p.store.Set(ctx, key, string(raw))
}

// LastActiveID returns the id of the questline to restore, or "".
func (p *Preferences) LastActiveID(ctx context.Context) (string, error) {
	return p.getString(ctx, LastActiveKey)
}

func (p *Preferences) SetLastActiveID(ctx context.Context, id string) error {
	return p.setString(ctx, LastActiveKey, id)
}

func (p *Preferences) ClearLastActiveID(ctx context.Context) error {
	return p.store.Delete(ctx, LastActiveKey)
}

// DarkMode defaults to false when never set.
func (p *Preferences) DarkMode(ctx context.Context) (bool, error) {
	s, err := p.getString(ctx, DarkModeKey)
	return s == "true", err
}

func (p *Preferences) SetDarkMode(ctx context.Context, on bool) error {
	v := "false"
	if on {
		v = "true"
	}
	return p.setString(ctx, DarkModeKey, v)
}
