// Package session owns the questline being edited. All graph mutations go
// through a Session, which runs the completion engine, tracks unsaved
// changes, routes persistence to the configured backend and keeps a single
// transient notice for the user.
package session

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/questlines/engine/internal/backend"
	"github.com/questlines/engine/internal/models"
	"github.com/questlines/engine/internal/questline"
	"github.com/questlines/engine/pkg/config"
	appErr "github.com/questlines/engine/pkg/errors"
	"github.com/questlines/engine/pkg/logger"
)

// BlankName is the name of a fresh questline.
const BlankName = "Untitled"

// Options tune notice lifetimes.
type Options struct {
	ErrorTTL      time.Duration
	ValidationTTL time.Duration
	SuccessTTL    time.Duration
}

// OptionsFromConfig reads the notice lifetimes from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ErrorTTL:      cfg.NoticeErrorTTL,
		ValidationTTL: cfg.NoticeValidationTTL,
		SuccessTTL:    cfg.NoticeSuccessTTL,
	}
}

// DefaultOptions are the lifetimes used when none are configured.
var DefaultOptions = Options{
	ErrorTTL:      5 * time.Second,
	ValidationTTL: 3 * time.Second,
	SuccessTTL:    3 * time.Second,
}

type Session struct {
	mu      sync.Mutex
	backend backend.Backend
	prefs   *Preferences
	opts    Options

	current *models.Questline
	// persisted is set while current was loaded from or saved to the
	// backend.
	persisted bool
	infos     []models.QuestlineInfo
	loading   bool
	// rev counts mutations; a save compares it before and after the
	// backend call.
	rev uint64

	dirty  *DirtyTracker
	notice noticeSlot

	// emitMu is taken before mu is released so events reach observers in
	// the order they happened.
	emitMu    sync.Mutex
	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// New starts a session on a blank questline. Call Restore to load the
// last active one.
func New(b backend.Backend, prefs *Preferences, opts Options) *Session {
	if opts.ErrorTTL <= 0 {
		opts.ErrorTTL = DefaultOptions.ErrorTTL
	}
	if opts.ValidationTTL <= 0 {
		opts.ValidationTTL = DefaultOptions.ValidationTTL
	}
	if opts.SuccessTTL <= 0 {
		opts.SuccessTTL = DefaultOptions.SuccessTTL
	}
	s := &Session{
		backend:   b,
		prefs:     prefs,
		opts:      opts,
		current:   blankQuestline(),
		dirty:     &DirtyTracker{},
		observers: map[int]Observer{},
	}
	s.dirty.Observe(Event{Kind: EventLoaded, Source: SourceBlank})
	return s
}

func blankQuestline() *models.Questline {
	return &models.Questline{
		ID:           uuid.NewString(),
		Name:         BlankName,
		Quests:       []models.Quest{},
		Dependencies: []models.Dependency{},
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Session) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// record applies events to the dirty tracker. Callers hold mu.
func (s *Session) record(events ...Event) {
	for _, ev := range events {
		s.dirty.Observe(ev)
	}
}

// unlockAndEmit releases mu and delivers events to observers.
func (s *Session) unlockAndEmit(events ...Event) {
	if len(events) == 0 {
		s.mu.Unlock()
		return
	}
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	s.obsMu.Lock()
	obs := make([]Observer, 0, len(s.observers))
	for _, id := range slices.Sorted(maps.Keys(s.observers)) {
		obs = append(obs, s.observers[id])
	}
	s.obsMu.Unlock()

	for _, ev := range events {
		for _, fn := range obs {
			fn(ev)
		}
	}
}

// --- reads ---

// Snapshot returns a deep copy of the current questline.
func (s *Session) Snapshot() *models.Questline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Infos returns the cached summary list from the last fetch.
func (s *Session) Infos() []models.QuestlineInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.infos)
}

// Dirty reports whether the current questline has unsaved changes.
func (s *Session) Dirty() bool { return s.dirty.Dirty() }

// Loading reports whether a persistence operation is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Notice returns the current transient message, if any.
func (s *Session) Notice() (Notice, bool) { return s.notice.get() }

// ClearNotice drops the current message.
func (s *Session) ClearNotice() { s.notice.clear() }

// Preferences returns the client settings store, which may be nil.
func (s *Session) Preferences() *Preferences { return s.prefs }

// CanComplete reports whether the quest may be marked complete now.
func (s *Session) CanComplete(questID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return questline.CanComplete(s.current, questID)
}

// Prerequisites returns the ids of the quests questID depends on.
func (s *Session) Prerequisites(questID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := questline.FindQuest(s.current, questID)
	if q == nil {
		return nil
	}
	return questline.PrerequisitesOf(s.current, q)
}

// EdgeIDs returns the derived ids of the current dependencies.
func (s *Session) EdgeIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return questline.EdgeIDs(s.current)
}

// --- notices ---

func (s *Session) fail(msg string, err error) {
	logger.L().Warn(msg, zap.Error(err))
	s.notice.set(Notice{Kind: NoticeError, Message: msg + ": " + appErr.MessageOf(err)}, s.opts.ErrorTTL)
}

func (s *Session) reject(err error) {
	s.notice.set(Notice{Kind: NoticeError, Message: appErr.MessageOf(err)}, s.opts.ValidationTTL)
}

func (s *Session) succeed(msg string) {
	s.notice.set(Notice{Kind: NoticeSuccess, Message: msg}, s.opts.SuccessTTL)
}

// --- mutations ---

// mutate runs fn on the current questline under the lock and emits
// EventMutated when it reports a change.
func (s *Session) mutate(fn func(ql *models.Questline) (questline.Change, error)) error {
	s.mu.Lock()
	change, err := fn(s.current)
	if err != nil || !change.Changed {
		s.mu.Unlock()
		return err
	}
	s.rev++
	ev := Event{Kind: EventMutated, QuestlineID: s.current.ID, Cascaded: change.Cascaded}
	s.record(ev)
	if len(change.Cascaded) > 0 {
		logger.L().Debug("completion cascaded",
			zap.String("questline_id", s.current.ID),
			zap.Strings("cascaded", change.Cascaded))
	}
	s.unlockAndEmit(ev)
	return nil
}

// AddQuest appends a new quest at pos, or at the default position when pos
// is nil.
func (s *Session) AddQuest(pos *models.Position) models.Quest {
	var q models.Quest
	_ = s.mutate(func(ql *models.Questline) (questline.Change, error) {
		q = questline.AddQuest(ql, pos)
		return questline.Change{Changed: true}, nil
	})
	return q
}

func (s *Session) MoveQuest(questID string, pos models.Position) {
	_ = s.mutate(func(ql *models.Questline) (questline.Change, error) {
		return questline.MoveQuest(ql, questID, pos), nil
	})
}

// AddDependency links from→to. Self-loops and duplicates are refused with
// a notice.
func (s *Session) AddDependency(from, to string) error {
	err := s.mutate(func(ql *models.Questline) (questline.Change, error) {
		return questline.AddDependency(ql, from, to)
	})
	if err != nil {
		s.reject(err)
	}
	return err
}

func (s *Session) RemoveQuests(ids ...string) {
	_ = s.mutate(func(ql *models.Questline) (questline.Change, error) {
		return questline.RemoveQuests(ql, ids), nil
	})
}

func (s *Session) RemoveDependencies(edgeIDs ...string) {
	_ = s.mutate(func(ql *models.Questline) (questline.Change, error) {
		return questline.RemoveDependencies(ql, edgeIDs), nil
	})
}

// AddObjective returns false when the quest does not exist.
func (s *Session) AddObjective(questID, text string) (models.Objective, bool) {
	var (
		o  models.Objective
		ok bool
	)
	_ = s.mutate(func(ql *models.Questline) (questline.Change, error) {
		o, ok = questline.AddObjective(ql, questID, text)
		return questline.Change{Changed: ok}, nil
	})
	return o, ok
}

func (s *Session) RemoveObjective(questID, objectiveID string) {
	_ = s.mutate(func(ql *models.Questline) (questline.Change, error) {
		return questline.RemoveObjective(ql, questID, objectiveID), nil
	})
}

func (s *Session) SetObjectiveCompleted(questID, objectiveID string, completed bool) error {
	err := s.mutate(func(ql *models.Questline) (questline.Change, error) {
		return questline.SetObjectiveCompleted(ql, questID, objectiveID, completed)
	})
	if err != nil {
		s.reject(err)
	}
	return err
}

// SetCompleted marks a quest complete or incomplete. Completing an
// ineligible quest is refused with a notice and changes nothing.
func (s *Session) SetCompleted(questID string, completed bool) error {
	err := s.mutate(func(ql *models.Questline) (questline.Change, error) {
		return questline.SetCompleted(ql, questID, completed)
	})
	if err != nil {
		s.reject(err)
	}
	return err
}

func (s *Session) UpdateQuestDetails(d questline.QuestDetails) error {
	err := s.mutate(func(ql *models.Questline) (questline.Change, error) {
		return questline.UpdateQuestDetails(ql, d)
	})
	if err != nil {
		s.notice.set(Notice{Kind: NoticeError, Message: appErr.MessageOf(err)}, s.opts.ErrorTTL)
	}
	return err
}

func (s *Session) Rename(name string) {
	_ = s.mutate(func(ql *models.Questline) (questline.Change, error) {
		return questline.Rename(ql, name), nil
	})
}

// --- persistence ---

// begin claims the loading flag. Callers hold mu.
func (s *Session) begin() error {
	if s.loading {
		return appErr.New(appErr.CodeConflict, "another persistence operation is in progress")
	}
	s.loading = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// isSaved reports whether the backend knows id, either because the current
// questline came from it or because the summary list carries it. Callers
// hold mu.
func (s *Session) isSaved(id string) bool {
	if id == "" {
		return false
	}
	if s.persisted && s.current.ID == id {
		return true
	}
	return slices.ContainsFunc(s.infos, func(i models.QuestlineInfo) bool { return i.ID == id })
}

// FetchInfos refreshes the summary list. On failure the list is emptied.
func (s *Session) FetchInfos(ctx context.Context) error {
	s.mu.Lock()
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	defer s.end()

	return s.refreshInfos(ctx)
}

func (s *Session) refreshInfos(ctx context.Context) error {
	infos, err := s.backend.ListSummaries(ctx)
	if err != nil {
		s.fail("Failed to load questlines", err)
		infos = []models.QuestlineInfo{}
	}
	s.mu.Lock()
	s.infos = infos
	s.mu.Unlock()
	return err
}

// Load replaces the current questline with the stored one. An empty id
// starts a blank questline. If loading fails the session falls back to a
// blank questline and the error is returned.
func (s *Session) Load(ctx context.Context, id string) error {
	s.mu.Lock()
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	defer s.end()

	if id == "" {
		s.clearLastActive(ctx)
		s.replace(blankQuestline(), SourceBlank)
		return nil
	}

	ql, err := s.backend.Get(ctx, id)
	if err != nil {
		s.fail("Failed to load questline "+id, err)
		s.clearLastActive(ctx)
		s.replace(blankQuestline(), SourceBlank)
		return err
	}
	s.setLastActive(ctx, ql.ID)
	s.replace(ql, SourceSaved)
	logger.L().Info("questline loaded", zap.String("questline_id", ql.ID))
	return nil
}

// Restore loads the questline that was active last time, or a blank one.
func (s *Session) Restore(ctx context.Context) error {
	id := ""
	if s.prefs != nil {
		var err error
		if id, err = s.prefs.LastActiveID(ctx); err != nil {
			logger.L().Warn("read last active questline", zap.Error(err))
		}
	}
	return s.Load(ctx, id)
}

// LoadFromData imports a questline from an exported JSON document. The
// result is unsaved.
func (s *Session) LoadFromData(ctx context.Context, data []byte) error {
	s.mu.Lock()
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	defer s.end()

	var ql models.Questline
	if err := json.Unmarshal(data, &ql); err != nil {
		err = appErr.Wrap(err, appErr.CodeInvalid, "invalid questline file")
		s.fail("Failed to load questline from file", err)
		return err
	}
	questline.Normalize(&ql)

	s.clearLastActive(ctx)
	s.replace(&ql, SourceImported)
	s.succeed("Questline loaded from file")
	return nil
}

func (s *Session) replace(ql *models.Questline, src LoadSource) {
	s.mu.Lock()
	s.current = ql
	s.persisted = src == SourceSaved
	s.rev++
	ev := Event{Kind: EventLoaded, QuestlineID: ql.ID, Source: src}
	s.record(ev)
	s.unlockAndEmit(ev)
}

// Save stores the current questline, updating it when it is already known
// to the backend and creating it otherwise.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if strings.TrimSpace(s.current.Name) == "" {
		s.mu.Unlock()
		err := appErr.New(appErr.CodeInvalid, "Questline name cannot be empty")
		s.reject(err)
		return err
	}
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.current.Clone()
	rev := s.rev
	existing := s.isSaved(snap.ID)
	s.mu.Unlock()
	defer s.end()

	var (
		saved *models.Questline
		err   error
	)
	if existing {
		saved, err = s.backend.Update(ctx, snap.ID, snap)
	} else {
		snap.ID = ""
		saved, err = s.backend.Create(ctx, snap)
	}
	if err != nil {
		s.fail("Failed to save questline", err)
		return err
	}

	s.setLastActive(ctx, saved.ID)
	_ = s.refreshInfos(ctx)

	s.mu.Lock()
	pending := s.rev != rev
	if pending {
		// keep the newer edits, adopt the stored identity
		s.current.ID = saved.ID
		s.current.Created = saved.Created
		s.current.Updated = saved.Updated
	} else {
		s.current = saved
	}
	s.persisted = true
	ev := Event{Kind: EventSaved, QuestlineID: saved.ID, Pending: pending}
	s.record(ev)
	s.unlockAndEmit(ev)

	logger.L().Info("questline saved", zap.String("questline_id", saved.ID), zap.Bool("pending", pending))
	s.succeed("Questline saved.")
	return nil
}

// DeleteCurrent removes the current questline from the backend and starts
// a blank one. Only saved questlines can be deleted.
func (s *Session) DeleteCurrent(ctx context.Context) error {
	s.mu.Lock()
	id := s.current.ID
	if !s.isSaved(id) {
		s.mu.Unlock()
		err := appErr.New(appErr.CodeInvalid, "Please save before deleting, or select a saved questline")
		s.reject(err)
		return err
	}
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if err := s.backend.Delete(ctx, id); err != nil {
		s.end()
		s.fail("Failed to delete questline", err)
		return err
	}
	if s.prefs != nil {
		if last, err := s.prefs.LastActiveID(ctx); err == nil && last == id {
			s.clearLastActive(ctx)
		}
	}
	_ = s.refreshInfos(ctx)
	s.end()

	s.mu.Lock()
	ev := Event{Kind: EventDeleted, QuestlineID: id}
	s.record(ev)
	s.unlockAndEmit(ev)
	logger.L().Info("questline deleted", zap.String("questline_id", id))

	return s.Load(ctx, "")
}

// Export renders the current questline through the backend. Only saved
// questlines can be exported.
func (s *Session) Export(ctx context.Context, format string) (*backend.ExportFile, error) {
	s.mu.Lock()
	id := s.current.ID
	if !s.isSaved(id) {
		s.mu.Unlock()
		err := appErr.New(appErr.CodeInvalid, "Please save before exporting, or select a saved questline")
		s.reject(err)
		return nil, err
	}
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	defer s.end()

	file, err := s.backend.Export(ctx, id, format)
	if err != nil {
		s.fail("Failed to export questline", err)
		return nil, err
	}
	return file, nil
}

// SetDarkMode stores the display preference.
func (s *Session) SetDarkMode(ctx context.Context, on bool) error {
	if s.prefs == nil {
		return nil
	}
	return s.prefs.SetDarkMode(ctx, on)
}

func (s *Session) setLastActive(ctx context.Context, id string) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.SetLastActiveID(ctx, id); err != nil {
		logger.L().Warn("store last active questline", zap.Error(err))
	}
}

func (s *Session) clearLastActive(ctx context.Context) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.ClearLastActiveID(ctx); err != nil {
		logger.L().Warn("clear last active questline", zap.Error(err))
	}
}
