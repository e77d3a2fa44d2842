package backend

import (
	"context"
	"encoding/json"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/questlines/engine/internal/kvstore"
	"github.com/questlines/engine/internal/models"
	"github.com/questlines/engine/internal/questline"
	appErr "github.com/questlines/engine/pkg/errors"
	"github.com/questlines/engine/pkg/logger"
)

// QuestlinesKey holds the JSON array of every stored questline.
const QuestlinesKey = "questlines-app_questlines"

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]`)

// Local keeps the whole questline collection under a single store key.
type Local struct {
	mu    sync.Mutex
	store kvstore.Store
	now   func() time.Time
}

var _ Backend = (*Local)(nil)

func NewLocal(store kvstore.Store) *Local {
	return &Local{store: store, now: time.Now}
}

func (l *Local) ListSummaries(ctx context.Context) ([]models.QuestlineInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.QuestlineInfo, 0, len(all))
	for i := range all {
		info := all[i].Info()
		if info.Updated.IsZero() {
			info.Updated = l.now()
		}
		out = append(out, info)
	}
	slices.SortStableFunc(out, func(a, b models.QuestlineInfo) int {
		return b.Updated.Compare(a.Updated)
	})
	return out, nil
}

func (l *Local) Get(ctx context.Context, id string) (*models.Questline, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return nil, appErr.Newf(appErr.CodeNotFound, "Questline with id '%s' not found in local store.", id)
	}
	ql := all[idx].Clone()
	l.fill(ql)
	return ql, nil
}

func (l *Local) Create(ctx context.Context, in *models.Questline) (*models.Questline, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	ql := in.Clone()
	ql.ID = uuid.NewString()
	l.fill(ql)

	all = append(all, *ql)
	if err := l.save(ctx, all); err != nil {
		return nil, err
	}
	logger.L().Debug("questline created in local store", zap.String("questline_id", ql.ID))
	return ql.Clone(), nil
}

func (l *Local) Update(ctx context.Context, id string, in *models.Questline) (*models.Questline, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return nil, appErr.Newf(appErr.CodeNotFound, "Questline with id '%s' not found for update in local store.", id)
	}
	ql := in.Clone()
	ql.ID = id
	if ql.Created.IsZero() {
		ql.Created = all[idx].Created
	}
	ql.Updated = l.now()
	l.fill(ql)

	all[idx] = *ql
	if err := l.save(ctx, all); err != nil {
		return nil, err
	}
	return ql.Clone(), nil
}

func (l *Local) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return appErr.Newf(appErr.CodeNotFound, "Questline with id '%s' not found in local store.", id)
	}
	return l.save(ctx, slices.Delete(all, idx, idx+1))
}

// Export supports the json format only.
func (l *Local) Export(ctx context.Context, id, format string) (*ExportFile, error) {
	if format != "json" {
		return nil, appErr.Newf(appErr.CodeInvalid, "Unsupported export format '%s'", format)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return nil, appErr.Newf(appErr.CodeNotFound, "Questline with id '%s' not found for export in local store.", id)
	}
	data, err := json.MarshalIndent(all[idx], "", "  ")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode questline")
	}
	return &ExportFile{
		Filename:    exportFilename(all[idx].Name, format),
		ContentType: "application/json",
		Data:        data,
	}, nil
}

func exportFilename(name, format string) string {
	if name == "" {
		name = "questline"
	}
	return unsafeFilenameChars.ReplaceAllString(strings.ToLower(name), "_") + "." + format
}

// fill backfills timestamps and runs the normalization pass.
func (l *Local) fill(ql *models.Questline) {
	now := l.now()
	if ql.Created.IsZero() {
		ql.Created = now
	}
	if ql.Updated.IsZero() {
		ql.Updated = now
	}
	questline.Normalize(ql)
}

// load reads the collection, seeding the demonstration questline when the
// key has never been written.
func (l *Local) load(ctx context.Context) ([]models.Questline, error) {
	raw, ok, err := l.store.Get(ctx, QuestlinesKey)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "read local store")
	}
	if !ok {
		seed := []models.Questline{*questline.SeedQuestline(l.now())}
		if err := l.save(ctx, seed); err != nil {
			return nil, err
		}
		logger.L().Info("seeded local store", zap.String("questline_id", seed[0].ID))
		return seed, nil
	}

	var all []models.Questline
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &all); err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "decode local store")
		}
	}
	return all, nil
}

func (l *Local) save(ctx context.Context, all []models.Questline) error {
	if all == nil {
		all = []models.Questline{}
	}
	raw, err := json.Marshal(all)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode local store")
	}
	if err := l.store.Set(ctx, QuestlinesKey, string(raw)); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "write local store")
	}
	return nil
}

func indexOf(all []models.Questline, id string) int {
	return slices.IndexFunc(all, func(ql models.Questline) bool { return ql.ID == id })
}
