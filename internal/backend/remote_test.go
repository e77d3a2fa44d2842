package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questlines/engine/internal/api"
	"github.com/questlines/engine/internal/api/handlers"
	"github.com/questlines/engine/internal/api/validators"
	"github.com/questlines/engine/internal/models"
	"github.com/questlines/engine/internal/services"
	appErr "github.com/questlines/engine/pkg/errors"
)

// memRepo is an in-memory repository.QuestlineRepository.
type memRepo struct {
	mu   sync.Mutex
	rows map[string]models.QuestlineRecord
}

func (m *memRepo) Create(ctx context.Context, obj *models.QuestlineRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[obj.ID] = *obj
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id any, dest *models.QuestlineRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[fmt.Sprint(id)]
	if !ok {
		return appErr.New(appErr.CodeNotFound, "entity not found")
	}
	*dest = rec
	return nil
}

func (m *memRepo) Update(ctx context.Context, obj *models.QuestlineRecord) error {
	return m.Create(ctx, obj)
}

func (m *memRepo) Delete(ctx context.Context, id any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[fmt.Sprint(id)]; !ok {
		return appErr.New(appErr.CodeNotFound, "entity not found")
	}
	delete(m.rows, fmt.Sprint(id))
	return nil
}

func (m *memRepo) ListInfos(ctx context.Context) ([]models.QuestlineInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.QuestlineInfo, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r.Info())
	}
	slices.SortFunc(out, func(a, b models.QuestlineInfo) int { return b.Updated.Compare(a.Updated) })
	return out, nil
}

func newRemote(t *testing.T) *Remote {
	t.Helper()
	svc := services.NewQuestlineService(&memRepo{rows: map[string]models.QuestlineRecord{}}, validators.New())
	srv := httptest.NewServer(api.NewRouter(api.Dependencies{
		QuestlinesHandler: handlers.NewQuestlinesHandler(svc),
	}))
	t.Cleanup(srv.Close)

	r := NewRemote(srv.URL, 5*time.Second)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRemoteRoundTrip(t *testing.T) {
	r := newRemote(t)
	ctx := context.Background()

	in := &models.Questline{
		ID:   "client-id",
		Name: "Remote",
		Quests: []models.Quest{
			{ID: "a", Title: "A", Completed: true},
			{ID: "b", Title: "B"},
		},
		Dependencies: []models.Dependency{{From: "a", To: "b"}},
	}
	created, err := r.Create(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, "client-id", created.ID)
	assert.False(t, created.Created.IsZero())
	assert.NotNil(t, created.Quests[0].Objectives)

	got, err := r.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Dependencies, got.Dependencies)

	got.Name = "Remote v2"
	updated, err := r.Update(ctx, got.ID, got)
	require.NoError(t, err)
	assert.Equal(t, "Remote v2", updated.Name)

	infos, err := r.ListSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 2, infos[0].TotalQuests)
	assert.Equal(t, 1, infos[0].CompletedQuests)

	file, err := r.Export(ctx, created.ID, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "Remote v2.yaml", file.Filename)
	assert.Contains(t, string(file.Data), "name: Remote v2")

	require.NoError(t, r.Delete(ctx, created.ID))
	_, err = r.Get(ctx, created.ID)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestRemoteMapsServiceErrors(t *testing.T) {
	r := newRemote(t)
	ctx := context.Background()

	_, err := r.Create(ctx, &models.Questline{Name: "bad", Quests: []models.Quest{{ID: "a"}},
		Dependencies: []models.Dependency{{From: "a", To: "a"}}})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	err = r.Delete(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	assert.Contains(t, appErr.MessageOf(err), "not found")

	list, err := r.ListSummaries(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
}

func TestRemoteTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewRemote(url, time.Second)
	defer r.Close()

	_, err := r.ListSummaries(context.Background())
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}

func TestRemoteServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"internal","message":"db down"}}`))
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, time.Second)
	defer r.Close()

	_, err := r.Get(context.Background(), "x")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
	assert.Equal(t, "db down", appErr.MessageOf(err))
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, appErr.CodeInvalid, codeForStatus(http.StatusBadRequest))
	assert.Equal(t, appErr.CodeNotFound, codeForStatus(http.StatusNotFound))
	assert.Equal(t, appErr.CodeConflict, codeForStatus(http.StatusConflict))
	assert.Equal(t, appErr.CodeUnavailable, codeForStatus(http.StatusBadGateway))
	assert.Equal(t, appErr.CodeUnknown, codeForStatus(http.StatusTeapot))
}
