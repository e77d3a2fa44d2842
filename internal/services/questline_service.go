package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/questlines/engine/internal/models"
	"github.com/questlines/engine/internal/questline"
	"github.com/questlines/engine/internal/repository"
	appErr "github.com/questlines/engine/pkg/errors"
	"github.com/questlines/engine/pkg/logger"
)

// Export formats understood by the service.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// QuestlineService is the server side of the remote persistence backend.
type QuestlineService interface {
	List(ctx context.Context) ([]models.QuestlineInfo, error)
	Get(ctx context.Context, id string) (*models.Questline, error)
	Create(ctx context.Context, ql *models.Questline) (*models.Questline, error)
	Update(ctx context.Context, id string, ql *models.Questline) (*models.Questline, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id, format string) (*ExportFile, error)
}

// ExportFile is a rendered questline download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type questlineService struct {
	repo     repository.QuestlineRepository
	validate interface{ Struct(any) error }
	now      func() time.Time
}

func NewQuestlineService(repo repository.QuestlineRepository, v interface{ Struct(any) error }) QuestlineService {
	return &questlineService{repo: repo, validate: v, now: time.Now}
}

// Ensure interfaces are satisfied at compile time
var _ QuestlineService = (*questlineService)(nil)

func (s *questlineService) List(ctx context.Context) ([]models.QuestlineInfo, error) {
	return s.repo.ListInfos(ctx)
}

func (s *questlineService) Get(ctx context.Context, id string) (*models.Questline, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	ql, err := rec.Questline()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "decode questline failed")
	}
	questline.Normalize(ql)
	return ql, nil
}

// Create always assigns a new id; any id sent by the client is dropped.
func (s *questlineService) Create(ctx context.Context, in *models.Questline) (*models.Questline, error) {
	ql := in.Clone()
	ql.ID = uuid.NewString()
	now := s.now().UTC()
	if ql.Created.IsZero() {
		ql.Created = now
	}
	ql.Updated = now
	questline.Normalize(ql)

	if err := s.check(ql); err != nil {
		return nil, err
	}
	rec, err := models.NewQuestlineRecord(ql)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid questline json")
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	logger.L().Info("questline created", zap.String("questline_id", ql.ID), zap.Int("quests", len(ql.Quests)))
	return ql, nil
}

func (s *questlineService) Update(ctx context.Context, id string, in *models.Questline) (*models.Questline, error) {
	if in.ID != "" && in.ID != id {
		return nil, appErr.New(appErr.CodeInvalid, "ID mismatch").
			WithMeta("path_id", id).
			WithMeta("body_id", in.ID)
	}
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	ql := in.Clone()
	ql.ID = id
	ql.Created = existing.CreatedAt
	ql.Updated = s.now().UTC()
	questline.Normalize(ql)

	if err := s.check(ql); err != nil {
		return nil, err
	}
	rec, err := models.NewQuestlineRecord(ql)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid questline json")
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}

	logger.L().Info("questline updated", zap.String("questline_id", id))
	return ql, nil
}

func (s *questlineService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return appErr.Newf(appErr.CodeNotFound, "questline %s not found", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.L().Info("questline deleted", zap.String("questline_id", id))
	return nil
}

func (s *questlineService) Export(ctx context.Context, id, format string) (*ExportFile, error) {
	ql, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &ExportFile{Filename: ql.Name + "." + format}
	switch format {
	case FormatJSON:
		out.ContentType = "application/json"
		out.Data, err = json.MarshalIndent(ql, "", "  ")
	case FormatYAML:
		out.ContentType = "application/x-yaml"
		out.Data, err = yaml.Marshal(ql)
	default:
		return nil, appErr.Newf(appErr.CodeInvalid, "unsupported export format '%s'", format)
	}
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode export failed")
	}
	return out, nil
}

func (s *questlineService) find(ctx context.Context, id string) (*models.QuestlineRecord, error) {
	// ids are uuid columns; anything else cannot exist
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErr.Newf(appErr.CodeNotFound, "questline %s not found", id)
	}
	var rec models.QuestlineRecord
	if err := s.repo.GetByID(ctx, id, &rec); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.Newf(appErr.CodeNotFound, "questline %s not found", id)
		}
		return nil, err
	}
	return &rec, nil
}

func (s *questlineService) check(ql *models.Questline) error {
	if err := s.validate.Struct(ql); err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid questline")
	}
	return questline.Validate(ql)
}
