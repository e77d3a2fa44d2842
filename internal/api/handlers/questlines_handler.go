package handlers

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/questlines/engine/internal/api/types"
	"github.com/questlines/engine/internal/api/validators"
	"github.com/questlines/engine/internal/models"
	"github.com/questlines/engine/internal/services"
	"github.com/questlines/engine/pkg/logger"
	"github.com/questlines/engine/pkg/utils"
)

type QuestlinesHandler struct {
	svc services.QuestlineService
}

func NewQuestlinesHandler(svc services.QuestlineService) *QuestlinesHandler {
	return &QuestlinesHandler{svc: svc}
}

func (h *QuestlinesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []models.QuestlineInfo{}
	}
	writeData(w, r, http.StatusOK, items)
}

func (h *QuestlinesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ql, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, r, http.StatusOK, ql)
}

func (h *QuestlinesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.Questline
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	ql, err := h.svc.Create(r.Context(), &in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, r, http.StatusCreated, ql)
}

func (h *QuestlinesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.Questline
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	ql, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), &in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, r, http.StatusOK, ql)
}

func (h *QuestlinesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export streams the questline as an attachment. "fmt" is accepted as an
// alias of "format".
func (h *QuestlinesHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := types.ExportRequest{Format: q.Get("format")}
	if req.Format == "" {
		req.Format = q.Get("fmt")
	}
	if req.Format == "" {
		req.Format = services.FormatJSON
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "unsupported export format '"+req.Format+"'")
		return
	}

	file, err := h.svc.Export(r.Context(), chi.URLParam(r, "id"), req.Format)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.Header().Set("ETag", utils.ETag(file.Data))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		logger.L().Warn("export write failed", zap.Error(err))
	}
}
