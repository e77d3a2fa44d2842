package backend

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/questlines/engine/internal/api/types"
	"github.com/questlines/engine/internal/models"
	"github.com/questlines/engine/internal/questline"
	appErr "github.com/questlines/engine/pkg/errors"
	"github.com/questlines/engine/pkg/logger"
)

// Remote talks to the questlines HTTP service.
type Remote struct {
	client *resty.Client
}

var _ Backend = (*Remote)(nil)

// NewRemote builds a client for the service at baseURL. Routes are
// resolved below baseURL + "/api".
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/api").
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Remote{client: c}
}

// Close releases idle connections.
func (r *Remote) Close() error { return r.client.Close() }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *types.APIError `json:"error"`
}

func (r *Remote) ListSummaries(ctx context.Context) ([]models.QuestlineInfo, error) {
	var out []models.QuestlineInfo
	if err := r.call(ctx, r.client.R(), http.MethodGet, "/questlines", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.QuestlineInfo{}
	}
	return out, nil
}

func (r *Remote) Get(ctx context.Context, id string) (*models.Questline, error) {
	var ql models.Questline
	req := r.client.R().SetPathParam("id", id)
	if err := r.call(ctx, req, http.MethodGet, "/questlines/{id}", &ql); err != nil {
		return nil, err
	}
	questline.Normalize(&ql)
	return &ql, nil
}

func (r *Remote) Create(ctx context.Context, in *models.Questline) (*models.Questline, error) {
	body := in.Clone()
	body.ID = ""

	var ql models.Questline
	req := r.client.R().SetHeader("Content-Type", "application/json").SetBody(body)
	if err := r.call(ctx, req, http.MethodPost, "/questlines", &ql); err != nil {
		return nil, err
	}
	questline.Normalize(&ql)
	return &ql, nil
}

func (r *Remote) Update(ctx context.Context, id string, in *models.Questline) (*models.Questline, error) {
	var ql models.Questline
	req := r.client.R().
		SetPathParam("id", id).
		SetHeader("Content-Type", "application/json").
		SetBody(in)
	if err := r.call(ctx, req, http.MethodPut, "/questlines/{id}", &ql); err != nil {
		return nil, err
	}
	questline.Normalize(&ql)
	return &ql, nil
}

func (r *Remote) Delete(ctx context.Context, id string) error {
	req := r.client.R().SetPathParam("id", id)
	return r.call(ctx, req, http.MethodDelete, "/questlines/{id}", nil)
}

// Export downloads the attachment produced by the service. Which formats
// exist is up to the service.
func (r *Remote) Export(ctx context.Context, id, format string) (*ExportFile, error) {
	res, err := r.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParam("format", format).
		Get("/questlines/{id}/export")
	if err != nil {
		return nil, transportError(err)
	}
	if res.IsError() {
		return nil, responseError(res.StatusCode(), res.String())
	}

	file := &ExportFile{
		Filename:    "questline." + format,
		ContentType: res.Header().Get("Content-Type"),
		Data:        []byte(res.String()),
	}
	if _, params, err := mime.ParseMediaType(res.Header().Get("Content-Disposition")); err == nil && params["filename"] != "" {
		file.Filename = params["filename"]
	}
	return file, nil
}

func (r *Remote) call(ctx context.Context, req *resty.Request, method, path string, out any) error {
	res, err := req.SetContext(ctx).Execute(method, path)
	if err != nil {
		return transportError(err)
	}
	if res.IsError() {
		return responseError(res.StatusCode(), res.String())
	}
	if out == nil || res.StatusCode() == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(res.String()), &env); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "decode service response")
	}
	if !env.Success {
		return responseError(res.StatusCode(), res.String())
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "decode service payload")
	}
	return nil
}

func transportError(err error) error {
	logger.L().Warn("questlines service unreachable", zap.Error(err))
	return appErr.Wrap(err, appErr.CodeUnavailable, "questlines service unreachable")
}

// responseError turns a non-success reply into an AppError, preferring the
// message carried by the envelope.
func responseError(status int, body string) error {
	code := codeForStatus(status)
	msg := http.StatusText(status)

	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err == nil && env.Error != nil && env.Error.Message != "" {
		msg = env.Error.Message
	}
	return appErr.New(code, msg).WithMeta("status", status)
}

func codeForStatus(status int) appErr.Code {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return appErr.CodeInvalid
	case status == http.StatusNotFound:
		return appErr.CodeNotFound
	case status == http.StatusConflict:
		return appErr.CodeConflict
	case status >= 500:
		return appErr.CodeUnavailable
	default:
		return appErr.CodeUnknown
	}
}
