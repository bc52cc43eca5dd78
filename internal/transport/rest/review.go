package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/aaed-cleaner/internal/domain"
	"github.com/heartmarshall/aaed-cleaner/internal/service/review"
	"github.com/heartmarshall/aaed-cleaner/internal/tabular"
)

// ReviewService defines the session operations needed by ReviewHandler.
type ReviewService interface {
	Load(ctx context.Context, input review.LoadInput) (*review.SessionView, error)
	Current(ctx context.Context) (*review.SessionView, error)
	ResolveUniform(ctx context.Context) (*review.SessionView, error)
	ResolveDistinct(ctx context.Context) (*review.SessionView, error)
	BeginManual(ctx context.Context) (*review.SessionView, error)
	CancelManual(ctx context.Context) (*review.SessionView, error)
	SubmitManual(ctx context.Context, input review.ManualInput) (*review.SessionView, error)
	Skip(ctx context.Context) (*review.SessionView, error)
	Export(ctx context.Context) (*review.ExportResult, error)
}

// ReviewHandler serves the duplicate-review REST endpoints.
type ReviewHandler struct {
	svc       ReviewService
	log       *slog.Logger
	maxUpload int64
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(svc ReviewService, logger *slog.Logger, maxUpload int64) *ReviewHandler {
	return &ReviewHandler{svc: svc, log: logger.With("handler", "review"), maxUpload: maxUpload}
}

// ---------------------------------------------------------------------------
// Request / response shapes
// ---------------------------------------------------------------------------

type resolveRequest struct {
	Policy string `json:"policy"`
}

type manualChoiceRequest struct {
	Index    string `json:"index"`
	SubIndex int    `json:"subIndex"`
	Group    int    `json:"group"`
}

type manualSubmitRequest struct {
	Choices []manualChoiceRequest `json:"choices"`
}

type sessionResponse struct {
	SessionID     string           `json:"sessionId,omitempty"`
	FileName      string           `json:"fileName,omitempty"`
	State         string           `json:"state"`
	Current       *groupResponse   `json:"current,omitempty"`
	PendingGroups int              `json:"pendingGroups"`
	Progress      progressResponse `json:"progress"`
}

type groupResponse struct {
	Word      string           `json:"word"`
	Size      int              `json:"size"`
	MaxGroups int              `json:"maxGroups"`
	Members   []memberResponse `json:"members"`
}

type memberResponse struct {
	ID       string `json:"id"` // "index-sub_index" display form
	Index    string `json:"index"`
	SubIndex int    `json:"subIndex"`
	Entry    string `json:"entry"`
	Gloss    string `json:"gloss"`
}

type progressResponse struct {
	Resolved int `json:"resolved"`
	Total    int `json:"total"`
}

func toSessionResponse(v *review.SessionView) sessionResponse {
	resp := sessionResponse{
		State:         string(v.State),
		PendingGroups: v.PendingGroups,
		Progress:      progressResponse{Resolved: v.Progress.Resolved, Total: v.Progress.Total},
	}
	if v.State != review.StateNoDataset {
		resp.SessionID = v.SessionID.String()
		resp.FileName = v.FileName
	}
	if v.Current != nil {
		g := &groupResponse{
			Word:      v.Current.Word,
			Size:      v.Current.Size(),
			MaxGroups: v.MaxGroups,
			Members:   make([]memberResponse, v.Current.Size()),
		}
		for i := range v.Current.Members {
			m := &v.Current.Members[i]
			g.Members[i] = memberResponse{
				ID:       m.Key().String(),
				Index:    m.Index,
				SubIndex: m.SubIndex,
				Entry:    m.Entry,
				Gloss:    m.Gloss,
			}
		}
		resp.Current = g
	}
	return resp
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

// Upload handles POST /api/dataset: a multipart upload with a "file" part.
func (h *ReviewHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, `multipart upload with a "file" part required`)
		return
	}
	defer file.Close()

	recs, err := tabular.Decode(header.Filename, file)
	if err != nil {
		h.handleUploadError(w, r, err)
		return
	}

	view, err := h.svc.Load(r.Context(), review.LoadInput{
		FileName: header.Filename,
		Records:  recs,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(view))
}

// Session handles GET /api/session.
func (h *ReviewHandler) Session(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Current(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

// Resolve handles POST /api/session/resolve with {"policy": "uniform"|"distinct"}.
func (h *ReviewHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var view *review.SessionView
	var err error
	switch req.Policy {
	case "uniform":
		view, err = h.svc.ResolveUniform(r.Context())
	case "distinct":
		view, err = h.svc.ResolveDistinct(r.Context())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown policy %q (want uniform or distinct)", req.Policy))
		return
	}
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

// BeginManual handles POST /api/session/manual.
func (h *ReviewHandler) BeginManual(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.BeginManual(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

// CancelManual handles DELETE /api/session/manual.
func (h *ReviewHandler) CancelManual(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.CancelManual(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

// SubmitManual handles POST /api/session/manual/submit.
func (h *ReviewHandler) SubmitManual(w http.ResponseWriter, r *http.Request) {
	var req manualSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := review.ManualInput{Choices: make([]review.ManualChoice, len(req.Choices))}
	for i, c := range req.Choices {
		input.Choices[i] = review.ManualChoice{
			Key:   domain.RecordKey{Index: c.Index, SubIndex: c.SubIndex},
			Group: c.Group,
		}
	}

	view, err := h.svc.SubmitManual(r.Context(), input)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

// Skip handles POST /api/session/skip.
func (h *ReviewHandler) Skip(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Skip(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(view))
}

// Export handles GET /api/export: the current snapshot as a spreadsheet,
// resolved or not, under the classified_ output name.
func (h *ReviewHandler) Export(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Export(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	name := tabular.OutputName(res.FileName)

	var buf bytes.Buffer
	if err := tabular.Encode(name, &buf, res.Records); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	w.Header().Set("Content-Type", tabular.ContentType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// handleUploadError reports ingestion failures with the original failure
// description and a reminder of the required schema.
func (h *ReviewHandler) handleUploadError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.InfoContext(r.Context(), "upload rejected", slog.String("error", err.Error()))
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":           err.Error(),
		"requiredColumns": tabular.RequiredColumns,
	})
}
