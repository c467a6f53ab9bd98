package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/DGISsoft/prodreport/api/auth"
	"github.com/DGISsoft/prodreport/middleware"
	"github.com/DGISsoft/prodreport/middleware/loaders"
	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/drafts"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/DGISsoft/prodreport/services/export"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ensureDraftRequest struct {
	Date            string `json:"date"`
	ReportedBy      string `json:"reportedBy"`
	ReportedByEmail string `json:"reportedByEmail"`
	CurrentDraftID  string `json:"currentDraftId"`
}

func (h *handler) ensureDraft(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	var req ensureDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	draft := drafts.DraftRequest{
		Email:  claims.Email,
		Name:   claims.Name,
		UserID: claims.UserID,
		Date:   req.Date,
		HintID: req.CurrentDraftID,
	}
	// Admins may open a draft on behalf of another reporter.
	if claims.Role == models.UserRoleAdmin && req.ReportedByEmail != "" &&
		!strings.EqualFold(req.ReportedByEmail, claims.Email) {
		draft.Email = req.ReportedByEmail
		draft.UserID = ""
		draft.Name = req.ReportedBy
	} else if req.ReportedBy != "" {
		draft.Name = req.ReportedBy
	}

	report, err := h.Drafts.EnsureDraft(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	detail, err := h.Drafts.Detail(r.Context(), report.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func reportFilter(r *http.Request, claims *auth.JWTClaims) models.ReportFilter {
	q := r.URL.Query()
	f := models.ReportFilter{
		ReportedByEmail: q.Get("reportedByEmail"),
		Status:          models.ReportStatus(q.Get("status")),
		DateFrom:        q.Get("from"),
		DateTo:          q.Get("to"),
		Limit:           parseInt64(q.Get("limit"), 0),
		Skip:            parseInt64(q.Get("skip"), 0),
	}
	if !claims.Role.Can(models.ActionReadAllReports) {
		f.ReportedByEmail = claims.Email
	}
	return f
}

func (h *handler) listReports(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	reports, err := h.Drafts.List(r.Context(), reportFilter(r, claims))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	details, err := loaders.For(r.Context()).Details(r.Context(), reports)
	if err != nil {
		h.writeError(w, r, errs.Storage(err, "failed to resolve sections"))
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *handler) exportReports(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	reports, err := h.Drafts.List(r.Context(), reportFilter(r, claims))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	details, err := loaders.For(r.Context()).Details(r.Context(), reports)
	if err != nil {
		h.writeError(w, r, errs.Storage(err, "failed to resolve sections"))
		return
	}
	data, err := export.Reports(details)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=production-reports.xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// authorizedDetail loads the report named in the path and checks the caller
// may see it. Reporters only see their own reports.
func (h *handler) authorizedDetail(w http.ResponseWriter, r *http.Request) (*models.ReportDetail, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, errs.Validation("invalid report id"))
		return nil, false
	}
	detail, err := h.Drafts.Detail(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	claims := middleware.ClaimsFrom(r.Context())
	if !claims.Role.Can(models.ActionReadAllReports) && !ownReport(claims, detail.Report) {
		// Hide the existence of other reporters' reports.
		h.writeError(w, r, errs.NotFound("report %s not found", id.Hex()))
		return nil, false
	}
	return detail, true
}

// authorizedDraft is authorizedDetail for writes: only the owner or an admin.
func (h *handler) authorizedDraft(w http.ResponseWriter, r *http.Request) (*models.ReportDetail, bool) {
	detail, ok := h.authorizedDetail(w, r)
	if !ok {
		return nil, false
	}
	claims := middleware.ClaimsFrom(r.Context())
	if claims.Role != models.UserRoleAdmin && !ownReport(claims, detail.Report) {
		h.writeError(w, r, errs.Forbidden("only the reporter may change this report"))
		return nil, false
	}
	return detail, true
}

func ownReport(claims *auth.JWTClaims, report *models.Report) bool {
	return strings.EqualFold(report.ReportedByEmail, claims.Email)
}

func (h *handler) getReport(w http.ResponseWriter, r *http.Request) {
	detail, ok := h.authorizedDetail(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *handler) updateReport(w http.ResponseWriter, r *http.Request) {
	var patch models.ReportPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	var (
		current *models.ReportDetail
		ok      bool
	)
	if patch.Status != nil && (*patch.Status == models.StatusReviewed || *patch.Status == models.StatusApproved) {
		claims := middleware.ClaimsFrom(r.Context())
		if !claims.Role.Can(models.ActionReviewReport) {
			h.writeError(w, r, errs.Forbidden("role %s may not review reports", claims.Role))
			return
		}
		current, ok = h.authorizedDetail(w, r)
	} else {
		current, ok = h.authorizedDraft(w, r)
	}
	if !ok {
		return
	}

	detail, err := h.Drafts.Update(r.Context(), current.ID, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *handler) deleteReport(w http.ResponseWriter, r *http.Request) {
	current, ok := h.authorizedDraft(w, r)
	if !ok {
		return
	}
	if err := h.Drafts.DeleteDraft(r.Context(), current.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) submitReport(w http.ResponseWriter, r *http.Request) {
	current, ok := h.authorizedDraft(w, r)
	if !ok {
		return
	}
	detail, err := h.Drafts.Submit(r.Context(), current.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *handler) saveSection(w http.ResponseWriter, r *http.Request) {
	kind, ok := models.ParseSectionKind(chi.URLParam(r, "section"))
	if !ok {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("unknown section %q", chi.URLParam(r, "section")))
		return
	}
	current, ok := h.authorizedDraft(w, r)
	if !ok {
		return
	}

	sec, err := models.NewSection(kind)
	if err != nil {
		h.writeError(w, r, errs.Validation("%v", err))
		return
	}
	if err := decodeJSON(r, sec); err != nil {
		h.writeError(w, r, err)
		return
	}

	detail, err := h.Drafts.SaveSection(r.Context(), current.ID, sec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *handler) uploadMedia(w http.ResponseWriter, r *http.Request) {
	if h.Media == nil {
		writeMessage(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}
	current, ok := h.authorizedDraft(w, r)
	if !ok {
		return
	}
	if !current.IsDraft() {
		h.writeError(w, r, errs.InvalidState("report %s is %s, media can only be added to drafts", current.ID.Hex(), current.Status))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, errs.Validation("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, errs.Validation("failed to read upload: %v", err))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(content)
	}

	media, err := h.Media.UploadMedia(r.Context(), current.ID, header.Filename, contentType, content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("media uploaded", zap.String("report_id", current.ID.Hex()), zap.String("key", media.Key))
	writeJSON(w, http.StatusCreated, media)
}

// readMedia streams an uploaded file to anyone allowed to read the report.
func (h *handler) readMedia(w http.ResponseWriter, r *http.Request) {
	if h.Media == nil {
		writeMessage(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}
	current, ok := h.authorizedDetail(w, r)
	if !ok {
		return
	}
	body, contentType, err := h.Media.ReadMedia(r.Context(), current.ID, chi.URLParam(r, "file"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
