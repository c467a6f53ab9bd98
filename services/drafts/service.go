// Package drafts owns the lifecycle of a daily production report: resuming or
// creating the reporter's draft, saving sections in any order, gating
// submission on completeness and the post-submission review steps.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Store is the persistence the workflow needs. Conditional writes
// (TransitionStatus, PatchReport, DeleteDraft) must fail with
// errs.ErrInvalidState when the report is not in the expected status.
type Store interface {
	LatestDraft(ctx context.Context, email string) (*models.Report, error)
	// CreateReport fails with errs.ErrDuplicate when the reporter already has a draft for that date.
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	ListReports(ctx context.Context, f models.ReportFilter) ([]*models.Report, error)
	SaveSection(ctx context.Context, reportID primitive.ObjectID, sec models.Section, now time.Time) error
	FindSections(ctx context.Context, kind models.SectionKind, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Section, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ReportStatus, now time.Time) (*models.Report, error)
	PatchReport(ctx context.Context, id primitive.ObjectID, patch models.ReportPatch, now time.Time) (*models.Report, error)
	DeleteDraft(ctx context.Context, id primitive.ObjectID) error
	DeleteSections(ctx context.Context, report *models.Report) error
}

type Notifier interface {
	Notify(ctx context.Context, ev models.NotificationEvent) (*models.Notification, error)
}

// MediaStore removes uploaded site media when a draft is discarded.
type MediaStore interface {
	DeleteFile(ctx context.Context, key string) error
}

type Service struct {
	store           Store
	notifier        Notifier
	media           MediaStore
	log             *zap.Logger
	now             func() time.Time
	submissionRoles []models.UserRole
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMedia(m MediaStore) Option {
	return func(s *Service) { s.media = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSubmissionRoles sets who hears about submitted reports.
func WithSubmissionRoles(roles []models.UserRole) Option {
	return func(s *Service) {
		if len(roles) > 0 {
			s.submissionRoles = roles
		}
	}
}

func NewService(store Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:           store,
		log:             log,
		now:             time.Now,
		submissionRoles: []models.UserRole{models.UserRoleAdmin, models.UserRoleViewer},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DraftRequest identifies the reporter asking for a draft.
type DraftRequest struct {
	Email  string
	Name   string
	UserID string
	// Date is used only when a new draft has to be created. Defaults to today.
	Date string
	// HintID is the client-held "current draft" id. It is trusted only
	// after the server confirms it is still a draft owned by the caller.
	HintID string
}

// EnsureDraft returns the caller's resumable draft, creating one if needed.
// Repeated calls without an intervening submit return the same report.
func (s *Service) EnsureDraft(ctx context.Context, req DraftRequest) (*models.Report, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" {
		return nil, errs.Validation("reporter name and email are required")
	}

	if report, err := s.fromHint(ctx, req.HintID, email); err != nil || report != nil {
		return report, err
	}

	report, err := s.store.LatestDraft(ctx, email)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = now.Format(models.DateLayout)
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, errs.Validation("date must be YYYY-MM-DD")
	}

	report = &models.Report{
		Date:            date,
		ReportedBy:      name,
		ReportedByEmail: email,
		ReportedByID:    req.UserID,
		Status:          models.StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = s.store.CreateReport(ctx, report)
	if errors.Is(err, errs.ErrDuplicate) {
		// A concurrent first call won the insert; resume its draft.
		s.log.Debug("draft created concurrently, resuming", zap.String("email", email))
		return s.store.LatestDraft(ctx, email)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("draft created",
		zap.String("report_id", report.ID.Hex()),
		zap.String("email", email),
		zap.String("date", date))
	return report, nil
}

func (s *Service) fromHint(ctx context.Context, hint, email string) (*models.Report, error) {
	if hint == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(hint)
	if err != nil {
		return nil, nil
	}
	report, err := s.store.GetReport(ctx, id)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	case !report.IsDraft() || report.ReportedByEmail != email:
		s.log.Debug("stale draft hint ignored", zap.String("hint", hint), zap.String("status", string(report.Status)))
		return nil, nil
	}
	return report, nil
}

// SaveSection upserts one section of a draft. Saving the same section again
// replaces it.
func (s *Service) SaveSection(ctx context.Context, id primitive.ObjectID, sec models.Section) (*models.ReportDetail, error) {
	if sec == nil {
		return nil, errs.Validation("section payload is required")
	}
	if err := sec.Validate(); err != nil {
		return nil, errs.Validation("%s: %v", sec.Kind(), err)
	}

	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.IsDraft() {
		return nil, errs.InvalidState("report %s is %s, sections can only be changed on drafts", id.Hex(), report.Status)
	}

	// Identity and ownership are assigned by the store, never by the payload.
	*sec.Meta() = models.SectionMeta{}
	if err := s.store.SaveSection(ctx, id, sec, s.now()); err != nil {
		return nil, err
	}

	s.log.Debug("section saved", zap.String("report_id", id.Hex()), zap.String("section", string(sec.Kind())))
	return s.Detail(ctx, id)
}

// Detail loads a report with its sections resolved and completion evaluated.
func (s *Service) Detail(ctx context.Context, id primitive.ObjectID) (*models.ReportDetail, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	sections, err := s.resolve(ctx, report)
	if err != nil {
		return nil, err
	}
	return models.NewReportDetail(report, sections), nil
}

// IsComplete re-reads the report and evaluates the completion predicate.
func (s *Service) IsComplete(ctx context.Context, id primitive.ObjectID) (models.Completion, error) {
	detail, err := s.Detail(ctx, id)
	if err != nil {
		return models.Completion{}, err
	}
	return detail.Completion, nil
}

func (s *Service) resolve(ctx context.Context, report *models.Report) (*models.Sections, error) {
	referenced := &models.Sections{}
	for _, kind := range models.SectionKinds {
		ref := report.SectionRef(kind)
		if ref == nil {
			continue
		}
		found, err := s.store.FindSections(ctx, kind, []primitive.ObjectID{*ref})
		if err != nil {
			return nil, err
		}
		if sec, ok := found[*ref]; ok {
			referenced.Set(sec)
		}
	}
	return models.ResolveSections(report, referenced), nil
}

// Submit moves a complete draft to submitted and announces it. Fan-out
// failures are logged; the submission stands.
func (s *Service) Submit(ctx context.Context, id primitive.ObjectID) (*models.ReportDetail, error) {
	detail, err := s.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !detail.IsDraft() {
		return nil, errs.InvalidState("report %s is already %s", id.Hex(), detail.Status)
	}
	if !detail.Completion.Complete {
		return nil, errs.Incomplete(detail.Completion.Missing)
	}

	report, err := s.store.TransitionStatus(ctx, id, models.StatusDraft, models.StatusSubmitted, s.now())
	if err != nil {
		return nil, err
	}

	s.log.Info("report submitted", zap.String("report_id", id.Hex()), zap.String("email", report.ReportedByEmail))
	s.announce(ctx, models.NotificationEvent{
		Title:          "Production report submitted",
		Message:        fmt.Sprintf("%s submitted the production report for %s", report.ReportedBy, report.Date),
		Type:           models.NotificationReportSubmitted,
		RecipientRoles: s.submissionRoles,
		ReportID:       &report.ID,
		ReporterName:   report.ReportedBy,
		URL:            "/reports/" + report.ID.Hex(),
	})

	return models.NewReportDetail(report, detail.Sections), nil
}

// Review advances a submitted report to reviewed, or a reviewed one to approved.
func (s *Service) Review(ctx context.Context, id primitive.ObjectID, to models.ReportStatus) (*models.ReportDetail, error) {
	if to != models.StatusReviewed && to != models.StatusApproved {
		return nil, errs.Validation("review status must be reviewed or approved")
	}
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.Status.CanTransition(to) {
		return nil, errs.InvalidState("report %s cannot move from %s to %s", id.Hex(), report.Status, to)
	}

	report, err = s.store.TransitionStatus(ctx, id, report.Status, to, s.now())
	if err != nil {
		return nil, err
	}

	if report.ReportedByID != "" {
		s.announce(ctx, models.NotificationEvent{
			Title:        "Production report " + string(to),
			Message:      fmt.Sprintf("Your report for %s was marked %s", report.Date, to),
			Type:         models.NotificationReportReviewed,
			RecipientIDs: []string{report.ReportedByID},
			ReportID:     &report.ID,
			ReporterName: report.ReportedBy,
			URL:          "/reports/" + report.ID.Hex(),
		})
	}

	sections, err := s.resolve(ctx, report)
	if err != nil {
		return nil, err
	}
	return models.NewReportDetail(report, sections), nil
}

// Update applies a generic patch. Field changes are accepted on drafts only;
// a status change is routed to Submit or Review.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, patch models.ReportPatch) (*models.ReportDetail, error) {
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, errs.Validation("unknown status %q", *patch.Status)
	}
	if patch.Date != nil {
		if _, err := time.Parse(models.DateLayout, *patch.Date); err != nil {
			return nil, errs.Validation("date must be YYYY-MM-DD")
		}
	}
	if patch.ReportedBy != nil && strings.TrimSpace(*patch.ReportedBy) == "" {
		return nil, errs.Validation("reportedBy must not be empty")
	}

	if patch.HasFields() {
		if err := s.checkStatusChange(ctx, id, patch.Status); err != nil {
			return nil, err
		}
		if _, err := s.store.PatchReport(ctx, id, patch, s.now()); err != nil {
			if errors.Is(err, errs.ErrDuplicate) {
				return nil, errs.Duplicate("another draft already exists for that date")
			}
			return nil, err
		}
	}

	if patch.Status == nil {
		return s.Detail(ctx, id)
	}
	switch *patch.Status {
	case models.StatusSubmitted:
		return s.Submit(ctx, id)
	case models.StatusReviewed, models.StatusApproved:
		return s.Review(ctx, id, *patch.Status)
	}

	detail, err := s.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !detail.IsDraft() {
		return nil, errs.InvalidState("report %s cannot return to draft", id.Hex())
	}
	return detail, nil
}

// checkStatusChange rejects a status change that would fail after the field
// patch was already written, so a combined patch applies all or nothing.
func (s *Service) checkStatusChange(ctx context.Context, id primitive.ObjectID, to *models.ReportStatus) error {
	if to == nil || *to == models.StatusDraft {
		return nil
	}
	if *to != models.StatusSubmitted {
		return errs.InvalidState("report %s cannot change fields and move to %s at once", id.Hex(), *to)
	}
	detail, err := s.Detail(ctx, id)
	if err != nil {
		return err
	}
	if !detail.IsDraft() {
		return errs.InvalidState("report %s is already %s", id.Hex(), detail.Status)
	}
	if !detail.Completion.Complete {
		return errs.Incomplete(detail.Completion.Missing)
	}
	return nil
}

// DeleteDraft hard-deletes a draft together with its section documents and
// uploaded media. Cleanup of owned data is best effort.
func (s *Service) DeleteDraft(ctx context.Context, id primitive.ObjectID) error {
	detail, err := s.Detail(ctx, id)
	if err != nil {
		return err
	}
	if !detail.IsDraft() {
		return errs.InvalidState("report %s is %s, only drafts can be deleted", id.Hex(), detail.Status)
	}
	if err := s.store.DeleteDraft(ctx, id); err != nil {
		return err
	}

	if err := s.store.DeleteSections(ctx, detail.Report); err != nil {
		s.log.Error("failed to delete sections of discarded draft", zap.String("report_id", id.Hex()), zap.Error(err))
	}
	if s.media != nil && detail.Sections.SiteVisuals != nil {
		for _, key := range detail.Sections.SiteVisuals.StoredKeys() {
			if err := s.media.DeleteFile(ctx, key); err != nil {
				s.log.Warn("failed to delete media of discarded draft", zap.String("key", key), zap.Error(err))
			}
		}
	}

	s.log.Info("draft deleted", zap.String("report_id", id.Hex()))
	return nil
}

// List returns reports newest first.
func (s *Service) List(ctx context.Context, f models.ReportFilter) ([]*models.Report, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, errs.Validation("unknown status %q", f.Status)
	}
	f.ReportedByEmail = strings.ToLower(strings.TrimSpace(f.ReportedByEmail))
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return s.store.ListReports(ctx, f)
}

func (s *Service) announce(ctx context.Context, ev models.NotificationEvent) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("notification fan-out failed",
			zap.String("type", string(ev.Type)),
			zap.Error(err))
	}
}
