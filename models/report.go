package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportStatus string

const (
	StatusDraft     ReportStatus = "draft"
	StatusSubmitted ReportStatus = "submitted"
	StatusReviewed  ReportStatus = "reviewed"
	StatusApproved  ReportStatus = "approved"
)

func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusReviewed, StatusApproved:
		return true
	}
	return false
}

// CanTransition reports whether a report may move from s to next.
// draft -> submitted -> reviewed -> approved, one step at a time.
func (s ReportStatus) CanTransition(next ReportStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusSubmitted
	case StatusSubmitted:
		return next == StatusReviewed
	case StatusReviewed:
		return next == StatusApproved
	}
	return false
}

// DateLayout is the calendar-day format of Report.Date.
const DateLayout = "2006-01-02"

// Report is the root aggregate for one reporting day by one reporter.
// Sections are referenced by id; older records may carry them inline in
// Embedded instead. Use ResolveSections to read either form.
type Report struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Date            string             `bson:"date" json:"date"`
	ReportedBy      string             `bson:"reported_by" json:"reportedBy"`
	ReportedByEmail string             `bson:"reported_by_email" json:"reportedByEmail"`
	ReportedByID    string             `bson:"reported_by_id,omitempty" json:"reportedById,omitempty"`
	Status          ReportStatus       `bson:"status" json:"status"`
	SubmittedAt     *time.Time         `bson:"submitted_at,omitempty" json:"submittedAt"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updatedAt"`

	PowerInterruptionID *primitive.ObjectID `bson:"power_interruption_id,omitempty" json:"powerInterruptionId,omitempty"`
	DailyProductionID   *primitive.ObjectID `bson:"daily_production_id,omitempty" json:"dailyProductionId,omitempty"`
	IncidentReportID    *primitive.ObjectID `bson:"incident_report_id,omitempty" json:"incidentReportId,omitempty"`
	SiteVisualID        *primitive.ObjectID `bson:"site_visual_id,omitempty" json:"siteVisualId,omitempty"`

	Embedded *Sections `bson:"sections,omitempty" json:"-"`
}

func (r *Report) IsDraft() bool {
	return r.Status == StatusDraft
}

// SectionRef returns the referenced section id of kind, or nil.
func (r *Report) SectionRef(kind SectionKind) *primitive.ObjectID {
	switch kind {
	case SectionPowerInterruption:
		return r.PowerInterruptionID
	case SectionDailyProduction:
		return r.DailyProductionID
	case SectionIncidentReport:
		return r.IncidentReportID
	case SectionSiteVisuals:
		return r.SiteVisualID
	}
	return nil
}

func (r *Report) SetSectionRef(kind SectionKind, id primitive.ObjectID) {
	switch kind {
	case SectionPowerInterruption:
		r.PowerInterruptionID = &id
	case SectionDailyProduction:
		r.DailyProductionID = &id
	case SectionIncidentReport:
		r.IncidentReportID = &id
	case SectionSiteVisuals:
		r.SiteVisualID = &id
	}
}

// SectionRefField is the report field storing the reference of kind.
func SectionRefField(kind SectionKind) string {
	switch kind {
	case SectionPowerInterruption:
		return "power_interruption_id"
	case SectionDailyProduction:
		return "daily_production_id"
	case SectionIncidentReport:
		return "incident_report_id"
	case SectionSiteVisuals:
		return "site_visual_id"
	}
	return ""
}

// ResolveSections merges referenced sections with the inline copies of r.
// A resolved reference wins; otherwise the embedded value is used.
func ResolveSections(r *Report, referenced *Sections) *Sections {
	out := &Sections{}
	for _, kind := range SectionKinds {
		if sec := referenced.Get(kind); sec != nil && r.SectionRef(kind) != nil {
			out.Set(sec)
			continue
		}
		if sec := r.Embedded.Get(kind); sec != nil {
			out.Set(sec)
		}
	}
	return out
}

// ReportDetail is a report with its resolved sections and completion state.
type ReportDetail struct {
	*Report
	Sections   *Sections  `json:"sections"`
	Completion Completion `json:"completion"`
}

func NewReportDetail(r *Report, sections *Sections) *ReportDetail {
	return &ReportDetail{Report: r, Sections: sections, Completion: Evaluate(sections)}
}

type ReportFilter struct {
	ReportedByEmail string
	Status          ReportStatus
	DateFrom        string
	DateTo          string
	Limit           int64
	Skip            int64
}

// ReportPatch is a generic update. Nil fields are left untouched.
type ReportPatch struct {
	Date       *string       `json:"date,omitempty"`
	ReportedBy *string       `json:"reportedBy,omitempty"`
	Status     *ReportStatus `json:"status,omitempty"`
}

func (p ReportPatch) HasFields() bool {
	return p.Date != nil || p.ReportedBy != nil
}
