package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SectionKind string

const (
	SectionPowerInterruption SectionKind = "powerInterruption"
	SectionDailyProduction   SectionKind = "dailyProduction"
	SectionIncidentReport    SectionKind = "incidentReport"
	SectionSiteVisuals       SectionKind = "siteVisuals"
)

// SectionKinds lists the four sections in the order the reporting flow shows them.
var SectionKinds = []SectionKind{
	SectionPowerInterruption,
	SectionDailyProduction,
	SectionIncidentReport,
	SectionSiteVisuals,
}

var sectionAliases = map[string]SectionKind{
	"powerinterruption":  SectionPowerInterruption,
	"power-interruption": SectionPowerInterruption,
	"dailyproduction":    SectionDailyProduction,
	"daily-production":   SectionDailyProduction,
	"incidentreport":     SectionIncidentReport,
	"incident-report":    SectionIncidentReport,
	"sitevisuals":        SectionSiteVisuals,
	"site-visuals":       SectionSiteVisuals,
	"sitevisual":         SectionSiteVisuals,
}

// ParseSectionKind accepts both the canonical names and the URL path forms.
func ParseSectionKind(s string) (SectionKind, bool) {
	kind, ok := sectionAliases[strings.ToLower(strings.TrimSpace(s))]
	return kind, ok
}

// Collection is the document collection holding sections of this kind.
func (k SectionKind) Collection() string {
	switch k {
	case SectionPowerInterruption:
		return "power_interruptions"
	case SectionDailyProduction:
		return "daily_productions"
	case SectionIncidentReport:
		return "incident_reports"
	case SectionSiteVisuals:
		return "site_visuals"
	}
	return ""
}

// Section is one of the four sub-documents attached to a report.
type Section interface {
	Kind() SectionKind
	// Complete is the minimal-content predicate gating submission.
	Complete() bool
	// Validate checks the required sub-fields of the payload.
	Validate() error
	Meta() *SectionMeta
}

// NewSection returns an empty section of kind, ready to be decoded into.
func NewSection(kind SectionKind) (Section, error) {
	switch kind {
	case SectionPowerInterruption:
		return &PowerInterruption{}, nil
	case SectionDailyProduction:
		return &DailyProduction{}, nil
	case SectionIncidentReport:
		return &IncidentReport{}, nil
	case SectionSiteVisuals:
		return &SiteVisual{}, nil
	}
	return nil, fmt.Errorf("unknown section kind %q", kind)
}

type SectionMeta struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReportID  primitive.ObjectID `bson:"report_id" json:"reportId"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (m *SectionMeta) Meta() *SectionMeta { return m }

// Stamp binds the section to its report before a write.
func (m *SectionMeta) Stamp(reportID primitive.ObjectID, now time.Time) {
	m.ReportID = reportID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

type Interruption struct {
	Time             string   `bson:"time" json:"time"`
	DurationMinutes  int      `bson:"duration_minutes" json:"durationMinutes"`
	AffectedMachines []string `bson:"affected_machines" json:"affectedMachineNames"`
	Reason           string   `bson:"reason,omitempty" json:"reason,omitempty"`
}

type PowerInterruption struct {
	SectionMeta     `bson:",inline"`
	NoInterruptions bool           `bson:"no_interruptions" json:"noInterruptions"`
	Interruptions   []Interruption `bson:"interruptions" json:"interruptions"`
}

func (p *PowerInterruption) Kind() SectionKind { return SectionPowerInterruption }

func (p *PowerInterruption) Complete() bool {
	return p.NoInterruptions || len(p.Interruptions) > 0
}

func (p *PowerInterruption) Validate() error {
	for i, in := range p.Interruptions {
		if strings.TrimSpace(in.Time) == "" {
			return fmt.Errorf("interruptions[%d]: time is required", i)
		}
		if in.DurationMinutes < 0 {
			return fmt.Errorf("interruptions[%d]: duration must not be negative", i)
		}
	}
	return nil
}

// DowntimeMinutes sums the duration of all interruptions.
func (p *PowerInterruption) DowntimeMinutes() int {
	total := 0
	for _, in := range p.Interruptions {
		total += in.DurationMinutes
	}
	return total
}

type Product struct {
	Name          string   `bson:"name" json:"name"`
	Quantity      float64  `bson:"quantity" json:"quantity"`
	Unit          string   `bson:"unit" json:"unit"`
	MachinesUsed  []string `bson:"machines_used" json:"machinesUsed"`
	EmployeeCount int      `bson:"employee_count,omitempty" json:"employeeCount,omitempty"`
	Employees     string   `bson:"employees,omitempty" json:"employees,omitempty"`
}

type MeterReadings struct {
	Opening float64 `bson:"opening" json:"opening"`
	Closing float64 `bson:"closing" json:"closing"`
	Unit    string  `bson:"unit,omitempty" json:"unit,omitempty"`
}

type DailyProduction struct {
	SectionMeta   `bson:",inline"`
	Products      []Product      `bson:"products" json:"products"`
	MeterReadings *MeterReadings `bson:"meter_readings,omitempty" json:"meterReadings,omitempty"`
	QualityNotes  string         `bson:"quality_notes,omitempty" json:"qualityNotes,omitempty"`
}

func (d *DailyProduction) Kind() SectionKind { return SectionDailyProduction }

func (d *DailyProduction) Complete() bool {
	for _, p := range d.Products {
		if strings.TrimSpace(p.Name) != "" && p.Quantity > 0 {
			return true
		}
	}
	return false
}

func (d *DailyProduction) Validate() error {
	for i, p := range d.Products {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("products[%d]: name is required", i)
		}
		if p.Quantity < 0 {
			return fmt.Errorf("products[%d]: quantity must not be negative", i)
		}
	}
	return nil
}

// TotalQuantity sums product quantities regardless of unit.
func (d *DailyProduction) TotalQuantity() float64 {
	var total float64
	for _, p := range d.Products {
		total += p.Quantity
	}
	return total
}

type IncidentReport struct {
	SectionMeta `bson:",inline"`
	NoIncidents bool   `bson:"no_incidents" json:"noIncidents"`
	HasIncident string `bson:"has_incident,omitempty" json:"hasIncident,omitempty"`
	Type        string `bson:"type,omitempty" json:"type,omitempty"`
	Time        string `bson:"time,omitempty" json:"time,omitempty"`
	InjuryLevel string `bson:"injury_level,omitempty" json:"injuryLevel,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	ActionTaken string `bson:"action_taken,omitempty" json:"actionTaken,omitempty"`
}

func (i *IncidentReport) Kind() SectionKind { return SectionIncidentReport }

// NoIncident reports whether the reporter explicitly declared a quiet day.
func (i *IncidentReport) NoIncident() bool {
	return i.NoIncidents || strings.EqualFold(strings.TrimSpace(i.HasIncident), "no")
}

func (i *IncidentReport) Complete() bool {
	if i.NoIncident() {
		return true
	}
	return strings.TrimSpace(i.Type) != "" && strings.TrimSpace(i.Description) != ""
}

func (i *IncidentReport) Validate() error {
	switch strings.ToLower(strings.TrimSpace(i.HasIncident)) {
	case "", "yes", "no":
		return nil
	}
	return fmt.Errorf("hasIncident must be \"yes\" or \"no\"")
}

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

type Media struct {
	Name      string    `bson:"name" json:"name"`
	Type      MediaType `bson:"type" json:"type"`
	SizeLabel string    `bson:"size_label,omitempty" json:"sizeLabel,omitempty"`
	Preview   string    `bson:"preview,omitempty" json:"preview,omitempty"`
	Key       string    `bson:"key,omitempty" json:"key,omitempty"`
}

type SiteVisual struct {
	SectionMeta `bson:",inline"`
	Media       []Media `bson:"media" json:"media"`
}

func (s *SiteVisual) Kind() SectionKind { return SectionSiteVisuals }

func (s *SiteVisual) Complete() bool {
	for _, m := range s.Media {
		if strings.TrimSpace(m.Name) != "" {
			return true
		}
	}
	return false
}

func (s *SiteVisual) Validate() error {
	for i, m := range s.Media {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("media[%d]: name is required", i)
		}
		if m.Type != MediaImage && m.Type != MediaVideo {
			return fmt.Errorf("media[%d]: type must be image or video", i)
		}
	}
	return nil
}

// StoredKeys returns the object-storage keys of uploaded media.
func (s *SiteVisual) StoredKeys() []string {
	var keys []string
	for _, m := range s.Media {
		if m.Key != "" {
			keys = append(keys, m.Key)
		}
	}
	return keys
}

// Sections is the canonical in-memory view of a report's four sections.
type Sections struct {
	PowerInterruption *PowerInterruption `bson:"power_interruption,omitempty" json:"powerInterruption,omitempty"`
	DailyProduction   *DailyProduction   `bson:"daily_production,omitempty" json:"dailyProduction,omitempty"`
	IncidentReport    *IncidentReport    `bson:"incident_report,omitempty" json:"incidentReport,omitempty"`
	SiteVisuals       *SiteVisual        `bson:"site_visuals,omitempty" json:"siteVisuals,omitempty"`
}

// Get returns the section of kind, or nil when absent.
func (s *Sections) Get(kind SectionKind) Section {
	if s == nil {
		return nil
	}
	switch kind {
	case SectionPowerInterruption:
		if s.PowerInterruption != nil {
			return s.PowerInterruption
		}
	case SectionDailyProduction:
		if s.DailyProduction != nil {
			return s.DailyProduction
		}
	case SectionIncidentReport:
		if s.IncidentReport != nil {
			return s.IncidentReport
		}
	case SectionSiteVisuals:
		if s.SiteVisuals != nil {
			return s.SiteVisuals
		}
	}
	return nil
}

func (s *Sections) Set(sec Section) {
	switch v := sec.(type) {
	case *PowerInterruption:
		s.PowerInterruption = v
	case *DailyProduction:
		s.DailyProduction = v
	case *IncidentReport:
		s.IncidentReport = v
	case *SiteVisual:
		s.SiteVisuals = v
	}
}
