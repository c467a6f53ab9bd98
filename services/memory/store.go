// Package memory is an in-process implementation of every store. It backs
// the tests and the single-node "serve --memory" mode, and enforces the same
// uniqueness rules as the document store.
package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu sync.RWMutex

	reports       map[primitive.ObjectID]*models.Report
	sections      map[models.SectionKind]map[primitive.ObjectID]models.Section
	notifications map[primitive.ObjectID]*models.Notification
	subscriptions map[string]*models.PushSubscription
	attendance    map[string]*models.Attendance
	users         map[string]*models.User
	machines      map[string]*models.Machine
}

func NewStore() *Store {
	s := &Store{
		reports:       make(map[primitive.ObjectID]*models.Report),
		sections:      make(map[models.SectionKind]map[primitive.ObjectID]models.Section),
		notifications: make(map[primitive.ObjectID]*models.Notification),
		subscriptions: make(map[string]*models.PushSubscription),
		attendance:    make(map[string]*models.Attendance),
		users:         make(map[string]*models.User),
		machines:      make(map[string]*models.Machine),
	}
	for _, kind := range models.SectionKinds {
		s.sections[kind] = make(map[primitive.ObjectID]models.Section)
	}
	return s
}

// newestFirst orders by creation time, then by id for records created in the same instant.
func newestFirst(a, b time.Time, idA, idB primitive.ObjectID) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return bytes.Compare(idA[:], idB[:]) > 0
}

func page[T any](items []T, limit, skip int64) []T {
	if skip > 0 {
		if skip >= int64(len(items)) {
			return items[:0]
		}
		items = items[skip:]
	}
	if limit > 0 && int64(len(items)) > limit {
		items = items[:limit]
	}
	return items
}

func cloneReport(r *models.Report) *models.Report {
	cp := *r
	return &cp
}

func cloneSection(sec models.Section) models.Section {
	switch v := sec.(type) {
	case *models.PowerInterruption:
		cp := *v
		return &cp
	case *models.DailyProduction:
		cp := *v
		return &cp
	case *models.IncidentReport:
		cp := *v
		return &cp
	case *models.SiteVisual:
		cp := *v
		return &cp
	}
	return sec
}

// Reports

func (s *Store) LatestDraft(_ context.Context, email string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Report
	for _, r := range s.reports {
		if r.ReportedByEmail != email || !r.IsDraft() {
			continue
		}
		if latest == nil || newestFirst(r.CreatedAt, latest.CreatedAt, r.ID, latest.ID) {
			latest = r
		}
	}
	if latest == nil {
		return nil, errs.NotFound("draft for %s not found", email)
	}
	return cloneReport(latest), nil
}

func (s *Store) CreateReport(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.IsDraft() && s.hasDraftLocked(report.ReportedByEmail, report.Date, primitive.NilObjectID) {
		return errs.Duplicate("draft for %s on %s already exists", report.ReportedByEmail, report.Date)
	}
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	s.reports[report.ID] = cloneReport(report)
	return nil
}

func (s *Store) hasDraftLocked(email, date string, except primitive.ObjectID) bool {
	for id, r := range s.reports {
		if id != except && r.IsDraft() && r.ReportedByEmail == email && r.Date == date {
			return true
		}
	}
	return false
}

func (s *Store) GetReport(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, errs.NotFound("report %s not found", id.Hex())
	}
	return cloneReport(r), nil
}

func (s *Store) ListReports(_ context.Context, f models.ReportFilter) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Report
	for _, r := range s.reports {
		if f.ReportedByEmail != "" && r.ReportedByEmail != f.ReportedByEmail {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.DateFrom != "" && r.Date < f.DateFrom {
			continue
		}
		if f.DateTo != "" && r.Date > f.DateTo {
			continue
		}
		out = append(out, cloneReport(r))
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return page(out, f.Limit, f.Skip), nil
}

func (s *Store) SaveSection(_ context.Context, reportID primitive.ObjectID, sec models.Section, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[reportID]
	if !ok {
		return errs.NotFound("report %s not found", reportID.Hex())
	}
	if !report.IsDraft() {
		return errs.InvalidState("report %s is %s, expected %s", reportID.Hex(), report.Status, models.StatusDraft)
	}

	kind := sec.Kind()
	meta := sec.Meta()
	meta.Stamp(reportID, now)
	for id, existing := range s.sections[kind] {
		if existing.Meta().ReportID == reportID {
			meta.ID = id
			meta.CreatedAt = existing.Meta().CreatedAt
			break
		}
	}
	if meta.ID.IsZero() {
		meta.ID = primitive.NewObjectID()
	}
	s.sections[kind][meta.ID] = cloneSection(sec)

	report.SetSectionRef(kind, meta.ID)
	report.UpdatedAt = now
	return nil
}

func (s *Store) FindSections(_ context.Context, kind models.SectionKind, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[primitive.ObjectID]models.Section, len(ids))
	for _, id := range ids {
		if sec, ok := s.sections[kind][id]; ok {
			out[id] = cloneSection(sec)
		}
	}
	return out, nil
}

func (s *Store) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to models.ReportStatus, now time.Time) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.expectLocked(id, from)
	if err != nil {
		return nil, err
	}
	report.Status = to
	report.UpdatedAt = now
	if to == models.StatusSubmitted {
		at := now
		report.SubmittedAt = &at
	}
	return cloneReport(report), nil
}

func (s *Store) PatchReport(_ context.Context, id primitive.ObjectID, patch models.ReportPatch, now time.Time) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.expectLocked(id, models.StatusDraft)
	if err != nil {
		return nil, err
	}
	if patch.Date != nil && *patch.Date != report.Date &&
		s.hasDraftLocked(report.ReportedByEmail, *patch.Date, id) {
		return nil, errs.Duplicate("draft for %s on %s already exists", report.ReportedByEmail, *patch.Date)
	}
	if patch.Date != nil {
		report.Date = *patch.Date
	}
	if patch.ReportedBy != nil {
		report.ReportedBy = *patch.ReportedBy
	}
	report.UpdatedAt = now
	return cloneReport(report), nil
}

func (s *Store) DeleteDraft(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.expectLocked(id, models.StatusDraft); err != nil {
		return err
	}
	delete(s.reports, id)
	return nil
}

func (s *Store) DeleteSections(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kind := range models.SectionKinds {
		ref := report.SectionRef(kind)
		for id, sec := range s.sections[kind] {
			if sec.Meta().ReportID == report.ID || (ref != nil && *ref == id) {
				delete(s.sections[kind], id)
			}
		}
	}
	return nil
}

func (s *Store) expectLocked(id primitive.ObjectID, status models.ReportStatus) (*models.Report, error) {
	report, ok := s.reports[id]
	if !ok {
		return nil, errs.NotFound("report %s not found", id.Hex())
	}
	if report.Status != status {
		return nil, errs.InvalidState("report %s is %s, expected %s", id.Hex(), report.Status, status)
	}
	return report, nil
}

// SeedReport stores a report as-is, bypassing draft rules. Used to load
// legacy records that carry their sections inline.
func (s *Store) SeedReport(report *models.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	s.reports[report.ID] = cloneReport(report)
}

// Notifications

func (s *Store) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *Store) ListNotifications(_ context.Context, f models.NotificationFilter) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Notification
	for _, n := range s.notifications {
		if f.Matches(n) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return page(out, f.Limit, 0), nil
}

func (s *Store) MarkRead(_ context.Context, ids []primitive.ObjectID, scope models.NotificationFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched, n int64
	for _, id := range ids {
		rec, ok := s.notifications[id]
		if !ok || !scope.Matches(rec) {
			continue
		}
		matched++
		if !rec.IsRead {
			rec.IsRead = true
			n++
		}
	}
	if matched == 0 {
		return 0, errs.NotFound("notification not found")
	}
	return n, nil
}

func (s *Store) MarkAllRead(_ context.Context, role models.UserRole, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := models.NotificationFilter{Role: role, UserID: userID, UnreadOnly: true}
	var n int64
	for _, rec := range s.notifications {
		if f.Matches(rec) {
			rec.IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteNotifications(_ context.Context, ids []primitive.ObjectID, scope models.NotificationFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range ids {
		if rec, ok := s.notifications[id]; ok && scope.Matches(rec) {
			delete(s.notifications, id)
			n++
		}
	}
	return n, nil
}

// Push subscriptions

func (s *Store) ListSubscriptions(_ context.Context, roles []models.UserRole, userIDs []string) ([]*models.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target := models.Notification{RecipientRoles: roles, RecipientIDs: userIDs}
	var out []*models.PushSubscription
	for _, sub := range s.subscriptions {
		if target.AddressedTo(sub.UserID, sub.Roles) {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out, nil
}

func (s *Store) UpsertSubscription(_ context.Context, sub *models.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.subscriptions[sub.Endpoint]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.ID = primitive.NewObjectID()
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	cp := *sub
	s.subscriptions[sub.Endpoint] = &cp
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, endpoint, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[endpoint]
	if !ok || (userID != "" && sub.UserID != userID) {
		return errs.NotFound("push subscription not found")
	}
	delete(s.subscriptions, endpoint)
	return nil
}

// Attendance

func attendanceKey(email, date string) string {
	return email + "|" + date
}

func (s *Store) UpsertAttendance(_ context.Context, a *models.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now()
	}
	a.UpdatedAt = a.SubmittedAt
	key := attendanceKey(a.ReporterEmail, a.Date)
	if existing, ok := s.attendance[key]; ok {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	} else {
		a.ID = primitive.NewObjectID()
		a.CreatedAt = a.SubmittedAt
	}
	cp := *a
	s.attendance[key] = &cp
	return nil
}

func (s *Store) ListAttendance(_ context.Context, f models.AttendanceFilter) ([]*models.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Attendance
	for _, a := range s.attendance {
		if f.Matches(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// Machines

func (s *Store) GetAllMachines(_ context.Context) ([]*models.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Machine, 0, len(s.machines))
	for _, m := range s.machines {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateMachine(_ context.Context, m *models.Machine) error {
	if strings.TrimSpace(m.Name) == "" {
		return errs.Validation("machine name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.machines[m.Name]; ok {
		return errs.Duplicate("machine %s already exists", m.Name)
	}
	if m.Status == "" {
		m.Status = models.MachineActive
	}
	now := time.Now()
	m.ID = primitive.NewObjectID()
	m.CreatedAt = now
	m.UpdatedAt = now
	cp := *m
	s.machines[m.Name] = &cp
	return nil
}

// MachineUsage mirrors the document-store aggregation over submitted reports.
func (s *Store) MachineUsage(_ context.Context, from, to string) ([]*models.MachineUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMachine := make(map[string]*models.MachineUsage)
	for _, sec := range s.sections[models.SectionDailyProduction] {
		report, ok := s.reports[sec.Meta().ReportID]
		if !ok || report.IsDraft() {
			continue
		}
		if (from != "" && report.Date < from) || (to != "" && report.Date > to) {
			continue
		}
		for _, p := range sec.(*models.DailyProduction).Products {
			for _, m := range p.MachinesUsed {
				u, ok := byMachine[m]
				if !ok {
					u = &models.MachineUsage{Machine: m}
					byMachine[m] = u
				}
				u.Entries++
				u.TotalQuantity += p.Quantity
			}
		}
	}

	out := make([]*models.MachineUsage, 0, len(byMachine))
	for _, u := range byMachine {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entries != out[j].Entries {
			return out[i].Entries > out[j].Entries
		}
		return out[i].Machine < out[j].Machine
	})
	return out, nil
}

// Users

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, errs.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, user *models.User, password string) error {
	if err := user.Normalize(); err != nil {
		return errs.Validation("%v", err)
	}
	if err := user.SetPassword(password); err != nil {
		return errs.Validation("%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return errs.Duplicate("user %s already exists", user.Email)
	}
	now := time.Now()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	s.users[user.Email] = &cp
	return nil
}
