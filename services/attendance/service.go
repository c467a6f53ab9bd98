// Package attendance records the daily roll call and announces it to admins.
package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"go.uber.org/zap"
)

type Store interface {
	UpsertAttendance(ctx context.Context, a *models.Attendance) error
	ListAttendance(ctx context.Context, f models.AttendanceFilter) ([]*models.Attendance, error)
}

type Notifier interface {
	Notify(ctx context.Context, ev models.NotificationEvent) (*models.Notification, error)
}

type Service struct {
	store    Store
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, log *zap.Logger) *Service {
	return &Service{store: store, notifier: notifier, log: log, now: time.Now}
}

// Submit saves the reporter's roll call for a day. Resubmitting the same day
// replaces the entries. The admin notification is best effort.
func (s *Service) Submit(ctx context.Context, a *models.Attendance) (*models.Attendance, error) {
	a.ReporterEmail = strings.ToLower(strings.TrimSpace(a.ReporterEmail))
	if a.Date == "" {
		a.Date = s.now().Format(models.DateLayout)
	}
	if err := a.Validate(); err != nil {
		return nil, errs.Validation("%v", err)
	}
	a.SubmittedAt = s.now()

	if err := s.store.UpsertAttendance(ctx, a); err != nil {
		return nil, err
	}

	counts := a.Counts()
	s.log.Info("attendance submitted",
		zap.String("date", a.Date),
		zap.String("email", a.ReporterEmail),
		zap.Int("entries", len(a.Entries)))

	if s.notifier != nil {
		_, err := s.notifier.Notify(ctx, models.NotificationEvent{
			Title: "Attendance submitted",
			Message: fmt.Sprintf("%s submitted attendance for %s: %d present, %d absent, %d late, %d on leave",
				a.ReporterName, a.Date,
				counts[models.AttendancePresent], counts[models.AttendanceAbsent],
				counts[models.AttendanceLate], counts[models.AttendanceLeave]),
			Type:           models.NotificationAttendanceSubmitted,
			RecipientRoles: []models.UserRole{models.UserRoleAdmin},
			AttendanceDate: a.Date,
			ReporterName:   a.ReporterName,
			URL:            "/attendance?date=" + a.Date,
		})
		if err != nil {
			s.log.Warn("attendance notification failed", zap.Error(err))
		}
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, f models.AttendanceFilter) ([]*models.Attendance, error) {
	if f.Date != "" {
		if _, err := time.Parse(models.DateLayout, f.Date); err != nil {
			return nil, errs.Validation("date must be YYYY-MM-DD")
		}
	}
	f.ReporterEmail = strings.ToLower(strings.TrimSpace(f.ReporterEmail))
	return s.store.ListAttendance(ctx, f)
}
