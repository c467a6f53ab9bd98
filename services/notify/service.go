// Package notify persists notifications and fans them out to live
// subscribers and push devices. Only persistence failures reach the caller.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultListLimit   = 50
	maxListLimit       = 200
	defaultPushTimeout = 30 * time.Second
)

type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, f models.NotificationFilter) ([]*models.Notification, error)
	// MarkRead and DeleteNotifications only touch notifications the scope
	// matches; a zero scope matches every notification.
	MarkRead(ctx context.Context, ids []primitive.ObjectID, scope models.NotificationFilter) (int64, error)
	MarkAllRead(ctx context.Context, role models.UserRole, userID string) (int64, error)
	DeleteNotifications(ctx context.Context, ids []primitive.ObjectID, scope models.NotificationFilter) (int64, error)
}

// Publisher feeds live subscribers: the local hub, or the Redis broker in a cluster.
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

// Pusher delivers to devices and handles its own failures.
type Pusher interface {
	Deliver(ctx context.Context, n *models.Notification)
}

type Service struct {
	store       Store
	publisher   Publisher
	pusher      Pusher
	log         *zap.Logger
	now         func() time.Time
	pushTimeout time.Duration

	inflight sync.WaitGroup
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithPusher(p Pusher) Option {
	return func(s *Service) { s.pusher = p }
}

func WithPushTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pushTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		log:         log,
		now:         time.Now,
		pushTimeout: defaultPushTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify stores the event as a notification, then publishes it live and
// schedules push delivery. Push runs detached from ctx; Wait drains it.
func (s *Service) Notify(ctx context.Context, ev models.NotificationEvent) (*models.Notification, error) {
	roles := make([]models.UserRole, 0, len(ev.RecipientRoles))
	for _, r := range ev.RecipientRoles {
		if !r.IsValid() {
			return nil, errs.Validation("unknown recipient role %q", r)
		}
		roles = append(roles, r)
	}
	ids := make([]string, 0, len(ev.RecipientIDs))
	for _, id := range ev.RecipientIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(roles) == 0 && len(ids) == 0 {
		return nil, errs.Validation("at least one recipient role or recipient id is required")
	}
	if strings.TrimSpace(ev.Title) == "" {
		return nil, errs.Validation("title is required")
	}
	if ev.Type == "" {
		ev.Type = models.NotificationSystem
	}

	n := &models.Notification{
		Title:          ev.Title,
		Message:        ev.Message,
		Type:           ev.Type,
		RecipientRoles: roles,
		RecipientIDs:   ids,
		ReportID:       ev.ReportID,
		AttendanceDate: ev.AttendanceDate,
		ReporterName:   ev.ReporterName,
		URL:            ev.URL,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	s.log.Info("notification created",
		zap.String("notification_id", n.ID.Hex()),
		zap.String("type", string(n.Type)))

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			s.log.Warn("live fan-out failed", zap.String("notification_id", n.ID.Hex()), zap.Error(err))
		}
	}

	if s.pusher != nil {
		delivered := *n
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pushTimeout)
			defer cancel()
			s.pusher.Deliver(pushCtx, &delivered)
		}()
	}

	return n, nil
}

// Wait blocks until scheduled push deliveries finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) List(ctx context.Context, f models.NotificationFilter) ([]*models.Notification, error) {
	if f.Role != "" && !f.Role.IsValid() {
		return nil, errs.Validation("unknown role %q", f.Role)
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return s.store.ListNotifications(ctx, f)
}

// MarkRead marks the ids read that are addressed to scope. Ids outside the
// scope are reported as not found.
func (s *Service) MarkRead(ctx context.Context, ids []primitive.ObjectID, scope models.NotificationFilter) (int64, error) {
	if len(ids) == 0 {
		return 0, errs.Validation("ids are required")
	}
	scope.UnreadOnly = false
	return s.store.MarkRead(ctx, ids, scope)
}

func (s *Service) MarkAllRead(ctx context.Context, role models.UserRole, userID string) (int64, error) {
	if role == "" && userID == "" {
		return 0, errs.Validation("role or userId is required")
	}
	return s.store.MarkAllRead(ctx, role, userID)
}

func (s *Service) Delete(ctx context.Context, ids []primitive.ObjectID, scope models.NotificationFilter) (int64, error) {
	if len(ids) == 0 {
		return 0, errs.Validation("ids are required")
	}
	scope.UnreadOnly = false
	n, err := s.store.DeleteNotifications(ctx, ids, scope)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errs.NotFound("notification not found")
	}
	return n, nil
}
