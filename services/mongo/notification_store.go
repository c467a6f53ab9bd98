package mongo

import (
	"context"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/DGISsoft/prodreport/services/mongo/command"
	"github.com/DGISsoft/prodreport/services/mongo/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const notificationsCollection = "notifications"

type NotificationStore struct {
	*MongoService
}

func NewNotificationStore(mongoService *MongoService) *NotificationStore {
	return &NotificationStore{MongoService: mongoService}
}

func (s *NotificationStore) notifications() *mongo.Collection {
	return s.GetCollection(notificationsCollection)
}

func (s *NotificationStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if err := command.Insert(ctx, s.notifications(), n); err != nil {
		return storeErr(err, "create notification", "notification")
	}
	return nil
}

// recipientFilter selects notifications addressed to role or userID.
func recipientFilter(role models.UserRole, userID string, unreadOnly bool) bson.M {
	b := query.NewBuilder()
	if unreadOnly {
		b.Where("is_read", false)
	}
	return addressedTo(b, role, userID).Build()
}

// scopedFilter selects ids, restricted to the recipient when one is given.
func scopedFilter(ids []primitive.ObjectID, scope models.NotificationFilter) bson.M {
	return addressedTo(query.NewBuilder().WhereIn("_id", ids), scope.Role, scope.UserID).Build()
}

func addressedTo(b *query.Builder, role models.UserRole, userID string) *query.Builder {
	if role != "" {
		b.OrWhere("recipient_roles", role)
	}
	if userID != "" {
		b.OrWhere("recipient_ids", userID)
	}
	return b
}

func (s *NotificationStore) ListNotifications(ctx context.Context, f models.NotificationFilter) ([]*models.Notification, error) {
	var out []*models.Notification
	filter := recipientFilter(f.Role, f.UserID, f.UnreadOnly)
	if err := query.FindNewestFirst(ctx, s.notifications(), filter, &out, f.Limit, 0); err != nil {
		return nil, storeErr(err, "list notifications", "notifications")
	}
	return out, nil
}

// MarkRead fails with errs.ErrNotFound when no id is visible within scope.
func (s *NotificationStore) MarkRead(ctx context.Context, ids []primitive.ObjectID, scope models.NotificationFilter) (int64, error) {
	update := command.NewUpdateBuilder().Set("is_read", true).Build()
	res, err := command.UpdateMany(ctx, s.notifications(), scopedFilter(ids, scope), update)
	if err != nil {
		return 0, storeErr(err, "mark notifications read", "notifications")
	}
	if res.MatchedCount == 0 {
		return 0, errs.NotFound("notification not found")
	}
	return res.ModifiedCount, nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, role models.UserRole, userID string) (int64, error) {
	update := command.NewUpdateBuilder().Set("is_read", true).Build()
	res, err := command.UpdateMany(ctx, s.notifications(), recipientFilter(role, userID, true), update)
	if err != nil {
		return 0, storeErr(err, "mark notifications read", "notifications")
	}
	return res.ModifiedCount, nil
}

func (s *NotificationStore) DeleteNotifications(ctx context.Context, ids []primitive.ObjectID, scope models.NotificationFilter) (int64, error) {
	n, err := command.DeleteMany(ctx, s.notifications(), scopedFilter(ids, scope))
	if err != nil {
		return 0, storeErr(err, "delete notifications", "notifications")
	}
	return n, nil
}
