package mongo

import (
	"context"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/DGISsoft/prodreport/services/mongo/command"
	"github.com/DGISsoft/prodreport/services/mongo/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const pushSubscriptionsCollection = "push_subscriptions"

type PushStore struct {
	*MongoService
}

func NewPushStore(mongoService *MongoService) *PushStore {
	return &PushStore{MongoService: mongoService}
}

func (s *PushStore) subscriptions() *mongo.Collection {
	return s.GetCollection(pushSubscriptionsCollection)
}

// ListSubscriptions returns devices registered for any of roles or userIDs.
func (s *PushStore) ListSubscriptions(ctx context.Context, roles []models.UserRole, userIDs []string) ([]*models.PushSubscription, error) {
	if len(roles) == 0 && len(userIDs) == 0 {
		return nil, nil
	}
	b := query.NewBuilder()
	if len(roles) > 0 {
		b.OrWhere("roles", bson.M{"$in": roles})
	}
	if len(userIDs) > 0 {
		b.OrWhere("user_id", bson.M{"$in": userIDs})
	}

	var out []*models.PushSubscription
	if err := query.FindMany(ctx, s.subscriptions(), b.Build(), &out); err != nil {
		return nil, storeErr(err, "list push subscriptions", "push subscriptions")
	}
	return out, nil
}

// UpsertSubscription registers sub by endpoint; a re-registration refreshes keys and owner.
func (s *PushStore) UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error {
	now := time.Now()
	update := command.NewUpdateBuilder().
		Set("keys", sub.Keys).
		Set("user_id", sub.UserID).
		Set("roles", sub.Roles).
		Set("user_agent", sub.UserAgent).
		Set("updated_at", now).
		SetOnInsert("created_at", now).
		Build()

	if err := command.UpdateAndReturn(ctx, s.subscriptions(), bson.M{"endpoint": sub.Endpoint}, update, true, sub); err != nil {
		return storeErr(err, "save push subscription", "push subscription")
	}
	return nil
}

func (s *PushStore) DeleteSubscription(ctx context.Context, endpoint, userID string) error {
	filter := query.NewBuilder().
		Where("endpoint", endpoint).
		WhereIfSet("user_id", userID).
		Build()
	n, err := command.DeleteOne(ctx, s.subscriptions(), filter)
	if err != nil {
		return storeErr(err, "delete push subscription", "push subscription")
	}
	if n == 0 {
		return errs.NotFound("push subscription not found")
	}
	return nil
}
