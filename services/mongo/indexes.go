package mongo

import (
	"context"
	"fmt"

	"github.com/DGISsoft/prodreport/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OneDraftPerDayIndex guarantees a single draft per reporter and day. The
// draft workflow relies on it to resolve concurrent first calls.
const OneDraftPerDayIndex = "one_draft_per_day"

func indexModels() map[string][]mongo.IndexModel {
	// Not unique: a save writes the new version before the old one is removed.
	sectionIndex := []mongo.IndexModel{{
		Keys:    bson.D{{Key: "report_id", Value: 1}},
		Options: options.Index().SetName("section_versions_by_report"),
	}}

	out := map[string][]mongo.IndexModel{
		reportsCollection: {
			{
				Keys: bson.D{{Key: "reported_by_email", Value: 1}, {Key: "date", Value: 1}},
				Options: options.Index().
					SetName(OneDraftPerDayIndex).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": models.StatusDraft}),
			},
			{Keys: bson.D{{Key: "reported_by_email", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "date", Value: -1}}},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "recipient_roles", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "recipient_ids", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		pushSubscriptionsCollection: {
			{Keys: bson.D{{Key: "endpoint", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "roles", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		attendanceCollection: {
			{Keys: bson.D{{Key: "reporter_email", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		machinesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for _, kind := range models.SectionKinds {
		out[kind.Collection()] = sectionIndex
	}
	return out
}

// EnsureIndexes creates every index the stores depend on. It is idempotent.
func EnsureIndexes(ctx context.Context, s *MongoService) error {
	for collection, indexes := range indexModels() {
		if _, err := s.GetCollection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
