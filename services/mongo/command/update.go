package command

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func UpdateMany(ctx context.Context, collection *mongo.Collection, filter bson.M, update bson.M) (*mongo.UpdateResult, error) {
	return collection.UpdateMany(ctx, filter, update)
}

// UpdateAndReturn applies update to the first match and decodes the new version into result.
func UpdateAndReturn[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, update bson.M, upsert bool, result *T) error {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetUpsert(upsert)
	return collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(result)
}
