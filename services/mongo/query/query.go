package query

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func FindOne[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, result *T, opts ...*options.FindOneOptions) error {
	return collection.FindOne(ctx, filter, opts...).Decode(result)
}

func FindByID[T any](ctx context.Context, collection *mongo.Collection, id primitive.ObjectID, result *T) error {
	filter := bson.M{"_id": id}
	return collection.FindOne(ctx, filter).Decode(result)
}

// FindLatest returns the newest document matching filter by created_at.
func FindLatest[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, result *T) error {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return FindOne(ctx, collection, filter, result, opts)
}

func FindMany[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, results *[]T, opts ...*options.FindOptions) error {
	cursor, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	return cursor.All(ctx, results)
}

// FindNewestFirst pages through filter results ordered by created_at descending.
func FindNewestFirst[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, results *[]T, limit, skip int64) error {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if skip > 0 {
		opts.SetSkip(skip)
	}
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	return FindMany(ctx, collection, filter, results, opts)
}

func Aggregate[T any](ctx context.Context, collection *mongo.Collection, pipeline []bson.M, results *[]T) error {
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	return cursor.All(ctx, results)
}
