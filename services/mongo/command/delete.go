package command

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func DeleteOne(ctx context.Context, collection *mongo.Collection, filter bson.M) (int64, error) {
	res, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func DeleteMany(ctx context.Context, collection *mongo.Collection, filter bson.M) (int64, error) {
	res, err := collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
