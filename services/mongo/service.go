// Package mongo is the document-store implementation of the report,
// notification, push, attendance, user and machine stores.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoService struct {
	db *mongo.Database
}

func New(db *mongo.Database) *MongoService {
	return &MongoService{db: db}
}

// Connect dials uri and verifies the connection before returning the database handle.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *MongoService, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client, New(client.Database(database)), nil
}

func (s *MongoService) GetCollection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Ping is used by the health check.
func (s *MongoService) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}
