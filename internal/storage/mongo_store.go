package storage

import (
	"context"
	"errors"
	"fmt"
	"gitviewer/internal/models"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	viewsCollection     = "views"
	cooldownsCollection = "cooldowns"
)

type cooldownDoc struct {
	ID        bson.D    `bson:"_id"`
	Username  string    `bson:"username"`
	VisitorID string    `bson:"visitor"`
	At        time.Time `bson:"at"`
}

// MongoStore is the durable backend. Counts are changed with $inc so
// concurrent visits never lose increments.
type MongoStore struct {
	client    *mongo.Client
	views     *mongo.Collection
	cooldowns *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		views:     db.Collection(viewsCollection),
		cooldowns: db.Collection(cooldownsCollection),
	}

	_, err = s.cooldowns.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}, {Key: "at", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create cooldown index: %w", err)
	}
	return s, nil
}

func cooldownID(username, visitorID string) bson.D {
	return bson.D{{Key: "u", Value: username}, {Key: "v", Value: visitorID}}
}

func (s *MongoStore) Get(ctx context.Context, username string) (*models.ViewRecord, error) {
	var record models.ViewRecord
	err := s.views.FindOne(ctx, bson.M{"_id": username}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get views of %s: %w", username, err)
	}
	return &record, nil
}

func (s *MongoStore) Put(ctx context.Context, username string, record *models.ViewRecord) error {
	ips := record.RecentVisitors
	if ips == nil {
		ips = []string{}
	}
	update := bson.M{
		"$set": bson.M{"ips": ips},
		"$max": bson.M{"count": record.Count, "lastVisit": record.LastVisit},
	}
	_, err := s.views.UpdateOne(ctx, bson.M{"_id": username}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to put views of %s: %w", username, err)
	}
	return nil
}

func (s *MongoStore) IncrementCount(ctx context.Context, username string, now time.Time) (int64, error) {
	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$max":         bson.M{"lastVisit": now},
		"$setOnInsert": bson.M{"ips": []string{}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var record models.ViewRecord
	err := s.views.FindOneAndUpdate(ctx, bson.M{"_id": username}, update, opts).Decode(&record)
	if err != nil {
		return 0, fmt.Errorf("failed to increment views of %s: %w", username, err)
	}
	return record.Count, nil
}

func (s *MongoStore) GetCooldown(ctx context.Context, username, visitorID string) (time.Time, bool, error) {
	var doc cooldownDoc
	err := s.cooldowns.FindOne(ctx, bson.M{"_id": cooldownID(username, visitorID)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get cooldown: %w", err)
	}
	return doc.At, true, nil
}

func (s *MongoStore) PutCooldown(ctx context.Context, username, visitorID string, at time.Time) error {
	update := bson.M{"$set": bson.M{"username": username, "visitor": visitorID, "at": at}}
	_, err := s.cooldowns.UpdateOne(ctx, bson.M{"_id": cooldownID(username, visitorID)}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to put cooldown: %w", err)
	}
	return nil
}

func (s *MongoStore) PruneCooldowns(ctx context.Context, username string, olderThan time.Time) (int, error) {
	res, err := s.cooldowns.DeleteMany(ctx, bson.M{"username": username, "at": bson.M{"$lt": olderThan}})
	if err != nil {
		return 0, fmt.Errorf("failed to prune cooldowns: %w", err)
	}
	return int(res.DeletedCount), nil
}

// ClaimCooldown upserts only when the stored entry is old enough. A fresh
// entry makes the filter miss, the upsert collides on _id, and the visit is
// reported as suppressed.
func (s *MongoStore) ClaimCooldown(ctx context.Context, username, visitorID string, now time.Time, window time.Duration) (bool, error) {
	filter := bson.M{
		"_id": cooldownID(username, visitorID),
		"at":  bson.M{"$lte": now.Add(-window)},
	}
	update := bson.M{"$set": bson.M{"username": username, "visitor": visitorID, "at": now}}
	_, err := s.cooldowns.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim cooldown: %w", err)
	}
	return true, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
