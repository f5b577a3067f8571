package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/otabek-olimov/uzshop-backend/internal/models"
)

// MongoStore handles the append-only comments collection in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("comments")}
}

// Insert appends one comment. There is no update or delete path.
func (s *MongoStore) Insert(ctx context.Context, c *models.Comment) (string, error) {
	c.CreatedAt = time.Now()
	res, err := s.col.InsertOne(ctx, c)
	if err != nil {
		return "", fmt.Errorf("mongo insert: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	return oid.Hex(), nil
}

// ListByProduct returns the product's comments in insertion order.
func (s *MongoStore) ListByProduct(ctx context.Context, slug string) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{"product_slug": slug}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var comments []models.Comment
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CountByProduct returns the number of comments on the product.
func (s *MongoStore) CountByProduct(ctx context.Context, slug string) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"product_slug": slug})
}
