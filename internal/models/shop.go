package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category groups products. Read-only from this service's perspective.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Product is a row in the PostgreSQL products table.
type Product struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	Price      float64 `json:"price"`
	Available  bool    `json:"available"`
	CategoryID int     `json:"category_id"`
}

// Comment is a single product comment stored in MongoDB. Comments are
// append-only; insertion order is preserved for display.
type Comment struct {
	ID          primitive.ObjectID `json:"id"           bson:"_id,omitempty"`
	ProductSlug string             `json:"product_slug" bson:"product_slug"`
	UserID      string             `json:"user_id"      bson:"user_id"`
	Username    string             `json:"username"     bson:"username"`
	Content     string             `json:"content"      bson:"content"`
	Rating      int                `json:"rating"       bson:"rating"`
	CreatedAt   time.Time          `json:"created_at"   bson:"created_at"`
}

// CommentForm is the form body for POST /product/{slug}/comment/.
type CommentForm struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}
