package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MaxSlugLength caps category and subcategory slugs.
const MaxSlugLength = 50

type Category struct {
	Id          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Slug        string        `bson:"slug" json:"slug"`
	Description string        `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Subcategory slugs are unique inside their parent category only.
type Subcategory struct {
	Id           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string        `bson:"name" json:"name"`
	Slug         string        `bson:"slug" json:"slug"`
	CategoryId   bson.ObjectID `bson:"categoryId" json:"categoryId"`
	CategorySlug string        `bson:"categorySlug" json:"categorySlug"`
	Description  string        `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}
