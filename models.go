// models.go

package main

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName       string             `bson:"firstName" json:"firstName"`
	LastName        string             `bson:"lastName" json:"lastName"`
	Email           string             `bson:"email" json:"email"`
	PasswordHash    string             `bson:"passwordHash" json:"-"`
	Role            string             `bson:"role" json:"role"`
	EmailVerifiedAt *time.Time         `bson:"emailVerifiedAt,omitempty" json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Price         float64            `bson:"price" json:"price"`
	OriginalPrice float64            `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	Image         string             `bson:"image" json:"image"`
	Description   string             `bson:"description" json:"description"`
	Brand         string             `bson:"brand" json:"brand"`
	Category      string             `bson:"category" json:"category"`
	Stock         int                `bson:"stock" json:"stock"`
	Rating        float64            `bson:"rating" json:"rating"`
	RatingSum     float64            `bson:"ratingSum" json:"-"`
	TotalReviews  int                `bson:"totalReviews" json:"totalReviews"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type CartItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

type Cart struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Items  []CartItem         `bson:"items" json:"items"`
}

// CartLine is a cart item joined with live product fields, the shape the
// client renders. Subtotal is quantity times the current catalog price.
type CartLine struct {
	ProductID primitive.ObjectID `json:"productId"`
	Name      string             `json:"name"`
	Brand     string             `json:"brand"`
	Image     string             `json:"image"`
	Price     float64            `json:"price"`
	Stock     int                `json:"stock"`
	Quantity  int                `json:"quantity"`
	Subtotal  float64            `json:"subtotal"`
}

type CartView struct {
	Items []CartLine `json:"items"`
	Total float64    `json:"total"`
}

type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	UnitPrice float64            `bson:"unitPrice" json:"unitPrice"`
}

// Orders are created as StatusPlaced; transitions are an admin-only
// operation and must follow validStatusChange.
const (
	StatusPlaced     = "placed"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Name          string             `bson:"name" json:"name"`
	Address       string             `bson:"address" json:"address"`
	Phone         string             `bson:"phone" json:"phone"`
	PaymentMethod string             `bson:"paymentMethod" json:"paymentMethod"`
	Status        string             `bson:"status" json:"status"`
	Items         []OrderItem        `bson:"items" json:"items"`
	Total         float64            `bson:"total" json:"total"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	UserName  string             `bson:"userName" json:"userName"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Challenge is a pending OTP verification, keyed by lowercased email.
// LastResend gates the resend cooldown. ExpiresAt is enforced lazily on
// read and by a TTL index on the backing collection.
type Challenge struct {
	Email      string             `bson:"_id"`
	Code       string             `bson:"code"`
	UserID     primitive.ObjectID `bson:"userId"`
	ExpiresAt  time.Time          `bson:"expiresAt"`
	LastResend time.Time          `bson:"lastResend,omitempty"`
}
