// store.go

package main

import (
	"context"
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store-level sentinels. Handlers translate these into the client taxonomy.
var (
	errNoDocument = errors.New("store: no document")
	errDuplicate  = errors.New("store: duplicate key")

	// errStockConflict means a conditional decrement matched no document:
	// the product vanished or its stock dropped below the requested
	// quantity after validation.
	errStockConflict = errors.New("store: stock conflict")
)

type ProfileUpdate struct {
	FirstName *string
	LastName  *string
}

type ProductFilter struct {
	Search   string
	Category string
	Brand    string
}

type ProductUpdate struct {
	Name          *string
	Price         *float64
	OriginalPrice *float64
	Image         *string
	Description   *string
	Brand         *string
	Category      *string
	Stock         *int
}

// Store is the document-store surface the handlers run against. mongoStore
// backs production; memStore backs the tests.
type Store interface {
	// Users. CreateUser returns errDuplicate when the email is taken.
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*User, error)
	MarkEmailVerified(ctx context.Context, id primitive.ObjectID, at time.Time) error
	ListUsers(ctx context.Context) ([]User, error)

	// Products.
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	ProductByID(ctx context.Context, id primitive.ObjectID) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, id primitive.ObjectID, upd ProductUpdate) (*Product, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error

	// DecrementStock applies `stock -= qty` only where `stock >= qty`,
	// returning errStockConflict otherwise. IncrementStock is its
	// compensation when a later line of the same checkout fails.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error

	// ApplyReviewDelta folds a rating change into the product's
	// (ratingSum, totalReviews) aggregate and refreshes the stored mean.
	ApplyReviewDelta(ctx context.Context, id primitive.ObjectID, sumDelta float64, countDelta int) (*Product, error)

	// Carts. One document per user, upserted on write.
	CartByUser(ctx context.Context, userID primitive.ObjectID) (*Cart, error)
	SaveCartItems(ctx context.Context, userID primitive.ObjectID, items []CartItem) error

	// Orders.
	CreateOrder(ctx context.Context, o *Order) error
	OrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]Order, error)
	OrderForUser(ctx context.Context, orderID, userID primitive.ObjectID) (*Order, error)
	OrderByID(ctx context.Context, orderID primitive.ObjectID) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID primitive.ObjectID, status string) (*Order, error)

	// Reviews. SaveReview upserts on the (productId, userId) unique key.
	ReviewByProductUser(ctx context.Context, productID, userID primitive.ObjectID) (*Review, error)
	SaveReview(ctx context.Context, r *Review) error
	ReviewsByProduct(ctx context.Context, productID primitive.ObjectID) ([]Review, error)
}

// challengeStore holds pending OTP challenges. The Mongo implementation is
// shared across instances; expiry is still checked on read because a TTL
// sweep is not instantaneous.
type challengeStore interface {
	Put(ctx context.Context, ch *Challenge) error
	Get(ctx context.Context, email string) (*Challenge, error)
	Delete(ctx context.Context, email string) error
}

// meanRating rounds the aggregate mean to one decimal, matching what the
// catalog has always displayed.
func meanRating(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(sum/float64(count)*10) / 10
}
