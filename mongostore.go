// mongostore.go

package main

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	users      *mongo.Collection
	products   *mongo.Collection
	carts      *mongo.Collection
	orders     *mongo.Collection
	reviews    *mongo.Collection
	challenges *mongo.Collection
}

func newMongoStore(db *mongo.Database) *mongoStore {
	return &mongoStore{
		users:      db.Collection("users"),
		products:   db.Collection("products"),
		carts:      db.Collection("carts"),
		orders:     db.Collection("orders"),
		reviews:    db.Collection("reviews"),
		challenges: db.Collection("challenges"),
	}
}

// ensureIndexes creates the uniqueness constraints the data model relies on
// (one cart per user, one review per product/user, unique email) and the
// TTL sweep for expired OTP challenges.
func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.carts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.reviews.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "productId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.challenges.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func mapStoreErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errNoDocument
	}
	if mongo.IsDuplicateKeyError(err) {
		return errDuplicate
	}
	return err
}

// ----- Users -----

func (s *mongoStore) CreateUser(ctx context.Context, u *User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	res, err := s.users.InsertOne(ctx, u)
	if err != nil {
		return mapStoreErr(err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *mongoStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &u, nil
}

func (s *mongoStore) UserByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var u User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &u, nil
}

func (s *mongoStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.FirstName != nil {
		set["firstName"] = *upd.FirstName
	}
	if upd.LastName != nil {
		set["lastName"] = *upd.LastName
	}
	var u User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &u, nil
}

func (s *mongoStore) MarkEmailVerified(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"emailVerifiedAt": at}})
	return err
}

func (s *mongoStore) ListUsers(ctx context.Context) ([]User, error) {
	cur, err := s.users.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var users []User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ----- Products -----

func (s *mongoStore) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	filter := bson.M{}
	if f.Search != "" {
		filter["name"] = bson.M{"$regex": f.Search, "$options": "i"}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Brand != "" {
		filter["brand"] = f.Brand
	}
	cur, err := s.products.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var products []Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *mongoStore) ProductByID(ctx context.Context, id primitive.ObjectID) (*Product, error) {
	var p Product
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &p, nil
}

func (s *mongoStore) CreateProduct(ctx context.Context, p *Product) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	res, err := s.products.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *mongoStore) UpdateProduct(ctx context.Context, id primitive.ObjectID, upd ProductUpdate) (*Product, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.OriginalPrice != nil {
		set["originalPrice"] = *upd.OriginalPrice
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Brand != nil {
		set["brand"] = *upd.Brand
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Stock != nil {
		set["stock"] = *upd.Stock
	}
	var p Product
	err := s.products.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &p, nil
}

func (s *mongoStore) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errNoDocument
	}
	return nil
}

func (s *mongoStore) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := s.products.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errStockConflict
	}
	return nil
}

func (s *mongoStore) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	_, err := s.products.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"stock": qty}})
	return err
}

func (s *mongoStore) ApplyReviewDelta(ctx context.Context, id primitive.ObjectID, sumDelta float64, countDelta int) (*Product, error) {
	var p Product
	err := s.products.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"ratingSum": sumDelta, "totalReviews": countDelta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	p.Rating = meanRating(p.RatingSum, p.TotalReviews)
	_, err = s.products.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"rating": p.Rating}})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ----- Carts -----

func (s *mongoStore) CartByUser(ctx context.Context, userID primitive.ObjectID) (*Cart, error) {
	var cart Cart
	err := s.carts.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &cart, nil
}

func (s *mongoStore) SaveCartItems(ctx context.Context, userID primitive.ObjectID, items []CartItem) error {
	if items == nil {
		items = []CartItem{}
	}
	_, err := s.carts.UpdateOne(ctx, bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": items}},
		options.Update().SetUpsert(true))
	return err
}

// ----- Orders -----

func (s *mongoStore) CreateOrder(ctx context.Context, o *Order) error {
	o.CreatedAt = time.Now()
	res, err := s.orders.InsertOne(ctx, o)
	if err != nil {
		return err
	}
	o.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *mongoStore) OrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]Order, error) {
	cur, err := s.orders.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var orders []Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *mongoStore) OrderForUser(ctx context.Context, orderID, userID primitive.ObjectID) (*Order, error) {
	var o Order
	err := s.orders.FindOne(ctx, bson.M{"_id": orderID, "userId": userID}).Decode(&o)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &o, nil
}

func (s *mongoStore) OrderByID(ctx context.Context, orderID primitive.ObjectID) (*Order, error) {
	var o Order
	err := s.orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&o)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &o, nil
}

func (s *mongoStore) ListOrders(ctx context.Context) ([]Order, error) {
	cur, err := s.orders.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var orders []Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *mongoStore) UpdateOrderStatus(ctx context.Context, orderID primitive.ObjectID, status string) (*Order, error) {
	var o Order
	err := s.orders.FindOneAndUpdate(ctx, bson.M{"_id": orderID},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&o)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &o, nil
}

// ----- Reviews -----

func (s *mongoStore) ReviewByProductUser(ctx context.Context, productID, userID primitive.ObjectID) (*Review, error) {
	var r Review
	err := s.reviews.FindOne(ctx, bson.M{"productId": productID, "userId": userID}).Decode(&r)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &r, nil
}

func (s *mongoStore) SaveReview(ctx context.Context, r *Review) error {
	now := time.Now()
	r.UpdatedAt = now
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	// Upsert on the unique (productId, userId) key so a resubmission
	// overwrites instead of duplicating.
	res, err := s.reviews.UpdateOne(ctx,
		bson.M{"productId": r.ProductID, "userId": r.UserID},
		bson.M{"$set": bson.M{
			"userName":  r.UserName,
			"rating":    r.Rating,
			"comment":   r.Comment,
			"updatedAt": r.UpdatedAt,
		}, "$setOnInsert": bson.M{"createdAt": r.CreatedAt}},
		options.Update().SetUpsert(true))
	if err != nil {
		return mapStoreErr(err)
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		r.ID = oid
	}
	return nil
}

func (s *mongoStore) ReviewsByProduct(ctx context.Context, productID primitive.ObjectID) ([]Review, error) {
	cur, err := s.reviews.Find(ctx, bson.M{"productId": productID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var reviews []Review
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// ----- OTP challenges -----

type mongoChallengeStore struct {
	col *mongo.Collection
}

func (s *mongoChallengeStore) Put(ctx context.Context, ch *Challenge) error {
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": ch.Email}, ch, options.Replace().SetUpsert(true))
	return err
}

func (s *mongoChallengeStore) Get(ctx context.Context, email string) (*Challenge, error) {
	var ch Challenge
	err := s.col.FindOne(ctx, bson.M{"_id": email}).Decode(&ch)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &ch, nil
}

func (s *mongoChallengeStore) Delete(ctx context.Context, email string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": email})
	return err
}
