// memstore.go

package main

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory Store with the same uniqueness behavior as the
// Mongo indexes. The test suite runs the handlers against it.
type memStore struct {
	mu sync.RWMutex

	users    map[primitive.ObjectID]*User
	products map[primitive.ObjectID]*Product
	carts    map[primitive.ObjectID]*Cart // keyed by userId
	orders   map[primitive.ObjectID]*Order
	reviews  map[primitive.ObjectID]*Review
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[primitive.ObjectID]*User),
		products: make(map[primitive.ObjectID]*Product),
		carts:    make(map[primitive.ObjectID]*Cart),
		orders:   make(map[primitive.ObjectID]*Order),
		reviews:  make(map[primitive.ObjectID]*Review),
	}
}

// ----- Users -----

func (s *memStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return errDuplicate
		}
	}
	now := time.Now()
	u.ID = primitive.NewObjectID()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) UserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errNoDocument
}

func (s *memStore) UserByID(_ context.Context, id primitive.ObjectID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNoDocument
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) UpdateProfile(_ context.Context, id primitive.ObjectID, upd ProfileUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errNoDocument
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (s *memStore) MarkEmailVerified(_ context.Context, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errNoDocument
	}
	u.EmailVerifiedAt = &at
	return nil
}

func (s *memStore) ListUsers(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// ----- Products -----

func (s *memStore) ListProducts(_ context.Context, f ProductFilter) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var products []Product
	for _, p := range s.products {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Brand != "" && p.Brand != f.Brand {
			continue
		}
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *memStore) ProductByID(_ context.Context, id primitive.ObjectID) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, errNoDocument
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) CreateProduct(_ context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *memStore) UpdateProduct(_ context.Context, id primitive.ObjectID, upd ProductUpdate) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, errNoDocument
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.OriginalPrice != nil {
		p.OriginalPrice = *upd.OriginalPrice
	}
	if upd.Image != nil {
		p.Image = *upd.Image
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Brand != nil {
		p.Brand = *upd.Brand
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (s *memStore) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return errNoDocument
	}
	delete(s.products, id)
	return nil
}

func (s *memStore) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.Stock < qty {
		return errStockConflict
	}
	p.Stock -= qty
	return nil
}

func (s *memStore) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		p.Stock += qty
	}
	return nil
}

func (s *memStore) ApplyReviewDelta(_ context.Context, id primitive.ObjectID, sumDelta float64, countDelta int) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, errNoDocument
	}
	p.RatingSum += sumDelta
	p.TotalReviews += countDelta
	p.Rating = meanRating(p.RatingSum, p.TotalReviews)
	cp := *p
	return &cp, nil
}

// ----- Carts -----

func (s *memStore) CartByUser(_ context.Context, userID primitive.ObjectID) (*Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart, ok := s.carts[userID]
	if !ok {
		return nil, errNoDocument
	}
	cp := *cart
	cp.Items = append([]CartItem(nil), cart.Items...)
	return &cp, nil
}

func (s *memStore) SaveCartItems(_ context.Context, userID primitive.ObjectID, items []CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[userID]
	if !ok {
		cart = &Cart{ID: primitive.NewObjectID(), UserID: userID}
		s.carts[userID] = cart
	}
	cart.Items = append([]CartItem(nil), items...)
	return nil
}

// ----- Orders -----

func (s *memStore) CreateOrder(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = primitive.NewObjectID()
	o.CreatedAt = time.Now()
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	s.orders[o.ID] = &cp
	return nil
}

func (s *memStore) OrdersByUser(_ context.Context, userID primitive.ObjectID) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var orders []Order
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (s *memStore) OrderForUser(_ context.Context, orderID, userID primitive.ObjectID) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, errNoDocument
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) OrderByID(_ context.Context, orderID primitive.ObjectID) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, errNoDocument
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) ListOrders(_ context.Context) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (s *memStore) UpdateOrderStatus(_ context.Context, orderID primitive.ObjectID, status string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, errNoDocument
	}
	o.Status = status
	cp := *o
	return &cp, nil
}

// ----- Reviews -----

func (s *memStore) ReviewByProductUser(_ context.Context, productID, userID primitive.ObjectID) (*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.ProductID == productID && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, errNoDocument
}

func (s *memStore) SaveReview(_ context.Context, r *Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, existing := range s.reviews {
		if existing.ProductID == r.ProductID && existing.UserID == r.UserID {
			existing.UserName = r.UserName
			existing.Rating = r.Rating
			existing.Comment = r.Comment
			existing.UpdatedAt = now
			r.ID = existing.ID
			return nil
		}
	}
	r.ID = primitive.NewObjectID()
	r.CreatedAt = now
	r.UpdatedAt = now
	cp := *r
	s.reviews[r.ID] = &cp
	return nil
}

func (s *memStore) ReviewsByProduct(_ context.Context, productID primitive.ObjectID) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reviews []Review
	for _, r := range s.reviews {
		if r.ProductID == productID {
			reviews = append(reviews, *r)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

// memChallengeStore is the in-process challenge cache used in tests.
type memChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
}

func newMemChallengeStore() *memChallengeStore {
	return &memChallengeStore{challenges: make(map[string]*Challenge)}
}

func (s *memChallengeStore) Put(_ context.Context, ch *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ch
	s.challenges[ch.Email] = &cp
	return nil
}

func (s *memChallengeStore) Get(_ context.Context, email string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[email]
	if !ok {
		return nil, errNoDocument
	}
	cp := *ch
	return &cp, nil
}

func (s *memChallengeStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, email)
	return nil
}
