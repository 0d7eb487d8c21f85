// reviews_test.go

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewRatingOutOfRange(t *testing.T) {
	ta := newTestApp(t)
	_, token := ta.seedUser(t, "ada@example.com")
	product := ta.seedProduct(t, "Noir", 80, 5)

	for _, rating := range []int{6, -1} {
		rec := ta.do(t, http.MethodPost, "/api/reviews", token, map[string]any{
			"productId": product.ID.Hex(), "rating": rating, "comment": "nope"})
		require.Equal(t, 400, rec.Code)
	}

	// Nothing was written and the aggregate is untouched.
	reviews, err := ta.store.ReviewsByProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
	fresh, err := ta.store.ProductByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fresh.Rating)
	assert.Equal(t, 0, fresh.TotalReviews)
}

func TestReviewUnknownProduct(t *testing.T) {
	ta := newTestApp(t)
	_, token := ta.seedUser(t, "ada@example.com")

	rec := ta.do(t, http.MethodPost, "/api/reviews", token, map[string]any{
		"productId": "64b5fc7e9d3a2f0011223344", "rating": 4})
	require.Equal(t, 404, rec.Code)
}

func TestReviewAggregateAcrossUsers(t *testing.T) {
	ta := newTestApp(t)
	_, adaToken := ta.seedUser(t, "ada@example.com")
	_, graceToken := ta.seedUser(t, "grace@example.com")
	product := ta.seedProduct(t, "Noir", 80, 5)

	require.Equal(t, 200, ta.do(t, http.MethodPost, "/api/reviews", adaToken, map[string]any{
		"productId": product.ID.Hex(), "rating": 4, "comment": "good"}).Code)
	require.Equal(t, 200, ta.do(t, http.MethodPost, "/api/reviews", graceToken, map[string]any{
		"productId": product.ID.Hex(), "rating": 5, "comment": "great"}).Code)

	fresh, err := ta.store.ProductByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, fresh.Rating)
	assert.Equal(t, 2, fresh.TotalReviews)
}

func TestReviewResubmissionOverwrites(t *testing.T) {
	ta := newTestApp(t)
	user, token := ta.seedUser(t, "ada@example.com")
	product := ta.seedProduct(t, "Noir", 80, 5)

	require.Equal(t, 200, ta.do(t, http.MethodPost, "/api/reviews", token, map[string]any{
		"productId": product.ID.Hex(), "rating": 5, "comment": "great"}).Code)
	require.Equal(t, 200, ta.do(t, http.MethodPost, "/api/reviews", token, map[string]any{
		"productId": product.ID.Hex(), "rating": 2, "comment": "changed my mind"}).Code)

	ctx := context.Background()
	reviews, err := ta.store.ReviewsByProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, user.ID, reviews[0].UserID)
	assert.Equal(t, 2, reviews[0].Rating)
	assert.Equal(t, "changed my mind", reviews[0].Comment)

	// The aggregate tracked the delta: count stayed at 1, mean followed.
	fresh, err := ta.store.ProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.TotalReviews)
	assert.Equal(t, 2.0, fresh.Rating)
}

func TestGetReviewsIsPublic(t *testing.T) {
	ta := newTestApp(t)
	_, token := ta.seedUser(t, "ada@example.com")
	product := ta.seedProduct(t, "Noir", 80, 5)
	ta.do(t, http.MethodPost, "/api/reviews", token, map[string]any{
		"productId": product.ID.Hex(), "rating": 4, "comment": "good"})

	rec := ta.do(t, http.MethodGet, "/api/reviews/"+product.ID.Hex(), "", nil)
	require.Equal(t, 200, rec.Code)
	var reviews []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviews))
	require.Len(t, reviews, 1)
	assert.Equal(t, "Test User", reviews[0]["userName"])
}

func TestSubmitReviewRequiresAuth(t *testing.T) {
	ta := newTestApp(t)
	product := ta.seedProduct(t, "Noir", 80, 5)

	rec := ta.do(t, http.MethodPost, "/api/reviews", "", map[string]any{
		"productId": product.ID.Hex(), "rating": 4})
	require.Equal(t, 401, rec.Code)
}
