// checkout_test.go

package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func shippingBody() map[string]any {
	return map[string]any{
		"name":          "Ada Lovelace",
		"address":       "12 St James's Square, London",
		"phone":         "+44 20 7946 0958",
		"paymentMethod": "cod",
	}
}

func TestCheckoutHappyPath(t *testing.T) {
	ta := newTestApp(t)
	user, token := ta.seedUser(t, "ada@example.com")
	noir := ta.seedProduct(t, "Noir", 80, 5)
	blanc := ta.seedProduct(t, "Blanc", 60, 10)
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": noir.ID.Hex(), "quantity": 2})
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": blanc.ID.Hex(), "quantity": 1})

	rec := ta.do(t, http.MethodPost, "/api/checkout", token, shippingBody())

	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 220.0, body["total"]) // 2*80 + 1*60
	orderID, ok := body["orderId"].(string)
	require.True(t, ok)

	// Stock decremented per purchased quantity.
	ctx := context.Background()
	fresh, err := ta.store.ProductByID(ctx, noir.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Stock)
	fresh, err = ta.store.ProductByID(ctx, blanc.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, fresh.Stock)

	// Cart emptied, not deleted.
	cart, err := ta.store.CartByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// Order readable through the owner-scoped endpoint, created as placed.
	orderRec := ta.do(t, http.MethodGet, "/api/orders/"+orderID, token, nil)
	require.Equal(t, 200, orderRec.Code)
	orderBody := decodeBody(t, orderRec)
	assert.Equal(t, StatusPlaced, orderBody["status"])
	assert.Len(t, orderBody["items"], 2)
}

func TestCheckoutMissingShippingFields(t *testing.T) {
	ta := newTestApp(t)
	_, token := ta.seedUser(t, "ada@example.com")
	product := ta.seedProduct(t, "Noir", 80, 5)
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": product.ID.Hex(), "quantity": 1})

	body := shippingBody()
	body["phone"] = ""
	rec := ta.do(t, http.MethodPost, "/api/checkout", token, body)

	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "validation", decodeBody(t, rec)["code"])
}

func TestCheckoutEmptyCart(t *testing.T) {
	ta := newTestApp(t)
	_, token := ta.seedUser(t, "ada@example.com")

	rec := ta.do(t, http.MethodPost, "/api/checkout", token, shippingBody())
	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "empty_cart", decodeBody(t, rec)["code"])
}

func TestCheckoutInsufficientStockLeavesStateUntouched(t *testing.T) {
	ta := newTestApp(t)
	user, token := ta.seedUser(t, "ada@example.com")
	p := ta.seedProduct(t, "Noir", 80, 2)
	q := ta.seedProduct(t, "Blanc", 60, 1)
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": p.ID.Hex(), "quantity": 2})
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": q.ID.Hex(), "quantity": 1})

	// Q's stock was zeroed after it entered the cart.
	zero := 0
	_, err := ta.store.UpdateProduct(context.Background(), q.ID, ProductUpdate{Stock: &zero})
	require.NoError(t, err)

	rec := ta.do(t, http.MethodPost, "/api/checkout", token, shippingBody())

	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "insufficient_stock", decodeBody(t, rec)["code"])

	// Validation precedes any mutation: stock and cart are unchanged.
	ctx := context.Background()
	fresh, err := ta.store.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Stock)
	cart, err := ta.store.CartByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	orders, err := ta.store.OrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderPriceImmutability(t *testing.T) {
	ta := newTestApp(t)
	_, token := ta.seedUser(t, "ada@example.com")
	product := ta.seedProduct(t, "Noir", 80, 5)
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": product.ID.Hex(), "quantity": 2})

	rec := ta.do(t, http.MethodPost, "/api/checkout", token, shippingBody())
	require.Equal(t, 200, rec.Code)
	orderID := decodeBody(t, rec)["orderId"].(string)

	// Catalog price changes after the sale.
	newPrice := 150.0
	_, err := ta.store.UpdateProduct(context.Background(), product.ID, ProductUpdate{Price: &newPrice})
	require.NoError(t, err)

	orderRec := ta.do(t, http.MethodGet, "/api/orders/"+orderID, token, nil)
	body := decodeBody(t, orderRec)
	assert.Equal(t, 160.0, body["total"])
	item := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, 80.0, item["unitPrice"])
}

func TestCheckoutDropsDeletedProducts(t *testing.T) {
	ta := newTestApp(t)
	_, token := ta.seedUser(t, "ada@example.com")
	kept := ta.seedProduct(t, "Noir", 80, 5)
	doomed := ta.seedProduct(t, "Blanc", 60, 5)
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": kept.ID.Hex(), "quantity": 1})
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": doomed.ID.Hex(), "quantity": 1})

	require.NoError(t, ta.store.DeleteProduct(context.Background(), doomed.ID))

	rec := ta.do(t, http.MethodPost, "/api/checkout", token, shippingBody())
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, 80.0, decodeBody(t, rec)["total"])
}

func TestCheckoutAllProductsDeletedIsEmptyCart(t *testing.T) {
	ta := newTestApp(t)
	_, token := ta.seedUser(t, "ada@example.com")
	doomed := ta.seedProduct(t, "Blanc", 60, 5)
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": doomed.ID.Hex(), "quantity": 1})
	require.NoError(t, ta.store.DeleteProduct(context.Background(), doomed.ID))

	rec := ta.do(t, http.MethodPost, "/api/checkout", token, shippingBody())
	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "empty_cart", decodeBody(t, rec)["code"])
}

// conflictStore makes the conditional decrement lose for one product,
// simulating a concurrent checkout racing between validation and commit.
type conflictStore struct {
	Store
	conflictOn primitive.ObjectID
}

func (s *conflictStore) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	if id == s.conflictOn {
		return errStockConflict
	}
	return s.Store.DecrementStock(ctx, id, qty)
}

func TestCheckoutConcurrencyConflictRollsBack(t *testing.T) {
	ta := newTestApp(t)
	_, token := ta.seedUser(t, "ada@example.com")
	noir := ta.seedProduct(t, "Noir", 80, 5)
	blanc := ta.seedProduct(t, "Blanc", 60, 5)
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": noir.ID.Hex(), "quantity": 2})
	ta.do(t, http.MethodPost, "/api/cart", token, map[string]any{"productId": blanc.ID.Hex(), "quantity": 1})

	ta.app.store = &conflictStore{Store: ta.store, conflictOn: blanc.ID}

	rec := ta.do(t, http.MethodPost, "/api/checkout", token, shippingBody())

	require.Equal(t, 409, rec.Code)
	assert.Equal(t, "concurrency_conflict", decodeBody(t, rec)["code"])

	// Noir's decrement was rolled back.
	fresh, err := ta.store.ProductByID(context.Background(), noir.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.Stock)
}

func TestOrdersAreOwnerScoped(t *testing.T) {
	ta := newTestApp(t)
	_, adaToken := ta.seedUser(t, "ada@example.com")
	_, graceToken := ta.seedUser(t, "grace@example.com")
	product := ta.seedProduct(t, "Noir", 80, 5)
	ta.do(t, http.MethodPost, "/api/cart", adaToken, map[string]any{"productId": product.ID.Hex(), "quantity": 1})
	rec := ta.do(t, http.MethodPost, "/api/checkout", adaToken, shippingBody())
	orderID := decodeBody(t, rec)["orderId"].(string)

	require.Equal(t, 404, ta.do(t, http.MethodGet, "/api/orders/"+orderID, graceToken, nil).Code)
	graceOrders := ta.do(t, http.MethodGet, "/api/orders", graceToken, nil)
	require.Equal(t, 200, graceOrders.Code)
	assert.Equal(t, "[]", graceOrders.Body.String())
}
