// cart.go

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// cartView joins cart lines with live product data. Lines whose product
// was deleted are dropped from the view, not treated as an error.
func (a *app) cartView(ctx context.Context, userID primitive.ObjectID) (*CartView, error) {
	view := &CartView{Items: []CartLine{}}
	cart, err := a.store.CartByUser(ctx, userID)
	if errors.Is(err, errNoDocument) {
		return view, nil
	}
	if err != nil {
		return nil, err
	}
	for _, item := range cart.Items {
		product, err := a.store.ProductByID(ctx, item.ProductID)
		if errors.Is(err, errNoDocument) {
			continue
		}
		if err != nil {
			return nil, err
		}
		line := CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Brand:     product.Brand,
			Image:     product.Image,
			Price:     product.Price,
			Stock:     product.Stock,
			Quantity:  item.Quantity,
			Subtotal:  float64(item.Quantity) * product.Price,
		}
		view.Items = append(view.Items, line)
		view.Total += line.Subtotal
	}
	return view, nil
}

func (a *app) getCart(c *gin.Context) {
	view, err := a.cartView(c.Request.Context(), currentUserID(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, view)
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (a *app) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, errValidation("Invalid request body"))
		return
	}
	if req.ProductID == "" {
		a.fail(c, errValidation("Product ID is required"))
		return
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		a.fail(c, errValidation("Quantity must be at least 1"))
		return
	}
	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		a.fail(c, errValidation("Invalid product ID"))
		return
	}

	ctx := c.Request.Context()
	userID := currentUserID(c)
	product, err := a.store.ProductByID(ctx, productID)
	if errors.Is(err, errNoDocument) {
		a.fail(c, errNotFound("Product not found"))
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	var items []CartItem
	cart, err := a.store.CartByUser(ctx, userID)
	if err == nil {
		items = cart.Items
	} else if !errors.Is(err, errNoDocument) {
		a.fail(c, err)
		return
	}

	// Quantities accumulate: the stock check runs against the existing
	// line plus the new request.
	found := false
	for i, item := range items {
		if item.ProductID == productID {
			if item.Quantity+qty > product.Stock {
				a.fail(c, errInsufficientStock(fmt.Sprintf("Cannot add more. Maximum %d items available", product.Stock)))
				return
			}
			items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		if qty > product.Stock {
			a.fail(c, errInsufficientStock(fmt.Sprintf("Only %d items in stock", product.Stock)))
			return
		}
		items = append(items, CartItem{ProductID: productID, Quantity: qty})
	}

	if err := a.store.SaveCartItems(ctx, userID, items); err != nil {
		a.fail(c, err)
		return
	}
	view, err := a.cartView(ctx, userID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "message": "Item added to cart", "cart": view})
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

// updateCartItem sets (not adds) the exact quantity for an existing line.
// Quantity 0 removes the line.
func (a *app) updateCartItem(c *gin.Context) {
	productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
	if err != nil {
		a.fail(c, errValidation("Invalid product ID"))
		return
	}
	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, errValidation("Invalid request body"))
		return
	}
	if req.Quantity < 0 {
		a.fail(c, errValidation("Quantity must not be negative"))
		return
	}

	ctx := c.Request.Context()
	userID := currentUserID(c)
	cart, err := a.store.CartByUser(ctx, userID)
	if errors.Is(err, errNoDocument) {
		a.fail(c, errNotFound("Item not in cart"))
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	idx := -1
	for i, item := range cart.Items {
		if item.ProductID == productID {
			idx = i
			break
		}
	}
	if idx == -1 {
		a.fail(c, errNotFound("Item not in cart"))
		return
	}

	if req.Quantity == 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		product, err := a.store.ProductByID(ctx, productID)
		if errors.Is(err, errNoDocument) {
			a.fail(c, errNotFound("Product not found"))
			return
		}
		if err != nil {
			a.fail(c, err)
			return
		}
		if req.Quantity > product.Stock {
			a.fail(c, errInsufficientStock(fmt.Sprintf("Only %d items available", product.Stock)))
			return
		}
		cart.Items[idx].Quantity = req.Quantity
	}

	if err := a.store.SaveCartItems(ctx, userID, cart.Items); err != nil {
		a.fail(c, err)
		return
	}
	view, err := a.cartView(ctx, userID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "message": "Quantity updated successfully", "cart": view})
}

// removeCartItem is idempotent: removing a line that is not there
// succeeds silently.
func (a *app) removeCartItem(c *gin.Context) {
	productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
	if err != nil {
		a.fail(c, errValidation("Invalid product ID"))
		return
	}

	ctx := c.Request.Context()
	userID := currentUserID(c)
	cart, err := a.store.CartByUser(ctx, userID)
	if errors.Is(err, errNoDocument) {
		c.JSON(200, gin.H{"success": true, "message": "Cart is empty"})
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	if err := a.store.SaveCartItems(ctx, userID, items); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "message": "Item removed from cart"})
}

func (a *app) clearCart(c *gin.Context) {
	if err := a.store.SaveCartItems(c.Request.Context(), currentUserID(c), nil); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "message": "Cart cleared successfully"})
}
