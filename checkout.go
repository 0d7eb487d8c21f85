// checkout.go

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	PaymentMethod string `json:"paymentMethod"`
}

type checkoutLine struct {
	item    CartItem
	product *Product
}

// checkout folds the cart into an order snapshot. Unit prices are captured
// here and never change afterwards, whatever happens to the catalog.
// Stock is re-validated because cart-time checks may be stale, then
// decremented conditionally so it can never go negative; losing the
// conditional update after validation passed is reported as a concurrency
// conflict and any decrements already applied are rolled back.
func (a *app) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, errValidation("Invalid request body"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Address == "" || req.Phone == "" {
		a.fail(c, errValidation("Name, address, and phone are required"))
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cod"
	}

	ctx := c.Request.Context()
	userID := currentUserID(c)
	cart, err := a.store.CartByUser(ctx, userID)
	if errors.Is(err, errNoDocument) {
		a.fail(c, errEmptyCart())
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	if len(cart.Items) == 0 {
		a.fail(c, errEmptyCart())
		return
	}

	// Deleted products drop out silently; an error only if nothing is left.
	var lines []checkoutLine
	for _, item := range cart.Items {
		product, err := a.store.ProductByID(ctx, item.ProductID)
		if errors.Is(err, errNoDocument) {
			continue
		}
		if err != nil {
			a.fail(c, err)
			return
		}
		lines = append(lines, checkoutLine{item: item, product: product})
	}
	if len(lines) == 0 {
		a.fail(c, errEmptyCart())
		return
	}

	for _, line := range lines {
		if line.item.Quantity > line.product.Stock {
			a.fail(c, errInsufficientStock(fmt.Sprintf(
				"Insufficient stock for %s. Only %d available.", line.product.Name, line.product.Stock)))
			return
		}
	}

	// Validation passed; apply conditional decrements one line at a time.
	var applied []checkoutLine
	for _, line := range lines {
		err := a.store.DecrementStock(ctx, line.product.ID, line.item.Quantity)
		if err != nil {
			for _, done := range applied {
				if rbErr := a.store.IncrementStock(ctx, done.product.ID, done.item.Quantity); rbErr != nil {
					a.errorLog.Printf("checkout rollback for %s failed: %v", done.product.ID.Hex(), rbErr)
				}
			}
			if errors.Is(err, errStockConflict) {
				a.fail(c, errConcurrencyConflict(fmt.Sprintf(
					"Stock for %s changed during checkout. Please try again.", line.product.Name)))
				return
			}
			a.fail(c, err)
			return
		}
		applied = append(applied, line)
	}

	order := &Order{
		UserID:        userID,
		Name:          req.Name,
		Address:       req.Address,
		Phone:         req.Phone,
		PaymentMethod: req.PaymentMethod,
		Status:        StatusPlaced,
	}
	for _, line := range lines {
		order.Items = append(order.Items, OrderItem{
			ProductID: line.product.ID,
			Name:      line.product.Name,
			Quantity:  line.item.Quantity,
			UnitPrice: line.product.Price,
		})
		order.Total += float64(line.item.Quantity) * line.product.Price
	}
	if err := a.store.CreateOrder(ctx, order); err != nil {
		for _, done := range applied {
			if rbErr := a.store.IncrementStock(ctx, done.product.ID, done.item.Quantity); rbErr != nil {
				a.errorLog.Printf("checkout rollback for %s failed: %v", done.product.ID.Hex(), rbErr)
			}
		}
		a.fail(c, err)
		return
	}

	if err := a.store.SaveCartItems(ctx, userID, nil); err != nil {
		// The order exists; an uncleared cart is recoverable by the client.
		a.errorLog.Printf("clear cart after order %s: %v", order.ID.Hex(), err)
	}

	c.JSON(200, gin.H{
		"success": true,
		"message": "Order placed successfully",
		"orderId": order.ID.Hex(),
		"total":   order.Total,
	})
}
