// orders.go

package main

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (a *app) getOrders(c *gin.Context) {
	orders, err := a.store.OrdersByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	c.JSON(200, orders)
}

func (a *app) getOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		a.fail(c, errValidation("Invalid order ID"))
		return
	}
	order, err := a.store.OrderForUser(c.Request.Context(), orderID, currentUserID(c))
	if errors.Is(err, errNoDocument) {
		a.fail(c, errNotFound("Order not found"))
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, order)
}
