// products.go

package main

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (a *app) listProducts(c *gin.Context) {
	filter := ProductFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
	}
	products, err := a.store.ListProducts(c.Request.Context(), filter)
	if err != nil {
		a.fail(c, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	c.JSON(200, products)
}

func (a *app) getProduct(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		a.fail(c, errValidation("Invalid product ID"))
		return
	}
	product, err := a.store.ProductByID(c.Request.Context(), id)
	if errors.Is(err, errNoDocument) {
		a.fail(c, errNotFound("Product not found"))
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, product)
}
