// admin.go

package main

import (
	"crypto/subtle"
	"errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// adminAuthenticator is the pluggable credential check behind the admin
// surface. Production injects the static configuration pair; tests inject
// whatever they need.
type adminAuthenticator interface {
	Authenticate(email, password string) bool
}

type staticAdminCredentials struct {
	email    string
	password string
}

func (s staticAdminCredentials) Authenticate(email, password string) bool {
	if s.email == "" || s.password == "" {
		return false
	}
	ok := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1 && ok
}

// adminLogin exchanges the configured admin credentials for a bearer token
// carrying the admin role.
func (a *app) adminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, errValidation("Invalid request body"))
		return
	}
	if !a.adminAuth.Authenticate(req.Email, req.Password) {
		a.fail(c, errAuth("Invalid email or password"))
		return
	}
	token, err := a.signToken(&User{ID: primitive.NilObjectID, Email: req.Email, Role: "admin"})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"token": token})
}

type productRequest struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"originalPrice"`
	Image         string  `json:"image"`
	Description   string  `json:"description"`
	Brand         string  `json:"brand"`
	Category      string  `json:"category"`
	Stock         int     `json:"stock"`
}

func (a *app) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, errValidation("Invalid request body"))
		return
	}
	if req.Name == "" || req.Price <= 0 {
		a.fail(c, errValidation("Name and a positive price are required"))
		return
	}
	if req.Stock < 0 {
		a.fail(c, errValidation("Stock must not be negative"))
		return
	}
	product := &Product{
		Name:          req.Name,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Image:         req.Image,
		Description:   req.Description,
		Brand:         req.Brand,
		Category:      req.Category,
		Stock:         req.Stock,
	}
	if err := a.store.CreateProduct(c.Request.Context(), product); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, product)
}

type productUpdateRequest struct {
	Name          *string  `json:"name"`
	Price         *float64 `json:"price"`
	OriginalPrice *float64 `json:"originalPrice"`
	Image         *string  `json:"image"`
	Description   *string  `json:"description"`
	Brand         *string  `json:"brand"`
	Category      *string  `json:"category"`
	Stock         *int     `json:"stock"`
}

func (a *app) updateProduct(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		a.fail(c, errValidation("Invalid product ID"))
		return
	}
	var req productUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, errValidation("Invalid request body"))
		return
	}
	if req.Price != nil && *req.Price <= 0 {
		a.fail(c, errValidation("Price must be positive"))
		return
	}
	if req.Stock != nil && *req.Stock < 0 {
		a.fail(c, errValidation("Stock must not be negative"))
		return
	}
	product, err := a.store.UpdateProduct(c.Request.Context(), id, ProductUpdate{
		Name:          req.Name,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Image:         req.Image,
		Description:   req.Description,
		Brand:         req.Brand,
		Category:      req.Category,
		Stock:         req.Stock,
	})
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

func (a *app) deleteProduct(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		a.fail(c, errValidation("Invalid product ID"))
		return
	}
	if err := a.store.DeleteProduct(c.Request.Context(), id); err != nil {
		if errors.Is(err, errNoDocument) {
			a.fail(c, errNotFound("Product not found"))
			return
		}
		a.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "message": "Product deleted"})
}

// validStatusChange is the order lifecycle: placed orders move through
// processing and shipping to delivery, with cancellation possible until
// the order ships.
var validStatusChange = map[string][]string{
	StatusPlaced:     {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

type statusRequest struct {
	Status string `json:"status"`
}

func (a *app) updateOrderStatus(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		a.fail(c, errValidation("Invalid order ID"))
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, errValidation("Invalid request body"))
		return
	}

	ctx := c.Request.Context()
	order, err := a.store.OrderByID(ctx, orderID)
	if errors.Is(err, errNoDocument) {
		a.fail(c, errNotFound("Order not found"))
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	allowed := false
	for _, next := range validStatusChange[order.Status] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		a.fail(c, errValidation("Cannot change status from "+order.Status+" to "+req.Status))
		return
	}
	updated, err := a.store.UpdateOrderStatus(ctx, orderID, req.Status)
	if errors.Is(err, errNoDocument) {
		a.fail(c, errNotFound("Order not found"))
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, updated)
}

func (a *app) listAllOrders(c *gin.Context) {
	orders, err := a.store.ListOrders(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	c.JSON(200, orders)
}

func (a *app) listUsers(c *gin.Context) {
	users, err := a.store.ListUsers(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	c.JSON(200, users)
}
