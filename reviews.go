// reviews.go

package main

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type reviewRequest struct {
	ProductID string `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// submitReview upserts the caller's review for a product and folds the
// rating change into the product's running aggregate: a new review adds
// (rating, 1), an overwrite adds (new-old, 0). The stored mean is derived
// from that aggregate, never from a re-scan of all reviews.
func (a *app) submitReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, errValidation("Invalid request body"))
		return
	}
	if req.ProductID == "" || req.Rating == 0 {
		a.fail(c, errValidation("Product ID and rating required"))
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		a.fail(c, errValidation("Rating must be between 1-5"))
		return
	}
	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		a.fail(c, errValidation("Invalid product ID"))
		return
	}

	ctx := c.Request.Context()
	userID := currentUserID(c)
	if _, err := a.store.ProductByID(ctx, productID); err != nil {
		if errors.Is(err, errNoDocument) {
			a.fail(c, errNotFound("Product not found"))
			return
		}
		a.fail(c, err)
		return
	}
	user, err := a.store.UserByID(ctx, userID)
	if err != nil {
		a.fail(c, err)
		return
	}

	sumDelta := float64(req.Rating)
	countDelta := 1
	existing, err := a.store.ReviewByProductUser(ctx, productID, userID)
	if err == nil {
		sumDelta = float64(req.Rating - existing.Rating)
		countDelta = 0
	} else if !errors.Is(err, errNoDocument) {
		a.fail(c, err)
		return
	}

	review := &Review{
		ProductID: productID,
		UserID:    userID,
		UserName:  user.FirstName + " " + user.LastName,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := a.store.SaveReview(ctx, review); err != nil {
		a.fail(c, err)
		return
	}
	if _, err := a.store.ApplyReviewDelta(ctx, productID, sumDelta, countDelta); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true, "message": "Review submitted"})
}

func (a *app) getReviews(c *gin.Context) {
	productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
	if err != nil {
		a.fail(c, errValidation("Invalid product ID"))
		return
	}
	reviews, err := a.store.ReviewsByProduct(c.Request.Context(), productID)
	if err != nil {
		a.fail(c, err)
		return
	}
	if reviews == nil {
		reviews = []Review{}
	}
	c.JSON(200, reviews)
}
