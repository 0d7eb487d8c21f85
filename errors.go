// errors.go

package main

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
)

// apiError is the client-visible failure shape. Anything that is not an
// *apiError reaching the handler boundary is logged and masked as a 500.
type apiError struct {
	Status     int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errValidation(msg string) *apiError {
	return &apiError{Status: 400, Code: "validation", Message: msg}
}

func errAuth(msg string) *apiError {
	return &apiError{Status: 401, Code: "auth", Message: msg}
}

func errForbidden(msg string) *apiError {
	return &apiError{Status: 403, Code: "forbidden", Message: msg}
}

func errConflict(msg string) *apiError {
	return &apiError{Status: 409, Code: "conflict", Message: msg}
}

func errNotFound(msg string) *apiError {
	return &apiError{Status: 404, Code: "not_found", Message: msg}
}

func errInsufficientStock(msg string) *apiError {
	return &apiError{Status: 400, Code: "insufficient_stock", Message: msg}
}

func errEmptyCart() *apiError {
	return &apiError{Status: 400, Code: "empty_cart", Message: "Cart is empty"}
}

func errRateLimit(retryAfter int) *apiError {
	return &apiError{
		Status:     429,
		Code:       "rate_limit",
		Message:    fmt.Sprintf("Please wait %d seconds before requesting another OTP", retryAfter),
		RetryAfter: retryAfter,
	}
}

func errExpired(msg string) *apiError {
	return &apiError{Status: 400, Code: "expired", Message: msg}
}

func errInvalidCode() *apiError {
	return &apiError{Status: 400, Code: "invalid_code", Message: "Invalid OTP"}
}

// errConcurrencyConflict is returned when a conditional stock decrement
// matches nothing after validation already passed: another checkout won.
func errConcurrencyConflict(msg string) *apiError {
	return &apiError{Status: 409, Code: "concurrency_conflict", Message: msg}
}

// fail translates an error at the handler boundary. Unexpected errors are
// logged with full detail and the client sees only a generic message.
func (a *app) fail(c *gin.Context, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		c.AbortWithStatusJSON(ae.Status, ae)
		return
	}
	a.errorLog.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.AbortWithStatusJSON(500, &apiError{Status: 500, Code: "internal", Message: "Internal server error"})
}
