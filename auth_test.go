// auth_test.go

package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signupBody(email string) map[string]string {
	return map[string]string{
		"firstName":       "Ada",
		"lastName":        "Lovelace",
		"email":           email,
		"password":        "password123",
		"confirmPassword": "password123",
	}
}

func TestSignupPasswordMismatch(t *testing.T) {
	ta := newTestApp(t)
	body := signupBody("ada@example.com")
	body["confirmPassword"] = "different"

	rec := ta.do(t, http.MethodPost, "/api/signup", "", body)

	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "validation", decodeBody(t, rec)["code"])
	_, err := ta.store.UserByEmail(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, errNoDocument)
}

func TestSignupMissingFields(t *testing.T) {
	ta := newTestApp(t)
	body := signupBody("ada@example.com")
	body["firstName"] = ""

	rec := ta.do(t, http.MethodPost, "/api/signup", "", body)
	require.Equal(t, 400, rec.Code)
}

func TestSignupDuplicateEmail(t *testing.T) {
	ta := newTestApp(t)
	require.Equal(t, 200, ta.do(t, http.MethodPost, "/api/signup", "", signupBody("ada@example.com")).Code)

	rec := ta.do(t, http.MethodPost, "/api/signup", "", signupBody("ada@example.com"))
	require.Equal(t, 409, rec.Code)
	assert.Equal(t, "conflict", decodeBody(t, rec)["code"])
}

func TestSignupEmailIsCaseInsensitive(t *testing.T) {
	ta := newTestApp(t)
	require.Equal(t, 200, ta.do(t, http.MethodPost, "/api/signup", "", signupBody("Ada@Example.com")).Code)

	rec := ta.do(t, http.MethodPost, "/api/signup", "", signupBody("ADA@example.COM"))
	require.Equal(t, 409, rec.Code)

	user, err := ta.store.UserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestSignupEmailFailureStillCreatesAccount(t *testing.T) {
	ta := newTestApp(t)
	ta.mailer.failing = true

	rec := ta.do(t, http.MethodPost, "/api/signup", "", signupBody("ada@example.com"))

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["emailError"])
	_, err := ta.store.UserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)

	// The resend path completes the handshake once delivery recovers.
	ta.mailer.failing = false
	rec = ta.do(t, http.MethodPost, "/api/resend-otp", "", map[string]string{"email": "ada@example.com"})
	require.Equal(t, 200, rec.Code)
	assert.NotEmpty(t, ta.mailer.lastCode("ada@example.com"))
}

func TestLoginNoEnumerationHint(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "ada@example.com")

	unknown := ta.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password123"})
	wrongPw := ta.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong"})

	require.Equal(t, 401, unknown.Code)
	require.Equal(t, 401, wrongPw.Code)
	assert.Equal(t, unknown.Body.String(), wrongPw.Body.String())
}

func TestLoginIssuesOTPNotToken(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "ada@example.com")

	rec := ta.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ada@example.com", "password": "password123"})

	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	assert.NotContains(t, body, "token")
	assert.NotEmpty(t, ta.mailer.lastCode("ada@example.com"))
}

func TestVerifyOTPIssuesToken(t *testing.T) {
	ta := newTestApp(t)
	user, _ := ta.seedUser(t, "ada@example.com")
	require.Equal(t, 200, ta.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ada@example.com", "password": "password123"}).Code)

	code := ta.mailer.lastCode("ada@example.com")
	require.NotEmpty(t, code)
	rec := ta.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{
		"email": "ada@example.com", "otp": code})

	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	// Token authorizes protected endpoints.
	profile := ta.do(t, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, 200, profile.Code)
	assert.Equal(t, user.Email, decodeBody(t, profile)["email"])

	// First success sets the verification timestamp.
	fresh, err := ta.store.UserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, fresh.EmailVerifiedAt)
}

func TestVerifyOTPSingleUse(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "ada@example.com")
	ta.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ada@example.com", "password": "password123"})
	code := ta.mailer.lastCode("ada@example.com")

	first := ta.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{
		"email": "ada@example.com", "otp": code})
	second := ta.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{
		"email": "ada@example.com", "otp": code})

	require.Equal(t, 200, first.Code)
	require.Equal(t, 404, second.Code)
	assert.Equal(t, "not_found", decodeBody(t, second)["code"])
}

func TestVerifyOTPExpiry(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "ada@example.com")
	ta.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ada@example.com", "password": "password123"})
	code := ta.mailer.lastCode("ada@example.com")

	ta.advance(5*time.Minute + time.Second)
	rec := ta.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{
		"email": "ada@example.com", "otp": code})

	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "expired", decodeBody(t, rec)["code"])

	// The entry was cleared on expiry, so the next attempt is not-found.
	rec = ta.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{
		"email": "ada@example.com", "otp": code})
	require.Equal(t, 404, rec.Code)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "ada@example.com")
	ta.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ada@example.com", "password": "password123"})
	code := ta.mailer.lastCode("ada@example.com")

	// Codes are always in [100000, 999999], so this never collides.
	rec := ta.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{
		"email": "ada@example.com", "otp": "000000"})
	require.Equal(t, 400, rec.Code)
	assert.Equal(t, "invalid_code", decodeBody(t, rec)["code"])

	// A wrong guess does not consume the challenge.
	rec = ta.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{
		"email": "ada@example.com", "otp": code})
	require.Equal(t, 200, rec.Code)
}

func TestResendCooldown(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "ada@example.com")
	ta.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ada@example.com", "password": "password123"})

	first := ta.do(t, http.MethodPost, "/api/resend-otp", "", map[string]string{"email": "ada@example.com"})
	second := ta.do(t, http.MethodPost, "/api/resend-otp", "", map[string]string{"email": "ada@example.com"})

	require.Equal(t, 200, first.Code)
	require.Equal(t, 429, second.Code)
	body := decodeBody(t, second)
	assert.Equal(t, "rate_limit", body["code"])
	retryAfter, ok := body["retryAfter"].(float64)
	require.True(t, ok)
	assert.Greater(t, retryAfter, 0.0)

	// After the cooldown the resend works again.
	ta.advance(61 * time.Second)
	third := ta.do(t, http.MethodPost, "/api/resend-otp", "", map[string]string{"email": "ada@example.com"})
	require.Equal(t, 200, third.Code)
}

func TestResendWithoutPendingChallenge(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodPost, "/api/resend-otp", "", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, 404, rec.Code)
}

func TestResendRegeneratesCode(t *testing.T) {
	ta := newTestApp(t)
	ta.seedUser(t, "ada@example.com")
	ta.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ada@example.com", "password": "password123"})
	old := ta.mailer.lastCode("ada@example.com")

	require.Equal(t, 200, ta.do(t, http.MethodPost, "/api/resend-otp", "",
		map[string]string{"email": "ada@example.com"}).Code)

	// The old code no longer verifies.
	rec := ta.do(t, http.MethodPost, "/api/verify-otp", "", map[string]string{
		"email": "ada@example.com", "otp": old})
	if ta.mailer.lastCode("ada@example.com") != old {
		require.Equal(t, 400, rec.Code)
	}
}

func TestProtectedEndpointsRejectBadTokens(t *testing.T) {
	ta := newTestApp(t)

	missing := ta.do(t, http.MethodGet, "/api/cart", "", nil)
	garbage := ta.do(t, http.MethodGet, "/api/cart", "not-a-token", nil)

	require.Equal(t, 401, missing.Code)
	require.Equal(t, 401, garbage.Code)
}

func TestProfileUpdate(t *testing.T) {
	ta := newTestApp(t)
	_, token := ta.seedUser(t, "ada@example.com")

	rec := ta.do(t, http.MethodPut, "/api/user/profile", token, map[string]string{
		"firstName": "Augusta"})
	require.Equal(t, 200, rec.Code)

	profile := ta.do(t, http.MethodGet, "/api/user/profile", token, nil)
	body := decodeBody(t, profile)
	assert.Equal(t, "Augusta", body["firstName"])
	assert.Equal(t, "User", body["lastName"])
}
