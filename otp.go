// otp.go

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	otpTTL         = 5 * time.Minute
	resendCooldown = 60 * time.Second
)

// otpService manages the second factor of the auth handshake: a password
// check alone never yields a token, only a verified challenge does.
type otpService struct {
	store challengeStore
	now   func() time.Time
}

func newOTPService(store challengeStore) *otpService {
	return &otpService{store: store, now: time.Now}
}

func generateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand failing means the process is in no state to serve.
		panic(err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}

// issue creates or replaces the pending challenge for an email. A prior
// resend cooldown carries over so a fresh login cannot bypass it.
func (s *otpService) issue(ctx context.Context, email string, userID primitive.ObjectID) (string, error) {
	ch := &Challenge{
		Email:     email,
		Code:      generateOTP(),
		UserID:    userID,
		ExpiresAt: s.now().Add(otpTTL),
	}
	if prev, err := s.store.Get(ctx, email); err == nil {
		ch.LastResend = prev.LastResend
	}
	if err := s.store.Put(ctx, ch); err != nil {
		return "", err
	}
	return ch.Code, nil
}

// resend regenerates the code for an existing challenge, resetting its
// expiry. The cooldown rate-limits outbound email, nothing more.
func (s *otpService) resend(ctx context.Context, email string) (string, error) {
	ch, err := s.store.Get(ctx, email)
	if errors.Is(err, errNoDocument) {
		return "", errNotFound("No pending verification. Please login or signup first.")
	}
	if err != nil {
		return "", err
	}
	if !ch.LastResend.IsZero() {
		elapsed := s.now().Sub(ch.LastResend)
		if elapsed < resendCooldown {
			retryAfter := int((resendCooldown - elapsed + time.Second - 1) / time.Second)
			return "", errRateLimit(retryAfter)
		}
	}
	ch.Code = generateOTP()
	ch.ExpiresAt = s.now().Add(otpTTL)
	ch.LastResend = s.now()
	if err := s.store.Put(ctx, ch); err != nil {
		return "", err
	}
	return ch.Code, nil
}

// verify consumes the challenge: success deletes it (and with it the
// resend cooldown), so a second verification with the same code fails.
func (s *otpService) verify(ctx context.Context, email, code string) (primitive.ObjectID, error) {
	ch, err := s.store.Get(ctx, email)
	if errors.Is(err, errNoDocument) {
		return primitive.NilObjectID, errNotFound("No OTP found. Please request a new one")
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	if s.now().After(ch.ExpiresAt) {
		if err := s.store.Delete(ctx, email); err != nil {
			return primitive.NilObjectID, err
		}
		return primitive.NilObjectID, errExpired("OTP expired. Please request a new one")
	}
	if ch.Code != code {
		return primitive.NilObjectID, errInvalidCode()
	}
	if err := s.store.Delete(ctx, email); err != nil {
		return primitive.NilObjectID, err
	}
	return ch.UserID, nil
}
