package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpTTL        = 10 * time.Minute
	resetTokenTTL = time.Hour
)

// OTPStore keeps short-lived sign-in codes and password reset tokens in
// Redis. Codes are single use: verification deletes the key.
type OTPStore struct {
	client *redis.Client
}

// NewOTPStore creates an OTP store.
func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

func otpKey(email string) string   { return "auth:otp:" + email }
func resetKey(token string) string { return "auth:pwreset:" + token }

// IssueCode generates and stores a 6-digit code for the email.
func (s *OTPStore) IssueCode(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	if err := s.client.Set(ctx, otpKey(email), code, otpTTL).Err(); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// ConsumeCode checks the code for the email and deletes it on match.
func (s *OTPStore) ConsumeCode(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.client.Get(ctx, otpKey(email)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != code {
		return false, nil
	}
	if err := s.client.Del(ctx, otpKey(email)).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// IssueResetToken generates and stores a password reset token bound to the
// user's email.
func (s *OTPStore) IssueResetToken(ctx context.Context, email string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)
	if err := s.client.Set(ctx, resetKey(token), email, resetTokenTTL).Err(); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// ConsumeResetToken returns the email bound to the token and deletes it.
func (s *OTPStore) ConsumeResetToken(ctx context.Context, token string) (string, bool, error) {
	email, err := s.client.Get(ctx, resetKey(token)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if err := s.client.Del(ctx, resetKey(token)).Err(); err != nil {
		return "", false, err
	}
	return email, true, nil
}
