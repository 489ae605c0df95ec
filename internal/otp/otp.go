// Package otp issues short-lived single-use codes that guests present
// when recording a payment.  Codes are kept per user; issuing a new one
// replaces the previous code.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// Store keeps at most one pending code per user.
type Store interface {
	// Put saves code for userID, replacing any previous one.
	Put(ctx context.Context, userID uint64, code string, ttl time.Duration) error
	// Take returns and removes the pending code.  ok is false when there
	// is none or it has expired.
	Take(ctx context.Context, userID uint64) (code string, ok bool, err error)
}

// DefaultTTL is used when the issuer is built with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

const digits = 6

// Issuer creates and checks codes.
type Issuer struct {
	store Store
	ttl   time.Duration
}

func NewIssuer(s Store, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{store: s, ttl: ttl}
}

// TTL reports how long issued codes stay valid.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue generates a fresh numeric code for userID.
func (i *Issuer) Issue(ctx context.Context, userID uint64) (string, error) {
	code, err := newCode()
	if err != nil {
		return "", fmt.Errorf("otp: generate: %w", err)
	}
	if err := i.store.Put(ctx, userID, code, i.ttl); err != nil {
		return "", fmt.Errorf("otp: store: %w", err)
	}
	return code, nil
}

// Verify consumes the pending code for userID and reports whether it
// matched.  A wrong guess also burns the code.
func (i *Issuer) Verify(ctx context.Context, userID uint64, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	want, ok, err := i.store.Take(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("otp: load: %w", err)
	}
	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1, nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
