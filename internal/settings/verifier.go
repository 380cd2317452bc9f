// Package settings issues and verifies the opaque tokens that bind an
// autocomplete client to a server-held SelectionSettings blob.
//
// A token is HMAC-SHA256(canonical(settings) ‖ target_type ‖ handler_id)
// keyed by the server secret. It doubles as the storage key, so verification
// is: look the settings up by token, recompute the digest, compare in constant
// time. An unknown token, or one whose backing settings were mutated or
// removed, fails with types.ErrAccessDenied.
package settings

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/matthewbaird/parentref/internal/types"
)

// ErrNotFound is returned by a Store when no settings exist for a token.
var ErrNotFound = errors.New("settings not found")

// Store persists settings blobs keyed by their token. Readers never mutate
// stored settings.
type Store interface {
	Get(ctx context.Context, token string) (types.SelectionSettings, error)
	Put(ctx context.Context, token string, s types.SelectionSettings) error
}

// Signer computes settings tokens.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer keyed by secret, which must not be empty.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, &types.ConfigError{Component: "settings", Message: "hash secret must not be empty"}
	}
	return &Signer{secret: append([]byte{}, secret...)}, nil
}

// Token returns the digest for s as requested for targetType and handlerID.
func (s *Signer) Token(settings types.SelectionSettings, targetType, handlerID string) (string, error) {
	payload, err := settings.Canonical()
	if err != nil {
		return "", fmt.Errorf("serializing selection settings: %w", err)
	}
	mac := hmac.New(sha256.New, s.secret)
	// NUL-delimited so the target type and handler id cannot trade bytes.
	mac.Write(payload)
	mac.Write([]byte{0})
	mac.Write([]byte(targetType))
	mac.Write([]byte{0})
	mac.Write([]byte(handlerID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verifier guards every lookup request.
type Verifier struct {
	signer *Signer
	store  Store
}

// NewVerifier creates a verifier over the given store.
func NewVerifier(signer *Signer, store Store) *Verifier {
	return &Verifier{signer: signer, store: store}
}

// Issue validates s, computes its token and stores it under that token.
// Issuing identical settings twice yields the same token.
func (v *Verifier) Issue(ctx context.Context, s types.SelectionSettings) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	token, err := v.signer.Token(s, s.TargetType, s.HandlerID)
	if err != nil {
		return "", err
	}
	if err := v.store.Put(ctx, token, s); err != nil {
		return "", fmt.Errorf("storing selection settings: %w", err)
	}
	return token, nil
}

// Verify returns the settings behind token if, and only if, recomputing the
// digest from the stored settings for targetType and handlerID reproduces it.
func (v *Verifier) Verify(ctx context.Context, targetType, handlerID, token string) (types.SelectionSettings, error) {
	if token == "" {
		return types.SelectionSettings{}, types.ErrAccessDenied
	}
	s, err := v.store.Get(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return types.SelectionSettings{}, types.ErrAccessDenied
	}
	if err != nil {
		return types.SelectionSettings{}, fmt.Errorf("loading selection settings: %w", err)
	}
	expected, err := v.signer.Token(s, targetType, handlerID)
	if err != nil {
		return types.SelectionSettings{}, err
	}
	if s.TargetType != targetType || s.HandlerID != handlerID {
		log.Printf("settings: token issued for %s/%s used as %s/%s", s.TargetType, s.HandlerID, targetType, handlerID)
		return types.SelectionSettings{}, fmt.Errorf("selection settings bound to another handler: %w", types.ErrAccessDenied)
	}
	if !hmac.Equal([]byte(expected), []byte(token)) {
		log.Printf("settings: token mismatch for %s/%s", targetType, handlerID)
		return types.SelectionSettings{}, fmt.Errorf("invalid selection settings key: %w", types.ErrAccessDenied)
	}
	return s, nil
}
