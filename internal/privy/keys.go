// Package privy verifies Privy-issued access tokens: it resolves the
// provider's ES256 verification key from its JWKS endpoint, validates
// bearer tokens against it and maps the claims to a local identity.
package privy

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultKeyTTL bounds how long a fetched verification key is reused
// before the next call refetches it. Privy rotates keys rarely, but a
// process should not have to restart to pick a rotation up.
const DefaultKeyTTL = time.Hour

// KeyResolver supplies the provider's current verification key.
type KeyResolver interface {
	// Key returns the cached verification key, fetching it if the cache
	// is empty or stale.
	Key(ctx context.Context) (*ecdsa.PublicKey, error)
	// Refresh drops the cache and refetches unconditionally.
	Refresh(ctx context.Context) (*ecdsa.PublicKey, error)
}

// JWKSResolver fetches the app's verification key from
// https://<host>/api/v1/apps/<app_id>/jwks.json and caches it for ttl.
// Safe for concurrent use; concurrent callers on a cold cache converge
// on a single fetch.
type JWKSResolver struct {
	jwksURL string
	client  *http.Client
	ttl     time.Duration
	logger  *zap.Logger

	mu        sync.Mutex
	key       *ecdsa.PublicKey
	fetchedAt time.Time
}

// NewJWKSResolver builds a resolver for the given provider host and app id.
func NewJWKSResolver(host, appID string, ttl time.Duration, logger *zap.Logger) *JWKSResolver {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &JWKSResolver{
		jwksURL: fmt.Sprintf("https://%s/api/v1/apps/%s/jwks.json", host, appID),
		client:  &http.Client{Timeout: 10 * time.Second},
		ttl:     ttl,
		logger:  logger,
	}
}

// NewJWKSResolverURL is like NewJWKSResolver but takes the JWKS URL
// verbatim. Used by tests to point the resolver at a local server.
func NewJWKSResolverURL(jwksURL string, ttl time.Duration, logger *zap.Logger) *JWKSResolver {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &JWKSResolver{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		ttl:     ttl,
		logger:  logger,
	}
}

func (r *JWKSResolver) Key(ctx context.Context) (*ecdsa.PublicKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.key != nil && time.Since(r.fetchedAt) < r.ttl {
		return r.key, nil
	}
	return r.fetchLocked(ctx)
}

func (r *JWKSResolver) Refresh(ctx context.Context) (*ecdsa.PublicKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchLocked(ctx)
}

// jwksResponse is the subset of the JWKS document we need: Privy
// publishes a single EC key and only the coordinates matter.
type jwksResponse struct {
	Keys []struct {
		Kty string `json:"kty"`
		Crv string `json:"crv"`
		X   string `json:"x"`
		Y   string `json:"y"`
	} `json:"keys"`
}

func (r *JWKSResolver) fetchLocked(ctx context.Context) (*ecdsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building JWKS request: %v", ErrKeyResolution, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching JWKS: %v", ErrKeyResolution, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: JWKS endpoint returned status %d", ErrKeyResolution, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading JWKS response: %v", ErrKeyResolution, err)
	}

	var jwks jwksResponse
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, fmt.Errorf("%w: parsing JWKS JSON: %v", ErrKeyResolution, err)
	}
	if len(jwks.Keys) == 0 {
		return nil, fmt.Errorf("%w: no keys in JWKS response", ErrKeyResolution)
	}

	// Privy publishes exactly one key; take the first entry.
	key, err := parseECPublicKey(jwks.Keys[0].X, jwks.Keys[0].Y)
	if err != nil {
		return nil, err
	}

	r.key = key
	r.fetchedAt = time.Now()
	r.logger.Info("Privy verification key fetched successfully")
	return key, nil
}

// parseECPublicKey reconstructs a P-256 public key from base64url x/y
// coordinates as published in the JWKS document.
func parseECPublicKey(xB64, yB64 string) (*ecdsa.PublicKey, error) {
	x, err := decodeCoordinate(xB64)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding x coordinate: %v", ErrKeyResolution, err)
	}
	y, err := decodeCoordinate(yB64)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding y coordinate: %v", ErrKeyResolution, err)
	}

	curve := elliptic.P256()
	if !curve.IsOnCurve(x, y) {
		return nil, fmt.Errorf("%w: JWKS coordinates are not a valid P-256 point", ErrKeyResolution)
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// decodeCoordinate decodes a base64url big-endian unsigned integer,
// tolerating missing padding.
func decodeCoordinate(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty coordinate")
	}
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
