package privy

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Issuer is the iss claim Privy stamps into its access tokens.
const Issuer = "privy.io"

// Claims is the decoded payload of a verified token.
type Claims map[string]any

// Verifier validates Privy access tokens: ES256 signature against the
// resolved verification key, audience equal to the app id, issuer and
// expiry. It fails closed.
type Verifier struct {
	resolver KeyResolver
	appID    string
	logger   *zap.Logger
}

func NewVerifier(resolver KeyResolver, appID string, logger *zap.Logger) *Verifier {
	return &Verifier{resolver: resolver, appID: appID, logger: logger}
}

// Verify checks the token and returns its claims. Errors are one of
// ErrTokenExpired, ErrTokenInvalid or ErrKeyResolution; no further
// detail about which check failed is exposed.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (Claims, error) {
	key, err := v.resolver.Key(ctx)
	if err != nil {
		return nil, err
	}

	claims, err := v.parse(tokenString, key)
	if err == nil {
		return claims, nil
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}

	// The signature may have failed because the provider rotated its key
	// after we cached it. Refetch once and retry before rejecting.
	fresh, rerr := v.resolver.Refresh(ctx)
	if rerr == nil && fresh != nil && !fresh.Equal(key) {
		claims, err = v.parse(tokenString, fresh)
		if err == nil {
			v.logger.Info("token verified after key refresh")
			return claims, nil
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
	}

	v.logger.Warn("token verification failed", zap.Error(err))
	return nil, ErrTokenInvalid
}

func (v *Verifier) parse(tokenString string, key any) (Claims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"ES256"}),
		jwt.WithAudience(v.appID),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token not valid")
	}
	return Claims(claims), nil
}
