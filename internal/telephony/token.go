package telephony

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenContentType identifies a Twilio first-party access token.
const tokenContentType = "twilio-fpa;v=1"

// TokenIssuer mints Twilio access tokens for browser and mobile clients that
// dial into the voice application. Tokens are HS256-signed with the API key
// secret and carry a voice grant scoped to one TwiML application.
type TokenIssuer struct {
	accountSID string
	apiKeySID  string
	apiSecret  string
	appSID     string
	ttl        time.Duration
}

// NewTokenIssuer creates a token issuer. ttl bounds token validity; zero
// selects one hour.
func NewTokenIssuer(accountSID, apiKeySID, apiSecret, appSID string, ttl time.Duration) (*TokenIssuer, error) {
	if accountSID == "" || apiKeySID == "" || apiSecret == "" {
		return nil, fmt.Errorf("telephony: token issuer requires account SID, API key SID and secret")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{
		accountSID: accountSID,
		apiKeySID:  apiKeySID,
		apiSecret:  apiSecret,
		appSID:     appSID,
		ttl:        ttl,
	}, nil
}

type accessTokenClaims struct {
	jwt.RegisteredClaims
	Grants map[string]any `json:"grants"`
}

// Issue mints a signed access token for the given client identity.
func (t *TokenIssuer) Issue(identity string) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("telephony: token identity must not be empty")
	}

	now := time.Now()
	voiceGrant := map[string]any{
		"incoming": map[string]any{"allow": true},
	}
	if t.appSID != "" {
		voiceGrant["outgoing"] = map[string]any{"application_sid": t.appSID}
	}

	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%s", t.apiKeySID, uuid.NewString()),
			Issuer:    t.apiKeySID,
			Subject:   t.accountSID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Grants: map[string]any{
			"identity": identity,
			"voice":    voiceGrant,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["cty"] = tokenContentType

	signed, err := token.SignedString([]byte(t.apiSecret))
	if err != nil {
		return "", fmt.Errorf("telephony: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token previously minted by this issuer and returns the
// client identity it carries. Used by tests and by request validation.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	var claims accessTokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Method.Alg())
		}
		return []byte(t.apiSecret), nil
	}, jwt.WithIssuer(t.apiKeySID), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("telephony: verify token: %w", err)
	}

	identity, _ := claims.Grants["identity"].(string)
	if identity == "" {
		return "", fmt.Errorf("telephony: token carries no identity grant")
	}
	return identity, nil
}
