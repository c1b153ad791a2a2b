// Package security issues and validates the bearer tokens that guard the geointel API.
package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the "role" claim.
const (
	// RoleViewer may read events, filter options, analyses and exports.
	RoleViewer = "viewer"
	// RoleOperator may additionally ingest, import and generate events.
	RoleOperator = "operator"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired or signed by another key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrCannotSign is returned by IssueAccess on a verify-only provider.
	ErrCannotSign = errors.New("token provider has no private key")
)

// AccessClaims holds JWT claims for API access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Identity is the authenticated caller extracted from a valid token.
type Identity struct {
	Subject string
	Role    string
}

// ValidRole reports whether role is one geointel understands.
func ValidRole(role string) bool {
	return role == RoleViewer || role == RoleOperator
}

// TokenProvider issues and validates access JWTs using RS256 or ES256. A provider built by
// NewVerifier holds only the public key and cannot issue.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a provider that signs with privateKey and verifies with publicKey.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		now:        time.Now,
	}
}

// NewVerifier returns a validate-only provider.
func NewVerifier(publicKey crypto.PublicKey, issuer, audience string) *TokenProvider {
	return NewTokenProvider(nil, publicKey, issuer, audience, 0)
}

// IssueAccess issues an access JWT for subject with the given role.
// Returns the token string and its expiration time.
func (p *TokenProvider) IssueAccess(subject, role string) (token string, expiresAt time.Time, err error) {
	if p.privateKey == nil {
		return "", time.Time{}, ErrCannotSign
	}
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := p.now().UTC().Truncate(time.Second)
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	var method jwt.SigningMethod
	switch KeyAlg(p.privateKey.Public()) {
	case AlgRS256:
		method = jwt.SigningMethodRS256
	case AlgES256:
		method = jwt.SigningMethodES256
	default:
		return "", time.Time{}, ErrInvalidKey
	}
	token, err = jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	return token, expiresAt, err
}

// ValidateAccess parses and validates the access token (signature, exp, iss, aud, role).
func (p *TokenProvider) ValidateAccess(tokenString string) (*Identity, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return p.publicKey, nil },
		jwt.WithValidMethods([]string{AlgRS256, AlgES256}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || !ValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}
	return &Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
