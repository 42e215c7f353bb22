package config

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSigningKey = errors.New("no JWT private key configured")

// OwnerClaims identify who submitted an experiment or opened a session.
type OwnerClaims struct {
	Owner string `json:"owner"`
	jwt.RegisteredClaims
}

func NewOwnerClaims(owner string, lifetime time.Duration) *OwnerClaims {
	now := time.Now()
	return &OwnerClaims{
		Owner: owner,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
}

type JWT struct {
	publicKey     *rsa.PublicKey
	privateKey    *rsa.PrivateKey
	signingMethod jwt.SigningMethod
	TokenLifetime time.Duration
}

// loadPEM reads name or, failing that, the file named by name_FILE.
// It returns nil without error when neither is set.
func loadPEM(name string) ([]byte, error) {
	if s, ok := os.LookupEnv(name); ok && s != "" {
		return []byte(s), nil
	}
	path, ok := os.LookupEnv(name + "_FILE")
	if !ok || path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s_FILE: %w", name, err)
	}
	return b, nil
}

// NewJWT loads the RS256 key pair. It returns nil when no public key is
// configured, which disables authentication. The private key is only
// needed to issue tokens.
func NewJWT() (*JWT, error) {
	publicPEM, err := loadPEM("JWT_PUBLIC_KEY")
	if err != nil {
		return nil, err
	}
	if publicPEM == nil {
		return nil, nil
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("unable to parse JWT public key: %w", err)
	}

	j := &JWT{
		publicKey:     publicKey,
		signingMethod: jwt.SigningMethodRS256,
		TokenLifetime: time.Hour * 24 * 30,
	}

	privatePEM, err := loadPEM("JWT_PRIVATE_KEY")
	if err != nil {
		return nil, err
	}
	if privatePEM != nil {
		j.privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
		if err != nil {
			return nil, fmt.Errorf("unable to parse JWT private key: %w", err)
		}
	}

	if s, ok := os.LookupEnv("JWT_TOKEN_LIFETIME"); ok && s != "" {
		j.TokenLifetime, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_TOKEN_LIFETIME: %w", err)
		}
	}

	return j, nil
}

func NewJWTFromKeys(private *rsa.PrivateKey, public *rsa.PublicKey) *JWT {
	return &JWT{
		publicKey:     public,
		privateKey:    private,
		signingMethod: jwt.SigningMethodRS256,
		TokenLifetime: time.Hour,
	}
}

func (j *JWT) Sign(claims jwt.Claims) (string, error) {
	if j.privateKey == nil {
		return "", ErrNoSigningKey
	}
	return jwt.NewWithClaims(j.signingMethod, claims).SignedString(j.privateKey)
}

func (j *JWT) ParseOwnerClaims(tokenString string) (*OwnerClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&OwnerClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return j.publicKey, nil
		},
		jwt.WithValidMethods([]string{j.signingMethod.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*OwnerClaims)
	if !ok || claims.Owner == "" {
		return nil, fmt.Errorf("malformed claims")
	}
	return claims, nil
}
