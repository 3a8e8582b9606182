// Package auth verifies bearer credentials issued by the account service.
//
// The game service never mints tokens; it only checks that a presented
// credential resolves to a stable user id before trusting any claimed
// participant identity.
package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates the credential failed signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// verifierEnv holds raw env values before post-parse validation.
type verifierEnv struct {
	Issuer    string `env:"PAIRSPACE_AUTH_ISSUER"`
	Audience  string `env:"PAIRSPACE_AUTH_AUDIENCE"`
	PublicKey string `env:"PAIRSPACE_AUTH_PUBLIC_KEY"`
}

// Config defines how bearer tokens are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Verifier validates bearer tokens and resolves the subject user id.
type Verifier struct {
	cfg Config
}

type tokenClaims struct {
	jwt.RegisteredClaims
}

// LoadConfigFromEnv reads token verification configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw verifierEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse auth env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return Config{}, fmt.Errorf("PAIRSPACE_AUTH_ISSUER is required")
	}
	if audience == "" {
		return Config{}, fmt.Errorf("PAIRSPACE_AUTH_AUDIENCE is required")
	}
	if publicKey == "" {
		return Config{}, fmt.Errorf("PAIRSPACE_AUTH_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode auth public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Config{}, fmt.Errorf("auth public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// NewVerifier builds a Verifier from config.
func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, fmt.Errorf("audience is required")
	}
	if len(cfg.Key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes", ed25519.PublicKeySize)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify checks the token signature and registered claims and returns the
// subject user id.
func (v *Verifier) Verify(token string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("verifier is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.cfg.Now),
	)

	var claims tokenClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.cfg.Key, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

func decodeBase64(value string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}
