// Package token produces the signed bearer tokens used to authenticate
// against a Content Cloud listing endpoint.
package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// Fixed claim values expected by the reference application.
const (
	Audience = "wday-cc-refapp"
	Issuer   = "wday-cc"
	Subject  = "wday-cc"
	KeyID    = "wday-cc-kid-1"
)

const (
	DefaultKeyPath = "./key.pem"
	DefaultTTL     = 24 * time.Hour
	keyBits        = 2048
)

var (
	ErrKeyRead      = errors.New("failed to read signing key")
	ErrKeyParse     = errors.New("failed to parse signing key")
	ErrSigning      = errors.New("failed to sign token")
	ErrInvalidToken = errors.New("invalid token")
)

// Provider signs tokens with the RSA key found at keyPath.
type Provider struct {
	keyPath string
	ttl     time.Duration
	now     func() time.Time
}

// ProviderOption configures the Provider.
type ProviderOption func(*Provider)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) { p.ttl = ttl }
}

// WithClock sets the time source used for iat/exp (useful for testing).
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) { p.now = now }
}

func NewProvider(keyPath string, opts ...ProviderOption) *Provider {
	if keyPath == "" {
		keyPath = DefaultKeyPath
	}
	p := &Provider{keyPath: keyPath, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// KeyPath returns the location the key is read from.
func (p *Provider) KeyPath() string {
	return p.keyPath
}

// Generate reads the private key and returns a freshly signed token.
// A nil error always comes with a non-empty token.
func (p *Provider) Generate(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := LoadPrivateKey(p.keyPath)
	if err != nil {
		return "", err
	}

	return Sign(key, p.now(), p.ttl)
}

// Sign builds the RS512 token for the fixed claim set.
func Sign(key *rsa.PrivateKey, issuedAt time.Time, ttl time.Duration) (string, error) {
	if key == nil {
		return "", fmt.Errorf("%w: no key", ErrSigning)
	}

	opts := (&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", KeyID)
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS512, Key: key}, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}

	claims := jwt.Claims{
		Issuer:   Issuer,
		Subject:  Subject,
		Audience: jwt.Audience{Audience},
		IssuedAt: jwt.NewNumericDate(issuedAt),
		Expiry:   jwt.NewNumericDate(issuedAt.Add(ttl)),
	}

	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	if raw == "" {
		return "", fmt.Errorf("%w: empty token", ErrSigning)
	}

	return raw, nil
}

// Verify checks signature, algorithm, key id and the fixed claims of raw.
func Verify(raw string, pub *rsa.PublicKey, now time.Time) (*jwt.Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS512})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if len(tok.Headers) != 1 || tok.Headers[0].KeyID != KeyID {
		return nil, fmt.Errorf("%w: unexpected key id", ErrInvalidToken)
	}

	var claims jwt.Claims
	if err := tok.Claims(pub, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	expected := jwt.Expected{
		Issuer:      Issuer,
		Subject:     Subject,
		AnyAudience: jwt.Audience{Audience},
		Time:        now,
	}
	if err := claims.ValidateWithLeeway(expected, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &claims, nil
}

// LoadPrivateKey reads a PEM encoded RSA key (PKCS#1 or PKCS#8).
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrKeyRead, path, err)
	}

	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return key, nil
}

func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrKeyParse)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyParse, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyParse, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: key is %T, RS512 needs RSA", ErrKeyParse, parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PEM block %q", ErrKeyParse, block.Type)
	}
}

// GenerateKeyFile writes a new PKCS#1 RSA key to path and returns it.
// The file is created owner read/write only.
func GenerateKeyFile(path string) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write key: %w", err)
	}

	return key, nil
}

// EncodePublicKey returns pub as a PEM "PUBLIC KEY" block, the form an
// endpoint needs to verify tokens.
func EncodePublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to encode public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
