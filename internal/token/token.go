// Package token implements the bearer token scheme shared with the partner system.
//
// Tokens are PASETO v4.local: an encrypted JSON payload followed by an unencrypted
// footer that names the key (kid) the payload was encrypted with:
//
//	v4.local.<encrypted payload>.<base64url footer>
//
// Validity is a time window only (issued-at, not-before, expiry). Tokens are not
// single-use; the short default TTL bounds replay exposure.
package token

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"golang.org/x/crypto/blake2b"

	"orderbridge/internal/model"
)

// DefaultTTL is the lifetime of freshly minted tokens.
const DefaultTTL = 5 * time.Minute

// DefaultSkew is the clock drift tolerated on issued-at and not-before.
const DefaultSkew = 30 * time.Second

// Sentinel errors returned by Verify. The HTTP layer maps each to a protocol error code.
var (
	ErrMalformed           = errors.New("malformed token")
	ErrKeyMismatch         = errors.New("token key id does not match")
	ErrIntegrationMismatch = errors.New("token integration id does not match")
	ErrDecryption          = errors.New("token decryption failed")
	ErrExpired             = errors.New("token expired")
	ErrNotYetValid         = errors.New("token not yet valid")
)

// DecryptionError wraps the underlying PASETO failure (tamper, wrong key, footer mismatch).
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("%v: %v", ErrDecryption, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *DecryptionError) Unwrap() []error {
	return []error{ErrDecryption, e.Err}
}

// Footer is the JSON footer this service writes.
type Footer struct {
	KeyID string `json:"kid"`
}

// Claims is the verified view of a token payload.
type Claims struct {
	IssuedAt      time.Time
	NotBefore     time.Time
	Expiration    time.Time
	IntegrationID string
	Raw           json.RawMessage
}

// Codec encodes, decodes and verifies tokens.
type Codec struct {
	now  func() time.Time
	skew time.Duration
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithSkew overrides the tolerated clock drift.
func WithSkew(d time.Duration) Option {
	return func(c *Codec) { c.skew = d }
}

// New creates a Codec using the wall clock and DefaultSkew.
func New(opts ...Option) *Codec {
	c := &Codec{now: time.Now, skew: DefaultSkew}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DecodeFooter returns the raw-decoded footer segment of a token.
// A leading "Bearer " is stripped. Returns false if the token has fewer than
// four dot-separated segments or the footer segment is empty.
func DecodeFooter(token string) ([]byte, bool) {
	segs := strings.Split(stripBearer(token), ".")
	if len(segs) < 4 {
		return nil, false
	}
	last := strings.TrimRight(segs[len(segs)-1], "=")
	if last == "" {
		return nil, false
	}
	footer, err := base64.RawURLEncoding.DecodeString(last)
	if err != nil || len(footer) == 0 {
		return nil, false
	}
	return footer, true
}

// FooterKeyID extracts the key id from a footer.
// A footer that is not a JSON object is itself the key id.
func FooterKeyID(footer []byte) (string, bool) {
	if len(footer) == 0 {
		return "", false
	}
	var f map[string]any
	if err := json.Unmarshal(footer, &f); err != nil {
		return string(footer), true
	}
	kid, _ := f["kid"].(string)
	if kid == "" {
		return "", false
	}
	return kid, true
}

// Decrypt authenticates and decrypts token with secretKey and returns the payload JSON.
// When footer is non-nil it must equal the footer carried by the token.
// Expiry is not checked here; see IsExpired.
func (c *Codec) Decrypt(token, secretKey string, footer []byte) ([]byte, error) {
	key, err := symmetricKey(secretKey)
	if err != nil {
		return nil, &DecryptionError{Err: err}
	}

	parser := paseto.NewParserWithoutExpiryCheck()
	parsed, err := parser.ParseV4Local(key, stripBearer(token), nil)
	if err != nil {
		return nil, &DecryptionError{Err: err}
	}

	if footer != nil && !bytes.Equal(parsed.Footer(), footer) {
		return nil, &DecryptionError{Err: errors.New("footer mismatch")}
	}

	return parsed.ClaimsJSON(), nil
}

// IsExpired reports whether a decrypted payload must be treated as expired.
// Fails closed: a missing or unparsable exp counts as expired.
func (c *Codec) IsExpired(payload []byte) bool {
	exp, ok := claimTime(payload, "exp")
	if !ok {
		return true
	}
	return c.now().After(exp)
}

// Create mints a token with iat = nbf = now and exp = now + ttl, carrying footer unencrypted.
// A non-positive ttl uses DefaultTTL.
func (c *Codec) Create(secretKey string, footer []byte, ttl time.Duration) (string, error) {
	return c.CreateWithClaims(secretKey, footer, ttl, nil)
}

// CreateWithClaims is Create with extra payload claims.
func (c *Codec) CreateWithClaims(secretKey string, footer []byte, ttl time.Duration, claims map[string]any) (string, error) {
	key, err := symmetricKey(secretKey)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	tok := paseto.NewToken()
	for k, v := range claims {
		if err := tok.Set(k, v); err != nil {
			return "", fmt.Errorf("setting claim %s: %w", k, err)
		}
	}

	now := c.now()
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(now.Add(ttl))
	tok.SetFooter(footer)

	return tok.V4Encrypt(key, nil), nil
}

// Mint creates a token for this installation: footer {"kid": publicKey}, claim iid.
func (c *Codec) Mint(creds model.Credentials, ttl time.Duration) (string, error) {
	footer, err := json.Marshal(Footer{KeyID: creds.PublicKey})
	if err != nil {
		return "", fmt.Errorf("encoding footer: %w", err)
	}
	return c.CreateWithClaims(creds.SecretKey, footer, ttl, map[string]any{"iid": creds.IntegrationID})
}

// Verify runs the full inbound check: footer, key id, decryption, expiry and
// the issued-at/not-before window. The integration id is only compared when
// the token carries an iid claim.
func (c *Codec) Verify(token string, creds model.Credentials) (*Claims, error) {
	footer, ok := DecodeFooter(token)
	if !ok {
		return nil, fmt.Errorf("%w: missing footer", ErrMalformed)
	}
	kid, ok := FooterKeyID(footer)
	if !ok {
		return nil, fmt.Errorf("%w: footer has no key id", ErrMalformed)
	}
	if kid != creds.PublicKey {
		return nil, ErrKeyMismatch
	}

	payload, err := c.Decrypt(token, creds.SecretKey, footer)
	if err != nil {
		return nil, err
	}

	if c.IsExpired(payload) {
		return nil, ErrExpired
	}

	now := c.now()
	claims := &Claims{Raw: payload}
	claims.Expiration, _ = claimTime(payload, "exp")
	if nbf, ok := claimTime(payload, "nbf"); ok {
		claims.NotBefore = nbf
		if now.Before(nbf.Add(-c.skew)) {
			return nil, ErrNotYetValid
		}
	}
	if iat, ok := claimTime(payload, "iat"); ok {
		claims.IssuedAt = iat
		if now.Before(iat.Add(-c.skew)) {
			return nil, ErrNotYetValid
		}
	}

	var extra struct {
		IntegrationID string `json:"iid"`
	}
	_ = json.Unmarshal(payload, &extra)
	claims.IntegrationID = extra.IntegrationID
	if extra.IntegrationID != "" && creds.IntegrationID != "" && extra.IntegrationID != creds.IntegrationID {
		return nil, ErrIntegrationMismatch
	}

	return claims, nil
}

// stripBearer removes an Authorization scheme prefix.
func stripBearer(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// symmetricKey derives the 32-byte v4.local key from the shared secret.
// 64 hex characters decode directly, 32 raw bytes are used as-is, anything
// else is hashed with BLAKE2b-256.
func symmetricKey(secret string) (paseto.V4SymmetricKey, error) {
	if secret == "" {
		return paseto.V4SymmetricKey{}, errors.New("secret key is empty")
	}

	var material []byte
	switch {
	case len(secret) == 64 && isHex(secret):
		material, _ = hex.DecodeString(secret)
	case len(secret) == 32:
		material = []byte(secret)
	default:
		sum := blake2b.Sum256([]byte(secret))
		material = sum[:]
	}

	key, err := paseto.V4SymmetricKeyFromBytes(material)
	if err != nil {
		return paseto.V4SymmetricKey{}, fmt.Errorf("deriving key: %w", err)
	}
	return key, nil
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

// timeLayouts are the ISO-8601 shapes accepted for time claims.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
}

// claimTime reads an ISO-8601 time claim from a payload.
func claimTime(payload []byte, name string) (time.Time, bool) {
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, false
	}
	raw, ok := claims[name].(string)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
