package remote

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/dunglas/httpsfv"
)

// SignatureHeader carries the body signature on outbound calls.
// Value is an RFC 8941 dictionary: kid="<publicKey>", sig=:<base64 hmac>:, ts=<unix seconds>.
const SignatureHeader = "X-Integration-Signature"

// Sign returns HMAC-SHA256 of body keyed by the shared secret.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureValue builds the SignatureHeader value for body.
func SignatureValue(kid, secret string, body []byte, ts time.Time) (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("kid", httpsfv.NewItem(kid))
	dict.Add("sig", httpsfv.NewItem(Sign(secret, body)))
	dict.Add("ts", httpsfv.NewItem(ts.Unix()))

	value, err := httpsfv.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("encoding signature header: %w", err)
	}
	return value, nil
}

// Signature is a parsed SignatureHeader value.
type Signature struct {
	KeyID     string
	MAC       []byte
	Timestamp time.Time
}

// ParseSignature decodes a SignatureHeader value.
func ParseSignature(header string) (*Signature, error) {
	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return nil, fmt.Errorf("invalid signature header: %w", err)
	}

	var sig Signature
	if sig.KeyID, err = dictValue[string](dict, "kid"); err != nil {
		return nil, err
	}
	if sig.MAC, err = dictValue[[]byte](dict, "sig"); err != nil {
		return nil, err
	}
	ts, err := dictValue[int64](dict, "ts")
	if err != nil {
		return nil, err
	}
	sig.Timestamp = time.Unix(ts, 0)
	return &sig, nil
}

// Verify checks the MAC against body using constant-time comparison.
func (s *Signature) Verify(secret string, body []byte) bool {
	return hmac.Equal(s.MAC, Sign(secret, body))
}

func dictValue[T any](dict *httpsfv.Dictionary, key string) (T, error) {
	var zero T
	member, ok := dict.Get(key)
	if !ok {
		return zero, fmt.Errorf("signature header: %s missing", key)
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return zero, errors.New("signature header: " + key + " must be an item")
	}
	v, ok := item.Value.(T)
	if !ok {
		return zero, fmt.Errorf("signature header: %s has type %T", key, item.Value)
	}
	return v, nil
}
