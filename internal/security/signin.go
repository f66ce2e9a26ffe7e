package security

import (
	"errors"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
)

// ErrInvalidLink is returned for sign-in tokens that are malformed, forged or
// older than the link TTL.
var ErrInvalidLink = errors.New("invalid or expired sign-in link")

// LinkSigner issues and verifies the Fernet tokens embedded in emailed
// sign-in links. The first key signs; every key verifies, so keys can rotate.
type LinkSigner struct {
	keys []*fernet.Key
	ttl  time.Duration
}

func NewLinkSigner(primary string, ttl time.Duration, previous ...string) (*LinkSigner, error) {
	k, err := fernet.DecodeKey(strings.TrimSpace(primary))
	if err != nil {
		return nil, errors.New("sign-in key must be a base64 encoded 32-byte Fernet key")
	}
	keys := []*fernet.Key{k}
	for _, raw := range previous {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		pk, err := fernet.DecodeKey(raw)
		if err != nil {
			return nil, errors.New("previous sign-in key is not a valid Fernet key")
		}
		keys = append(keys, pk)
	}
	return &LinkSigner{keys: keys, ttl: ttl}, nil
}

// Sign returns a token carrying email.
func (s *LinkSigner) Sign(email string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(email), s.keys[0])
	if err != nil {
		return "", err
	}
	return string(tok), nil
}

// Verify returns the email inside a token minted within the TTL.
func (s *LinkSigner) Verify(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), s.ttl, s.keys)
	if msg == nil {
		return "", ErrInvalidLink
	}
	return string(msg), nil
}
