package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"aeolus/logger"

	"github.com/fernet/fernet-go"
	"github.com/pkg/errors"
)

// DefaultTTL is how long a token stays valid after encryption.
const DefaultTTL = 24 * time.Hour

var (
	ErrKeyMissing       = errors.New("token: decryption key not configured")
	ErrInvalidToken     = errors.New("token: invalid or expired")
	ErrMalformedPayload = errors.New("token: malformed payload")
)

// Claims is the decoded identity carried by a session token. Immutable once
// constructed; only a successful Decode produces one.
type Claims struct {
	UserID    int
	RoleID    int
	ChannelID int
}

// Codec decrypts fernet session tokens. The payload is "userId:roleId:channelId",
// all base-10 integers.
type Codec struct {
	key *fernet.Key
	ttl time.Duration
}

// NewCodec builds a codec from a base64 fernet key. An empty or undecodable
// key yields a codec that refuses every token; the fault is logged here once
// rather than crashing the process.
func NewCodec(key string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Codec{ttl: ttl}
	if key == "" {
		return c
	}
	k, err := fernet.DecodeKey(key)
	if err != nil {
		logger.Errorf("invalid fernet key: %v", err)
		return c
	}
	c.key = k
	return c
}

// Decode decrypts and validates tok. Any failure yields no identity; never a
// partial one. Token contents are never logged.
func (c *Codec) Decode(tok string) (Claims, error) {
	if c.key == nil {
		logger.Error("fernet key not configured")
		return Claims{}, ErrKeyMissing
	}

	msg := fernet.VerifyAndDecrypt([]byte(tok), c.ttl, []*fernet.Key{c.key})
	if msg == nil {
		logger.Warn("invalid or expired token")
		return Claims{}, ErrInvalidToken
	}

	parts := strings.Split(string(msg), ":")
	if len(parts) != 3 {
		logger.Warnf("invalid token format: expected 3 parts, got %d", len(parts))
		return Claims{}, ErrMalformedPayload
	}

	userID, err1 := strconv.Atoi(parts[0])
	roleID, err2 := strconv.Atoi(parts[1])
	channelID, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		logger.Warn("token contains non-integer ids")
		return Claims{}, ErrMalformedPayload
	}

	logger.Infof("token validated for user: %d", userID)
	return Claims{UserID: userID, RoleID: roleID, ChannelID: channelID}, nil
}

// Encode mints a token for the given claims. Used by the trusted side and by
// round-trip tests; clients never see this path.
func (c *Codec) Encode(cl Claims) (string, error) {
	if c.key == nil {
		return "", ErrKeyMissing
	}
	payload := fmt.Sprintf("%d:%d:%d", cl.UserID, cl.RoleID, cl.ChannelID)
	tok, err := fernet.EncryptAndSign([]byte(payload), c.key)
	if err != nil {
		return "", errors.Wrap(err, "encrypt token")
	}
	return string(tok), nil
}
