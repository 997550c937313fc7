package authtoken

import (
	"crypto/sha256"
	"errors"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var ErrInvalidToken = errors.New("invalid session token")

type Claims struct {
	jwt.Claims
	UserID string `json:"uid"`
}

// Issuer signs and verifies session tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	// go-jose requires HS256 keys of at least 32 bytes; hashing the
	// configured secret gives a fixed-length key whatever its size.
	key := sha256.Sum256([]byte(secret))
	return &Issuer{secret: key[:], ttl: ttl}
}

func (i *Issuer) Sign(userID string) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: i.secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		Claims: jwt.Claims{
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UserID: userID,
	}

	return jwt.Signed(signer).Claims(claims).Serialize()
}

// Verify returns the user ID carried by a valid, unexpired token.
func (i *Issuer) Verify(raw string) (string, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return "", ErrInvalidToken
	}

	var claims Claims
	if err := tok.Claims(i.secret, &claims); err != nil {
		return "", ErrInvalidToken
	}

	if err := claims.Validate(jwt.Expected{Time: time.Now()}); err != nil {
		return "", ErrInvalidToken
	}

	if claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
